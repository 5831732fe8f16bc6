/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/daybook/apiserver/config"
	applog "github.com/daybook/apiserver/internal/log"
	"github.com/daybook/apiserver/internal/mq"
	"github.com/daybook/apiserver/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// workerCmd consumes domain events from the broker and writes them to the
// structured log as an audit trail.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume and log domain events from the configured broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		applog.Init(cfg.Env)

		broker, err := openWorkerBroker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = broker.Close()
		}()

		log.Info().Str("channel", services.EventsChannel).Msg("worker consuming events")
		err = broker.Subscribe(cmd.Context(), services.EventsChannel, logEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func openWorkerBroker(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.MQ.Backend {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("MQ_BACKEND must be set to run the worker, got %q", cfg.MQ.Backend)
	}
}

func logEvent(ctx context.Context, msg mq.Message) error {
	var event services.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Warn().Str("message_id", msg.ID).Msg("skipping malformed event")
		return nil
	}
	log.Info().
		Str("type", event.Type).
		Str("user_id", event.UserID).
		Str("subject", event.Subject).
		Time("occurred_at", event.OccurredAt).
		Msg("domain event")
	return nil
}
