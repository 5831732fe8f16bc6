package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/daybook/apiserver/internal/mq"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventsChannel is the single broker channel all domain events go to.
const EventsChannel = "daybook.events"

// Domain event types.
const (
	EventUserRegistered = "user.registered"
	EventTodoCompleted  = "todo.completed"
	EventJournalCreated = "journal.created"
)

// Event is the broker payload for a domain event.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher emits domain events to the configured broker. Publishing
// is best-effort: failures are logged and never surface to the request
// that triggered them. A nil publisher is safe and publishes nothing.
type EventPublisher struct {
	mq *mq.MQ
}

func NewEventPublisher(broker *mq.MQ) *EventPublisher {
	return &EventPublisher{mq: broker}
}

// UserRegistered reports a completed registration.
func (p *EventPublisher) UserRegistered(ctx context.Context, userID uuid.UUID, username string) {
	p.publish(ctx, Event{
		Type:       EventUserRegistered,
		UserID:     userID.String(),
		Subject:    username,
		OccurredAt: time.Now(),
	})
}

// TodoCompleted reports a to-do item transitioning to complete.
func (p *EventPublisher) TodoCompleted(ctx context.Context, userID *uuid.UUID, title string) {
	event := Event{
		Type:       EventTodoCompleted,
		Subject:    title,
		OccurredAt: time.Now(),
	}
	if userID != nil {
		event.UserID = userID.String()
	}
	p.publish(ctx, event)
}

// JournalCreated reports a new journal entry.
func (p *EventPublisher) JournalCreated(ctx context.Context, userID *uuid.UUID, entryDate time.Time) {
	event := Event{
		Type:       EventJournalCreated,
		Subject:    entryDate.Format("2006-01-02"),
		OccurredAt: time.Now(),
	}
	if userID != nil {
		event.UserID = userID.String()
	}
	p.publish(ctx, event)
}

func (p *EventPublisher) publish(ctx context.Context, event Event) {
	if p == nil || p.mq == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("encode event")
		return
	}
	attrs := map[string]string{"type": event.Type}
	if _, err := p.mq.Publish(ctx, EventsChannel, data, attrs); err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("publish event")
	}
}
