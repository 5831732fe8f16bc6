/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/daybook/apiserver/config"
	applog "github.com/daybook/apiserver/internal/log"
	"github.com/daybook/apiserver/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the daybook backend server",
	Long: `Starts the daybook backend server. Usage:

	daybook server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		applog.Init(cfg.Env)

		srv, err := server.New(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}
		log.Info().Int("port", cfg.ServerPort).Msg("server listening")
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
