package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ca-srg/hellobot/internal/config"
	"github.com/ca-srg/hellobot/internal/slackbot"
)

var socketCmd = &cobra.Command{
	Use:   "socket",
	Short: "Receive events over Slack Socket Mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx, config.ModeSocket)
		if err != nil {
			return err
		}
		defer a.shutdown()

		bot, err := slackbot.NewSocketBot(a.client, a.dispatcher, a.logger)
		if err != nil {
			return err
		}
		a.logger.Printf("Starting Slack Bot (Socket Mode)...")
		return bot.Start(ctx)
	},
}
