package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ca-srg/hellobot/internal/config"
	"github.com/ca-srg/hellobot/internal/function"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda function behind API Gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(context.Background(), config.ModeLambda)
		if err != nil {
			return err
		}
		receiver, err := a.receiver()
		if err != nil {
			return err
		}

		handler := function.NewHandler(receiver, a.logger)
		handler.SetFlush(a.telemetry.ForceFlush)
		a.logger.Printf("Starting Lambda handler...")
		handler.Start(a.shutdown)
		return nil
	},
}
