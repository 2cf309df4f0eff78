package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ca-srg/hellobot/internal/function"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "hellobot",
	Short: "hellobot - Slack bot that greets whoever mentions it",
	Long: `hellobot answers Slack app_mention events with a threaded greeting that
quotes the message back. It runs as an AWS Lambda function behind API Gateway,
as a standalone HTTP server, or over Socket Mode.`,
	SilenceUsage: true,
}

// Execute runs the root command. Inside the Lambda runtime, where no
// arguments are passed, it defaults to the lambda subcommand.
func Execute() error {
	if len(os.Args) == 1 && function.InLambda() {
		rootCmd.SetArgs([]string{lambdaCmd.Name()})
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")

	rootCmd.AddCommand(lambdaCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(socketCmd)
}
