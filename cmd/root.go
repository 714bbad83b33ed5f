package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slackbridge",
	Short: "Slackbridge - Slack event bridge for bot runtimes",
	Long: `Slackbridge receives Slack Events API deliveries, matches them against
pattern subscriptions registered by a downstream bot runtime, retains the
matched events for later replies, and forwards them to the runtime over HTTP.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
