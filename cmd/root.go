package cmd

import (
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Slack relay for procurement questions",
	Long: `relay listens to a Slack workspace, sends each message to a dialogue
engine (Watson Assistant or Gemini) and answers PO status, PR approver and
vendor availability questions from the procurement backend.`,
	SilenceUsage: true,
}

// Execute runs the root command. With no subcommand it starts the relay.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.RunE = runCmd.RunE
}
