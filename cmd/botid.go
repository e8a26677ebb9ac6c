package cmd

import (
	"errors"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/procurebot/relay/internal/slackbot"
	logx "github.com/procurebot/relay/pkg/logger"
)

var botName string

var botIDCmd = &cobra.Command{
	Use:   "botid",
	Short: "Print the Slack user id of the bot",
	Long:  `Lists the workspace members and prints the id of the user named SLACK_BOT_NAME (or --name). Put it in SLACK_BOT_ID.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(envFile)
		if err != nil {
			return err
		}
		logx.Init(logx.LoggerOpts{Environment: cfg.Env()})

		name := cfg.Slack.BotName
		if botName != "" {
			name = botName
		}
		id, err := slackbot.FindBotID(cmd.Context(), slack.New(cfg.Slack.BotToken), name)
		if errors.Is(err, slackbot.ErrBotNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "could not find bot user with the name %s\n", name)
			return err
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Bot ID for '%s' is %s\n", name, id)
		return nil
	},
}

func init() {
	botIDCmd.Flags().StringVar(&botName, "name", "", "bot user name (defaults to SLACK_BOT_NAME)")
	rootCmd.AddCommand(botIDCmd)
}
