package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
)

const checkTimeout = 15 * time.Second

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the bots file and the token of every bot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, log, err := loadSettings()
		if err != nil {
			return err
		}

		bots, yaErr := config.LoadBots(settings.BotsFile)
		if yaErr != nil {
			return yaErr
		}

		options, yaErr := clientOptions(settings, log)
		if yaErr != nil {
			return yaErr
		}

		failed := 0

		for _, bot := range bots {
			options.Token = bot.Token

			if err := checkBot(cmd, options, bot, log); err != nil {
				failed++

				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", bot.Name, err)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d bot(s) failed the check", failed, len(bots))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkBot(cmd *cobra.Command, options yatgclient.Options, bot config.BotConfig, log yalogger.Logger) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	client, err := yatgclient.NewClient(options, log.WithBot(bot.Name))
	if err != nil {
		return err
	}

	me, err := client.GetMe(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: @%s (%d, %s)\n", bot.Name, me.Username, me.ID, bot.Mode)

	return nil
}
