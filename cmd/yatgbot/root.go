package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
)

// Version is set via ldflags at build time.
var Version = "dev"

var botsFile string

var rootCmd = &cobra.Command{
	Use:   "yatgbot",
	Short: "Run several Telegram bots in one process",
	Long: `yatgbot reads bot definitions from a YAML file and runs every bot
side by side, over long polling or a shared webhook listener.
Process settings come from YATGBOT_-prefixed environment variables.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of yatgbot",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "yatgbot %s\n", Version)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&botsFile, "bots", "", "bots file path (overrides YATGBOT_BOTS_FILE)")
	rootCmd.AddCommand(versionCmd)
}

// loadSettings reads the process settings and builds the root logger.
func loadSettings() (config.Settings, yalogger.Logger, error) {
	var settings config.Settings

	bootstrap := yalogger.NewBaseLogger(nil).NewLogger()

	if err := config.LoadConfigStructFromEnv(&settings, bootstrap); err != nil {
		return settings, nil, err
	}

	if botsFile != "" {
		settings.BotsFile = botsFile
	}

	return settings, yalogger.NewBaseLogger(&settings.Log).NewLogger(), nil
}
