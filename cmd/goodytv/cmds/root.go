// Package cmds holds the goodytv command tree.
package cmds

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voyagen/goodytv/internal/config"
	"github.com/voyagen/goodytv/internal/logging"
)

var cfgFile string

func NewRootCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "goodytv",
		Short:        "GoodyTV live TV client and license backend",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: environment and .env)")

	rootCmd.AddCommand(NewServeCLI())
	rootCmd.AddCommand(NewChannelsCLI())
	rootCmd.AddCommand(NewGuideCLI())
	rootCmd.AddCommand(NewPlayCLI())
	rootCmd.AddCommand(NewFavoriteCLI())
	rootCmd.AddCommand(NewPlaylistsCLI())
	rootCmd.AddCommand(NewHistoryCLI())
	rootCmd.AddCommand(NewKeygenCLI())
	rootCmd.AddCommand(NewTrialCLI())
	rootCmd.AddCommand(NewUnlockCLI())
	rootCmd.AddCommand(NewPurchaseCLI())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

// newLogger applies the configured level on top of logging.New, so a
// level set in the YAML file wins over LOG_LEVEL.
func newLogger(cfg *config.Config, service string) *logrus.Entry {
	log := logging.New(service)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		log.Logger.SetLevel(lvl)
	}
	return log
}
