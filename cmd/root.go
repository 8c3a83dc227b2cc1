// Package cmd wires the CLI: configuration, logging, and the serve/invoke
// entry points.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/browserpilot/browserpilot/internal/config"
	"github.com/browserpilot/browserpilot/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "browserpilot",
	Short:   "browserpilot relays natural-language commands to a live browser session.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		config.SetDefaults(v)

		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.AddConfigPath(".")
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}

		v.SetEnvPrefix("BROWSERPILOT")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file: %w", err)
			}
			// No config file is fine; defaults and env vars carry it.
		}

		loaded, err := config.New(v)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = observability.NewLogger(cfg.Logger)
		if err != nil {
			return err
		}
		logger.Info("Starting browserpilot", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	observability.Sync(logger)
	if err != nil {
		if logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
