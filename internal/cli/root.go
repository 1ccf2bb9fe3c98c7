// Package cli wires configuration, storage and transports into cobra commands.
package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"idiom-quiz-bot/internal/config"
)

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config"
	}

	var cfg config.Config

	cmd := &cobra.Command{
		Use:           "idiom-quiz-bot",
		Short:         "Picture idiom guessing game with a daily scoring window",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = *loaded
			setLogLevel(cfg.Log.Level)
			log.Info().Str("storage", cfg.Storage.Driver).Msg("Configuration loaded successfully")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", configPath, "directory containing config.yaml")
	cmd.AddCommand(newBotCmd(&cfg))
	cmd.AddCommand(newConsoleCmd(&cfg))
	cmd.AddCommand(newCheckBankCmd(&cfg))
	return cmd
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
