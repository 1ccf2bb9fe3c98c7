package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"idiom-quiz-bot/internal/bot"
	"idiom-quiz-bot/internal/config"
)

func newBotCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Serve the game over Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, err := newEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			tg, err := bot.New(cfg, eng.router)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return eng.scheduler.Run(ctx) })
			g.Go(func() error { return eng.serveMetrics(ctx) })
			g.Go(func() error { return tg.Run(ctx) })

			err = g.Wait()
			log.Info().Msg("Bot stopped gracefully")
			return err
		},
	}
}
