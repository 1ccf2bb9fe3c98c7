package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"idiom-quiz-bot/internal/config"
	"idiom-quiz-bot/internal/handler"
	"idiom-quiz-bot/internal/model"
)

func newConsoleCmd(cfg *config.Config) *cobra.Command {
	var user, name string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Play in the terminal, one message per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			eng, err := newEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return eng.scheduler.Run(ctx) })
			g.Go(func() error { return eng.serveMetrics(ctx) })
			g.Go(func() error {
				defer cancel()
				return runConsole(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), eng.router, user, name)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&user, "user", "console", "user id to play as")
	cmd.Flags().StringVar(&name, "name", "", "display name to play as")
	return cmd
}

// runConsole feeds lines from in to the router until EOF, "quit" or ctx ends.
// "/as <id> [name]" switches the current player; "help" prints the command list.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, router *handler.Router, user, name string) error {
	sc := bufio.NewScanner(in)
	fmt.Fprintln(out, router.HelpText())

	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := sc.Text()

		switch fields := strings.Fields(line); {
		case len(fields) == 1 && (fields[0] == "quit" || fields[0] == "exit"):
			return nil
		case len(fields) == 1 && fields[0] == "help":
			fmt.Fprintln(out, router.HelpText())
			continue
		case len(fields) >= 2 && fields[0] == "/as":
			user, name = fields[1], strings.Join(fields[2:], " ")
			fmt.Fprintf(out, "playing as %s\n", user)
			continue
		}

		msgs, handled := router.Handle(ctx, handler.Request{UserID: user, DisplayName: name, Text: line})
		if !handled {
			continue
		}
		for _, m := range msgs {
			if m.Kind == model.KindImage {
				fmt.Fprintf(out, "[图片] %s\n", m.ImagePath)
				continue
			}
			fmt.Fprintln(out, m.Text)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}
