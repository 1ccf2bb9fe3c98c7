package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"idiom-quiz-bot/internal/config"
	"idiom-quiz-bot/internal/question"
)

func newCheckBankCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check-bank",
		Short: "Load the question bank and check every image exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := question.Load(cfg.Game.BankPath)
			if err != nil {
				return err
			}
			missing, err := missingImages(bank, cfg.Game.AssetRoot)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d questions in %s\n", bank.Len(), cfg.Game.BankPath)
			for _, p := range missing {
				fmt.Fprintf(out, "missing image: %s\n", p)
			}
			if bank.Len() < cfg.Game.QuestionsPerRound {
				return fmt.Errorf("bank has %d questions, a round needs %d", bank.Len(), cfg.Game.QuestionsPerRound)
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d images missing under %s", len(missing), cfg.Game.AssetRoot)
			}
			return nil
		},
	}
}

func missingImages(bank *question.Bank, root string) ([]string, error) {
	var missing []string
	for _, q := range bank.All() {
		p := question.ImagePath(root, q)
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, p)
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}
	return missing, nil
}
