package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mertz1999/ai-money-tracker/internal/cli"
	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/config"
	"github.com/mertz1999/ai-money-tracker/internal/ledger"
)

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load starting categories and sources",
		Long: `Create the default categories, or the categories and sources listed in a
YAML seed file. Entries that already exist are left alone, so seeding twice is
harmless.`,
		Example: `  tracker seed
  tracker seed --file ~/finance/seed.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed := config.DefaultSeed()
			if file != "" {
				var err error
				if seed, err = config.LoadSeed(file); err != nil {
					return err
				}
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			created, skipped, err := applySeed(cmd, a, seed)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Seeded %d categories and %d sources (%d already present)",
				len(seed.Categories), created, skipped)))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML seed file (default: built-in categories)")

	return cmd
}

// applySeed creates the seed's categories and sources. Sources without an
// owner go to --owner. It returns how many sources were created and skipped.
func applySeed(cmd *cobra.Command, a *app, seed *config.Seed) (created, skipped int, err error) {
	ctx := cmd.Context()

	for _, name := range seed.Categories {
		if _, err := a.ledger.CreateCategory(ctx, name); err != nil {
			return created, skipped, fmt.Errorf("category %q: %w", name, err)
		}
	}

	for _, s := range seed.Sources {
		owner := s.OwnerID
		if owner == 0 {
			owner = a.owner
		}
		_, err := a.ledger.CreateSource(ctx, ledger.CreateSourceRequest{
			OwnerID:        owner,
			Name:           s.Name,
			IsBank:         s.Bank,
			IsUSD:          s.USD,
			InitialBalance: s.Value,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, common.ErrDuplicateEntry):
			skipped++
		default:
			return created, skipped, fmt.Errorf("source %q: %w", s.Name, err)
		}
	}

	return created, skipped, nil
}
