package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mertz1999/ai-money-tracker/internal/cli"
	"github.com/mertz1999/ai-money-tracker/internal/ledger"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sources",
		Aliases: []string{"source", "src"},
		Short:   "Manage money sources",
		Long:    `List and open the accounts, wallets and cash piles that transactions draw from.`,
	}

	cmd.AddCommand(sourcesListCmd())
	cmd.AddCommand(sourcesAddCmd())

	return cmd
}

func sourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sources and their balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			sources, err := a.ledger.Sources(cmd.Context(), a.owner)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sources) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No sources yet. Open one with `tracker sources add`."))
				return nil
			}

			rows := make([][]string, 0, len(sources))
			for _, src := range sources {
				kind := "cash"
				if src.IsBank {
					kind = "bank"
				}
				rows = append(rows, []string{
					strconv.FormatInt(src.ID, 10),
					src.Name,
					kind,
					string(src.Currency()),
					cli.FormatMoney(src.BalanceMoney()),
				})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"ID", "Name", "Kind", "Currency", "Balance"}, rows))
			return nil
		},
	}
}

func sourcesAddCmd() *cobra.Command {
	var (
		cur     string
		balance string
		bank    bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Open a new source",
		Example: `  tracker sources add Checking --bank --balance 1200
  tracker sources add Wallet --currency toman --balance 5000000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			isUSD, err := parseCurrency(cur)
			if err != nil {
				return err
			}
			initial := decimal.Zero
			if balance != "" {
				if initial, err = parseAmount(balance); err != nil {
					return err
				}
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			src, err := a.ledger.CreateSource(cmd.Context(), ledger.CreateSourceRequest{
				OwnerID:        a.owner,
				Name:           args[0],
				IsBank:         bank,
				IsUSD:          isUSD,
				InitialBalance: initial,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Opened source %q (#%d) with %s",
				src.Name, src.ID, cli.FormatMoney(src.BalanceMoney()))))
			return nil
		},
	}

	cmd.Flags().StringVar(&cur, "currency", "usd", "native currency: usd or toman")
	cmd.Flags().StringVar(&balance, "balance", "", "opening balance in the native currency")
	cmd.Flags().BoolVar(&bank, "bank", false, "mark the source as a bank account")

	return cmd
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage transaction categories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			categories, err := a.ledger.Categories(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"ID", "Name"}, rows))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			category, err := a.ledger.CreateCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category %q", category.Name)))
			return nil
		},
	})

	return cmd
}

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show every source in both currencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			rate, err := a.rate(cmd)
			if err != nil {
				return err
			}

			balances, err := a.ledger.GetBalances(cmd.Context(), a.owner, rate)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderBalances(balances, rate))
			return nil
		},
	}

	addRateFlag(cmd)

	return cmd
}

// renderBalances draws the balance table with a totals row.
func renderBalances(balances []model.SourceBalance, rate decimal.Decimal) string {
	totalUSD, totalToman := decimal.Zero, decimal.Zero
	rows := make([][]string, 0, len(balances)+1)
	for _, b := range balances {
		totalUSD = totalUSD.Add(b.USDValue)
		totalToman = totalToman.Add(b.TomanValue)
		rows = append(rows, []string{
			b.Source.Name,
			cli.FormatMoney(b.Source.BalanceMoney()),
			cli.FormatMoney(model.USDAmount(b.USDValue)),
			cli.FormatMoney(model.TomanAmount(b.TomanValue)),
		})
	}
	rows = append(rows, []string{
		"Total",
		"",
		cli.FormatMoney(model.USDAmount(totalUSD)),
		cli.FormatMoney(model.TomanAmount(totalToman)),
	})

	title := fmt.Sprintf("%s Balances at %s Toman/USD", cli.MoneyIcon, cli.FormatAmount(rate, false))
	return cli.FormatTitle(title) + "\n" +
		cli.RenderTable([]string{"Source", "Balance", "USD", "Toman"}, rows)
}
