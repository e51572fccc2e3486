package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mertz1999/ai-money-tracker/internal/cli"
	"github.com/mertz1999/ai-money-tracker/internal/ledger"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions", "transaction"},
		Short:   "Post, edit and list transactions",
		Long: `Post expenses and income against a source. Amounts may be given in either
currency; the rate in force is stored with the transaction and used again
when it is edited or deleted.`,
	}

	cmd.AddCommand(txPostCmd(false))
	cmd.AddCommand(txPostCmd(true))
	cmd.AddCommand(txEditCmd())
	cmd.AddCommand(txDeleteCmd())
	cmd.AddCommand(txListCmd())

	return cmd
}

// postingFlags are shared by tx post, tx income and tx edit.
type postingFlags struct {
	name     string
	amount   string
	currency string
	source   string
	category string
	date     string
	deposit  bool
}

func (f *postingFlags) register(cmd *cobra.Command, withDirection bool) {
	cmd.Flags().StringVar(&f.name, "name", "", "description of the transaction")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount (positive)")
	cmd.Flags().StringVar(&f.currency, "currency", "usd", "currency of --amount: usd or toman")
	cmd.Flags().StringVar(&f.source, "source", "", "source name or id")
	cmd.Flags().StringVar(&f.category, "category", "", "category name (unknown names fall back to other)")
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default: today)")
	if withDirection {
		cmd.Flags().BoolVar(&f.deposit, "deposit", false, "credit the source instead of debiting it")
	}
	addRateFlag(cmd)
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("source")
}

// request resolves the flags into a posting request.
func (f *postingFlags) request(ctx context.Context, cmd *cobra.Command, a *app, defaultCategory string) (ledger.PostingRequest, error) {
	var req ledger.PostingRequest

	amount, err := parseAmount(f.amount)
	if err != nil {
		return req, err
	}
	isUSD, err := parseCurrency(f.currency)
	if err != nil {
		return req, err
	}
	date, err := parseDate(f.date)
	if err != nil {
		return req, err
	}
	rate, err := a.rate(cmd)
	if err != nil {
		return req, err
	}
	src, err := a.source(ctx, f.source)
	if err != nil {
		return req, err
	}

	categoryName := f.category
	if categoryName == "" {
		categoryName = defaultCategory
	}
	category, err := a.ledger.ResolveCategory(ctx, categoryName)
	if err != nil {
		return req, err
	}

	return ledger.PostingRequest{
		OwnerID:    a.owner,
		SourceID:   src.ID,
		CategoryID: category.ID,
		Name:       f.name,
		Date:       date,
		Amount:     model.NewMoney(amount, isUSD),
		Rate:       rate,
		IsDeposit:  f.deposit,
	}, nil
}

func txPostCmd(income bool) *cobra.Command {
	var flags postingFlags

	use, short, defaultCategory := "post", "Post an expense (or --deposit)", model.CategoryOther
	if income {
		use, short, defaultCategory = "income", "Record income", model.CategoryIncome
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Example: `  tracker tx post --source Checking --amount 14 --category taxi --name "Ride home"
  tracker tx income --source Wallet --amount 25000000 --currency toman --rate 50000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			req, err := flags.request(ctx, cmd, a, defaultCategory)
			if err != nil {
				return err
			}
			if req.Name == "" {
				req.Name = defaultCategory
			}

			var txn *model.Transaction
			err = retry(ctx, func() error {
				var err error
				if income {
					txn, err = a.ledger.AddIncome(ctx, req)
				} else {
					txn, err = a.ledger.PostTransaction(ctx, req)
				}
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Posted #%d %s %s",
				txn.ID, txn.Name, describeUSD(txn))))
			return nil
		},
	}

	flags.register(cmd, !income)

	return cmd
}

func txEditCmd() *cobra.Command {
	var flags postingFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Replace a transaction, reversing the old posting at its own rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			existing, err := a.ledger.GetTransaction(ctx, a.owner, id)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				flags.name = existing.Name
			}
			if !cmd.Flags().Changed("deposit") {
				flags.deposit = existing.IsDeposit()
			}

			req, err := flags.request(ctx, cmd, a, existing.CategoryName)
			if err != nil {
				return err
			}
			if req.Date.IsZero() {
				req.Date = existing.Date
			}

			var txn *model.Transaction
			err = retry(ctx, func() error {
				var err error
				txn, err = a.ledger.UpdateTransaction(ctx, id, req)
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated #%d %s %s",
				txn.ID, txn.Name, describeUSD(txn))))
			return nil
		},
	}

	flags.register(cmd, true)

	return cmd
}

func txDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a transaction and reverse its effect",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			if err := retry(ctx, func() error {
				return a.ledger.DeleteTransaction(ctx, a.owner, id)
			}); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted transaction #%d", id)))
			return nil
		},
	}
}

func txListCmd() *cobra.Command {
	var (
		month  string
		source string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			var filter model.TransactionFilter
			if month != "" {
				year, m, err := parseMonth(month)
				if err != nil {
					return err
				}
				filter = model.MonthFilter(year, m)
			}
			if source != "" {
				src, err := a.source(ctx, source)
				if err != nil {
					return err
				}
				filter.SourceID = &src.ID
			}
			filter.Limit = limit

			txns, err := a.ledger.GetTransactions(ctx, a.owner, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No transactions found"))
				return nil
			}
			fmt.Fprintln(out, renderTransactions(txns))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only this month, YYYY-MM")
	cmd.Flags().StringVar(&source, "source", "", "only this source (name or id)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 for all)")

	return cmd
}

func renderTransactions(txns []model.Transaction) string {
	rows := make([][]string, 0, len(txns))
	for _, txn := range txns {
		name := txn.Name
		if !txn.AffectsBalance {
			name += " (mirror)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(txn.ID, 10),
			txn.Date.Format(dateLayout),
			name,
			txn.CategoryName,
			txn.SourceName,
			cli.FormatSigned(cli.FormatMoney(model.USDAmount(txn.AmountUSD)), txn.IsDeposit()),
			cli.FormatAmount(txn.RateAtPosting, false),
		})
	}
	return cli.RenderTable([]string{"ID", "Date", "Name", "Category", "Source", "USD", "Rate"}, rows)
}

func describeUSD(txn *model.Transaction) string {
	sign := "-"
	if txn.IsDeposit() {
		sign = "+"
	}
	return fmt.Sprintf("(%s%s at %s)", sign, cli.FormatMoney(model.USDAmount(txn.AmountUSD)),
		cli.FormatAmount(txn.RateAtPosting, false))
}
