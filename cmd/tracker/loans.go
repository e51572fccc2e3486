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

func loansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "loans",
		Aliases: []string{"loan"},
		Short:   "Track installment loans and their payments",
		Long: `Create loans, pay installments from a source and follow what is left.

A paid installment is taken off the loan and out of the source in one step.
With --mirror it also shows up as a loan-payment expense in reports, without
touching the balance a second time.`,
	}

	cmd.AddCommand(loansListCmd())
	cmd.AddCommand(loansCreateCmd())
	cmd.AddCommand(loansPayCmd(false))
	cmd.AddCommand(loansPayCmd(true))
	cmd.AddCommand(loansMarkPaidCmd())
	cmd.AddCommand(loansPaymentsCmd())
	cmd.AddCommand(loansSummaryCmd())
	cmd.AddCommand(loansDeleteCmd())

	return cmd
}

func loansListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			loans, err := a.ledger.GetLoans(cmd.Context(), a.owner)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(loans) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No loans"))
				return nil
			}

			rows := make([][]string, 0, len(loans))
			for _, loan := range loans {
				end := "-"
				if loan.EndDate != nil {
					end = loan.EndDate.Format(dateLayout)
				}
				rows = append(rows, []string{
					strconv.FormatInt(loan.ID, 10),
					loan.Name,
					cli.FormatMoney(model.NewMoney(loan.TotalAmount, loan.IsUSD)),
					cli.FormatMoney(model.NewMoney(loan.RemainingAmount, loan.IsUSD)),
					cli.FormatMoney(model.NewMoney(loan.MonthlyPayment, loan.IsUSD)),
					loan.InterestRate.String() + "%",
					loan.StartDate.Format(dateLayout),
					end,
				})
			}
			fmt.Fprintln(out, cli.RenderTable(
				[]string{"ID", "Name", "Total", "Remaining", "Monthly", "Interest", "Start", "End"}, rows))
			return nil
		},
	}
}

func loansCreateCmd() *cobra.Command {
	var total, monthly, interest, cur, start, end string

	cmd := &cobra.Command{
		Use:     "create NAME",
		Short:   "Create a loan",
		Example: `  tracker loans create Car --total 1200 --monthly 100 --start 2024-01-01`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ledger.CreateLoanRequest{Name: args[0]}

			var err error
			if req.TotalAmount, err = parseAmount(total); err != nil {
				return err
			}
			if req.MonthlyPayment, err = parseAmount(monthly); err != nil {
				return err
			}
			req.InterestRate = decimal.Zero
			if interest != "" {
				if req.InterestRate, err = parseAmount(interest); err != nil {
					return err
				}
			}
			if req.IsUSD, err = parseCurrency(cur); err != nil {
				return err
			}
			if req.StartDate, err = parseDate(start); err != nil {
				return err
			}
			if end != "" {
				endDate, err := parseDate(end)
				if err != nil {
					return err
				}
				req.EndDate = &endDate
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			req.OwnerID = a.owner
			loan, err := a.ledger.CreateLoan(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created loan %q (#%d) for %s",
				loan.Name, loan.ID, cli.FormatMoney(model.NewMoney(loan.TotalAmount, loan.IsUSD)))))
			return nil
		},
	}

	cmd.Flags().StringVar(&total, "total", "", "total amount borrowed")
	cmd.Flags().StringVar(&monthly, "monthly", "", "monthly installment")
	cmd.Flags().StringVar(&interest, "interest", "", "annual interest rate in percent")
	cmd.Flags().StringVar(&cur, "currency", "usd", "loan currency: usd or toman")
	cmd.Flags().StringVar(&start, "start", "", "start date as YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&end, "end", "", "end date as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("monthly")

	return cmd
}

// loansPayCmd builds `loans pay` or, when pending, `loans schedule`.
func loansPayCmd(pending bool) *cobra.Command {
	var amount, cur, source, date string
	var mirror bool

	use, short := "pay LOAN_ID", "Pay an installment now"
	if pending {
		use, short = "schedule LOAN_ID", "Record a pending installment to mark paid later"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0])
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			isUSD, err := parseCurrency(cur)
			if err != nil {
				return err
			}
			when, err := parseDate(date)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			src, err := a.source(ctx, source)
			if err != nil {
				return err
			}

			req := ledger.PaymentRequest{
				OwnerID:         a.owner,
				LoanID:          loanID,
				SourceID:        src.ID,
				Date:            when,
				Amount:          model.NewMoney(value, isUSD),
				MirrorAsExpense: mirror,
			}

			out := cmd.OutOrStdout()
			if pending {
				p, err := a.ledger.SchedulePayment(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Scheduled payment #%d of %s",
					p.ID, cli.FormatMoney(p.Money()))))
				return nil
			}

			if req.Rate, err = a.rate(cmd); err != nil {
				return err
			}
			var p *model.LoanPayment
			if err := retry(ctx, func() error {
				var err error
				p, err = a.ledger.RecordPayment(ctx, req)
				return err
			}); err != nil {
				return err
			}
			return printPaid(cmd, a, p)
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "installment amount")
	cmd.Flags().StringVar(&cur, "currency", "usd", "currency of --amount: usd or toman")
	cmd.Flags().StringVar(&source, "source", "", "source to pay from (name or id)")
	cmd.Flags().StringVar(&date, "date", "", "payment date as YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("source")
	if !pending {
		cmd.Flags().BoolVar(&mirror, "mirror", false, "also list the payment as a loan-payment expense")
		addRateFlag(cmd)
	}

	return cmd
}

func loansMarkPaidCmd() *cobra.Command {
	var mirror bool

	cmd := &cobra.Command{
		Use:   "mark-paid PAYMENT_ID",
		Short: "Apply a scheduled installment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paymentID, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			rate, err := a.rate(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var p *model.LoanPayment
			if err := retry(ctx, func() error {
				var err error
				p, err = a.ledger.MarkPaymentPaid(ctx, a.owner, paymentID, rate, mirror)
				return err
			}); err != nil {
				return err
			}
			return printPaid(cmd, a, p)
		},
	}

	cmd.Flags().BoolVar(&mirror, "mirror", false, "also list the payment as a loan-payment expense")
	addRateFlag(cmd)

	return cmd
}

func printPaid(cmd *cobra.Command, a *app, p *model.LoanPayment) error {
	loan, err := a.ledger.GetLoan(cmd.Context(), a.owner, p.LoanID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Paid %s on %q, %s remaining",
		cli.FormatMoney(p.Money()), loan.Name,
		cli.FormatMoney(model.NewMoney(loan.RemainingAmount, loan.IsUSD)))))
	return nil
}

func loansPaymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payments LOAN_ID",
		Short: "List a loan's payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			payments, err := a.ledger.GetLoanPayments(cmd.Context(), a.owner, loanID)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(payments))
			for _, p := range payments {
				usd := "-"
				if p.IsPaid() {
					usd = cli.FormatMoney(model.USDAmount(p.AmountUSD))
				}
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					p.PaymentDate.Format(dateLayout),
					cli.FormatMoney(p.Money()),
					usd,
					p.SourceName,
					string(p.Status),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"ID", "Date", "Amount", "USD", "Source", "Status"}, rows))
			return nil
		},
	}
}

func loansSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Totals across all loans in USD",
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
			summary, err := a.ledger.GetLoanSummary(cmd.Context(), a.owner, rate)
			if err != nil {
				return err
			}

			content := fmt.Sprintf("Loans:           %d\nBorrowed:        %s\nRemaining:       %s\nAvg installment: %s",
				summary.TotalLoans,
				cli.FormatMoney(model.USDAmount(summary.TotalBorrowed)),
				cli.FormatMoney(model.USDAmount(summary.TotalRemaining)),
				cli.FormatMoney(model.USDAmount(summary.AvgMonthlyPayment)))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Loan summary", content))
			return nil
		},
	}

	addRateFlag(cmd)

	return cmd
}

func loansDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete LOAN_ID",
		Short: "Delete a loan and its payments",
		Long: `Delete a loan and all of its payments. Money already paid stays spent:
source balances are not refunded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			loan, err := a.ledger.GetLoan(ctx, a.owner, loanID)
			if err != nil {
				return err
			}

			if !force {
				fmt.Fprintln(out, cli.FormatWarning("Paid installments will not be refunded to their sources."))
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out,
					fmt.Sprintf("Delete loan %q?", loan.Name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.FormatInfo("Deletion cancelled"))
					return nil
				}
			}

			if err := retry(ctx, func() error {
				return a.ledger.DeleteLoan(ctx, a.owner, loanID)
			}); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted loan %q", loan.Name)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}
