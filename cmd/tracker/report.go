package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mertz1999/ai-money-tracker/internal/cli"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

func reportCmd() *cobra.Command {
	var month string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Monthly income, expenses and balances",
		Long: `Summarize one month. Toman totals use each transaction's own rate;
balances are valued at the current rate.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, m := time.Now().Year(), time.Now().Month()
			if month != "" {
				var err error
				if year, m, err = parseMonth(month); err != nil {
					return err
				}
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
			report, err := a.ledger.MonthlyReport(cmd.Context(), a.owner, year, m, rate)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintln(out, renderReport(report))
			fmt.Fprintln(out, renderBalances(report.Balances, rate))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: this month)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	addRateFlag(cmd)

	return cmd
}

func renderReport(r *model.MonthlyReport) string {
	var b strings.Builder

	title := fmt.Sprintf("%s %s %d", cli.ChartIcon, time.Month(r.Month), r.Year)
	b.WriteString(cli.FormatTitle(title))
	b.WriteString("\n")

	totals := [][]string{
		{"Income", cli.FormatMoney(model.USDAmount(r.IncomeUSD)), cli.FormatMoney(model.TomanAmount(r.IncomeToman))},
		{"Expenses", cli.FormatMoney(model.USDAmount(r.ExpenseUSD)), cli.FormatMoney(model.TomanAmount(r.ExpenseToman))},
		{"Net", cli.FormatMoney(model.USDAmount(r.NetUSD)), cli.FormatMoney(model.TomanAmount(r.NetToman))},
	}
	b.WriteString(cli.RenderTable([]string{"", "USD", "Toman"}, totals))
	b.WriteString("\n\n")

	if len(r.Categories) == 0 {
		b.WriteString(cli.FormatInfo("No transactions this month"))
		return b.String()
	}

	rows := make([][]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		rows = append(rows, []string{
			c.Category,
			strconv.Itoa(c.Count),
			cli.FormatMoney(model.USDAmount(c.Income)),
			cli.FormatMoney(model.USDAmount(c.Expense)),
		})
	}
	b.WriteString(cli.RenderTable([]string{"Category", "Count", "Income", "Expense"}, rows))
	return b.String()
}
