package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/currency"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

// MonthlyReport totals one month of the owner's transactions. Toman figures use
// the amount entered in Toman, or each transaction's own snapshot rate for USD
// entries; balances use the supplied current rate.
func (l *Ledger) MonthlyReport(ctx context.Context, ownerID int64, year int, month time.Month, rate decimal.Decimal) (*model.MonthlyReport, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", common.ErrInvalidInput, month)
	}

	txns, err := l.GetMonthTransactions(ctx, ownerID, year, month)
	if err != nil {
		return nil, err
	}
	balances, err := l.GetBalances(ctx, ownerID, rate)
	if err != nil {
		return nil, err
	}

	report := &model.MonthlyReport{
		Year:         year,
		Month:        int(month),
		Transactions: txns,
		Balances:     balances,
	}

	byCategory := make(map[string]*model.CategorySummary)
	for _, txn := range txns {
		toman, err := currency.Settle(txn.Money(), txn.AmountUSD, false, txn.RateAtPosting)
		if err != nil {
			return nil, err
		}

		cs, ok := byCategory[txn.CategoryName]
		if !ok {
			cs = &model.CategorySummary{Category: txn.CategoryName}
			byCategory[txn.CategoryName] = cs
		}
		cs.Count++

		if txn.IsDeposit() {
			report.IncomeUSD = report.IncomeUSD.Add(txn.AmountUSD)
			report.IncomeToman = report.IncomeToman.Add(toman)
			cs.Income = cs.Income.Add(txn.AmountUSD)
		} else {
			report.ExpenseUSD = report.ExpenseUSD.Add(txn.AmountUSD)
			report.ExpenseToman = report.ExpenseToman.Add(toman)
			cs.Expense = cs.Expense.Add(txn.AmountUSD)
		}
	}

	report.NetUSD = report.IncomeUSD.Sub(report.ExpenseUSD)
	report.NetToman = report.IncomeToman.Sub(report.ExpenseToman)

	report.Categories = make([]model.CategorySummary, 0, len(byCategory))
	for _, cs := range byCategory {
		report.Categories = append(report.Categories, *cs)
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		return report.Categories[i].Category < report.Categories[j].Category
	})

	return report, nil
}
