package model

import "github.com/shopspring/decimal"

// CategorySummary contains aggregated statistics for a category.
type CategorySummary struct {
	Category string          `json:"category"`
	Income   decimal.Decimal `json:"income_usd"`
	Expense  decimal.Decimal `json:"expense_usd"`
	Count    int             `json:"count"`
}

// MonthlyReport holds the data behind the monthly statement. Totals are computed
// from each transaction's own snapshot rate, not the current one.
type MonthlyReport struct {
	Categories   []CategorySummary `json:"categories"`
	Balances     []SourceBalance   `json:"balances"`
	Transactions []Transaction     `json:"transactions"`
	IncomeUSD    decimal.Decimal   `json:"income_usd"`
	ExpenseUSD   decimal.Decimal   `json:"expense_usd"`
	NetUSD       decimal.Decimal   `json:"net_usd"`
	IncomeToman  decimal.Decimal   `json:"income_toman"`
	ExpenseToman decimal.Decimal   `json:"expense_toman"`
	NetToman     decimal.Decimal   `json:"net_toman"`
	Year         int               `json:"year"`
	Month        int               `json:"month"`
}
