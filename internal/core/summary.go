package core

// CategoryAmount represents an amount aggregated by main category name.
type CategoryAmount struct {
	Name   string
	Amount int64
}

// BalanceSplit separates the balance carried into today from today's movement.
type BalanceSplit struct {
	Previous     int64
	TodaysChange int64
	Today        int64
}

// LedgerEntry is a transaction with the running balance after it was applied.
type LedgerEntry struct {
	Transaction Transaction
	Balance     int64
}

// Totals holds income/expense sums for one window.
type Totals struct {
	Income  int64
	Expense int64
}

// Balance is income minus expense.
func (t Totals) Balance() int64 {
	return t.Income - t.Expense
}

// Breakdown maps a main category to its summed amount, split by type.
type Breakdown struct {
	Income  map[string]int64
	Expense map[string]int64
}

// PeriodSummary is the week/year aggregate shown on the main screen.
type PeriodSummary struct {
	WeekStart    Date
	Today        Date
	SelectedYear int

	Weekly Totals
	Yearly Totals // running: Jan 1 of today's year onwards

	WeeklyBreakdown Breakdown
	YearlyBreakdown Breakdown // selected calendar year

	Years []int // descending
}
