package ledger

import (
	"cmp"
	"slices"
	"time"

	"parishledger/internal/core"
)

// WeekStart returns the most recent Sunday on or before today.
func WeekStart(today core.Date) core.Date {
	return today.AddDays(-int(today.Weekday()))
}

// Aggregate computes the weekly and yearly totals for the main screen.
//
// Week window is [WeekStart(today), today]. The running year covers Jan 1 of
// today's year onwards. The breakdown year is the whole of selectedYear.
// Breakdowns are keyed by main category; sub categories roll up.
func Aggregate(txs []core.Transaction, today core.Date, selectedYear int) core.PeriodSummary {
	weekStart := WeekStart(today)
	yearStart := core.NewDate(today.Year(), 1, 1)

	sum := core.PeriodSummary{
		WeekStart:       weekStart,
		Today:           today,
		SelectedYear:    selectedYear,
		WeeklyBreakdown: newBreakdown(),
		YearlyBreakdown: newBreakdown(),
	}

	years := map[int]struct{}{today.Year(): {}}
	for _, tx := range txs {
		years[tx.Date.Year()] = struct{}{}
		main := tx.Category.Main

		if !tx.Date.Before(yearStart) {
			addTotals(&sum.Yearly, tx)
		}
		if tx.Date.Year() == selectedYear {
			addBreakdown(sum.YearlyBreakdown, main, tx)
		}
		if !tx.Date.Before(weekStart) && !tx.Date.After(today) {
			addTotals(&sum.Weekly, tx)
			addBreakdown(sum.WeeklyBreakdown, main, tx)
		}
	}

	sum.Years = make([]int, 0, len(years))
	for y := range years {
		sum.Years = append(sum.Years, y)
	}
	slices.SortFunc(sum.Years, func(a, b int) int { return cmp.Compare(b, a) })
	return sum
}

func newBreakdown() core.Breakdown {
	return core.Breakdown{Income: map[string]int64{}, Expense: map[string]int64{}}
}

func addTotals(t *core.Totals, tx core.Transaction) {
	if tx.Type == core.Income {
		t.Income += tx.Amount
	} else {
		t.Expense += tx.Amount
	}
}

func addBreakdown(b core.Breakdown, main string, tx core.Transaction) {
	if tx.Type == core.Income {
		b.Income[main] += tx.Amount
	} else {
		b.Expense[main] += tx.Amount
	}
}

// SortedAmounts flattens a breakdown map into rows ordered by amount
// descending, then name.
func SortedAmounts(m map[string]int64) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(m))
	for name, amount := range m {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Weekday returns the Korean day-of-week label, e.g. "(일)".
func Weekday(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return "(" + weekdayNames[d.Weekday()] + ")"
}

var weekdayNames = [7]string{
	time.Sunday:    "일",
	time.Monday:    "월",
	time.Tuesday:   "화",
	time.Wednesday: "수",
	time.Thursday:  "목",
	time.Friday:    "금",
	time.Saturday:  "토",
}
