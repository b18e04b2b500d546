package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"parishledger/internal/core"
)

func TestWeekStart(t *testing.T) {
	tests := map[string]string{
		"2024-01-05": "2023-12-31", // friday
		"2024-01-07": "2024-01-07", // sunday is its own start
		"2024-01-06": "2023-12-31", // saturday
		"2024-03-01": "2024-02-25", // across a leap february
	}
	for in, want := range tests {
		assert.Equal(t, want, WeekStart(day(in)).String(), in)
	}
}

func TestAggregateScenario(t *testing.T) {
	txs := []core.Transaction{
		income(1, "2024-01-05", "십일조", 10000, core.MemberRef(1)),
		expense(2, "2024-01-05", "교육비 (세부) (강사비)", 3000, ""),
	}
	sum := Aggregate(txs, day("2024-01-05"), 2024)

	assert.Equal(t, map[string]int64{"십일조": 10000}, sum.WeeklyBreakdown.Income)
	assert.Equal(t, map[string]int64{"교육비": 3000}, sum.WeeklyBreakdown.Expense)
	assert.Equal(t, core.Totals{Income: 10000, Expense: 3000}, sum.Weekly)
	assert.Equal(t, int64(7000), sum.Weekly.Balance())
	assert.Equal(t, int64(7000), sum.Yearly.Balance())
	assert.Equal(t, []int{2024}, sum.Years)
	assert.Equal(t, "2023-12-31", sum.WeekStart.String())
}

func TestAggregateWindows(t *testing.T) {
	txs := []core.Transaction{
		income(1, "2023-12-30", "주일헌금", 1, nil),                 // before week, previous year
		income(2, "2023-12-31", "주일헌금", 10, nil),                // week start, previous year
		income(3, "2024-01-03", "절기헌금 (세부) (신년감사)", 100, nil), // in week
		expense(4, "2024-01-04", "친교 (세부) (주방)", 1000, ""),      // in week
		expense(5, "2024-01-04", "친교", 2000, ""),                // rolls up with 4
		income(6, "2024-01-08", "십일조", 10000, nil),              // after today
		income(7, "2022-06-01", "십일조", 5, nil),
	}
	today := day("2024-01-05")

	sum := Aggregate(txs, today, 2023)

	assert.Equal(t, core.Totals{Income: 110, Expense: 3000}, sum.Weekly)
	assert.Equal(t, map[string]int64{"주일헌금": 10, "절기헌금": 100}, sum.WeeklyBreakdown.Income)
	assert.Equal(t, map[string]int64{"친교": 3000}, sum.WeeklyBreakdown.Expense)

	// running year starts Jan 1 of today's year and has no upper bound
	assert.Equal(t, core.Totals{Income: 10100, Expense: 3000}, sum.Yearly)

	// selected year breakdown covers 2023 only
	assert.Equal(t, map[string]int64{"주일헌금": 11}, sum.YearlyBreakdown.Income)
	assert.Empty(t, sum.YearlyBreakdown.Expense)

	assert.Equal(t, []int{2024, 2023, 2022}, sum.Years)
}

func TestAggregateYearsIncludeTodayWhenEmpty(t *testing.T) {
	sum := Aggregate(nil, day("2026-10-15"), 2026)
	assert.Equal(t, []int{2026}, sum.Years)
	assert.NotNil(t, sum.WeeklyBreakdown.Income)
	assert.NotNil(t, sum.YearlyBreakdown.Expense)
}

func TestAggregateIsIdempotent(t *testing.T) {
	txs := randomTransactions(7, 60)
	today := core.NewDate(2024, 1, 10)
	a := Aggregate(txs, today, 2023)
	b := Aggregate(txs, today, 2023)
	assert.Equal(t, a, b)
}

func TestSortedAmounts(t *testing.T) {
	got := SortedAmounts(map[string]int64{"b": 5, "a": 5, "c": 9})
	assert.Equal(t, []core.CategoryAmount{{Name: "c", Amount: 9}, {Name: "a", Amount: 5}, {Name: "b", Amount: 5}}, got)
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, "(금)", Weekday(day("2024-01-05")))
	assert.Equal(t, "(일)", Weekday(day("2024-01-07")))
	assert.Equal(t, "", Weekday(core.Date{}))
}
