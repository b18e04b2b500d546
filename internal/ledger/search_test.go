package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"parishledger/internal/core"
)

var searchTxs = []core.Transaction{
	income(1, "2024-01-05", "십일조", 10000, core.MemberRef(1)),
	income(2, "2024-01-06", "주일헌금", 3000, core.MemberRef(1)),
	income(3, "2024-01-06", "십일조", 10000, core.MemberRef(2)),
	expense(4, "2024-01-06", "교육비 (세부) (강사비)", 3000, "특강"),
	expense(5, "2024-01-07", "교육비", 500, ""),
	income(6, "2024-01-08", "기타헌금 (세부) (생일감사)", 7000, nil),
}

func TestInRange(t *testing.T) {
	got := InRange(searchTxs, day("2024-01-06"), day("2024-01-07"))
	assert.Equal(t, []int64{2, 3, 4, 5}, txIDs(got))
}

func TestDayTotals(t *testing.T) {
	assert.Equal(t, core.Totals{Income: 13000, Expense: 3000}, DayTotals(searchTxs, day("2024-01-06")))
	assert.Equal(t, core.Totals{}, DayTotals(searchTxs, day("2024-02-01")))
}

func TestMemberIncome(t *testing.T) {
	assert.Equal(t, []int64{2, 1}, txIDs(MemberIncome(searchTxs, 1)))
	assert.Empty(t, MemberIncome(searchTxs, 99))
}

func TestCategoryTotals(t *testing.T) {
	in := CategoryTotals(searchTxs, core.Income, []string{"십일조", "주일헌금", "감사헌금", "기타헌금"})
	assert.Equal(t, []core.CategoryAmount{
		{Name: "십일조", Amount: 20000},
		{Name: "주일헌금", Amount: 3000},
		{Name: "감사헌금", Amount: 0},
		{Name: "기타헌금", Amount: 7000},
	}, in)

	out := CategoryTotals(searchTxs, core.Expense, []string{"교육비", "친교"})
	assert.Equal(t, []core.CategoryAmount{{Name: "교육비", Amount: 3500}}, out)
}

func TestByCategoryAndAmount(t *testing.T) {
	assert.Equal(t, []int64{5, 4}, txIDs(ByCategory(searchTxs, core.Expense, "교육비")))
	assert.Equal(t, []int64{4, 2}, txIDs(ByAmount(searchTxs, 3000)))
}
