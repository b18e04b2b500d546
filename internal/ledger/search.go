package ledger

import (
	"parishledger/internal/core"
)

// InRange keeps transactions dated within [from, to], inclusive.
func InRange(txs []core.Transaction, from, to core.Date) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if !tx.Date.Before(from) && !tx.Date.After(to) {
			out = append(out, tx)
		}
	}
	return out
}

// DayTotals sums income and expense dated exactly day.
func DayTotals(txs []core.Transaction, day core.Date) core.Totals {
	var t core.Totals
	for _, tx := range txs {
		if tx.Date.Equal(day) {
			addTotals(&t, tx)
		}
	}
	return t
}

// MemberIncome returns a member's income rows newest first.
func MemberIncome(txs []core.Transaction, memberID int64) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.Type == core.Income && tx.MemberID != nil && *tx.MemberID == memberID {
			out = append(out, tx)
		}
	}
	return SortSimple(out)
}

// CategoryTotals sums typ transactions per configured main category, in the
// order of categories. Income keeps zero rows so every offering type is
// listed; expense drops them.
func CategoryTotals(txs []core.Transaction, typ core.TxType, categories []string) []core.CategoryAmount {
	sums := make(map[string]int64, len(categories))
	for _, tx := range txs {
		if tx.Type == typ {
			sums[tx.Category.Main] += tx.Amount
		}
	}
	out := make([]core.CategoryAmount, 0, len(categories))
	for _, c := range categories {
		total := sums[c]
		if total == 0 && typ == core.Expense {
			continue
		}
		out = append(out, core.CategoryAmount{Name: c, Amount: total})
	}
	return out
}

// ByCategory returns typ rows whose main category is main, newest first.
func ByCategory(txs []core.Transaction, typ core.TxType, main string) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.Type == typ && tx.Category.Main == main {
			out = append(out, tx)
		}
	}
	return SortSimple(out)
}

// ByAmount returns rows with exactly amount, newest first.
func ByAmount(txs []core.Transaction, amount int64) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.Amount == amount {
			out = append(out, tx)
		}
	}
	return SortSimple(out)
}
