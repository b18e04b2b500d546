package ledger

import (
	"slices"

	"parishledger/internal/core"
)

// SplitBalance separates the balance carried into today from today's
// movement. Rows dated after today count toward neither.
func SplitBalance(txs []core.Transaction, today core.Date) core.BalanceSplit {
	var split core.BalanceSplit
	for _, tx := range txs {
		switch tx.Date.Compare(today) {
		case -1:
			split.Previous += tx.Signed()
		case 0:
			split.TodaysChange += tx.Signed()
		}
	}
	split.Today = split.Previous + split.TodaysChange
	return split
}

// RunningBalances walks the canonical order accumulating signed amounts and
// returns the entries newest first. The first entry carries the net total.
func (o *Orderer) RunningBalances(txs []core.Transaction) []core.LedgerEntry {
	ordered := o.SortCanonical(txs)
	entries := make([]core.LedgerEntry, len(ordered))
	var running int64
	for i, tx := range ordered {
		running += tx.Signed()
		entries[i] = core.LedgerEntry{Transaction: tx, Balance: running}
	}
	slices.Reverse(entries)
	return entries
}

// NetTotal is the sum of signed amounts.
func NetTotal(txs []core.Transaction) int64 {
	var total int64
	for _, tx := range txs {
		total += tx.Signed()
	}
	return total
}
