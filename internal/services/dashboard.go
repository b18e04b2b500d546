package services

import (
	"context"
	"strconv"
	"strings"

	"parishledger/internal/cache"
	"parishledger/internal/core"
	"parishledger/internal/export"
	"parishledger/internal/ledger"
	applog "parishledger/internal/log"
	"parishledger/internal/snapshot"
)

// Dashboard is the main screen: balances, the running ledger and the
// week/year summary.
type Dashboard struct {
	ChurchName   string
	Today        core.Date
	Balance      core.BalanceSplit
	TodayTotals  core.Totals
	Ledger       []core.LedgerEntry
	Summary      core.PeriodSummary
	MemberGroups []ledger.MemberGroup
}

// Dashboard computes the views for selectedYear; 0 means today's year.
// Results are memoised by the content of the state they were built from.
func (s *LedgerService) Dashboard(ctx context.Context, selectedYear int) (Dashboard, error) {
	st, err := s.State(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	church, err := s.ChurchName(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	today := s.Today()
	if selectedYear == 0 {
		selectedYear = today.Year()
	}

	var key string
	if s.opts.Views != nil {
		doc, err := snapshot.Marshal(st)
		if err != nil {
			return Dashboard{}, err
		}
		key = cache.Key(doc,
			[]byte(church),
			[]byte(today.String()),
			[]byte(strconv.Itoa(selectedYear)),
			[]byte(strings.Join(s.opts.IncomePriority, "\x00")))
		if d, ok := s.opts.Views.Get(key); ok {
			s.logger.DebugContext(ctx, "Dashboard served from cache", applog.FieldCacheKey, key[:12])
			return d, nil
		}
	}

	d := Dashboard{
		ChurchName:   church,
		Today:        today,
		Balance:      ledger.SplitBalance(st.Transactions, today),
		TodayTotals:  ledger.DayTotals(st.Transactions, today),
		Ledger:       s.orderer(st).RunningBalances(st.Transactions),
		Summary:      ledger.Aggregate(st.Transactions, today, selectedYear),
		MemberGroups: ledger.GroupByInitial(ledger.SortMembers(st.Members)),
	}
	if s.opts.Views != nil {
		s.opts.Views.Set(key, d)
	}
	return d, nil
}

// Query filters transactions. Zero fields do not filter.
type Query struct {
	From     core.Date
	To       core.Date
	Type     core.TxType
	Category string
	MemberID *int64
	Amount   int64
}

// Search returns the transactions matching q, newest first.
func (s *LedgerService) Search(ctx context.Context, q Query) ([]core.Transaction, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	txs := st.Transactions
	if !q.From.IsZero() || !q.To.IsZero() {
		from, to := q.From, q.To
		if to.IsZero() {
			to = core.NewDate(9999, 12, 31)
		}
		txs = ledger.InRange(txs, from, to)
	}
	if q.MemberID != nil {
		txs = ledger.MemberIncome(txs, *q.MemberID)
	}
	if q.Category != "" {
		typ := q.Type
		if typ == "" {
			typ = core.Expense
		}
		txs = ledger.ByCategory(txs, typ, q.Category)
	} else if q.Type != "" {
		var typed []core.Transaction
		for _, tx := range txs {
			if tx.Type == q.Type {
				typed = append(typed, tx)
			}
		}
		txs = typed
	}
	if q.Amount > 0 {
		txs = ledger.ByAmount(txs, q.Amount)
	}
	return ledger.SortSimple(txs), nil
}

// CategoryReport totals typ transactions per configured main category
// within [from, to].
func (s *LedgerService) CategoryReport(ctx context.Context, typ core.TxType, from, to core.Date) ([]core.CategoryAmount, error) {
	if !typ.Valid() {
		return nil, core.ErrInvalidType
	}
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	categories := st.Categories.Expense
	if typ == core.Income {
		categories = st.Categories.Income
	}
	return ledger.CategoryTotals(ledger.InRange(st.Transactions, from, to), typ, categories), nil
}

// ExportRows renders the selected period as spreadsheet rows.
func (s *LedgerService) ExportRows(ctx context.Context, sel export.Selection) ([]export.Row, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return export.Rows(st, sel)
}

// AvailableWeeks lists the Sundays that start a week with transactions.
func (s *LedgerService) AvailableWeeks(ctx context.Context) ([]core.Date, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return export.AvailableWeeks(st.Transactions), nil
}
