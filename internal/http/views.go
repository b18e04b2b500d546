package http

import (
	"time"

	"parishledger/internal/core"
	"parishledger/internal/export"
	"parishledger/internal/ledger"
	"parishledger/internal/services"
	"parishledger/internal/snapshot"
)

type memberView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Initial  string `json:"initial"`
}

func newMemberView(m core.Member) memberView {
	return memberView{ID: m.ID, Name: m.Name, Position: m.Position, Initial: ledger.InitialConsonant(m.Name)}
}

func newMemberViews(ms []core.Member) []memberView {
	out := make([]memberView, len(ms))
	for i, m := range ms {
		out[i] = newMemberView(m)
	}
	return out
}

type memberGroupView struct {
	Consonant string       `json:"consonant"`
	Label     string       `json:"label"`
	Members   []memberView `json:"members"`
}

func newMemberGroupViews(groups []ledger.MemberGroup) []memberGroupView {
	out := make([]memberGroupView, len(groups))
	for i, g := range groups {
		out[i] = memberGroupView{Consonant: g.Consonant, Label: g.Label, Members: newMemberViews(g.Members)}
	}
	return out
}

// transactionView carries the wire label in Category and the display form
// in Label.
type transactionView struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Date       core.Date `json:"date"`
	Weekday    string    `json:"weekday"`
	Category   string    `json:"category"`
	Main       string    `json:"main"`
	Sub        string    `json:"sub,omitempty"`
	Label      string    `json:"label"`
	Amount     int64     `json:"amount"`
	MemberID   *int64    `json:"memberId"`
	MemberName string    `json:"memberName"`
	Memo       string    `json:"memo"`
	Balance    *int64    `json:"balance,omitempty"`
}

func newTransactionView(tx core.Transaction, names ledger.MemberNames) transactionView {
	v := transactionView{
		ID:       tx.ID,
		Type:     string(tx.Type),
		Date:     tx.Date,
		Weekday:  ledger.Weekday(tx.Date),
		Category: ledger.EncodeCategory(tx.Category),
		Main:     tx.Category.Main,
		Sub:      tx.Category.Sub,
		Label:    ledger.RenderTagged(tx.Category),
		Amount:   tx.Amount,
		MemberID: tx.MemberID,
		Memo:     tx.Memo,
	}
	if tx.Type == core.Income || tx.MemberID != nil {
		v.MemberName = names.Name(tx.MemberID)
	}
	return v
}

func newTransactionViews(txs []core.Transaction, members []core.Member) []transactionView {
	names := ledger.NewMemberNames(members)
	out := make([]transactionView, len(txs))
	for i, tx := range txs {
		out[i] = newTransactionView(tx, names)
	}
	return out
}

type totalsView struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

func newTotalsView(t core.Totals) totalsView {
	return totalsView{Income: t.Income, Expense: t.Expense, Balance: t.Balance()}
}

type amountView struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

func newAmountViews(amounts []core.CategoryAmount) []amountView {
	out := make([]amountView, len(amounts))
	for i, a := range amounts {
		out[i] = amountView{Name: a.Name, Amount: a.Amount}
	}
	return out
}

type summaryView struct {
	WeekStart     core.Date    `json:"weekStart"`
	Today         core.Date    `json:"today"`
	SelectedYear  int          `json:"selectedYear"`
	Weekly        totalsView   `json:"weekly"`
	Yearly        totalsView   `json:"yearly"`
	WeeklyIncome  []amountView `json:"weeklyIncome"`
	WeeklyExpense []amountView `json:"weeklyExpense"`
	YearlyIncome  []amountView `json:"yearlyIncome"`
	YearlyExpense []amountView `json:"yearlyExpense"`
	Years         []int        `json:"years"`
}

type balanceView struct {
	Previous     int64 `json:"previous"`
	TodaysChange int64 `json:"todaysChange"`
	Today        int64 `json:"today"`
}

type dashboardView struct {
	ChurchName   string            `json:"churchName"`
	Today        core.Date         `json:"today"`
	Balance      balanceView       `json:"balance"`
	TodayTotals  totalsView        `json:"todayTotals"`
	Summary      summaryView       `json:"summary"`
	Ledger       []transactionView `json:"ledger"`
	MemberGroups []memberGroupView `json:"memberGroups"`
}

func newDashboardView(d services.Dashboard) dashboardView {
	var members []core.Member
	for _, g := range d.MemberGroups {
		members = append(members, g.Members...)
	}
	names := ledger.NewMemberNames(members)

	entries := make([]transactionView, len(d.Ledger))
	for i, e := range d.Ledger {
		v := newTransactionView(e.Transaction, names)
		balance := e.Balance
		v.Balance = &balance
		entries[i] = v
	}

	s := d.Summary
	return dashboardView{
		ChurchName: d.ChurchName,
		Today:      d.Today,
		Balance: balanceView{
			Previous:     d.Balance.Previous,
			TodaysChange: d.Balance.TodaysChange,
			Today:        d.Balance.Today,
		},
		TodayTotals: newTotalsView(d.TodayTotals),
		Summary: summaryView{
			WeekStart:     s.WeekStart,
			Today:         s.Today,
			SelectedYear:  s.SelectedYear,
			Weekly:        newTotalsView(s.Weekly),
			Yearly:        newTotalsView(s.Yearly),
			WeeklyIncome:  newAmountViews(ledger.SortedAmounts(s.WeeklyBreakdown.Income)),
			WeeklyExpense: newAmountViews(ledger.SortedAmounts(s.WeeklyBreakdown.Expense)),
			YearlyIncome:  newAmountViews(ledger.SortedAmounts(s.YearlyBreakdown.Income)),
			YearlyExpense: newAmountViews(ledger.SortedAmounts(s.YearlyBreakdown.Expense)),
			Years:         s.Years,
		},
		Ledger:       entries,
		MemberGroups: newMemberGroupViews(d.MemberGroups),
	}
}

type categoriesView struct {
	Expense     []string            `json:"expense"`
	Income      []string            `json:"income"`
	Festival    []string            `json:"festival"`
	OtherIncome []string            `json:"otherIncome"`
	ExpenseSub  map[string][]string `json:"expenseSub"`
}

func newCategoriesView(c core.Categories) categoriesView {
	return categoriesView{
		Expense:     c.Expense,
		Income:      c.Income,
		Festival:    c.Festival,
		OtherIncome: c.OtherIncome,
		ExpenseSub:  c.ExpenseSub,
	}
}

type historyView struct {
	Timestamp    time.Time `json:"timestamp"`
	Members      int       `json:"members"`
	Transactions int       `json:"transactions"`
	Balance      int64     `json:"balance"`
}

func newHistoryViews(entries []snapshot.Entry) []historyView {
	out := make([]historyView, len(entries))
	for i, e := range entries {
		out[i] = historyView{
			Timestamp:    e.Timestamp,
			Members:      len(e.State.Members),
			Transactions: len(e.State.Transactions),
			Balance:      ledger.NetTotal(e.State.Transactions),
		}
	}
	return out
}

type exportRowView struct {
	Date     core.Date `json:"date"`
	Weekday  string    `json:"weekday"`
	Member   string    `json:"member"`
	Position string    `json:"position"`
	Category string    `json:"category"`
	Income   int64     `json:"income"`
	Expense  int64     `json:"expense"`
	Memo     string    `json:"memo"`
	Balance  int64     `json:"balance"`
}

func newExportRowViews(rows []export.Row) []exportRowView {
	out := make([]exportRowView, len(rows))
	for i, r := range rows {
		out[i] = exportRowView(r)
	}
	return out
}
