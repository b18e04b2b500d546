// Package export turns a ledger state into spreadsheet rows for a chosen
// period and hands them to a Writer.
package export

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"parishledger/internal/core"
	"parishledger/internal/ledger"
)

var (
	ErrEmptySelection = errors.New("no period selected")
	ErrNoRows         = errors.New("no transactions in the selected period")
	ErrInvalidPeriod  = errors.New("invalid period")
)

// Placeholder for a missing member or position.
const Dash = "-"

type Period int

const (
	Total Period = iota
	Yearly
	Monthly
	Weekly
)

var periodNames = [...]string{"total", "yearly", "monthly", "weekly"}

func (p Period) String() string {
	if p < 0 || int(p) >= len(periodNames) {
		return "period(" + strconv.Itoa(int(p)) + ")"
	}
	return periodNames[p]
}

// ParsePeriod accepts the names printed by Period.String.
func ParsePeriod(s string) (Period, error) {
	for i, name := range periodNames {
		if s == name {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Selection picks the transactions to export. Year applies to Yearly and
// Monthly; Months to Monthly; WeekStarts (Sundays) to Weekly.
type Selection struct {
	Period     Period
	Year       int
	Months     []int
	WeekStarts []core.Date
}

func (s Selection) Validate() error {
	switch s.Period {
	case Total:
		return nil
	case Yearly:
		if s.Year < 1 {
			return fmt.Errorf("%w: year %d", ErrInvalidPeriod, s.Year)
		}
	case Monthly:
		if s.Year < 1 {
			return fmt.Errorf("%w: year %d", ErrInvalidPeriod, s.Year)
		}
		if len(s.Months) == 0 {
			return ErrEmptySelection
		}
		for _, m := range s.Months {
			if m < 1 || m > 12 {
				return fmt.Errorf("%w: month %d", ErrInvalidPeriod, m)
			}
		}
	case Weekly:
		if len(s.WeekStarts) == 0 {
			return ErrEmptySelection
		}
	default:
		return fmt.Errorf("%w: %v", ErrInvalidPeriod, s.Period)
	}
	return nil
}

// Contains reports whether a transaction on d falls inside the selection.
func (s Selection) Contains(d core.Date) bool {
	switch s.Period {
	case Yearly:
		return d.Year() == s.Year
	case Monthly:
		return d.Year() == s.Year && slices.Contains(s.Months, d.Month())
	case Weekly:
		start := ledger.WeekStart(d)
		return slices.ContainsFunc(s.WeekStarts, start.Equal)
	}
	return true
}

// Title names the selection for sheet tabs and file names.
func (s Selection) Title() string {
	switch s.Period {
	case Yearly:
		return fmt.Sprintf("%d년", s.Year)
	case Monthly:
		months := slices.Sorted(slices.Values(s.Months))
		parts := make([]string, len(months))
		for i, m := range months {
			parts[i] = strconv.Itoa(m)
		}
		return fmt.Sprintf("%d년 %s월", s.Year, strings.Join(parts, ","))
	case Weekly:
		weeks := slices.SortedFunc(slices.Values(s.WeekStarts), core.Date.Compare)
		if len(weeks) == 1 {
			return weeks[0].String() + " 주간"
		}
		return fmt.Sprintf("%s~%s 주간", weeks[0], weeks[len(weeks)-1])
	}
	return "전체"
}

// AvailableWeeks lists the Sunday of every week that has a transaction,
// newest first.
func AvailableWeeks(txs []core.Transaction) []core.Date {
	var weeks []core.Date
	for _, tx := range txs {
		start := ledger.WeekStart(tx.Date)
		if !slices.ContainsFunc(weeks, start.Equal) {
			weeks = append(weeks, start)
		}
	}
	slices.SortFunc(weeks, func(a, b core.Date) int { return b.Compare(a) })
	return weeks
}

// Header is the column row written above the data.
var Header = []string{"날짜", "요일", "성도명", "직분", "항목", "입금액", "출금액", "비고", "잔액"}

// Row is one exported transaction. Balance runs from zero across the
// exported rows only.
type Row struct {
	Date     core.Date
	Weekday  string
	Member   string
	Position string
	Category string
	Income   int64
	Expense  int64
	Memo     string
	Balance  int64
}

// Values returns the cells in Header order.
func (r Row) Values() []any {
	return []any{
		r.Date.String(), r.Weekday, r.Member, r.Position, r.Category,
		r.Income, r.Expense, r.Memo, r.Balance,
	}
}

// Rows selects, orders by date then id, and renders the transactions of s.
func Rows(s core.State, sel Selection) ([]Row, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	var picked []core.Transaction
	for _, tx := range s.Transactions {
		if sel.Contains(tx.Date) {
			picked = append(picked, tx)
		}
	}
	if len(picked) == 0 {
		return nil, ErrNoRows
	}
	slices.SortStableFunc(picked, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	members := make(map[int64]core.Member, len(s.Members))
	for _, m := range s.Members {
		members[m.ID] = m
	}

	rows := make([]Row, len(picked))
	var balance int64
	for i, tx := range picked {
		row := Row{
			Date:     tx.Date,
			Weekday:  ledger.Weekday(tx.Date),
			Member:   Dash,
			Position: Dash,
			Category: ledger.RenderTagged(tx.Category),
			Memo:     tx.Memo,
		}
		if tx.Type == core.Income {
			row.Income = tx.Amount
			row.Member = core.AnonymousName
		} else {
			row.Expense = tx.Amount
		}
		if tx.MemberID != nil {
			if m, ok := members[*tx.MemberID]; ok {
				row.Member, row.Position = m.Name, m.Position
			}
		}
		balance += row.Income - row.Expense
		row.Balance = balance
		rows[i] = row
	}
	return rows, nil
}

// Writer stores exported rows under a sheet or file name.
type Writer interface {
	Write(ctx context.Context, sheet string, rows []Row) error
}

// Table renders rows with a leading header line, as strings.
func Table(rows []Row) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, slices.Clone(Header))
	for _, r := range rows {
		out = append(out, []string{
			r.Date.String(), r.Weekday, r.Member, r.Position, r.Category,
			strconv.FormatInt(r.Income, 10), strconv.FormatInt(r.Expense, 10),
			r.Memo, strconv.FormatInt(r.Balance, 10),
		})
	}
	return out
}
