package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	// AnonymousName is shown for transactions recorded without a member.
	AnonymousName = "무명"
	// UnassignedName is shown when the referenced member no longer exists.
	UnassignedName = "미지정"

	// FestivalParent and OtherIncomeParent are the fixed income categories
	// that own the two income sub-category pools.
	FestivalParent    = "절기헌금"
	OtherIncomeParent = "기타헌금"
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// Positions is the fixed list of member roles.
var Positions = []string{
	"목사", "사모", "부목사", "전도사", "장로", "권사", "집사",
	"성도", "청년", "중고등부", "주일학교", "무명", "기타",
}

type (
	TxType string

	// Date is a calendar date without a time component, stored at UTC midnight.
	Date struct {
		time.Time
	}

	// Category is the tagged form of a category label. An empty Sub means a
	// simple label.
	Category struct {
		Main string
		Sub  string
	}

	Member struct {
		ID       int64
		Name     string
		Position string
	}

	Transaction struct {
		ID       int64
		Type     TxType
		Date     Date
		Category Category
		Amount   int64 // whole currency units, always > 0
		MemberID *int64
		Memo     string
	}

	// Categories is the externally configured category set consumed by the
	// engine and edited by the service layer.
	Categories struct {
		Expense     []string
		Income      []string
		Festival    []string
		OtherIncome []string
		ExpenseSub  map[string][]string
	}

	// State is the complete working snapshot owned by the caller.
	State struct {
		Members      []Member
		Transactions []Transaction
		Categories   Categories
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyName       = errors.New("empty member name")
	ErrInvalidPosition = errors.New("invalid position")
)

// ParseDate parses a YYYY-MM-DD string. Anything else is rejected.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON encodes d as YYYY-MM-DD, never as a time.Time timestamp.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	return d.UnmarshalText([]byte(s))
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Sign is +1 for income and -1 for expense.
func (t TxType) Sign() int64 {
	if t == Income {
		return 1
	}
	return -1
}

func (c Category) IsComposite() bool {
	return c.Sub != ""
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, tx.Type)
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if tx.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(tx.Category.Main) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Signed returns +amount for income and -amount for expense.
func (tx Transaction) Signed() int64 {
	return tx.Type.Sign() * tx.Amount
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if !slices.Contains(Positions, m.Position) {
		return fmt.Errorf("%w: %q", ErrInvalidPosition, m.Position)
	}
	return nil
}

// MemberRef returns a pointer suitable for Transaction.MemberID.
func MemberRef(id int64) *int64 {
	return &id
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (s State) Clone() State {
	out := State{
		Members:      slices.Clone(s.Members),
		Transactions: make([]Transaction, len(s.Transactions)),
		Categories:   s.Categories.Clone(),
	}
	for i, tx := range s.Transactions {
		if tx.MemberID != nil {
			tx.MemberID = MemberRef(*tx.MemberID)
		}
		out.Transactions[i] = tx
	}
	return out
}

func (c Categories) Clone() Categories {
	out := Categories{
		Expense:     slices.Clone(c.Expense),
		Income:      slices.Clone(c.Income),
		Festival:    slices.Clone(c.Festival),
		OtherIncome: slices.Clone(c.OtherIncome),
		ExpenseSub:  make(map[string][]string, len(c.ExpenseSub)),
	}
	for k, v := range c.ExpenseSub {
		out.ExpenseSub[k] = slices.Clone(v)
	}
	return out
}
