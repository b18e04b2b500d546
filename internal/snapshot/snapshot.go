// Package snapshot reads and writes the JSON snapshot exchanged with backups
// and imports. It is the only place where category labels exist in their
// encoded string form.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"parishledger/internal/core"
	"parishledger/internal/ledger"
)

// MaxHistory is the number of saved snapshots kept in history.
const MaxHistory = 50

var ErrInvalidSnapshot = errors.New("invalid snapshot structure")

// ValidationError reports a malformed row inside an otherwise valid payload.
type ValidationError struct {
	Index int
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transactions[%d].%s: %v", e.Index, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type memberJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
}

type transactionJSON struct {
	ID       int64       `json:"id"`
	Type     string      `json:"type"`
	Date     string      `json:"date"`
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
	MemberID *int64      `json:"memberId,omitempty"`
	Memo     string      `json:"memo,omitempty"`
}

type document struct {
	Members               []memberJSON        `json:"members"`
	Transactions          []transactionJSON   `json:"transactions"`
	ExpenseCategories     []string            `json:"expenseCategories"`
	IncomeCategories      []string            `json:"incomeCategories"`
	FestivalCategories    []string            `json:"festivalCategories"`
	OtherIncomeCategories []string            `json:"otherIncomeCategories"`
	ExpenseSubCategories  map[string][]string `json:"expenseSubCategories"`
}

// Entry is one saved snapshot in history.
type Entry struct {
	Timestamp time.Time
	State     core.State
}

type entryJSON struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Decode parses a full snapshot. The payload must be an object whose members
// and transactions are arrays; every transaction must carry a valid type,
// date and positive whole amount. Missing category lists fall back to the
// defaults and expense categories are sorted in Korean order.
func Decode(r io.Reader) (core.State, error) {
	fields, err := readObject(r)
	if err != nil {
		return core.State{}, err
	}
	if !isArray(fields["members"]) || !isArray(fields["transactions"]) {
		return core.State{}, fmt.Errorf("%w: members and transactions must be arrays", ErrInvalidSnapshot)
	}
	return decodeFields(fields)
}

// DecodeMembers parses a payload for a members-only import. Only the members
// array is required; everything else is ignored.
func DecodeMembers(r io.Reader) ([]core.Member, error) {
	fields, err := readObject(r)
	if err != nil {
		return nil, err
	}
	if !isArray(fields["members"]) {
		return nil, fmt.Errorf("%w: members must be an array", ErrInvalidSnapshot)
	}
	return decodeMembers(fields["members"])
}

func readObject(r io.Reader) (map[string]json.RawMessage, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidSnapshot)
	}
	return fields, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func decodeFields(fields map[string]json.RawMessage) (core.State, error) {
	members, err := decodeMembers(fields["members"])
	if err != nil {
		return core.State{}, err
	}

	var rows []transactionJSON
	if err := json.Unmarshal(fields["transactions"], &rows); err != nil {
		return core.State{}, fmt.Errorf("%w: transactions: %v", ErrInvalidSnapshot, err)
	}
	txs := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := row.toCore(i)
		if err != nil {
			return core.State{}, err
		}
		txs = append(txs, tx)
	}

	defaults := core.DefaultCategories()
	cats := core.Categories{
		Expense:     stringList(fields["expenseCategories"], defaults.Expense),
		Income:      stringList(fields["incomeCategories"], defaults.Income),
		Festival:    stringList(fields["festivalCategories"], defaults.Festival),
		OtherIncome: stringList(fields["otherIncomeCategories"], defaults.OtherIncome),
		ExpenseSub:  map[string][]string{},
	}
	cats.Expense = ledger.SortLabels(cats.Expense)
	if raw := fields["expenseSubCategories"]; isObject(raw) {
		if err := json.Unmarshal(raw, &cats.ExpenseSub); err != nil {
			return core.State{}, fmt.Errorf("%w: expenseSubCategories: %v", ErrInvalidSnapshot, err)
		}
	}

	return core.State{Members: members, Transactions: txs, Categories: cats}, nil
}

func decodeMembers(raw json.RawMessage) ([]core.Member, error) {
	var rows []memberJSON
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: members: %v", ErrInvalidSnapshot, err)
	}
	members := make([]core.Member, len(rows))
	for i, m := range rows {
		members[i] = core.Member{ID: m.ID, Name: m.Name, Position: m.Position}
	}
	return members, nil
}

func stringList(raw json.RawMessage, fallback []string) []string {
	if !isArray(raw) {
		return fallback
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fallback
	}
	return out
}

func (row transactionJSON) toCore(i int) (core.Transaction, error) {
	typ := core.TxType(row.Type)
	if !typ.Valid() {
		return core.Transaction{}, &ValidationError{Index: i, Field: "type", Err: core.ErrInvalidType}
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, &ValidationError{Index: i, Field: "date", Err: err}
	}
	amount, err := strconv.ParseInt(row.Amount.String(), 10, 64)
	if err != nil || amount <= 0 {
		return core.Transaction{}, &ValidationError{Index: i, Field: "amount", Err: core.ErrInvalidAmount}
	}
	cat, err := ledger.ParseCategory(row.Category)
	if err != nil {
		return core.Transaction{}, &ValidationError{Index: i, Field: "category", Err: err}
	}
	tx := core.Transaction{
		ID:       row.ID,
		Type:     typ,
		Date:     date,
		Category: cat,
		Amount:   amount,
		MemberID: row.MemberID,
		Memo:     row.Memo,
	}
	if tx.Category.Main == "" {
		return core.Transaction{}, &ValidationError{Index: i, Field: "category", Err: core.ErrEmptyCategory}
	}
	return tx, nil
}

func toDocument(s core.State) document {
	doc := document{
		Members:               make([]memberJSON, len(s.Members)),
		Transactions:          make([]transactionJSON, len(s.Transactions)),
		ExpenseCategories:     nonNil(s.Categories.Expense),
		IncomeCategories:      nonNil(s.Categories.Income),
		FestivalCategories:    nonNil(s.Categories.Festival),
		OtherIncomeCategories: nonNil(s.Categories.OtherIncome),
		ExpenseSubCategories:  s.Categories.ExpenseSub,
	}
	if doc.ExpenseSubCategories == nil {
		doc.ExpenseSubCategories = map[string][]string{}
	}
	for i, m := range s.Members {
		doc.Members[i] = memberJSON{ID: m.ID, Name: m.Name, Position: m.Position}
	}
	for i, tx := range s.Transactions {
		doc.Transactions[i] = transactionJSON{
			ID:       tx.ID,
			Type:     string(tx.Type),
			Date:     tx.Date.String(),
			Category: ledger.EncodeCategory(tx.Category),
			Amount:   json.Number(strconv.FormatInt(tx.Amount, 10)),
			MemberID: tx.MemberID,
			Memo:     tx.Memo,
		}
	}
	return doc
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// Encode writes s as an indented snapshot document.
func Encode(w io.Writer, s core.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(toDocument(s)); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(s core.State) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is Decode from a byte slice.
func Unmarshal(b []byte) (core.State, error) {
	return Decode(bytes.NewReader(b))
}

// MarshalEntry encodes a history entry as {"timestamp": ..., "data": {...}}.
func MarshalEntry(e Entry) ([]byte, error) {
	data, err := json.Marshal(toDocument(e.State))
	if err != nil {
		return nil, fmt.Errorf("encode history entry: %w", err)
	}
	return json.Marshal(entryJSON{Timestamp: e.Timestamp.UTC(), Data: data})
}

// UnmarshalEntry decodes a history entry written by MarshalEntry.
func UnmarshalEntry(b []byte) (Entry, error) {
	var raw entryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return Entry{}, fmt.Errorf("%w: history entry: %v", ErrInvalidSnapshot, err)
	}
	state, err := Unmarshal(raw.Data)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Timestamp: raw.Timestamp, State: state}, nil
}

// PushHistory puts e in front of history and keeps at most MaxHistory entries.
func PushHistory(history []Entry, e Entry) []Entry {
	out := make([]Entry, 0, min(len(history)+1, MaxHistory))
	out = append(out, e)
	for _, h := range history {
		if len(out) == MaxHistory {
			break
		}
		out = append(out, h)
	}
	return out
}

// FileName is the download name of an exported snapshot.
func FileName(church string, today core.Date) string {
	return church + "_헌금_" + today.String() + ".json"
}
