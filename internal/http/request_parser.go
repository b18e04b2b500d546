// Package http serves the ledger over a JSON API.
//
// This file implements request parsing: JSON bodies, path IDs, query
// filters and the export selection.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"parishledger/internal/core"
	"parishledger/internal/export"
	"parishledger/internal/ledger"
	"parishledger/internal/services"
)

// maxBodyBytes bounds request bodies; snapshot imports are the largest.
const maxBodyBytes = 16 << 20

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// readBody returns the raw body for snapshot imports.
func readBody(w http.ResponseWriter, r *http.Request) (io.Reader, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return bytes.NewReader(raw), nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}

// pathTimestamp parses the {ts} path segment of a history entry.
func pathTimestamp(r *http.Request) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.PathValue("ts"))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", errBadRequest, r.PathValue("ts"))
	}
	return ts, nil
}

func queryInt(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, key)
	}
	return n, nil
}

func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// parseQuery reads the search filters.
func parseQuery(q url.Values) (services.Query, error) {
	var out services.Query
	var err error
	if out.From, err = queryDate(q, "from"); err != nil {
		return out, err
	}
	if out.To, err = queryDate(q, "to"); err != nil {
		return out, err
	}
	if t := q.Get("type"); t != "" {
		out.Type = core.TxType(t)
		if !out.Type.Valid() {
			return out, fmt.Errorf("%w: %q", core.ErrInvalidType, t)
		}
	}
	out.Category = strings.TrimSpace(q.Get("category"))
	if v := q.Get("member"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return out, fmt.Errorf("%w: member must be an id", errBadRequest)
		}
		out.MemberID = &id
	}
	if v := q.Get("amount"); v != "" {
		if out.Amount, err = core.ParseAmount(v); err != nil {
			return out, err
		}
	}
	return out, nil
}

// parseSelection reads period=total|yearly|monthly|weekly with year,
// months=1,3 and weeks=2024-01-07,2024-01-14.
func parseSelection(q url.Values) (export.Selection, error) {
	period := q.Get("period")
	if period == "" {
		period = export.Total.String()
	}
	p, err := export.ParsePeriod(period)
	if err != nil {
		return export.Selection{}, err
	}
	sel := export.Selection{Period: p}
	if sel.Year, err = queryInt(q, "year"); err != nil {
		return sel, err
	}
	for _, m := range splitList(q.Get("months")) {
		month, err := strconv.Atoi(m)
		if err != nil {
			return sel, fmt.Errorf("%w: invalid month %q", errBadRequest, m)
		}
		sel.Months = append(sel.Months, month)
	}
	for _, w := range splitList(q.Get("weeks")) {
		d, err := core.ParseDate(w)
		if err != nil {
			return sel, fmt.Errorf("weeks: %w", err)
		}
		sel.WeekStarts = append(sel.WeekStarts, d)
	}
	return sel, sel.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// amountInput accepts 10000 as well as "10,000".
type amountInput int64

func (a *amountInput) UnmarshalJSON(b []byte) error {
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	*a = amountInput(v)
	return nil
}

// transactionInput is the body of POST and PUT /api/transactions.
// Category is the wire label; Main and Sub may be given instead.
type transactionInput struct {
	Type     string      `json:"type"`
	Date     string      `json:"date"`
	Category string      `json:"category"`
	Main     string      `json:"main"`
	Sub      string      `json:"sub"`
	Amount   amountInput `json:"amount"`
	MemberID *int64      `json:"memberId"`
	Memo     string      `json:"memo"`
}

func (in transactionInput) toCore() (core.Transaction, error) {
	date, err := core.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return core.Transaction{}, err
	}
	cat := core.Category{Main: strings.TrimSpace(in.Main), Sub: strings.TrimSpace(in.Sub)}
	if in.Category != "" {
		if cat, err = ledger.ParseCategory(in.Category); err != nil {
			return core.Transaction{}, err
		}
	}
	return core.Transaction{
		Type:     core.TxType(in.Type),
		Date:     date,
		Category: cat,
		Amount:   int64(in.Amount),
		MemberID: in.MemberID,
		Memo:     strings.TrimSpace(in.Memo),
	}, nil
}

type memberInput struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

type nameInput struct {
	Name string `json:"name"`
}

// selectionInput is the body of POST /api/export/sheets.
type selectionInput struct {
	Period     string   `json:"period"`
	Year       int      `json:"year"`
	Months     []int    `json:"months"`
	WeekStarts []string `json:"weeks"`
}

func (in selectionInput) toSelection() (export.Selection, error) {
	p, err := export.ParsePeriod(in.Period)
	if err != nil {
		return export.Selection{}, err
	}
	sel := export.Selection{Period: p, Year: in.Year, Months: in.Months}
	for _, w := range in.WeekStarts {
		d, err := core.ParseDate(w)
		if err != nil {
			return sel, fmt.Errorf("weeks: %w", err)
		}
		sel.WeekStarts = append(sel.WeekStarts, d)
	}
	if err := sel.Validate(); err != nil {
		return sel, err
	}
	return sel, nil
}
