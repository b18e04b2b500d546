package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"parishledger/internal/core"
	"parishledger/internal/snapshot"
	"parishledger/internal/store"

	_ "modernc.org/sqlite"
)

// stateSavedKey marks that a state has been written at least once; until
// then Load returns an empty ledger with default categories.
const stateSavedKey = "_state_saved_at"

const (
	kindExpense     = "expense"
	kindIncome      = "income"
	kindFestival    = "festival"
	kindOtherIncome = "other_income"
	kindExpenseSub  = "expense_sub"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (core.State, error) {
	if _, err := r.Setting(ctx, stateSavedKey); errors.Is(err, store.ErrNotFound) {
		return core.EmptyState(), nil
	} else if err != nil {
		return core.State{}, err
	}

	members, err := r.loadMembers(ctx)
	if err != nil {
		return core.State{}, err
	}
	txs, err := r.loadTransactions(ctx)
	if err != nil {
		return core.State{}, err
	}
	cats, err := r.loadCategories(ctx)
	if err != nil {
		return core.State{}, err
	}
	return core.State{Members: members, Transactions: txs, Categories: cats}, nil
}

func (r *SQLiteRepository) loadMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, position FROM members ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []core.Member{}
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Position); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *SQLiteRepository) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, date, main_category, sub_category, amount, member_id, memo
		FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var (
			tx       core.Transaction
			typ      string
			date     string
			memberID sql.NullInt64
		)
		if err := rows.Scan(&tx.ID, &typ, &date, &tx.Category.Main, &tx.Category.Sub, &tx.Amount, &memberID, &tx.Memo); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TxType(typ)
		if tx.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
		}
		if memberID.Valid {
			tx.MemberID = core.MemberRef(memberID.Int64)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) loadCategories(ctx context.Context) (core.Categories, error) {
	cats := core.Categories{
		Expense:     []string{},
		Income:      []string{},
		Festival:    []string{},
		OtherIncome: []string{},
		ExpenseSub:  map[string][]string{},
	}
	rows, err := r.db.QueryContext(ctx, `SELECT kind, parent, name FROM category_lists ORDER BY seq`)
	if err != nil {
		return cats, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, parent, name string
		if err := rows.Scan(&kind, &parent, &name); err != nil {
			return cats, fmt.Errorf("scan category: %w", err)
		}
		switch kind {
		case kindExpense:
			cats.Expense = append(cats.Expense, name)
		case kindIncome:
			cats.Income = append(cats.Income, name)
		case kindFestival:
			cats.Festival = append(cats.Festival, name)
		case kindOtherIncome:
			cats.OtherIncome = append(cats.OtherIncome, name)
		case kindExpenseSub:
			// an empty name records a parent with no sub-categories
			if name == "" {
				if _, ok := cats.ExpenseSub[parent]; !ok {
					cats.ExpenseSub[parent] = []string{}
				}
				continue
			}
			cats.ExpenseSub[parent] = append(cats.ExpenseSub[parent], name)
		}
	}
	return cats, rows.Err()
}

// Save replaces members, transactions and category lists in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, s core.State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"members", "transactions", "category_lists"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, m := range s.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO members (id, name, position) VALUES (?, ?, ?)`,
			m.ID, m.Name, m.Position); err != nil {
			return fmt.Errorf("insert member %d: %w", m.ID, err)
		}
	}

	for _, t := range s.Transactions {
		var memberID sql.NullInt64
		if t.MemberID != nil {
			memberID = sql.NullInt64{Int64: *t.MemberID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, type, date, main_category, sub_category, amount, member_id, memo)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, string(t.Type), t.Date.String(), t.Category.Main, t.Category.Sub, t.Amount, memberID, t.Memo); err != nil {
			return fmt.Errorf("insert transaction %d: %w", t.ID, err)
		}
	}

	insertCategory := func(kind, parent, name string) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_lists (kind, parent, name) VALUES (?, ?, ?)`,
			kind, parent, name); err != nil {
			return fmt.Errorf("insert %s category %q: %w", kind, name, err)
		}
		return nil
	}
	lists := []struct {
		kind  string
		names []string
	}{
		{kindExpense, s.Categories.Expense},
		{kindIncome, s.Categories.Income},
		{kindFestival, s.Categories.Festival},
		{kindOtherIncome, s.Categories.OtherIncome},
	}
	for _, l := range lists {
		for _, name := range l.names {
			if err := insertCategory(l.kind, "", name); err != nil {
				return err
			}
		}
	}
	for parent, subs := range s.Categories.ExpenseSub {
		if len(subs) == 0 {
			if err := insertCategory(kindExpenseSub, parent, ""); err != nil {
				return err
			}
			continue
		}
		for _, sub := range subs {
			if err := insertCategory(kindExpenseSub, parent, sub); err != nil {
				return err
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		stateSavedKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("mark state saved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	slog.DebugContext(ctx, "Ledger state saved to SQLite",
		"members", len(s.Members),
		"transactions", len(s.Transactions))
	return nil
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func (r *SQLiteRepository) AppendHistory(ctx context.Context, e snapshot.Entry) error {
	payload, err := snapshot.Marshal(e.State)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history append: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (taken_at, payload) VALUES (?, ?)`,
		formatTimestamp(e.Timestamp), payload); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY id DESC LIMIT ?
		)`, snapshot.MaxHistory); err != nil {
		return fmt.Errorf("trim snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history append: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListHistory(ctx context.Context) ([]snapshot.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT taken_at, payload FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Entry
	for rows.Next() {
		var (
			takenAt string
			payload []byte
		)
		if err := rows.Scan(&takenAt, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, takenAt)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp %q: %w", takenAt, err)
		}
		state, err := snapshot.Unmarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", takenAt, err)
		}
		out = append(out, snapshot.Entry{Timestamp: ts, State: state})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteHistory(ctx context.Context, ts time.Time) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE taken_at = ?`, formatTimestamp(ts))
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

func (r *SQLiteRepository) PutSetting(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value); err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()
	for _, table := range []string{"members", "transactions", "category_lists", "snapshots", "settings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	slog.InfoContext(ctx, "Ledger storage reset")
	return nil
}
