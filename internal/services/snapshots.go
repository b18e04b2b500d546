package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"parishledger/internal/amqp"
	"parishledger/internal/core"
	applog "parishledger/internal/log"
	"parishledger/internal/snapshot"
)

// SavedSnapshot is the result of SaveSnapshot: the history entry and the
// document offered for download.
type SavedSnapshot struct {
	Entry    snapshot.Entry
	FileName string
	Document []byte
}

// SaveSnapshot records the current state in history and returns it encoded
// for download. A configured publisher is notified; publish failures are
// logged and do not fail the save.
func (s *LedgerService) SaveSnapshot(ctx context.Context) (SavedSnapshot, error) {
	s.mu.Lock()
	st, err := s.store.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		return SavedSnapshot{}, fmt.Errorf("load state: %w", err)
	}
	entry := snapshot.Entry{Timestamp: s.opts.Now().UTC(), State: st}
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		s.mu.Unlock()
		return SavedSnapshot{}, fmt.Errorf("append history: %w", err)
	}
	s.mu.Unlock()

	doc, err := snapshot.Marshal(st)
	if err != nil {
		return SavedSnapshot{}, err
	}
	church, err := s.ChurchName(ctx)
	if err != nil {
		return SavedSnapshot{}, err
	}

	s.logger.InfoContext(ctx, "Snapshot saved",
		applog.FieldOperation, applog.OpSave,
		applog.FieldCount, len(st.Transactions))

	if s.opts.Publisher != nil {
		msg := amqp.NewSnapshotSavedMessage(church, entry.Timestamp, len(st.Transactions), doc)
		if err := s.opts.Publisher.PublishSnapshotSaved(ctx, msg); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish snapshot saved message", applog.FieldError, err)
		}
	} else {
		s.logger.DebugContext(ctx, "No publisher configured, skipping snapshot saved message")
	}

	return SavedSnapshot{
		Entry:    entry,
		FileName: snapshot.FileName(church, s.Today()),
		Document: doc,
	}, nil
}

// ExportDocument encodes the current state without touching history.
func (s *LedgerService) ExportDocument(ctx context.Context) ([]byte, string, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, "", err
	}
	doc, err := snapshot.Marshal(st)
	if err != nil {
		return nil, "", err
	}
	church, err := s.ChurchName(ctx)
	if err != nil {
		return nil, "", err
	}
	return doc, snapshot.FileName(church, s.Today()), nil
}

// ImportSnapshot replaces the whole state with the decoded document. A
// malformed document leaves the state untouched.
func (s *LedgerService) ImportSnapshot(ctx context.Context, r io.Reader) (core.State, error) {
	st, err := snapshot.Decode(r)
	if err != nil {
		return core.State{}, err
	}
	err = s.update(ctx, applog.OpImport, func(cur *core.State) error {
		*cur = st
		return nil
	})
	if err != nil {
		return core.State{}, err
	}
	s.logger.InfoContext(ctx, "Snapshot imported",
		applog.FieldOperation, applog.OpImport,
		applog.FieldCount, len(st.Transactions))
	return st, nil
}

// ImportMembers replaces the member list and clears every transaction so the
// ledger starts again from zero. Categories are kept.
func (s *LedgerService) ImportMembers(ctx context.Context, r io.Reader) ([]core.Member, error) {
	members, err := snapshot.DecodeMembers(r)
	if err != nil {
		return nil, err
	}
	err = s.update(ctx, applog.OpImport, func(st *core.State) error {
		st.Members = members
		st.Transactions = []core.Transaction{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *LedgerService) History(ctx context.Context) ([]snapshot.Entry, error) {
	entries, err := s.store.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// RestoreHistory makes the history entry saved at ts the current state.
func (s *LedgerService) RestoreHistory(ctx context.Context, ts time.Time) error {
	entries, err := s.History(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Timestamp.Equal(ts) {
			return s.update(ctx, applog.OpRestore, func(st *core.State) error {
				*st = e.State
				return nil
			})
		}
	}
	return fmt.Errorf("snapshot %s: %w", ts.Format(time.RFC3339), ErrNotFound)
}

func (s *LedgerService) DeleteHistory(ctx context.Context, ts time.Time) error {
	if err := s.store.DeleteHistory(ctx, ts); err != nil {
		return fmt.Errorf("snapshot %s: %w", ts.Format(time.RFC3339), err)
	}
	return nil
}

// Reset wipes state, history and settings.
func (s *LedgerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.lastID = 0
	if s.opts.Views != nil {
		s.opts.Views.Purge()
	}
	s.logger.WarnContext(ctx, "Ledger reset", applog.FieldOperation, applog.OpReset)
	return nil
}
