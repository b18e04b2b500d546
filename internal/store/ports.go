package store

import (
	"context"
	"errors"
	"time"

	"parishledger/internal/core"
	"parishledger/internal/snapshot"
)

var ErrNotFound = errors.New("not found")

// Setting keys.
const (
	SettingChurchName = "church_name"
)

// Ports for state persistence. The ledger engine never sees these; the
// service layer loads a snapshot, derives views and writes whole states back.
type (
	StateReader interface {
		Load(ctx context.Context) (core.State, error)
	}

	StateWriter interface {
		// Save replaces the stored state atomically.
		Save(ctx context.Context, s core.State) error
	}

	// History keeps saved snapshots newest first, capped at snapshot.MaxHistory.
	History interface {
		AppendHistory(ctx context.Context, e snapshot.Entry) error
		ListHistory(ctx context.Context) ([]snapshot.Entry, error)
		// DeleteHistory removes the entry saved at ts; ErrNotFound if absent.
		DeleteHistory(ctx context.Context, ts time.Time) error
	}

	Settings interface {
		Setting(ctx context.Context, key string) (string, error)
		PutSetting(ctx context.Context, key, value string) error
	}

	// Store is everything a backend provides.
	Store interface {
		StateReader
		StateWriter
		History
		Settings
		// Reset wipes state, history and settings.
		Reset(ctx context.Context) error
		Close() error
	}
)
