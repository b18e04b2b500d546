package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parishledger/internal/config"
	"parishledger/internal/core"
	"parishledger/internal/snapshot"
)

func writeSeed(t *testing.T) string {
	t.Helper()
	st := core.EmptyState()
	st.Members = []core.Member{{ID: 1, Name: "김철수", Position: "집사"}}
	st.Transactions = []core.Transaction{
		{ID: 2, Type: core.Income, Date: core.NewDate(2024, 1, 7), Category: core.Category{Main: "십일조"}, Amount: 50000, MemberID: core.MemberRef(1)},
	}
	doc, err := snapshot.Marshal(st)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, doc, 0o600))
	return path
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", SeedSnapshotFile: "seed.json"})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", SeedSnapshotFile: "seed.json"}, cfg)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, SeedSnapshotFile: writeSeed(t)})
	require.NoError(t, err)
	defer res.Cleanup()

	st, err := res.Store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, st.Members, 1)
	assert.Len(t, st.Transactions, 1)
}

func TestCreateSQLiteBackendSeedsOnce(t *testing.T) {
	ctx := context.Background()
	seed := writeSeed(t)
	cfg := Config{
		Type:             SQLiteBackend,
		SQLiteDBPath:     filepath.Join(t.TempDir(), "ledger.db"),
		SeedSnapshotFile: seed,
	}

	res, err := NewFactory(nil).CreateBackend(ctx, cfg)
	require.NoError(t, err)
	st, err := res.Store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, st.Transactions, 1)

	st.Transactions = append(st.Transactions, core.Transaction{
		ID: 3, Type: core.Expense, Date: core.NewDate(2024, 1, 8), Category: core.Category{Main: "교육비"}, Amount: 1000,
	})
	require.NoError(t, res.Store.Save(ctx, st))
	require.NoError(t, res.Cleanup())

	// reopening must not overwrite existing data with the seed
	res, err = NewFactory(nil).CreateBackend(ctx, cfg)
	require.NoError(t, err)
	defer res.Cleanup()
	st, err = res.Store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, st.Transactions, 2)
}

func TestCreateBackendRejectsBadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"members":1}`), 0o600))

	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedSnapshotFile: path})
	assert.ErrorIs(t, err, snapshot.ErrInvalidSnapshot)
}
