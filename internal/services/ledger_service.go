package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"parishledger/internal/amqp"
	"parishledger/internal/cache"
	"parishledger/internal/core"
	"parishledger/internal/ledger"
	applog "parishledger/internal/log"
	"parishledger/internal/store"
)

var (
	ErrNotFound          = store.ErrNotFound
	ErrDuplicateCategory = errors.New("category already exists")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUnknownMember     = errors.New("unknown member")
	ErrInvalidKind       = errors.New("invalid category kind")
	ErrMemberRequired    = errors.New("income requires a member")
	ErrSubRequired       = errors.New("category requires a sub item")
	ErrFixedCategory     = errors.New("category is fixed")
)

// Publisher announces saved snapshots to other processes.
type Publisher interface {
	PublishSnapshotSaved(ctx context.Context, msg *amqp.SnapshotSavedMessage) error
}

type Options struct {
	ChurchName     string
	IncomePriority []string
	Location       *time.Location
	Now            func() time.Time
	Publisher      Publisher
	Views          cache.Cache[Dashboard]
	Logger         *applog.Logger
}

// LedgerService owns every read-modify-write of the ledger state. Mutations
// are serialised; reads work on a copy loaded from the store.
type LedgerService struct {
	mu     sync.Mutex
	store  store.Store
	opts   Options
	logger *applog.Logger
	lastID int64
}

func NewLedgerService(st store.Store, opts Options) *LedgerService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	return &LedgerService{
		store:  st,
		opts:   opts,
		logger: opts.Logger.WithComponent(applog.ComponentLedger),
	}
}

// Today is the reference date for every time window.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.opts.Now().In(s.opts.Location))
}

func (s *LedgerService) orderer(st core.State) *ledger.Orderer {
	return ledger.NewOrderer(s.opts.IncomePriority, st.Members)
}

// State returns a copy of the current ledger state.
func (s *LedgerService) State(ctx context.Context) (core.State, error) {
	st, err := s.store.Load(ctx)
	if err != nil {
		return core.State{}, fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

// update loads the state, applies fn and saves the result when fn succeeds.
func (s *LedgerService) update(ctx context.Context, op string, fn func(*core.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if err := fn(&st); err != nil {
		return err
	}
	if err := s.store.Save(ctx, st); err != nil {
		applog.LogError(ctx, "Saving ledger state failed", err, applog.ComponentStorage, op, applog.ErrorTypeDatabase)
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// nextID hands out millisecond timestamps, bumped past the last issued id and
// any id already taken.
func (s *LedgerService) nextID(taken func(int64) bool) int64 {
	id := s.opts.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for taken(id) {
		id++
	}
	s.lastID = id
	return id
}

// ChurchName returns the stored name, falling back to the configured one.
func (s *LedgerService) ChurchName(ctx context.Context) (string, error) {
	name, err := s.store.Setting(ctx, store.SettingChurchName)
	if errors.Is(err, store.ErrNotFound) {
		return s.opts.ChurchName, nil
	}
	if err != nil {
		return "", fmt.Errorf("read church name: %w", err)
	}
	return name, nil
}

func (s *LedgerService) SetChurchName(ctx context.Context, name string) error {
	if name == "" {
		return core.ErrEmptyName
	}
	return s.store.PutSetting(ctx, store.SettingChurchName, name)
}

// Members returns the members in Korean name order.
func (s *LedgerService) Members(ctx context.Context) ([]core.Member, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.SortMembers(st.Members), nil
}

// MemberGroups returns the members bucketed by initial consonant.
func (s *LedgerService) MemberGroups(ctx context.Context) ([]ledger.MemberGroup, error) {
	members, err := s.Members(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.GroupByInitial(members), nil
}

func (s *LedgerService) AddMember(ctx context.Context, name, position string) (core.Member, error) {
	m := core.Member{Name: name, Position: position}
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	err := s.update(ctx, applog.OpCreate, func(st *core.State) error {
		m.ID = s.nextID(func(id int64) bool { return memberIndex(st.Members, id) >= 0 })
		st.Members = ledger.SortMembers(append(st.Members, m))
		return nil
	})
	if err != nil {
		return core.Member{}, err
	}
	s.logger.InfoContext(ctx, "Member added", applog.FieldMemberID, m.ID, applog.FieldOperation, applog.OpCreate)
	return m, nil
}

func (s *LedgerService) UpdateMember(ctx context.Context, m core.Member) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return s.update(ctx, applog.OpUpdate, func(st *core.State) error {
		i := memberIndex(st.Members, m.ID)
		if i < 0 {
			return fmt.Errorf("member %d: %w", m.ID, ErrNotFound)
		}
		st.Members[i] = m
		st.Members = ledger.SortMembers(st.Members)
		return nil
	})
}

// DeleteMember removes the member. Transactions keep their member id and
// resolve to the unassigned placeholder afterwards.
func (s *LedgerService) DeleteMember(ctx context.Context, id int64) error {
	return s.update(ctx, applog.OpDelete, func(st *core.State) error {
		i := memberIndex(st.Members, id)
		if i < 0 {
			return fmt.Errorf("member %d: %w", id, ErrNotFound)
		}
		st.Members = slices.Delete(st.Members, i, i+1)
		return nil
	})
}

func memberIndex(ms []core.Member, id int64) int {
	return slices.IndexFunc(ms, func(m core.Member) bool { return m.ID == id })
}

func txIndex(txs []core.Transaction, id int64) int {
	return slices.IndexFunc(txs, func(tx core.Transaction) bool { return tx.ID == id })
}

// Transactions returns every transaction, newest first.
func (s *LedgerService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.SortSimple(st.Transactions), nil
}

// validateEntry checks tx as a user entry: income names its donor, and the
// festival and other-income parents name a sub item.
func validateEntry(tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.Type != core.Income {
		return nil
	}
	if tx.MemberID == nil {
		return ErrMemberRequired
	}
	if isIncomeParent(tx.Category.Main) && strings.TrimSpace(tx.Category.Sub) == "" {
		return fmt.Errorf("%s: %w", tx.Category.Main, ErrSubRequired)
	}
	return nil
}

func isIncomeParent(main string) bool {
	return main == core.FestivalParent || main == core.OtherIncomeParent
}

// AddTransaction assigns an id to tx and stores it. A member reference must
// point at an existing member.
func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := validateEntry(tx); err != nil {
		return core.Transaction{}, err
	}
	err := s.update(ctx, applog.OpCreate, func(st *core.State) error {
		if tx.MemberID != nil && memberIndex(st.Members, *tx.MemberID) < 0 {
			return fmt.Errorf("member %d: %w", *tx.MemberID, ErrUnknownMember)
		}
		tx.ID = s.nextID(func(id int64) bool { return txIndex(st.Transactions, id) >= 0 })
		st.Transactions = append(st.Transactions, tx)
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transaction added", applog.NewFields().
		WithTransaction(tx.ID, string(tx.Type), tx.Date.String(), ledger.EncodeCategory(tx.Category), tx.Amount).
		WithOperation(applog.OpCreate).ToSlice()...)
	return tx, nil
}

// UpdateTransaction replaces the stored transaction with the same id. The
// member reference may stay dangling if it was already.
func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := validateEntry(tx); err != nil {
		return err
	}
	return s.update(ctx, applog.OpUpdate, func(st *core.State) error {
		i := txIndex(st.Transactions, tx.ID)
		if i < 0 {
			return fmt.Errorf("transaction %d: %w", tx.ID, ErrNotFound)
		}
		prev := st.Transactions[i].MemberID
		unchanged := prev != nil && tx.MemberID != nil && *prev == *tx.MemberID
		if tx.MemberID != nil && !unchanged && memberIndex(st.Members, *tx.MemberID) < 0 {
			return fmt.Errorf("member %d: %w", *tx.MemberID, ErrUnknownMember)
		}
		st.Transactions[i] = tx
		return nil
	})
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	return s.update(ctx, applog.OpDelete, func(st *core.State) error {
		i := txIndex(st.Transactions, id)
		if i < 0 {
			return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		st.Transactions = slices.Delete(st.Transactions, i, i+1)
		return nil
	})
}
