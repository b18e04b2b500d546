package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parishledger/internal/amqp"
	"parishledger/internal/cache"
	"parishledger/internal/core"
	"parishledger/internal/export"
	"parishledger/internal/ledger"
	"parishledger/internal/snapshot"
	"parishledger/internal/store/memory"
)

var fixedNow = time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC) // Wednesday

type fakePublisher struct {
	msgs []*amqp.SnapshotSavedMessage
	err  error
}

func (p *fakePublisher) PublishSnapshotSaved(_ context.Context, msg *amqp.SnapshotSavedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func newService(t *testing.T, st core.State, mutate ...func(*Options)) (*LedgerService, *memory.Store) {
	t.Helper()
	mem := memory.New(st)
	opts := Options{
		ChurchName:     "은혜교회",
		IncomePriority: ledger.DefaultIncomePriority,
		Location:       time.UTC,
		Now:            func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewLedgerService(mem, opts), mem
}

func seededState() core.State {
	st := core.EmptyState()
	st.Members = []core.Member{
		{ID: 1, Name: "홍길동", Position: "성도"},
		{ID: 2, Name: "김철수", Position: "집사"},
	}
	st.Transactions = []core.Transaction{
		{ID: 10, Type: core.Income, Date: core.NewDate(2024, 1, 7), Category: core.Category{Main: "십일조"}, Amount: 100000, MemberID: core.MemberRef(2)},
		{ID: 11, Type: core.Expense, Date: core.NewDate(2024, 1, 8), Category: core.Category{Main: "교회관리비", Sub: "전기요금"}, Amount: 30000},
		{ID: 12, Type: core.Income, Date: core.NewDate(2024, 1, 10), Category: core.Category{Main: "주일헌금"}, Amount: 5000},
		{ID: 13, Type: core.Income, Date: core.NewDate(2023, 12, 31), Category: core.Category{Main: core.FestivalParent, Sub: "성탄감사"}, Amount: 20000},
	}
	return st
}

func TestMembersCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.EmptyState())

	b, err := svc.AddMember(ctx, "박영희", "권사")
	require.NoError(t, err)
	a, err := svc.AddMember(ctx, "강민수", "청년")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID, "ids issued in the same millisecond must differ")
	assert.Equal(t, fixedNow.UnixMilli(), b.ID)

	_, err = svc.AddMember(ctx, "  ", "성도")
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = svc.AddMember(ctx, "이름", "회장")
	assert.ErrorIs(t, err, core.ErrInvalidPosition)

	members, err := svc.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "강민수", members[0].Name)

	a.Position = "집사"
	require.NoError(t, svc.UpdateMember(ctx, a))
	assert.ErrorIs(t, svc.UpdateMember(ctx, core.Member{ID: 999, Name: "x", Position: "성도"}), ErrNotFound)

	require.NoError(t, svc.DeleteMember(ctx, b.ID))
	assert.ErrorIs(t, svc.DeleteMember(ctx, b.ID), ErrNotFound)

	groups, err := svc.MemberGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "ㄱ", groups[0].Consonant)
}

func TestTransactionsCRUD(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, seededState())

	tx, err := svc.AddTransaction(ctx, core.Transaction{
		Type: core.Income, Date: core.NewDate(2024, 1, 10), Category: core.Category{Main: "감사헌금"},
		Amount: 7000, MemberID: core.MemberRef(1),
	})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.UnixMilli(), tx.ID)

	_, err = svc.AddTransaction(ctx, core.Transaction{
		Type: core.Income, Date: core.NewDate(2024, 1, 10), Category: core.Category{Main: "감사헌금"},
		Amount: 7000, MemberID: core.MemberRef(404),
	})
	assert.ErrorIs(t, err, ErrUnknownMember)

	_, err = svc.AddTransaction(ctx, core.Transaction{Type: core.Income, Date: core.NewDate(2024, 1, 10), Category: core.Category{Main: "x"}})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	txs, err := svc.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 5)
	assert.Equal(t, tx.ID, txs[0].ID, "newest first, ties by id desc")

	tx.Amount = 8000
	require.NoError(t, svc.UpdateTransaction(ctx, tx))
	st, _ := mem.Load(ctx)
	assert.Equal(t, int64(8000), st.Transactions[len(st.Transactions)-1].Amount)

	require.NoError(t, svc.DeleteTransaction(ctx, tx.ID))
	assert.ErrorIs(t, svc.DeleteTransaction(ctx, tx.ID), ErrNotFound)
}

func TestUpdateTransactionKeepsDanglingMember(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, seededState())
	require.NoError(t, svc.DeleteMember(ctx, 2))

	txs, err := svc.Transactions(ctx)
	require.NoError(t, err)
	var tithe core.Transaction
	for _, tx := range txs {
		if tx.ID == 10 {
			tithe = tx
		}
	}
	tithe.Memo = "정정"
	require.NoError(t, svc.UpdateTransaction(ctx, tithe))

	tithe.MemberID = core.MemberRef(3)
	assert.ErrorIs(t, svc.UpdateTransaction(ctx, tithe), ErrUnknownMember)
}

func TestIncomeEntryRules(t *testing.T) {
	ctx := context.Background()
	day := core.NewDate(2024, 1, 10)

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"income without member", core.Transaction{Type: core.Income, Date: day, Category: core.Category{Main: "십일조"}, Amount: 1000}, ErrMemberRequired},
		{"festival without sub", core.Transaction{Type: core.Income, Date: day, Category: core.Category{Main: core.FestivalParent}, Amount: 1000, MemberID: core.MemberRef(1)}, ErrSubRequired},
		{"other income without sub", core.Transaction{Type: core.Income, Date: day, Category: core.Category{Main: core.OtherIncomeParent}, Amount: 1000, MemberID: core.MemberRef(1)}, ErrSubRequired},
		{"festival with sub", core.Transaction{Type: core.Income, Date: day, Category: core.Category{Main: core.FestivalParent, Sub: "부활감사"}, Amount: 1000, MemberID: core.MemberRef(1)}, nil},
		{"expense without member", core.Transaction{Type: core.Expense, Date: day, Category: core.Category{Main: "교육비"}, Amount: 1000}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, seededState())
			_, err := svc.AddTransaction(ctx, tt.tx)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	svc, _ := newService(t, seededState())
	assert.ErrorIs(t, svc.UpdateTransaction(ctx, core.Transaction{
		ID: 12, Type: core.Income, Date: day, Category: core.Category{Main: "주일헌금"}, Amount: 5000,
	}), ErrMemberRequired)
	assert.ErrorIs(t, svc.UpdateTransaction(ctx, core.Transaction{
		ID: 13, Type: core.Income, Date: core.NewDate(2023, 12, 31), Category: core.Category{Main: core.FestivalParent}, Amount: 20000, MemberID: core.MemberRef(1),
	}), ErrSubRequired)
}

func TestIncomeParentsAreFixed(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, seededState())
	before, _ := mem.Load(ctx)

	for _, parent := range []string{core.FestivalParent, core.OtherIncomeParent} {
		_, err := svc.RenameCategory(ctx, KindIncome, parent, "특별헌금")
		assert.ErrorIs(t, err, ErrFixedCategory, parent)
		_, err = svc.DeleteCategory(ctx, KindIncome, parent)
		assert.ErrorIs(t, err, ErrFixedCategory, parent)
	}
	_, err := svc.RenameCategory(ctx, KindIncome, "십일조", core.FestivalParent)
	assert.ErrorIs(t, err, ErrFixedCategory)

	after, _ := mem.Load(ctx)
	assert.Equal(t, before, after)
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, seededState())
	before, _ := mem.Load(ctx)

	_, err := svc.RenameCategory(ctx, KindExpense, "교회관리비", "교육비")
	require.ErrorIs(t, err, ErrDuplicateCategory)

	after, _ := mem.Load(ctx)
	assert.Equal(t, before, after)
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, seededState())

	require.NoError(t, svc.AddCategory(ctx, KindExpense, "가구"))
	assert.ErrorIs(t, svc.AddCategory(ctx, KindExpense, "가구"), ErrDuplicateCategory)
	assert.ErrorIs(t, svc.AddCategory(ctx, KindExpense, " "), core.ErrEmptyCategory)
	assert.ErrorIs(t, svc.AddCategory(ctx, "bogus", "x"), ErrInvalidKind)

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "가구", cats.Expense[0], "expense categories stay sorted")

	n, err := svc.RenameCategory(ctx, KindExpense, "교회관리비", "시설관리비")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	st, _ := mem.Load(ctx)
	assert.Contains(t, st.Categories.ExpenseSub, "시설관리비")
	assert.NotContains(t, st.Categories.ExpenseSub, "교회관리비")
	assert.Equal(t, core.Category{Main: "시설관리비", Sub: "전기요금"}, st.Transactions[1].Category)

	n, err = svc.RenameCategory(ctx, KindFestival, "성탄감사", "성탄절")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	st, _ = mem.Load(ctx)
	assert.Equal(t, core.Category{Main: core.FestivalParent, Sub: "성탄절"}, st.Transactions[3].Category)

	_, err = svc.RenameCategory(ctx, KindIncome, "없는항목", "새항목")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	inUse, err := svc.DeleteCategory(ctx, KindIncome, "십일조")
	require.NoError(t, err)
	assert.True(t, inUse)
	inUse, err = svc.DeleteCategory(ctx, KindExpense, "가구")
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestSubCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, seededState())

	require.NoError(t, svc.AddSubCategory(ctx, "교회관리비", "관리용역"))
	assert.ErrorIs(t, svc.AddSubCategory(ctx, "교회관리비", "관리용역"), ErrDuplicateCategory)
	assert.ErrorIs(t, svc.AddSubCategory(ctx, "없는항목", "x"), ErrUnknownCategory)

	n, err := svc.RenameSubCategory(ctx, "교회관리비", "전기요금", "전기")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = svc.RenameSubCategory(ctx, "교회관리비", "전기", "인터넷")
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	st, _ := mem.Load(ctx)
	assert.Equal(t, "교회관리비 (세부) (전기)", ledger.EncodeCategory(st.Transactions[1].Category))

	inUse, err := svc.DeleteSubCategory(ctx, "교회관리비", "전기")
	require.NoError(t, err)
	assert.True(t, inUse)
	_, err = svc.DeleteSubCategory(ctx, "교회관리비", "전기")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	views := cache.NewLRUCache[Dashboard](4, time.Minute)
	svc, _ := newService(t, seededState(), func(o *Options) { o.Views = views })

	d, err := svc.Dashboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "은혜교회", d.ChurchName)
	assert.Equal(t, core.NewDate(2024, 1, 10), d.Today)
	assert.Equal(t, core.BalanceSplit{Previous: 90000, TodaysChange: 5000, Today: 95000}, d.Balance)
	assert.Equal(t, core.Totals{Income: 5000}, d.TodayTotals)
	require.Len(t, d.Ledger, 4)
	assert.Equal(t, int64(95000), d.Ledger[0].Balance)
	assert.Equal(t, 2024, d.Summary.SelectedYear)
	assert.Equal(t, core.Totals{Income: 105000, Expense: 30000}, d.Summary.Weekly)
	assert.Equal(t, 1, views.Size())

	again, err := svc.Dashboard(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, d, again)
	assert.Equal(t, 1, views.Size(), "same content hits the cache")

	_, err = svc.AddMember(ctx, "이영희", "성도")
	require.NoError(t, err)
	_, err = svc.Dashboard(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, views.Size(), "changed state is a new key")

	prev, err := svc.Dashboard(ctx, 2023)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), prev.Summary.YearlyBreakdown.Income[core.FestivalParent])
}

func TestSearchAndReports(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, seededState())

	got, err := svc.Search(ctx, Query{From: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = svc.Search(ctx, Query{MemberID: core.MemberRef(2)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].ID)

	got, err = svc.Search(ctx, Query{Type: core.Expense, Category: "교회관리비"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.Search(ctx, Query{Type: core.Income})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = svc.Search(ctx, Query{Amount: 5000})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	report, err := svc.CategoryReport(ctx, core.Expense, core.NewDate(2024, 1, 1), core.NewDate(2024, 12, 31))
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryAmount{{Name: "교회관리비", Amount: 30000}}, report)

	_, err = svc.CategoryReport(ctx, "transfer", core.Date{}, core.Date{})
	assert.ErrorIs(t, err, core.ErrInvalidType)

	rows, err := svc.ExportRows(ctx, export.Selection{Period: export.Yearly, Year: 2024})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(75000), rows[2].Balance)

	weeks, err := svc.AvailableWeeks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Date{core.NewDate(2024, 1, 7), core.NewDate(2023, 12, 31)}, weeks)
}

func TestSaveSnapshotPublishes(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, _ := newService(t, seededState(), func(o *Options) { o.Publisher = pub })

	saved, err := svc.SaveSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "은혜교회_헌금_2024-01-10.json", saved.FileName)
	assert.True(t, saved.Entry.Timestamp.Equal(fixedNow))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "은혜교회", pub.msgs[0].Church)
	assert.Equal(t, 4, pub.msgs[0].Transactions)

	decoded, err := snapshot.Unmarshal(saved.Document)
	require.NoError(t, err)
	assert.Len(t, decoded.Transactions, 4)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSaveSnapshotIgnoresPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, _ := newService(t, seededState(), func(o *Options) { o.Publisher = pub })

	_, err := svc.SaveSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, pub.msgs, 1)
}

func TestImportAndRestore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, seededState())

	saved, err := svc.SaveSnapshot(ctx)
	require.NoError(t, err)

	_, err = svc.ImportSnapshot(ctx, strings.NewReader(`{"members": {}, "transactions": []}`))
	assert.ErrorIs(t, err, snapshot.ErrInvalidSnapshot)
	txs, _ := svc.Transactions(ctx)
	assert.Len(t, txs, 4, "rejected import leaves state untouched")

	members, err := svc.ImportMembers(ctx, strings.NewReader(`{"members": [{"id": 5, "name": "최은혜", "position": "권사"}]}`))
	require.NoError(t, err)
	assert.Len(t, members, 1)
	txs, _ = svc.Transactions(ctx)
	assert.Empty(t, txs)
	cats, _ := svc.Categories(ctx)
	assert.NotEmpty(t, cats.Expense, "categories survive a members-only import")

	require.NoError(t, svc.RestoreHistory(ctx, saved.Entry.Timestamp))
	txs, _ = svc.Transactions(ctx)
	assert.Len(t, txs, 4)

	assert.ErrorIs(t, svc.RestoreHistory(ctx, fixedNow.Add(time.Hour)), ErrNotFound)
	require.NoError(t, svc.DeleteHistory(ctx, saved.Entry.Timestamp))
	assert.ErrorIs(t, svc.DeleteHistory(ctx, saved.Entry.Timestamp), ErrNotFound)

	st, err := svc.ImportSnapshot(ctx, strings.NewReader(`{"members": [], "transactions": [
		{"id": 1, "type": "expense", "date": "2024-02-01", "category": "교회관리비 (세부) (수도)", "amount": 1000}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, core.Category{Main: "교회관리비", Sub: "수도"}, st.Transactions[0].Category)
}

func TestChurchNameAndReset(t *testing.T) {
	ctx := context.Background()
	views := cache.NewLRUCache[Dashboard](4, time.Minute)
	svc, _ := newService(t, seededState(), func(o *Options) { o.Views = views })

	name, err := svc.ChurchName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "은혜교회", name)

	require.NoError(t, svc.SetChurchName(ctx, "사랑교회"))
	name, _ = svc.ChurchName(ctx)
	assert.Equal(t, "사랑교회", name)
	assert.ErrorIs(t, svc.SetChurchName(ctx, ""), core.ErrEmptyName)

	_, err = svc.Dashboard(ctx, 0)
	require.NoError(t, err)
	_, err = svc.SaveSnapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx))
	assert.Equal(t, 0, views.Size())
	txs, _ := svc.Transactions(ctx)
	assert.Empty(t, txs)
	history, _ := svc.History(ctx)
	assert.Empty(t, history)
	name, _ = svc.ChurchName(ctx)
	assert.Equal(t, "은혜교회", name)
}
