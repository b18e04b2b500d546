package snapshot

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parishledger/internal/core"
)

const sample = `{
  "members": [{"id": 1, "name": "김철수", "position": "집사"}],
  "transactions": [
    {"id": 10, "type": "income", "date": "2024-01-05", "category": "십일조", "amount": 10000, "memberId": 1},
    {"id": 11, "type": "expense", "date": "2024-01-05", "category": "교육비 (세부) (강사비)", "amount": 3000, "memo": "특강"}
  ],
  "expenseCategories": ["친교", "교육비"],
  "incomeCategories": ["십일조"],
  "festivalCategories": ["부활감사"],
  "otherIncomeCategories": ["생일감사"],
  "expenseSubCategories": {"교육비": ["강사비"]}
}`

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, s.Members, 1)
	assert.Equal(t, core.Member{ID: 1, Name: "김철수", Position: "집사"}, s.Members[0])

	require.Len(t, s.Transactions, 2)
	in, out := s.Transactions[0], s.Transactions[1]
	assert.Equal(t, core.Income, in.Type)
	assert.Equal(t, "2024-01-05", in.Date.String())
	assert.Equal(t, core.Category{Main: "십일조"}, in.Category)
	require.NotNil(t, in.MemberID)
	assert.Equal(t, int64(1), *in.MemberID)

	assert.Equal(t, core.Category{Main: "교육비", Sub: "강사비"}, out.Category)
	assert.Nil(t, out.MemberID)
	assert.Equal(t, "특강", out.Memo)

	assert.Equal(t, []string{"교육비", "친교"}, s.Categories.Expense, "expense categories are sorted")
	assert.Equal(t, []string{"십일조"}, s.Categories.Income)
	assert.Equal(t, map[string][]string{"교육비": {"강사비"}}, s.Categories.ExpenseSub)
}

func TestDecodeFallsBackToDefaults(t *testing.T) {
	s, err := Decode(strings.NewReader(`{"members": [], "transactions": [], "incomeCategories": "oops"}`))
	require.NoError(t, err)
	assert.Equal(t, core.DefaultIncomeCategories, s.Categories.Income)
	assert.Equal(t, core.DefaultFestivalCategories, s.Categories.Festival)
	assert.Equal(t, core.DefaultOtherIncomeCategories, s.Categories.OtherIncome)
	assert.ElementsMatch(t, core.DefaultExpenseCategories, s.Categories.Expense)
	assert.Empty(t, s.Categories.ExpenseSub)
}

func TestDecodeRejectsStructure(t *testing.T) {
	payloads := []string{
		``,
		`null`,
		`[]`,
		`"text"`,
		`{"transactions": []}`,
		`{"members": [], "transactions": {}}`,
		`{"members": {}, "transactions": []}`,
		`{"members": null, "transactions": []}`,
	}
	for _, p := range payloads {
		_, err := Decode(strings.NewReader(p))
		assert.ErrorIs(t, err, ErrInvalidSnapshot, "payload %q", p)
	}
}

func TestDecodeRejectsMalformedRows(t *testing.T) {
	tests := []struct {
		row   string
		field string
		want  error
	}{
		{`{"id": 1, "type": "income", "date": "2024-13-01", "category": "십일조", "amount": 1}`, "date", core.ErrInvalidDate},
		{`{"id": 1, "type": "income", "date": "", "category": "십일조", "amount": 1}`, "date", core.ErrInvalidDate},
		{`{"id": 1, "type": "income", "date": "01/05/2024", "category": "십일조", "amount": 1}`, "date", core.ErrInvalidDate},
		{`{"id": 1, "type": "gift", "date": "2024-01-05", "category": "십일조", "amount": 1}`, "type", core.ErrInvalidType},
		{`{"id": 1, "type": "income", "date": "2024-01-05", "category": "십일조", "amount": 0}`, "amount", core.ErrInvalidAmount},
		{`{"id": 1, "type": "income", "date": "2024-01-05", "category": "십일조", "amount": -3}`, "amount", core.ErrInvalidAmount},
		{`{"id": 1, "type": "income", "date": "2024-01-05", "category": "십일조", "amount": 10.5}`, "amount", core.ErrInvalidAmount},
		{`{"id": 1, "type": "income", "date": "2024-01-05", "category": "십일조"}`, "amount", core.ErrInvalidAmount},
		{`{"id": 1, "type": "income", "date": "2024-01-05", "category": "", "amount": 1}`, "category", core.ErrEmptyCategory},
		{`{"id": 1, "type": "expense", "date": "2024-01-05", "category": "교육비 (세부) ()", "amount": 1}`, "category", core.ErrEmptyCategory},
	}
	for _, tt := range tests {
		payload := `{"members": [], "transactions": [{"id": 0, "type": "expense", "date": "2024-01-01", "category": "예배", "amount": 5}, ` + tt.row + `]}`
		_, err := Decode(strings.NewReader(payload))
		require.Error(t, err, tt.row)
		assert.ErrorIs(t, err, tt.want, tt.row)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr), tt.row)
		assert.Equal(t, 1, verr.Index)
		assert.Equal(t, tt.field, verr.Field)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	s, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))
	out := buf.String()

	assert.Contains(t, out, `"category": "교육비 (세부) (강사비)"`, "wire format is byte-for-byte")
	assert.Contains(t, out, `"memberId": 1`)
	assert.NotContains(t, out, `"memo": ""`)
	assert.Contains(t, out, "\n  \"members\"", "two-space indentation")

	back, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestEncodeEmptyStateUsesArrays(t *testing.T) {
	b, err := Marshal(core.State{})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"members": []`)
	assert.Contains(t, string(b), `"transactions": []`)
	assert.Contains(t, string(b), `"expenseSubCategories": {}`)
}

func TestDecodeMembers(t *testing.T) {
	ms, err := DecodeMembers(strings.NewReader(`{"members": [{"id": 3, "name": "홍길동", "position": "성도"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []core.Member{{ID: 3, Name: "홍길동", Position: "성도"}}, ms)

	_, err = DecodeMembers(strings.NewReader(`{"transactions": []}`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestEntryRoundTrip(t *testing.T) {
	s, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	ts := time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)

	b, err := MarshalEntry(Entry{Timestamp: ts, State: s})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"timestamp":"2024-01-05T09:30:00Z"`)

	e, err := UnmarshalEntry(b)
	require.NoError(t, err)
	assert.True(t, ts.Equal(e.Timestamp))
	assert.Equal(t, s, e.State)
}

func TestPushHistoryCaps(t *testing.T) {
	var history []Entry
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxHistory+5; i++ {
		history = PushHistory(history, Entry{Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	require.Len(t, history, MaxHistory)
	assert.Equal(t, base.Add(time.Duration(MaxHistory+4)*time.Hour), history[0].Timestamp, "newest first")
	assert.Equal(t, base.Add(5*time.Hour), history[MaxHistory-1].Timestamp)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "새소망교회_헌금_2024-01-05.json", FileName("새소망교회", core.NewDate(2024, 1, 5)))
}
