package ledger

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"parishledger/internal/core"
)

// DefaultIncomePriority is the within-day display order of income rows,
// highest priority first. A row takes the position of the first entry that is
// a substring of its label, so "기타" also captures "기타헌금 (세부) (...)".
var DefaultIncomePriority = []string{
	"기타", "기타헌금", "일천번제", "심방감사", "생일감사", "절기헌금",
	"주일헌금", "주정헌금", "감사헌금", "건축헌금", "선교헌금", "십일조",
}

// MemberNames resolves member IDs to display names.
type MemberNames map[int64]string

// NewMemberNames indexes members by ID.
func NewMemberNames(members []core.Member) MemberNames {
	names := make(MemberNames, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names
}

// Name returns the display name for a transaction's member reference.
// A missing reference is anonymous; a dangling one is unassigned.
func (n MemberNames) Name(id *int64) string {
	if id == nil {
		return core.AnonymousName
	}
	if name, ok := n[*id]; ok {
		return name
	}
	return core.UnassignedName
}

// Orderer produces the canonical ledger order.
type Orderer struct {
	priority []string
	names    MemberNames
}

// NewOrderer builds an Orderer. A nil or empty priority falls back to
// DefaultIncomePriority.
func NewOrderer(priority []string, members []core.Member) *Orderer {
	if len(priority) == 0 {
		priority = DefaultIncomePriority
	}
	return &Orderer{
		priority: slices.Clone(priority),
		names:    NewMemberNames(members),
	}
}

// Priority returns the position of label in the priority table, or the
// table length when nothing matches.
func (o *Orderer) Priority(label string) int {
	for i, p := range o.priority {
		if strings.Contains(label, p) {
			return i
		}
	}
	return len(o.priority)
}

// SortCanonical returns txs in ascending canonical order:
// date; income before expense; income by priority then member name
// (Korean, descending); expense by label then memo (Korean, descending);
// finally id ascending.
func (o *Orderer) SortCanonical(txs []core.Transaction) []core.Transaction {
	out := slices.Clone(txs)
	col := collate.New(language.Korean)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return o.compare(col, a, b)
	})
	return out
}

func (o *Orderer) compare(col *collate.Collator, a, b core.Transaction) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if a.Type != b.Type {
		if a.Type == core.Income {
			return -1
		}
		return 1
	}
	switch a.Type {
	case core.Income:
		pa := o.Priority(EncodeCategory(a.Category))
		pb := o.Priority(EncodeCategory(b.Category))
		if pa != pb {
			return cmp.Compare(pa, pb)
		}
		if c := col.CompareString(o.names.Name(b.MemberID), o.names.Name(a.MemberID)); c != 0 {
			return c
		}
	case core.Expense:
		if c := col.CompareString(EncodeCategory(b.Category), EncodeCategory(a.Category)); c != 0 {
			return c
		}
		if c := col.CompareString(b.Memo, a.Memo); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortSimple returns txs newest first: date descending, then id descending.
func SortSimple(txs []core.Transaction) []core.Transaction {
	out := slices.Clone(txs)
	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// SortMembers returns members sorted by name in Korean order.
func SortMembers(members []core.Member) []core.Member {
	out := slices.Clone(members)
	col := collate.New(language.Korean)
	slices.SortStableFunc(out, func(a, b core.Member) int {
		return col.CompareString(a.Name, b.Name)
	})
	return out
}

// SortLabels returns labels sorted in Korean order.
func SortLabels(labels []string) []string {
	out := slices.Clone(labels)
	col := collate.New(language.Korean)
	slices.SortStableFunc(out, col.CompareString)
	return out
}
