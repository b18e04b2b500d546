package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"parishledger/internal/core"
	"parishledger/internal/ledger"
	applog "parishledger/internal/log"
)

// CategoryKind selects one of the category lists.
type CategoryKind string

const (
	KindExpense     CategoryKind = "expense"
	KindIncome      CategoryKind = "income"
	KindFestival    CategoryKind = "festival"
	KindOtherIncome CategoryKind = "other_income"
)

func (k CategoryKind) Valid() bool {
	switch k {
	case KindExpense, KindIncome, KindFestival, KindOtherIncome:
		return true
	}
	return false
}

// list returns a pointer to the category list of kind k.
func (k CategoryKind) list(c *core.Categories) *[]string {
	switch k {
	case KindExpense:
		return &c.Expense
	case KindIncome:
		return &c.Income
	case KindFestival:
		return &c.Festival
	case KindOtherIncome:
		return &c.OtherIncome
	}
	return nil
}

// rename rewrites the transactions that reference a renamed label of kind k.
// Festival and other-income labels live as sub categories of a fixed parent.
func (k CategoryKind) rename(txs []core.Transaction, oldName, newName string) ([]core.Transaction, int) {
	switch k {
	case KindExpense:
		return ledger.RenameMain(txs, core.Expense, oldName, newName)
	case KindIncome:
		return ledger.RenameMain(txs, core.Income, oldName, newName)
	case KindFestival:
		return ledger.RenameSub(txs, core.Income, core.FestivalParent, oldName, newName)
	case KindOtherIncome:
		return ledger.RenameSub(txs, core.Income, core.OtherIncomeParent, oldName, newName)
	}
	return txs, 0
}

func (k CategoryKind) inUse(txs []core.Transaction, name string) bool {
	switch k {
	case KindExpense:
		return ledger.CategoryInUse(txs, core.Expense, name)
	case KindIncome:
		return ledger.CategoryInUse(txs, core.Income, name)
	case KindFestival:
		return ledger.SubCategoryInUse(txs, core.Income, core.FestivalParent, name)
	case KindOtherIncome:
		return ledger.SubCategoryInUse(txs, core.Income, core.OtherIncomeParent, name)
	}
	return false
}

// fixed reports whether name is one of the income parents that own the
// festival and other-income pools. Those labels cannot be renamed or removed.
func (k CategoryKind) fixed(name string) bool {
	return k == KindIncome && isIncomeParent(name)
}

func (s *LedgerService) Categories(ctx context.Context) (core.Categories, error) {
	st, err := s.State(ctx)
	if err != nil {
		return core.Categories{}, err
	}
	return st.Categories, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.ErrEmptyCategory
	}
	return name, nil
}

// AddCategory appends name to the list of kind k. Expense categories stay
// sorted in Korean order; the other lists keep insertion order.
func (s *LedgerService) AddCategory(ctx context.Context, k CategoryKind, name string) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, k)
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	return s.update(ctx, applog.OpCreate, func(st *core.State) error {
		list := k.list(&st.Categories)
		if slices.Contains(*list, name) {
			return fmt.Errorf("%s %q: %w", k, name, ErrDuplicateCategory)
		}
		*list = append(*list, name)
		if k == KindExpense {
			*list = ledger.SortLabels(*list)
		}
		return nil
	})
}

// RenameCategory renames a label and rewrites every transaction that uses it.
// It returns the number of rewritten transactions.
func (s *LedgerService) RenameCategory(ctx context.Context, k CategoryKind, oldName, newName string) (int, error) {
	if !k.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, k)
	}
	newName, err := cleanName(newName)
	if err != nil {
		return 0, err
	}
	if k.fixed(oldName) || k.fixed(newName) {
		return 0, fmt.Errorf("%s %q: %w", k, oldName, ErrFixedCategory)
	}
	var rewritten int
	err = s.update(ctx, applog.OpRename, func(st *core.State) error {
		list := k.list(&st.Categories)
		i := slices.Index(*list, oldName)
		if i < 0 {
			return fmt.Errorf("%s %q: %w", k, oldName, ErrUnknownCategory)
		}
		if slices.Contains(*list, newName) {
			return fmt.Errorf("%s %q: %w", k, newName, ErrDuplicateCategory)
		}
		(*list)[i] = newName
		if k == KindExpense {
			*list = ledger.SortLabels(*list)
			if subs, ok := st.Categories.ExpenseSub[oldName]; ok {
				st.Categories.ExpenseSub[newName] = subs
				delete(st.Categories.ExpenseSub, oldName)
			}
		}
		st.Transactions, rewritten = k.rename(st.Transactions, oldName, newName)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Category renamed",
		applog.FieldOperation, applog.OpRename,
		applog.FieldCategory, newName,
		applog.FieldCount, rewritten)
	return rewritten, nil
}

// DeleteCategory removes a label from its list. Transactions keep the label;
// inUse reports whether any still reference it.
func (s *LedgerService) DeleteCategory(ctx context.Context, k CategoryKind, name string) (inUse bool, err error) {
	if !k.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidKind, k)
	}
	if k.fixed(name) {
		return false, fmt.Errorf("%s %q: %w", k, name, ErrFixedCategory)
	}
	err = s.update(ctx, applog.OpDelete, func(st *core.State) error {
		list := k.list(&st.Categories)
		i := slices.Index(*list, name)
		if i < 0 {
			return fmt.Errorf("%s %q: %w", k, name, ErrUnknownCategory)
		}
		*list = slices.Delete(*list, i, i+1)
		if k == KindExpense {
			delete(st.Categories.ExpenseSub, name)
		}
		inUse = k.inUse(st.Transactions, name)
		return nil
	})
	return inUse, err
}

func (s *LedgerService) AddSubCategory(ctx context.Context, main, sub string) error {
	sub, err := cleanName(sub)
	if err != nil {
		return err
	}
	return s.update(ctx, applog.OpCreate, func(st *core.State) error {
		if !slices.Contains(st.Categories.Expense, main) {
			return fmt.Errorf("expense %q: %w", main, ErrUnknownCategory)
		}
		subs := st.Categories.ExpenseSub[main]
		if slices.Contains(subs, sub) {
			return fmt.Errorf("%s / %q: %w", main, sub, ErrDuplicateCategory)
		}
		st.Categories.ExpenseSub[main] = append(subs, sub)
		return nil
	})
}

// RenameSubCategory renames a sub category of an expense main category and
// rewrites the transactions that use exactly that pair.
func (s *LedgerService) RenameSubCategory(ctx context.Context, main, oldSub, newSub string) (int, error) {
	newSub, err := cleanName(newSub)
	if err != nil {
		return 0, err
	}
	var rewritten int
	err = s.update(ctx, applog.OpRename, func(st *core.State) error {
		subs := st.Categories.ExpenseSub[main]
		i := slices.Index(subs, oldSub)
		if i < 0 {
			return fmt.Errorf("%s / %q: %w", main, oldSub, ErrUnknownCategory)
		}
		if slices.Contains(subs, newSub) {
			return fmt.Errorf("%s / %q: %w", main, newSub, ErrDuplicateCategory)
		}
		subs[i] = newSub
		st.Transactions, rewritten = ledger.RenameSub(st.Transactions, core.Expense, main, oldSub, newSub)
		return nil
	})
	return rewritten, err
}

func (s *LedgerService) DeleteSubCategory(ctx context.Context, main, sub string) (inUse bool, err error) {
	err = s.update(ctx, applog.OpDelete, func(st *core.State) error {
		subs := st.Categories.ExpenseSub[main]
		i := slices.Index(subs, sub)
		if i < 0 {
			return fmt.Errorf("%s / %q: %w", main, sub, ErrUnknownCategory)
		}
		st.Categories.ExpenseSub[main] = slices.Delete(subs, i, i+1)
		inUse = ledger.SubCategoryInUse(st.Transactions, core.Expense, main, sub)
		return nil
	})
	return inUse, err
}
