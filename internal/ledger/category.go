// Package ledger is the computation engine behind the ledger views: category
// label codec, Hangul member index, canonical ordering, balances and period
// aggregates. Everything here is a pure function of its arguments.
package ledger

import (
	"fmt"
	"regexp"

	"parishledger/internal/core"
)

// SubMarker separates main and sub category in the persisted label format.
// The exact bytes are part of saved snapshots and must not change.
const SubMarker = " (세부) ("

var compositeLabel = regexp.MustCompile(`^(.*) \(세부\) \((.*)\)$`)

// DecodeCategory parses "<main> (세부) (<sub>)" into its parts. Labels that do
// not have that exact shape are returned as a simple main category.
func DecodeCategory(label string) core.Category {
	m := compositeLabel.FindStringSubmatch(label)
	if m == nil {
		return core.Category{Main: label}
	}
	return core.Category{Main: m[1], Sub: m[2]}
}

// ParseCategory is DecodeCategory for labels entering the ledger. A composite
// label with an empty sub would re-encode to a different string, so it is
// rejected.
func ParseCategory(label string) (core.Category, error) {
	c := DecodeCategory(label)
	if c.Sub == "" && c.Main != label {
		return core.Category{}, fmt.Errorf("%w: empty sub in %q", core.ErrEmptyCategory, label)
	}
	return c, nil
}

// Encode builds the persisted label for main and an optional sub.
func Encode(main, sub string) string {
	if sub == "" {
		return main
	}
	return main + SubMarker + sub + ")"
}

// EncodeCategory is Encode for the tagged form.
func EncodeCategory(c core.Category) string {
	return Encode(c.Main, c.Sub)
}

// RenderCategory turns a persisted label into its display form,
// "<main> (<sub>)" for composites.
func RenderCategory(label string) string {
	return RenderTagged(DecodeCategory(label))
}

// RenderTagged is RenderCategory for the tagged form.
func RenderTagged(c core.Category) string {
	if c.Sub == "" {
		return c.Main
	}
	return c.Main + " (" + c.Sub + ")"
}

// RenameMain rewrites the main category of every transaction of type typ
// whose main equals oldMain. Sub categories are kept. The input slice is not
// modified; the number of rewritten rows is returned.
func RenameMain(txs []core.Transaction, typ core.TxType, oldMain, newMain string) ([]core.Transaction, int) {
	out := make([]core.Transaction, len(txs))
	n := 0
	for i, tx := range txs {
		if tx.Type == typ && tx.Category.Main == oldMain {
			tx.Category.Main = newMain
			n++
		}
		out[i] = tx
	}
	return out, n
}

// RenameSub rewrites transactions whose category is exactly (main, oldSub).
func RenameSub(txs []core.Transaction, typ core.TxType, main, oldSub, newSub string) ([]core.Transaction, int) {
	out := make([]core.Transaction, len(txs))
	n := 0
	for i, tx := range txs {
		if tx.Type == typ && tx.Category.Main == main && tx.Category.Sub == oldSub && oldSub != "" {
			tx.Category.Sub = newSub
			n++
		}
		out[i] = tx
	}
	return out, n
}

// CategoryInUse reports whether any transaction of type typ still uses main,
// with or without a sub category.
func CategoryInUse(txs []core.Transaction, typ core.TxType, main string) bool {
	for _, tx := range txs {
		if tx.Type == typ && tx.Category.Main == main {
			return true
		}
	}
	return false
}

// SubCategoryInUse reports whether (main, sub) is referenced.
func SubCategoryInUse(txs []core.Transaction, typ core.TxType, main, sub string) bool {
	for _, tx := range txs {
		if tx.Type == typ && tx.Category.Main == main && tx.Category.Sub == sub {
			return true
		}
	}
	return false
}
