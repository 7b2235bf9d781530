package query

import "financas/internal/core"

// Cache keys for the three collections.
const (
	KeyCategories = "categories"
	KeyRevenues   = "revenues"
	KeyExpenses   = "expenses"
)

// AllKeys lists every collection key.
var AllKeys = []string{KeyCategories, KeyRevenues, KeyExpenses}

// KeyFor returns the list key of a transaction kind, or "" for an unknown
// kind.
func KeyFor(kind core.Kind) string {
	switch kind {
	case core.Revenue:
		return KeyRevenues
	case core.Expense:
		return KeyExpenses
	}
	return ""
}

// Invalidator marks a key as stale. The cache implements it, and so does
// the event bus that forwards invalidations to other instances.
type Invalidator interface {
	Invalidate(key string)
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(key string)

func (f InvalidatorFunc) Invalidate(key string) { f(key) }

// Fanout invalidates the key on every member, in order. Nil members are
// skipped.
type Fanout []Invalidator

func (f Fanout) Invalidate(key string) {
	for _, inv := range f {
		if inv != nil {
			inv.Invalidate(key)
		}
	}
}
