package inventory

import (
	"strings"

	"github.com/uptrace/bun"
)

// Predicate is a typed filter over products. Apply shapes a bun query and
// Match evaluates the same condition against a loaded row, so SQL and
// in-memory repositories agree on every filter.
type Predicate interface {
	Apply(q *bun.SelectQuery) *bun.SelectQuery
	Match(p *Product) bool
}

// SKUEquals matches the exact SKU.
type SKUEquals string

// Apply filters q on the sku column.
func (s SKUEquals) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("p.sku = ?", string(s))
}

// Match reports whether p carries the SKU.
func (s SKUEquals) Match(p *Product) bool { return p.SKU == string(s) }

// CategoryKey folds category for case-insensitive comparison. Folding happens
// in Go because SQL LOWER is ASCII-only on SQLite.
func CategoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// InCategory matches the category case-insensitively.
type InCategory string

// Apply filters q on the folded category column.
func (c InCategory) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("p.category_key = ?", CategoryKey(string(c)))
}

// Match compares the folded categories.
func (c InCategory) Match(p *Product) bool {
	return CategoryKey(p.Category) == CategoryKey(string(c))
}

type activePredicate struct{}

func (activePredicate) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("p.is_active = ?", true)
}

func (activePredicate) Match(p *Product) bool { return p.IsActive }

type notDeletedPredicate struct{}

func (notDeletedPredicate) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("p.is_deleted = ?", false)
}

func (notDeletedPredicate) Match(p *Product) bool { return !p.IsDeleted }

// Active matches products flagged as active.
func Active() Predicate { return activePredicate{} }

// NotDeleted excludes soft deleted products.
func NotDeleted() Predicate { return notDeletedPredicate{} }

// MatchAll reports whether p satisfies every predicate.
func MatchAll(p *Product, preds ...Predicate) bool {
	for _, pred := range preds {
		if pred != nil && !pred.Match(p) {
			return false
		}
	}
	return true
}

// ApplyAll applies every predicate to q.
func ApplyAll(q *bun.SelectQuery, preds ...Predicate) *bun.SelectQuery {
	for _, pred := range preds {
		if pred != nil {
			q = pred.Apply(q)
		}
	}
	return q
}
