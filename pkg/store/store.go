package store

import (
	"context"
	"encoding/json"
)

// Row is a raw remote table row. Callers decode into their own types so the
// store stays schema-agnostic.
type Row = json.RawMessage

// Cond is a single column predicate, e.g. {user_id eq 42}.
type Cond struct {
	Column string
	Op     string
	Value  string
}

// Eq builds an equality predicate, the only operator the client needs.
func Eq(column, value string) Cond {
	return Cond{Column: column, Op: "eq", Value: value}
}

// Filter is a conjunction of predicates, optionally with one disjunction
// group (rendered as or=(a.eq.x,b.eq.y)).
type Filter struct {
	Conds []Cond
	Or    []Cond
}

// Where builds a filter from ANDed predicates.
func Where(conds ...Cond) Filter {
	return Filter{Conds: conds}
}

// AnyOf builds a filter whose predicates are ORed.
func AnyOf(conds ...Cond) Filter {
	return Filter{Or: conds}
}

// Order describes result ordering by a single column.
type Order struct {
	Column    string
	Ascending bool
}

// Store is the remote record store consumed by the synchronization hooks and
// view services. The backing service owns all data; the client is never the
// authority.
type Store interface {
	// Select returns rows matching the filter in the given order.
	Select(ctx context.Context, table string, filter Filter, order *Order) ([]Row, error)

	// Insert creates a row and returns the stored representation.
	Insert(ctx context.Context, table string, row interface{}) ([]Row, error)

	// Update patches rows matching the filter.
	Update(ctx context.Context, table string, filter Filter, patch interface{}) ([]Row, error)

	// Upsert inserts or replaces a row keyed by the onConflict column.
	Upsert(ctx context.Context, table string, row interface{}, onConflict string) ([]Row, error)

	// Call invokes a server-side function with named arguments.
	Call(ctx context.Context, fn string, args interface{}) ([]Row, error)
}
