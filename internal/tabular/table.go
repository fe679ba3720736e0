// Package tabular implements server-side search, sort and pagination for the
// list screens. Each listable entity declares its columns statically; requests
// may only reference those declared names.
package tabular

import (
	"errors"
	"fmt"
)

// ErrQuery marks any failure while building or running a table query.
var ErrQuery = errors.New("table query failed")

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Column declares one externally visible column of a table.
type Column[T any] struct {
	// Name is the identifier clients use in columns[i][data].
	Name string
	// Expr is the SQL expression the column is read, searched and sorted by.
	Expr string
	// Searchable columns take part in free-text search.
	Searchable bool
	// Value reads the column from a projected row for in-memory execution.
	Value func(T) any
}

// Table is the static declaration of one listable entity.
type Table[T any] struct {
	Name string
	// From is the FROM clause body, joins included.
	From string
	// Select is the select list whose columns Scan reads, in order.
	Select string
	// Key is the column used when a request names an unknown column.
	Key string
	// Tiebreak is appended as the last ORDER BY term so pages are stable.
	Tiebreak string
	Columns  []Column[T]
	Scan     func(Scanner) (T, error)
}

// Lookup returns the declared column with the given name.
func (t *Table[T]) Lookup(name string) (Column[T], bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Resolve maps a requested column name onto a declared column, falling back to
// the key column for anything not declared.
func (t *Table[T]) Resolve(name string) (Column[T], error) {
	if c, ok := t.Lookup(name); ok {
		return c, nil
	}
	c, ok := t.Lookup(t.Key)
	if !ok {
		return Column[T]{}, fmt.Errorf("%w: table %s has no key column %q", ErrQuery, t.Name, t.Key)
	}
	return c, nil
}

// Names lists the declared column names in order.
func (t *Table[T]) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Result is one page of a table query.
type Result[T any] struct {
	Rows     []T
	Total    int
	Filtered int
}
