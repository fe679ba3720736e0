package tabular

import (
	"fmt"
	"sort"
	"strings"
)

// Slice runs req over rows held in memory with the same semantics as Query:
// case-insensitive substring search across searchable columns, a stable
// multi-key sort, then the page window. rows is not modified.
func Slice[T any](t *Table[T], rows []T, req Request) (Result[T], error) {
	req = req.Normalize()

	for _, c := range t.Columns {
		if c.Value == nil {
			return Result[T]{}, fmt.Errorf("%w: column %s.%s has no accessor", ErrQuery, t.Name, c.Name)
		}
	}
	keys := make([]Column[T], 0, len(req.Order))
	for _, o := range req.Order {
		c, err := t.Resolve(o.Column)
		if err != nil {
			return Result[T]{}, err
		}
		keys = append(keys, c)
	}

	matched := make([]T, 0, len(rows))
	term := strings.ToLower(req.Search)
	for _, row := range rows {
		if term == "" || t.matches(row, term) {
			matched = append(matched, row)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for k, c := range keys {
			cmp := compare(c.Value(matched[i]), c.Value(matched[j]))
			if cmp == 0 {
				continue
			}
			if req.Order[k].Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	res := Result[T]{Total: len(rows), Filtered: len(matched)}
	start := min(req.Start, len(matched))
	end := min(start+req.Length, len(matched))
	res.Rows = append([]T{}, matched[start:end]...)
	return res, nil
}

func (t *Table[T]) matches(row T, term string) bool {
	for _, c := range t.Columns {
		if c.Searchable && strings.Contains(strings.ToLower(text(c.Value(row))), term) {
			return true
		}
	}
	return false
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	default:
		return fmt.Sprint(x)
	}
}

func integer(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

func compare(a, b any) int {
	if x, ok := integer(a); ok {
		if y, ok := integer(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(text(a), text(b))
}
