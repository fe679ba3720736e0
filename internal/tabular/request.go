package tabular

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	DefaultLength = 10
	MaxLength     = 1000
)

// Order is one sort directive.
type Order struct {
	Column string
	Desc   bool
}

// Request is a list-widget query: free-text search, sort directives in priority
// order, and an offset/limit page window.
type Request struct {
	Draw   *int
	Search string
	Order  []Order
	Start  int
	Length int
}

// ParseRequest reads the DataTables server-side parameters. Sort directives are
// read positionally (order[0], order[1], ...) until the first absent index.
func ParseRequest(q url.Values) Request {
	req := Request{
		Search: q.Get("search[value]"),
		Start:  intParam(q, "start", 0),
		Length: intParam(q, "length", DefaultLength),
	}
	if v, err := strconv.Atoi(q.Get("draw")); err == nil {
		req.Draw = &v
	}

	for i := 0; ; i++ {
		idx, ok := lookup(q, fmt.Sprintf("order[%d][column]", i))
		if !ok {
			break
		}
		req.Order = append(req.Order, Order{
			Column: q.Get(fmt.Sprintf("columns[%s][data]", idx)),
			Desc:   q.Get(fmt.Sprintf("order[%d][dir]", i)) == "desc",
		})
	}
	return req.Normalize()
}

// Normalize clamps the page window. A zero length means "not set" and becomes
// DefaultLength; a negative length means "all" and is capped at MaxLength.
func (r Request) Normalize() Request {
	if r.Start < 0 {
		r.Start = 0
	}
	switch {
	case r.Length == 0:
		r.Length = DefaultLength
	case r.Length < 0, r.Length > MaxLength:
		r.Length = MaxLength
	}
	return r
}

func lookup(q url.Values, key string) (string, bool) {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func intParam(q url.Values, key string, fallback int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return fallback
	}
	return v
}
