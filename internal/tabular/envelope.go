package tabular

// Envelope is the JSON shape list widgets consume.
type Envelope struct {
	Data            any    `json:"data"`
	RecordsFiltered int    `json:"recordsFiltered"`
	RecordsTotal    int    `json:"recordsTotal"`
	Draw            *int   `json:"draw"`
	Error           string `json:"error,omitempty"`
}

// NewEnvelope wraps a result, echoing the caller's draw counter.
func NewEnvelope[T any](req Request, res Result[T]) Envelope {
	rows := res.Rows
	if rows == nil {
		rows = []T{}
	}
	return Envelope{
		Data:            rows,
		RecordsFiltered: res.Filtered,
		RecordsTotal:    res.Total,
		Draw:            req.Draw,
	}
}

// ErrorEnvelope is returned instead of a page when the query failed.
func ErrorEnvelope(req Request, msg string) Envelope {
	return Envelope{
		Data:  []any{},
		Draw:  req.Draw,
		Error: msg,
	}
}
