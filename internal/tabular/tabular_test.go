package tabular

import (
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pupil struct {
	ID    int64
	FName string
	Grade int
	Sec   string
}

func pupilTable() *Table[pupil] {
	return &Table[pupil]{
		Name:     "pupils",
		From:     "pupils p",
		Select:   "p.id, p.fname, p.grade, p.sec",
		Key:      "id",
		Tiebreak: "p.id",
		Columns: []Column[pupil]{
			{Name: "id", Expr: "p.id", Searchable: true, Value: func(p pupil) any { return p.ID }},
			{Name: "fname", Expr: "p.fname", Searchable: true, Value: func(p pupil) any { return p.FName }},
			{Name: "grade", Expr: "p.grade", Searchable: true, Value: func(p pupil) any { return p.Grade }},
			{Name: "sec", Expr: "p.sec", Searchable: true, Value: func(p pupil) any { return p.Sec }},
		},
		Scan: func(s Scanner) (pupil, error) {
			var p pupil
			err := s.Scan(&p.ID, &p.FName, &p.Grade, &p.Sec)
			return p, err
		},
	}
}

func pupils() []pupil {
	return []pupil{
		{ID: 42, FName: "Bob", Grade: 5, Sec: "A"},
		{ID: 7, FName: "Tim", Grade: 3, Sec: "B"},
		{ID: 19, FName: "Eli", Grade: 5, Sec: "A"},
		{ID: 3, FName: "Sue", Grade: 11, Sec: "C"},
		{ID: 25, FName: "Jim", Grade: 3, Sec: "A"},
	}
}

func ids(rows []pupil) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestParseRequest(t *testing.T) {
	q := url.Values{}
	q.Set("draw", "4")
	q.Set("search[value]", "5A")
	q.Set("columns[0][data]", "id")
	q.Set("columns[1][data]", "fname")
	q.Set("columns[2][data]", "grade")
	q.Set("order[0][column]", "2")
	q.Set("order[0][dir]", "desc")
	q.Set("order[1][column]", "1")
	q.Set("order[1][dir]", "asc")
	q.Set("order[3][column]", "0") // not contiguous, ignored
	q.Set("start", "20")
	q.Set("length", "5")

	req := ParseRequest(q)

	require.NotNil(t, req.Draw)
	assert.Equal(t, 4, *req.Draw)
	assert.Equal(t, "5A", req.Search)
	assert.Equal(t, []Order{{Column: "grade", Desc: true}, {Column: "fname"}}, req.Order)
	assert.Equal(t, 20, req.Start)
	assert.Equal(t, 5, req.Length)
}

func TestParseRequestDefaults(t *testing.T) {
	tests := []struct {
		name       string
		start      string
		length     string
		wantStart  int
		wantLength int
	}{
		{"absent", "", "", 0, DefaultLength},
		{"non numeric", "abc", "x", 0, DefaultLength},
		{"negative start", "-4", "10", 0, 10},
		{"all rows", "0", "-1", 0, MaxLength},
		{"too many", "0", "50000", 0, MaxLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			if tt.start != "" {
				q.Set("start", tt.start)
			}
			if tt.length != "" {
				q.Set("length", tt.length)
			}
			req := ParseRequest(q)
			assert.Nil(t, req.Draw)
			assert.Equal(t, tt.wantStart, req.Start)
			assert.Equal(t, tt.wantLength, req.Length)
		})
	}
}

func TestSliceSearchCountsAndPage(t *testing.T) {
	res, err := Slice(pupilTable(), pupils(), Request{Search: "a", Start: 0, Length: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.Filtered)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, []int64{42, 19}, ids(res.Rows))
}

func TestSliceSearchIsSubstringAcrossColumns(t *testing.T) {
	res, err := Slice(pupilTable(), pupils(), Request{Search: "1"})
	require.NoError(t, err)
	// 19 by id, 3 by grade 11
	assert.Equal(t, []int64{19, 3}, ids(res.Rows))
	assert.Equal(t, 2, res.Filtered)
}

func TestSliceMultiKeySort(t *testing.T) {
	req := Request{Order: []Order{{Column: "grade"}, {Column: "fname", Desc: true}}, Length: 10}
	res, err := Slice(pupilTable(), pupils(), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 25, 19, 42, 3}, ids(res.Rows))
}

func TestSliceNumericSortIsNotLexical(t *testing.T) {
	res, err := Slice(pupilTable(), pupils(), Request{Order: []Order{{Column: "grade", Desc: true}}, Length: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(res.Rows))
}

func TestSliceUnknownColumnFallsBackToKey(t *testing.T) {
	res, err := Slice(pupilTable(), pupils(), Request{Order: []Order{{Column: "password"}}, Length: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7, 19, 25, 42}, ids(res.Rows))
}

func TestSliceIsIdempotent(t *testing.T) {
	req := Request{Search: "a", Order: []Order{{Column: "fname"}}, Start: 1, Length: 1}
	first, err := Slice(pupilTable(), pupils(), req)
	require.NoError(t, err)
	second, err := Slice(pupilTable(), pupils(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSliceBounds(t *testing.T) {
	data := pupils()
	for start := 0; start <= 6; start++ {
		for length := 1; length <= 6; length++ {
			t.Run(fmt.Sprintf("start=%d,length=%d", start, length), func(t *testing.T) {
				res, err := Slice(pupilTable(), data, Request{Order: []Order{{Column: "id"}}, Start: start, Length: length})
				require.NoError(t, err)
				assert.LessOrEqual(t, res.Filtered, res.Total)
				assert.LessOrEqual(t, len(res.Rows), length)

				all, err := Slice(pupilTable(), data, Request{Order: []Order{{Column: "id"}}, Length: MaxLength})
				require.NoError(t, err)
				lo := min(start, len(all.Rows))
				hi := min(start+length, len(all.Rows))
				assert.Equal(t, all.Rows[lo:hi], res.Rows)
			})
		}
	}
}

func TestSliceZeroLengthIsNotEmpty(t *testing.T) {
	res, err := Slice(pupilTable(), pupils(), Request{})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)
}

func TestSliceMissingAccessor(t *testing.T) {
	tbl := pupilTable()
	tbl.Columns[1].Value = nil
	_, err := Slice(tbl, pupils(), Request{})
	assert.ErrorIs(t, err, ErrQuery)
}

func TestCompile(t *testing.T) {
	req := Request{
		Search: "5_A%",
		Order:  []Order{{Column: "grade", Desc: true}, {Column: "nope"}},
		Start:  10,
		Length: 5,
	}
	c, err := pupilTable().Compile(req)
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM pupils p", c.Total.SQL)
	assert.Empty(t, c.Total.Args)

	where := "(CAST(p.id AS TEXT) ILIKE $1 ESCAPE '\\' OR CAST(p.fname AS TEXT) ILIKE $1 ESCAPE '\\'" +
		" OR CAST(p.grade AS TEXT) ILIKE $1 ESCAPE '\\' OR CAST(p.sec AS TEXT) ILIKE $1 ESCAPE '\\')"
	assert.Equal(t, "SELECT COUNT(*) FROM pupils p WHERE "+where, c.Filtered.SQL)
	assert.Equal(t, []any{`%5\_A\%%`}, c.Filtered.Args)

	assert.Equal(t,
		"SELECT p.id, p.fname, p.grade, p.sec FROM pupils p WHERE "+where+
			" ORDER BY p.grade DESC, p.id ASC, p.id ASC LIMIT $2 OFFSET $3",
		c.Page.SQL)
	assert.Equal(t, []any{`%5\_A\%%`, 5, 10}, c.Page.Args)
}

func TestCompileWithoutSearchOrOrder(t *testing.T) {
	c, err := pupilTable().Compile(Request{})
	require.NoError(t, err)
	assert.Equal(t, c.Total, c.Filtered)
	assert.Equal(t, "SELECT p.id, p.fname, p.grade, p.sec FROM pupils p ORDER BY p.id ASC LIMIT $1 OFFSET $2", c.Page.SQL)
	assert.Equal(t, []any{DefaultLength, 0}, c.Page.Args)
}

func TestCompileNoSearchableColumns(t *testing.T) {
	tbl := pupilTable()
	for i := range tbl.Columns {
		tbl.Columns[i].Searchable = false
	}
	c, err := tbl.Compile(Request{Search: "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM pupils p WHERE FALSE", c.Filtered.SQL)
}

func TestCompileMissingKey(t *testing.T) {
	tbl := pupilTable()
	tbl.Key = "rowid"
	_, err := tbl.Compile(Request{Order: []Order{{Column: "unknown"}}})
	assert.ErrorIs(t, err, ErrQuery)
}

func TestEnvelope(t *testing.T) {
	draw := 9
	req := Request{Draw: &draw}

	env := NewEnvelope(req, Result[pupil]{Total: 4, Filtered: 0})
	assert.Equal(t, []pupil{}, env.Data)
	assert.Equal(t, 4, env.RecordsTotal)
	assert.Equal(t, &draw, env.Draw)

	failed := ErrorEnvelope(req, "boom")
	assert.Equal(t, "boom", failed.Error)
	assert.Equal(t, 0, failed.RecordsTotal)
	assert.Equal(t, &draw, failed.Draw)
}

var _ TxBeginner = (*sql.DB)(nil)
