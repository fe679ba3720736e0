package attendance

import (
	"errors"
	"time"

	"tagattend/internal/tabular"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

var (
	// ErrUnknownTag is returned by a Store when the scanned tag has no student.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrStorage is the generic failure outcome of RecordScan.
	ErrStorage = errors.New("attendance storage failure")
)

// Direction is IN or OUT.
type Direction string

const (
	In  Direction = "IN"
	Out Direction = "OUT"
)

// NextDirection derives the direction of a new scan from the most recent scan
// of the same person on the same day. The first scan of a day is always IN.
func NextDirection(last Direction, found bool) Direction {
	if found && last == In {
		return Out
	}
	return In
}

// Stamp is a wall-clock reading split into the stored date and time strings.
type Stamp struct {
	Date string
	Time string
}

// StampOf formats t in its own location. Both fields come from the same reading.
func StampOf(t time.Time) Stamp {
	return Stamp{Date: t.Format(DateLayout), Time: t.Format(TimeLayout)}
}

// Record is one persisted scan.
type Record struct {
	RowID int64     `json:"rowid"`
	TagID int64     `json:"id"`
	Date  string    `json:"date"`
	Time  string    `json:"time"`
	Type  Direction `json:"type"`
}

// Row is the list-screen projection of a record, joined with its student.
type Row struct {
	ID    int64     `json:"id"`
	FName string    `json:"fname"`
	LName string    `json:"lname"`
	Grade int       `json:"grade"`
	Sec   string    `json:"sec"`
	Date  string    `json:"date"`
	Time  string    `json:"time"`
	Type  Direction `json:"type"`
}

// Table declares the attendance list columns.
var Table = &tabular.Table[Row]{
	Name:     "attendance",
	From:     "attendance a JOIN students s ON s.id = a.id",
	Select:   "a.id, s.fname, COALESCE(s.lname, ''), s.grade, s.sec, a.date, a.time, a.type",
	Key:      "id",
	Tiebreak: "a.rowid",
	Columns: []tabular.Column[Row]{
		{Name: "id", Expr: "a.id", Searchable: true, Value: func(r Row) any { return r.ID }},
		{Name: "fname", Expr: "s.fname", Searchable: true, Value: func(r Row) any { return r.FName }},
		{Name: "lname", Expr: "COALESCE(s.lname, '')", Searchable: true, Value: func(r Row) any { return r.LName }},
		{Name: "grade", Expr: "s.grade", Searchable: true, Value: func(r Row) any { return r.Grade }},
		{Name: "sec", Expr: "s.sec", Searchable: true, Value: func(r Row) any { return r.Sec }},
		{Name: "date", Expr: "a.date", Searchable: true, Value: func(r Row) any { return r.Date }},
		{Name: "time", Expr: "a.time", Searchable: true, Value: func(r Row) any { return r.Time }},
		{Name: "type", Expr: "a.type", Searchable: true, Value: func(r Row) any { return string(r.Type) }},
	},
	Scan: func(s tabular.Scanner) (Row, error) {
		var r Row
		var typ string
		err := s.Scan(&r.ID, &r.FName, &r.LName, &r.Grade, &r.Sec, &r.Date, &r.Time, &typ)
		r.Type = Direction(typ)
		return r, err
	},
}
