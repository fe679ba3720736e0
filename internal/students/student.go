package students

import (
	"errors"

	"tagattend/internal/tabular"
)

var (
	ErrNotFound = errors.New("student not found")
	ErrExists   = errors.New("student already exists")
	ErrInvalid  = errors.New("invalid student")
)

// Student is a registered tag holder. ID is the tag identifier read from the
// physical tag and never changes once created.
type Student struct {
	ID    int64  `json:"id" validate:"gt=0"`
	FName string `json:"fname" validate:"required,max=20"`
	LName string `json:"lname" validate:"max=20"`
	Grade int    `json:"grade" validate:"min=1,max=12"`
	Sec   string `json:"sec" validate:"len=1"`
}

// Table declares the student list columns.
var Table = &tabular.Table[Student]{
	Name:     "students",
	From:     "students s",
	Select:   "s.id, s.fname, COALESCE(s.lname, ''), s.grade, s.sec",
	Key:      "id",
	Tiebreak: "s.id",
	Columns: []tabular.Column[Student]{
		{Name: "id", Expr: "s.id", Searchable: true, Value: func(s Student) any { return s.ID }},
		{Name: "fname", Expr: "s.fname", Searchable: true, Value: func(s Student) any { return s.FName }},
		{Name: "lname", Expr: "COALESCE(s.lname, '')", Searchable: true, Value: func(s Student) any { return s.LName }},
		{Name: "grade", Expr: "s.grade", Searchable: true, Value: func(s Student) any { return s.Grade }},
		{Name: "sec", Expr: "s.sec", Searchable: true, Value: func(s Student) any { return s.Sec }},
	},
	Scan: func(sc tabular.Scanner) (Student, error) {
		var s Student
		err := sc.Scan(&s.ID, &s.FName, &s.LName, &s.Grade, &s.Sec)
		return s, err
	},
}
