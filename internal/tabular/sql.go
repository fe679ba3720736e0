package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Statement is one SQL query with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Compiled holds the three statements a table query needs.
type Compiled struct {
	Total    Statement
	Filtered Statement
	Page     Statement
}

// Compile builds the count and page statements for req. Only declared column
// expressions reach the SQL text; the search term and page window are bound.
func (t *Table[T]) Compile(req Request) (Compiled, error) {
	req = req.Normalize()

	where, args, err := t.where(req.Search)
	if err != nil {
		return Compiled{}, err
	}
	orderBy, err := t.orderBy(req.Order)
	if err != nil {
		return Compiled{}, err
	}

	total := Statement{SQL: "SELECT COUNT(*) FROM " + t.From}
	filtered := total
	if where != "" {
		filtered = Statement{SQL: total.SQL + " WHERE " + where, Args: args}
	}

	page := "SELECT " + t.Select + " FROM " + t.From
	if where != "" {
		page += " WHERE " + where
	}
	if orderBy != "" {
		page += " ORDER BY " + orderBy
	}
	page += " LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	pageArgs := append(append([]any{}, args...), req.Length, req.Start)

	return Compiled{
		Total:    total,
		Filtered: filtered,
		Page:     Statement{SQL: page, Args: pageArgs},
	}, nil
}

func (t *Table[T]) where(search string) (string, []any, error) {
	if search == "" {
		return "", nil, nil
	}
	var clauses []string
	for _, c := range t.Columns {
		if !c.Searchable {
			continue
		}
		if c.Expr == "" {
			return "", nil, fmt.Errorf("%w: column %s.%s has no expression", ErrQuery, t.Name, c.Name)
		}
		clauses = append(clauses, "CAST("+c.Expr+" AS TEXT) ILIKE $1 ESCAPE '\\'")
	}
	if len(clauses) == 0 {
		return "FALSE", nil, nil
	}
	return "(" + strings.Join(clauses, " OR ") + ")", []any{"%" + escapeLike(search) + "%"}, nil
}

func (t *Table[T]) orderBy(order []Order) (string, error) {
	terms := make([]string, 0, len(order)+1)
	for _, o := range order {
		c, err := t.Resolve(o.Column)
		if err != nil {
			return "", err
		}
		if c.Expr == "" {
			return "", fmt.Errorf("%w: column %s.%s has no expression", ErrQuery, t.Name, c.Name)
		}
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		terms = append(terms, c.Expr+dir)
	}
	if t.Tiebreak != "" {
		terms = append(terms, t.Tiebreak+" ASC")
	}
	return strings.Join(terms, ", "), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// TxBeginner is satisfied by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Query runs a compiled table query against Postgres. Counts and page are read in
// one repeatable-read snapshot so they always agree.
func Query[T any](ctx context.Context, db TxBeginner, t *Table[T], req Request) (Result[T], error) {
	c, err := t.Compile(req)
	if err != nil {
		return Result[T]{}, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return Result[T]{}, fmt.Errorf("%w: begin: %v", ErrQuery, err)
	}
	defer func() { _ = tx.Rollback() }()

	var res Result[T]
	if err := tx.QueryRowContext(ctx, c.Total.SQL, c.Total.Args...).Scan(&res.Total); err != nil {
		return Result[T]{}, fmt.Errorf("%w: count %s: %v", ErrQuery, t.Name, err)
	}
	if err := tx.QueryRowContext(ctx, c.Filtered.SQL, c.Filtered.Args...).Scan(&res.Filtered); err != nil {
		return Result[T]{}, fmt.Errorf("%w: filtered count %s: %v", ErrQuery, t.Name, err)
	}

	rows, err := tx.QueryContext(ctx, c.Page.SQL, c.Page.Args...)
	if err != nil {
		return Result[T]{}, fmt.Errorf("%w: page %s: %v", ErrQuery, t.Name, err)
	}
	defer rows.Close()

	res.Rows = make([]T, 0, min(res.Filtered, req.Normalize().Length))
	for rows.Next() {
		row, err := t.Scan(rows)
		if err != nil {
			return Result[T]{}, fmt.Errorf("%w: scan %s: %v", ErrQuery, t.Name, err)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result[T]{}, fmt.Errorf("%w: rows %s: %v", ErrQuery, t.Name, err)
	}
	return res, nil
}
