package students

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tagattend/internal/store"
	"tagattend/internal/tabular"
)

// PostgresRepository stores students in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s Student) (Student, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, fname, lname, grade, sec)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	`, s.ID, s.FName, s.LName, s.Grade, s.Sec)
	if store.IsUniqueViolation(err) {
		return Student{}, fmt.Errorf("%w: %d", ErrExists, s.ID)
	}
	if err != nil {
		return Student{}, fmt.Errorf("insert student %d: %w", s.ID, err)
	}
	return s, nil
}

func (r *PostgresRepository) Update(ctx context.Context, s Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students
		SET fname = $2, lname = NULLIF($3, ''), grade = $4, sec = $5
		WHERE id = $1
		RETURNING id, fname, COALESCE(lname, ''), grade, sec
	`, s.ID, s.FName, s.LName, s.Grade, s.Sec)
	return scanOne(row, s.ID, "update")
}

// Delete relies on ON DELETE CASCADE to drop the student's attendance.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		DELETE FROM students WHERE id = $1
		RETURNING id, fname, COALESCE(lname, ''), grade, sec
	`, id)
	return scanOne(row, id, "delete")
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, fname, COALESCE(lname, ''), grade, sec FROM students WHERE id = $1
	`, id)
	return scanOne(row, id, "get")
}

func (r *PostgresRepository) Query(ctx context.Context, req tabular.Request) (tabular.Result[Student], error) {
	return tabular.Query(ctx, r.db, Table, req)
}

func scanOne(row *sql.Row, id int64, op string) (Student, error) {
	s, err := Table.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Student{}, fmt.Errorf("%s student %d: %w", op, id, err)
	}
	return s, nil
}
