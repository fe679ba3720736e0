package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tagattend/internal/store"
	"tagattend/internal/tabular"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append locks the student row for the duration of the transaction, so two scans
// of one person never read the same latest record.
func (r *Repository) Append(ctx context.Context, tagID int64, at Stamp, next func(Direction, bool) Direction) (Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, tagID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrUnknownTag
	}
	if err != nil {
		return Record{}, fmt.Errorf("lock student %d: %w", tagID, err)
	}

	var last string
	found := true
	err = tx.QueryRowContext(ctx, `
		SELECT type FROM attendance
		WHERE id = $1 AND date = $2
		ORDER BY time DESC, rowid DESC
		LIMIT 1
	`, tagID, at.Date).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return Record{}, fmt.Errorf("latest record for %d: %w", tagID, err)
	}

	rec := Record{TagID: tagID, Date: at.Date, Time: at.Time, Type: next(Direction(last), found)}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO attendance (id, date, time, type)
		VALUES ($1, $2, $3, $4)
		RETURNING rowid
	`, rec.TagID, rec.Date, rec.Time, string(rec.Type)).Scan(&rec.RowID)
	if store.IsForeignKeyViolation(err) {
		return Record{}, ErrUnknownTag
	}
	if err != nil {
		return Record{}, fmt.Errorf("insert record for %d: %w", tagID, err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// Query runs a list-screen query over attendance joined with students.
func (r *Repository) Query(ctx context.Context, req tabular.Request) (tabular.Result[Row], error) {
	return tabular.Query(ctx, r.db, Table, req)
}
