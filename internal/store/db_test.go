package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintViolations(t *testing.T) {
	fk := fmt.Errorf("insert attendance: %w", &pgconn.PgError{Code: "23503"})
	unique := &pgconn.PgError{Code: "23505"}

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(errors.New("connection reset")))
	assert.False(t, IsForeignKeyViolation(nil))
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/00001_students_attendance.sql",
		"migrations/00002_accounts.sql",
	}, names)
}

func TestNilHandlesAreSafe(t *testing.T) {
	var d *DB
	assert.NoError(t, d.Close())
	var r *Redis
	assert.NoError(t, r.Close())
	assert.False(t, r.Healthy(context.Background()))
}
