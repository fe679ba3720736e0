package attendance_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagattend/internal/attendance"
	"tagattend/internal/store"
	"tagattend/internal/students"
)

// Tag ids reserved for these tests so a shared database can be reused.
const (
	pgTag     int64 = 990001
	pgMissing int64 = 990099
)

func openPostgres(t *testing.T) *store.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := store.NewDB(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))

	clean := func() {
		_, _ = db.Client.ExecContext(ctx, `DELETE FROM students WHERE id IN ($1, $2)`, pgTag, pgMissing)
	}
	clean()
	t.Cleanup(func() {
		clean()
		_ = db.Close()
	})

	_, err = students.NewPostgresRepository(db.Client).Create(ctx, students.Student{ID: pgTag, FName: "Asha", Grade: 5, Sec: "A"})
	require.NoError(t, err)
	return db
}

func directions(t *testing.T, db *store.DB, date string) []attendance.Direction {
	t.Helper()
	rows, err := db.Client.QueryContext(context.Background(),
		`SELECT type FROM attendance WHERE id = $1 AND date = $2 ORDER BY rowid`, pgTag, date)
	require.NoError(t, err)
	defer rows.Close()
	var out []attendance.Direction
	for rows.Next() {
		var d string
		require.NoError(t, rows.Scan(&d))
		out = append(out, attendance.Direction(d))
	}
	require.NoError(t, rows.Err())
	return out
}

func TestPostgresAppendAlternates(t *testing.T) {
	db := openPostgres(t)
	repo := attendance.NewRepository(db.Client)
	ctx := context.Background()

	// Scans within the same second share a time string; rowid breaks the tie.
	at := attendance.Stamp{Date: "2024-06-01", Time: "09:00:00"}
	var rowids []int64
	for i := 0; i < 3; i++ {
		rec, err := repo.Append(ctx, pgTag, at, attendance.NextDirection)
		require.NoError(t, err)
		rowids = append(rowids, rec.RowID)
	}
	assert.Less(t, rowids[0], rowids[1])
	assert.Less(t, rowids[1], rowids[2])
	assert.Equal(t, []attendance.Direction{attendance.In, attendance.Out, attendance.In}, directions(t, db, at.Date))

	// A new day starts with IN.
	rec, err := repo.Append(ctx, pgTag, attendance.Stamp{Date: "2024-06-02", Time: "08:00:00"}, attendance.NextDirection)
	require.NoError(t, err)
	assert.Equal(t, attendance.In, rec.Type)
}

func TestPostgresAppendUnknownTag(t *testing.T) {
	db := openPostgres(t)
	repo := attendance.NewRepository(db.Client)
	ctx := context.Background()

	_, err := repo.Append(ctx, pgMissing, attendance.Stamp{Date: "2024-06-01", Time: "09:00:00"}, attendance.NextDirection)
	assert.ErrorIs(t, err, attendance.ErrUnknownTag)

	_, err = db.Client.ExecContext(ctx,
		`INSERT INTO attendance (id, date, time, type) VALUES ($1, '2024-06-01', '09:00:00', 'IN')`, pgMissing)
	require.Error(t, err)
	assert.True(t, store.IsForeignKeyViolation(err))
}

func TestPostgresAppendSerializesConcurrentScans(t *testing.T) {
	db := openPostgres(t)
	repo := attendance.NewRepository(db.Client)
	ctx := context.Background()
	at := attendance.Stamp{Date: "2024-06-03", Time: "10:00:00"}

	const scans = 12
	var wg sync.WaitGroup
	errs := make(chan error, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Append(ctx, pgTag, at, attendance.NextDirection)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := directions(t, db, at.Date)
	require.Len(t, got, scans)
	for i, d := range got {
		want := attendance.In
		if i%2 == 1 {
			want = attendance.Out
		}
		assert.Equal(t, want, d, "record %d", i)
	}
}
