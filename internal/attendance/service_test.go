package attendance_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagattend/internal/attendance"
	"tagattend/internal/store/memstore"
	"tagattend/internal/students"
	"tagattend/internal/tabular"
)

var kolkata = time.FixedZone("IST", 5*3600+1800)

func at(day, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", day+" "+clock, kolkata)
	if err != nil {
		panic(err)
	}
	return t
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type auditLine struct {
	TagID      int64
	Date, Time string
}

type recordingAudit struct {
	mu    sync.Mutex
	lines []auditLine
	err   error
}

func (a *recordingAudit) RecordUnknownTag(_ context.Context, tagID int64, date, clock string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lines = append(a.lines, auditLine{tagID, date, clock})
	return a.err
}

func setup(t *testing.T) (*attendance.Service, *memstore.Store, *recordingAudit) {
	t.Helper()
	db := memstore.New()
	_, err := db.Students().Create(context.Background(), students.Student{ID: 42, FName: "Asha", Grade: 5, Sec: "A"})
	require.NoError(t, err)
	audit := &recordingAudit{}
	svc := attendance.NewService(db.Attendance(), fixedClock{at("2024-06-01", "09:00:00")}, audit, nil)
	return svc, db, audit
}

func TestNextDirection(t *testing.T) {
	assert.Equal(t, attendance.In, attendance.NextDirection("", false))
	assert.Equal(t, attendance.Out, attendance.NextDirection(attendance.In, true))
	assert.Equal(t, attendance.In, attendance.NextDirection(attendance.Out, true))
}

func TestRecordScanUsesClock(t *testing.T) {
	svc, _, _ := setup(t)
	res, err := svc.RecordScan(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, attendance.Recorded, res.Outcome)
	assert.Equal(t, "2024-06-01", res.Record.Date)
	assert.Equal(t, "09:00:00", res.Record.Time)
	assert.Equal(t, attendance.In, res.Record.Type)
}

func TestScansAlternateWithinDay(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	want := []attendance.Direction{attendance.In, attendance.Out, attendance.In, attendance.Out, attendance.In}
	clocks := []string{"09:00:00", "15:30:00", "15:31:00", "16:00:00", "16:00:00"}
	for i, clock := range clocks {
		res, err := svc.RecordScanAt(ctx, 42, at("2024-06-01", clock))
		require.NoError(t, err)
		assert.Equal(t, attendance.Recorded, res.Outcome)
		assert.Equal(t, want[i], res.Record.Type, "scan %d at %s", i, clock)
	}
}

func TestNewDayStartsWithIn(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	res, err := svc.RecordScanAt(ctx, 42, at("2024-06-01", "23:59:59"))
	require.NoError(t, err)
	assert.Equal(t, attendance.In, res.Record.Type)

	res, err = svc.RecordScanAt(ctx, 42, at("2024-06-02", "00:00:00"))
	require.NoError(t, err)
	assert.Equal(t, attendance.In, res.Record.Type)
	assert.Equal(t, "2024-06-02", res.Record.Date)
}

func TestUnknownTagIsAuditedNotStored(t *testing.T) {
	svc, db, audit := setup(t)

	res, err := svc.RecordScanAt(context.Background(), 9999, at("2024-06-01", "10:00:00"))
	require.NoError(t, err)
	assert.Equal(t, attendance.UnknownTag, res.Outcome)
	assert.Empty(t, db.Attendance().Records())
	assert.Equal(t, []auditLine{{9999, "2024-06-01", "10:00:00"}}, audit.lines)
}

func TestAuditFailureIsNotFatal(t *testing.T) {
	svc, _, audit := setup(t)
	audit.err = errors.New("disk full")

	res, err := svc.RecordScanAt(context.Background(), 9999, at("2024-06-01", "10:00:00"))
	require.NoError(t, err)
	assert.Equal(t, attendance.UnknownTag, res.Outcome)
}

type brokenStore struct{}

func (brokenStore) Append(context.Context, int64, attendance.Stamp, func(attendance.Direction, bool) attendance.Direction) (attendance.Record, error) {
	return attendance.Record{}, errors.New("connection reset")
}

func (brokenStore) Query(context.Context, tabular.Request) (tabular.Result[attendance.Row], error) {
	return tabular.Result[attendance.Row]{}, errors.New("connection reset")
}

func TestStorageFailure(t *testing.T) {
	audit := &recordingAudit{}
	svc := attendance.NewService(brokenStore{}, fixedClock{at("2024-06-01", "09:00:00")}, audit, nil)

	_, err := svc.RecordScan(context.Background(), 42)
	assert.ErrorIs(t, err, attendance.ErrStorage)
	assert.Empty(t, audit.lines)

	_, err = svc.Query(context.Background(), tabular.Request{})
	assert.ErrorIs(t, err, tabular.ErrQuery)
}

func TestConcurrentScansStillAlternate(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	now := at("2024-06-01", "12:00:00")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordScanAt(ctx, 42, now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recs := db.Attendance().Records()
	require.Len(t, recs, n)
	sort.Slice(recs, func(i, j int) bool { return recs[i].RowID < recs[j].RowID })
	for i, r := range recs {
		want := attendance.In
		if i%2 == 1 {
			want = attendance.Out
		}
		assert.Equal(t, want, r.Type, "record %d", i)
	}
}

func TestQueryJoinsStudents(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	for _, st := range []students.Student{
		{ID: 7, FName: "Rishi", Grade: 6, Sec: "A"},
		{ID: 8, FName: "Neel", Grade: 6, Sec: "B"},
		{ID: 9, FName: "Dev", Grade: 7, Sec: "A"},
	} {
		_, err := db.Students().Create(ctx, st)
		require.NoError(t, err)
	}
	for _, id := range []int64{42, 7, 8, 9} {
		_, err := svc.RecordScanAt(ctx, id, at("2024-06-01", "09:00:00"))
		require.NoError(t, err)
	}

	res, err := svc.Query(ctx, tabular.Request{
		Search: "A",
		Order:  []tabular.Order{{Column: "id"}},
		Length: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 3, res.Filtered)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(7), res.Rows[0].ID)
	assert.Equal(t, "Rishi", res.Rows[0].FName)
	assert.Equal(t, attendance.In, res.Rows[0].Type)
	assert.Equal(t, int64(9), res.Rows[1].ID)
}
