// Package memstore keeps students, attendance and accounts in process memory.
// It backs STORE_BACKEND=memory and the service tests, and follows the same
// semantics as the Postgres repositories: cascading deletes, unique keys and
// per-person serialized scans.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tagattend/internal/accounts"
	"tagattend/internal/attendance"
	"tagattend/internal/students"
	"tagattend/internal/tabular"
)

// Store is the shared in-memory database.
type Store struct {
	mu       sync.RWMutex
	students map[int64]students.Student
	records  []attendance.Record
	nextRow  int64
	accounts map[int64]accounts.Account
	nextUser int64

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func New() *Store {
	return &Store{
		students: make(map[int64]students.Student),
		accounts: make(map[int64]accounts.Account),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Attendance returns the attendance.Store view.
func (s *Store) Attendance() *Attendance { return &Attendance{s} }

// Students returns the students.Repository view.
func (s *Store) Students() *Students { return &Students{s} }

// Accounts returns the accounts.Repository view.
func (s *Store) Accounts() *Accounts { return &Accounts{s} }

func (s *Store) personLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Attendance implements attendance.Store.
type Attendance struct{ s *Store }

func (a *Attendance) Append(ctx context.Context, tagID int64, at attendance.Stamp, next func(attendance.Direction, bool) attendance.Direction) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}
	l := a.s.personLock(tagID)
	l.Lock()
	defer l.Unlock()

	a.s.mu.RLock()
	_, known := a.s.students[tagID]
	var last attendance.Record
	found := false
	for _, r := range a.s.records {
		if r.TagID != tagID || r.Date != at.Date {
			continue
		}
		// latest by time, then by insertion
		if !found || r.Time >= last.Time {
			last, found = r, true
		}
	}
	a.s.mu.RUnlock()

	if !known {
		return attendance.Record{}, attendance.ErrUnknownTag
	}
	rec := attendance.Record{TagID: tagID, Date: at.Date, Time: at.Time, Type: next(last.Type, found)}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.students[tagID]; !ok {
		return attendance.Record{}, attendance.ErrUnknownTag
	}
	a.s.nextRow++
	rec.RowID = a.s.nextRow
	a.s.records = append(a.s.records, rec)
	return rec, nil
}

func (a *Attendance) Query(ctx context.Context, req tabular.Request) (tabular.Result[attendance.Row], error) {
	if err := ctx.Err(); err != nil {
		return tabular.Result[attendance.Row]{}, err
	}
	a.s.mu.RLock()
	rows := make([]attendance.Row, 0, len(a.s.records))
	for _, r := range a.s.records {
		st, ok := a.s.students[r.TagID]
		if !ok {
			continue
		}
		rows = append(rows, attendance.Row{
			ID: r.TagID, FName: st.FName, LName: st.LName, Grade: st.Grade, Sec: st.Sec,
			Date: r.Date, Time: r.Time, Type: r.Type,
		})
	}
	a.s.mu.RUnlock()
	return tabular.Slice(attendance.Table, rows, req)
}

// Records returns a copy of every stored record in insertion order.
func (a *Attendance) Records() []attendance.Record {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return append([]attendance.Record(nil), a.s.records...)
}

// Students implements students.Repository.
type Students struct{ s *Store }

func (r *Students) Create(_ context.Context, st students.Student) (students.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.students[st.ID]; ok {
		return students.Student{}, fmt.Errorf("%w: %d", students.ErrExists, st.ID)
	}
	r.s.students[st.ID] = st
	return st, nil
}

func (r *Students) Update(_ context.Context, st students.Student) (students.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.students[st.ID]; !ok {
		return students.Student{}, fmt.Errorf("%w: %d", students.ErrNotFound, st.ID)
	}
	r.s.students[st.ID] = st
	return st, nil
}

func (r *Students) Delete(_ context.Context, id int64) (students.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[id]
	if !ok {
		return students.Student{}, fmt.Errorf("%w: %d", students.ErrNotFound, id)
	}
	delete(r.s.students, id)

	kept := r.s.records[:0]
	for _, rec := range r.s.records {
		if rec.TagID != id {
			kept = append(kept, rec)
		}
	}
	r.s.records = kept
	return st, nil
}

func (r *Students) Get(_ context.Context, id int64) (students.Student, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.students[id]
	if !ok {
		return students.Student{}, fmt.Errorf("%w: %d", students.ErrNotFound, id)
	}
	return st, nil
}

func (r *Students) Query(ctx context.Context, req tabular.Request) (tabular.Result[students.Student], error) {
	if err := ctx.Err(); err != nil {
		return tabular.Result[students.Student]{}, err
	}
	r.s.mu.RLock()
	rows := make([]students.Student, 0, len(r.s.students))
	for _, st := range r.s.students {
		rows = append(rows, st)
	}
	r.s.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return tabular.Slice(students.Table, rows, req)
}

// Accounts implements accounts.Repository.
type Accounts struct{ s *Store }

func (r *Accounts) Create(_ context.Context, a accounts.Account) (accounts.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.taken(a.Username, 0) {
		return accounts.Account{}, fmt.Errorf("%w: %s", accounts.ErrExists, a.Username)
	}
	r.s.nextUser++
	a.ID = r.s.nextUser
	r.s.accounts[a.ID] = a
	return a, nil
}

func (r *Accounts) Update(_ context.Context, a accounts.Account) (accounts.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.accounts[a.ID]
	if !ok {
		return accounts.Account{}, fmt.Errorf("%w: %d", accounts.ErrNotFound, a.ID)
	}
	if r.taken(a.Username, a.ID) {
		return accounts.Account{}, fmt.Errorf("%w: %s", accounts.ErrExists, a.Username)
	}
	cur.Username, cur.Role = a.Username, a.Role
	r.s.accounts[a.ID] = cur
	return cur, nil
}

func (r *Accounts) Delete(_ context.Context, id int64) (accounts.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return accounts.Account{}, fmt.Errorf("%w: %d", accounts.ErrNotFound, id)
	}
	delete(r.s.accounts, id)
	return a, nil
}

func (r *Accounts) ByUsername(_ context.Context, username string) (accounts.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return accounts.Account{}, fmt.Errorf("%w: %s", accounts.ErrNotFound, username)
}

func (r *Accounts) Query(ctx context.Context, req tabular.Request) (tabular.Result[accounts.Account], error) {
	if err := ctx.Err(); err != nil {
		return tabular.Result[accounts.Account]{}, err
	}
	r.s.mu.RLock()
	rows := make([]accounts.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		rows = append(rows, a)
	}
	r.s.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return tabular.Slice(accounts.Table, rows, req)
}

func (r *Accounts) taken(username string, except int64) bool {
	for id, a := range r.s.accounts {
		if id != except && a.Username == username {
			return true
		}
	}
	return false
}

var (
	_ attendance.Store    = (*Attendance)(nil)
	_ students.Repository = (*Students)(nil)
	_ accounts.Repository = (*Accounts)(nil)
)
