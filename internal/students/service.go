package students

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tagattend/internal/metrics"
	"tagattend/internal/tabular"
)

// Repository stores students. Delete removes the student's attendance too.
type Repository interface {
	Create(ctx context.Context, s Student) (Student, error)
	Update(ctx context.Context, s Student) (Student, error)
	Delete(ctx context.Context, id int64) (Student, error)
	Get(ctx context.Context, id int64) (Student, error)
	Query(ctx context.Context, req tabular.Request) (tabular.Result[Student], error)
}

// PendingTags hands out the tag id captured for a pending registration.
type PendingTags interface {
	Consume(ctx context.Context, token string) (int64, error)
}

// Service validates and applies student changes.
type Service struct {
	repo     Repository
	pending  PendingTags
	validate *validator.Validate
}

func NewService(repo Repository, pending PendingTags) *Service {
	return &Service{repo: repo, pending: pending, validate: validator.New()}
}

// Create adds a student. When token names a pending registration its scanned
// tag id is used for a student submitted without one; the token is consumed
// either way.
func (s *Service) Create(ctx context.Context, st Student, token string) (Student, error) {
	if token != "" && s.pending != nil {
		id, err := s.pending.Consume(ctx, token)
		if err != nil && st.ID == 0 {
			return Student{}, fmt.Errorf("%w: registration %s: %v", ErrInvalid, token, err)
		}
		if st.ID == 0 {
			st.ID = id
		}
	}
	st = normalize(st)
	if err := s.check(st); err != nil {
		return Student{}, err
	}
	return s.repo.Create(ctx, st)
}

// Update replaces the editable fields of an existing student.
func (s *Service) Update(ctx context.Context, st Student) (Student, error) {
	st = normalize(st)
	if err := s.check(st); err != nil {
		return Student{}, err
	}
	return s.repo.Update(ctx, st)
}

// Delete removes a student and returns the removed row.
func (s *Service) Delete(ctx context.Context, id int64) (Student, error) {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Student, error) {
	return s.repo.Get(ctx, id)
}

// Query lists students for the list screen.
func (s *Service) Query(ctx context.Context, req tabular.Request) (tabular.Result[Student], error) {
	started := time.Now()
	res, err := s.repo.Query(ctx, req)
	metrics.ObserveTableQuery(Table.Name, started, err)
	if err != nil && !errors.Is(err, tabular.ErrQuery) {
		err = fmt.Errorf("%w: %v", tabular.ErrQuery, err)
	}
	return res, err
}

func (s *Service) check(st Student) error {
	if err := s.validate.Struct(st); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func normalize(st Student) Student {
	st.FName = strings.TrimSpace(st.FName)
	st.LName = strings.TrimSpace(st.LName)
	st.Sec = strings.ToUpper(strings.TrimSpace(st.Sec))
	return st
}
