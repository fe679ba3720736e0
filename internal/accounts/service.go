package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"tagattend/internal/metrics"
	"tagattend/internal/tabular"
)

const minPasswordLen = 6

// Repository stores accounts and their role membership.
type Repository interface {
	Create(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	Delete(ctx context.Context, id int64) (Account, error)
	ByUsername(ctx context.Context, username string) (Account, error)
	Query(ctx context.Context, req tabular.Request) (tabular.Result[Account], error)
}

// Service manages accounts and checks credentials.
type Service struct {
	repo     Repository
	cost     int
	validate *validator.Validate
}

// NewService creates a service hashing passwords with bcrypt at cost.
// A cost of zero selects bcrypt.DefaultCost.
func NewService(repo Repository, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: cost, validate: validator.New()}
}

// Create registers a new account with the given role.
func (s *Service) Create(ctx context.Context, username, password, role string) (Account, error) {
	a := Account{Username: strings.TrimSpace(username), Role: role, Active: true}
	if err := s.check(a); err != nil {
		return Account{}, err
	}
	if len(password) < minPasswordLen {
		return Account{}, fmt.Errorf("%w: password shorter than %d characters", ErrInvalid, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = string(hash)
	return s.repo.Create(ctx, a)
}

// Bootstrap makes sure an admin account named username exists, creating it
// with password when missing. It reports whether an account was created.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	_, err := s.repo.ByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := s.Create(ctx, username, password, RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// Update renames an account and changes its role.
func (s *Service) Update(ctx context.Context, id int64, username, role string) (Account, error) {
	a := Account{ID: id, Username: strings.TrimSpace(username), Role: role}
	if err := s.check(a); err != nil {
		return Account{}, err
	}
	return s.repo.Update(ctx, a)
}

// Delete removes an account and returns it.
func (s *Service) Delete(ctx context.Context, id int64) (Account, error) {
	return s.repo.Delete(ctx, id)
}

// Authenticate verifies a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Account, error) {
	a, err := s.repo.ByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if !a.Active {
		return Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return a, nil
}

// Current returns the active account named username, or ErrNotFound.
func (s *Service) Current(ctx context.Context, username string) (Account, error) {
	a, err := s.repo.ByUsername(ctx, username)
	if err != nil {
		return Account{}, err
	}
	if !a.Active {
		return Account{}, fmt.Errorf("%w: %s is inactive", ErrNotFound, username)
	}
	return a, nil
}

// Query lists accounts for the list screen.
func (s *Service) Query(ctx context.Context, req tabular.Request) (tabular.Result[Account], error) {
	started := time.Now()
	res, err := s.repo.Query(ctx, req)
	metrics.ObserveTableQuery(Table.Name, started, err)
	if err != nil && !errors.Is(err, tabular.ErrQuery) {
		err = fmt.Errorf("%w: %v", tabular.ErrQuery, err)
	}
	return res, err
}

func (s *Service) check(a Account) error {
	if err := s.validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
