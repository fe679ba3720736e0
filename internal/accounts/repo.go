package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tagattend/internal/store"
	"tagattend/internal/tabular"
)

// PostgresRepository stores accounts in the users, roles and roles_users tables.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a Account) (Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, active)
		VALUES ($1, $2, $3)
		RETURNING id
	`, a.Username, a.PasswordHash, a.Active).Scan(&a.ID)
	if store.IsUniqueViolation(err) {
		return Account{}, fmt.Errorf("%w: %s", ErrExists, a.Username)
	}
	if err != nil {
		return Account{}, fmt.Errorf("insert user %s: %w", a.Username, err)
	}

	if err := assignRole(ctx, tx, a.ID, a.Role, false); err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a Account) (Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE users SET username = $2 WHERE id = $1`, a.ID, a.Username)
	if store.IsUniqueViolation(err) {
		return Account{}, fmt.Errorf("%w: %s", ErrExists, a.Username)
	}
	if err != nil {
		return Account{}, fmt.Errorf("update user %d: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Account{}, fmt.Errorf("%w: %d", ErrNotFound, a.ID)
	}

	if err := assignRole(ctx, tx, a.ID, a.Role, true); err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func assignRole(ctx context.Context, tx *sql.Tx, userID int64, role string, replace bool) error {
	query := `
		INSERT INTO roles_users (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2`
	if replace {
		query += ` ON CONFLICT (user_id) DO UPDATE SET role_id = EXCLUDED.role_id`
	}
	res, err := tx.ExecContext(ctx, query, userID, role)
	if err != nil {
		return fmt.Errorf("assign role %s to %d: %w", role, userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: unknown role %q", ErrInvalid, role)
	}
	return nil
}

// Delete removes the user; role membership goes with it by cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, `
		WITH gone AS (
			DELETE FROM users WHERE id = $1 RETURNING id, username
		)
		SELECT gone.id, gone.username, COALESCE(r.name, '')
		FROM gone
		LEFT JOIN roles_users ru ON ru.user_id = gone.id
		LEFT JOIN roles r ON r.id = ru.role_id
	`, id).Scan(&a.ID, &a.Username, &a.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Account{}, fmt.Errorf("delete user %d: %w", id, err)
	}
	return a, nil
}

func (r *PostgresRepository) ByUsername(ctx context.Context, username string) (Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, r.name, u.password_hash, u.active
		FROM users u
		JOIN roles_users ru ON ru.user_id = u.id
		JOIN roles r ON r.id = ru.role_id
		WHERE u.username = $1
	`, username).Scan(&a.ID, &a.Username, &a.Role, &a.PasswordHash, &a.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	if err != nil {
		return Account{}, fmt.Errorf("get user %s: %w", username, err)
	}
	return a, nil
}

func (r *PostgresRepository) Query(ctx context.Context, req tabular.Request) (tabular.Result[Account], error) {
	return tabular.Query(ctx, r.db, Table, req)
}
