package accounts

import (
	"errors"

	"tagattend/internal/tabular"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrExists             = errors.New("account already exists")
	ErrInvalid            = errors.New("invalid account")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Role names. An account holds exactly one.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Account is an application user. The password hash never leaves the package
// boundary in JSON.
type Account struct {
	ID           int64  `json:"user_id"`
	Username     string `json:"username" validate:"required,max=255"`
	Role         string `json:"role" validate:"oneof=admin viewer"`
	PasswordHash string `json:"-"`
	Active       bool   `json:"-"`
}

// Table declares the user list columns. Credentials are not listable.
var Table = &tabular.Table[Account]{
	Name:     "users",
	From:     "users u JOIN roles_users ru ON ru.user_id = u.id JOIN roles r ON r.id = ru.role_id",
	Select:   "u.id, u.username, r.name",
	Key:      "user_id",
	Tiebreak: "u.id",
	Columns: []tabular.Column[Account]{
		{Name: "user_id", Expr: "u.id", Searchable: true, Value: func(a Account) any { return a.ID }},
		{Name: "username", Expr: "u.username", Searchable: true, Value: func(a Account) any { return a.Username }},
		{Name: "role", Expr: "r.name", Searchable: true, Value: func(a Account) any { return a.Role }},
	},
	Scan: func(s tabular.Scanner) (Account, error) {
		var a Account
		err := s.Scan(&a.ID, &a.Username, &a.Role)
		return a, err
	},
}
