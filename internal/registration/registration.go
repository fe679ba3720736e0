// Package registration tracks pending add-student flows. Each flow gets its own
// short-lived token under which the scanner deposits the tag it read, so
// concurrent admins never see each other's tags.
package registration

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("registration not found or expired")
	ErrNotScanned = errors.New("no tag scanned for registration")
	ErrInvalidTag = errors.New("invalid tag id")
)

// Pending identifies one registration in progress.
type Pending struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps pending registrations until they expire or are consumed.
type Store interface {
	// Begin opens a registration with no tag attached.
	Begin(ctx context.Context) (Pending, error)
	// Attach records the scanned tag for token, replacing any earlier scan.
	Attach(ctx context.Context, token string, tagID int64) error
	// Lookup returns the attached tag, or 0 while waiting for a scan.
	Lookup(ctx context.Context, token string) (int64, error)
	// Consume returns the attached tag and closes the registration.
	Consume(ctx context.Context, token string) (int64, error)
}
