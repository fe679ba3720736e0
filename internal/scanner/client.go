// Package scanner talks to the tag-reader device on the local network.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tagattend/internal/registration"
)

// Client calls the scanner's embedded HTTP server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set every call succeeds without network I/O.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Arm tells the scanner that its next read belongs to a pending registration.
// The device reports the tag back against p.Token.
func (c *Client) Arm(ctx context.Context, p registration.Pending) error {
	if c.Skip {
		return nil
	}
	if p.Token == "" {
		return fmt.Errorf("registration token required")
	}

	body, _ := json.Marshal(map[string]any{
		"token":      p.Token,
		"expires_at": p.ExpiresAt.UTC().Format(time.RFC3339),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("scanner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("scanner error %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// Health checks if the scanner is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("scanner unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("scanner unhealthy: %s", resp.Status)
	}
	return nil
}
