// Package remote is the client side of the console API. It implements
// the auth contracts the gate consumes, persisting the session token to
// a file so a restarted process can pick its session back up.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flasherpro/console/internal/gate"
	"github.com/flasherpro/console/internal/model"
)

// Client talks to a console server. It satisfies gate.AuthAPI and
// gate.Directory so a Gate can run against a remote console.
type Client struct {
	baseURL   string
	http      *http.Client
	tokenPath string
	logger    *slog.Logger

	events chan gate.Event
}

func NewClient(baseURL, tokenPath string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		tokenPath: tokenPath,
		logger:    logger,
		events:    make(chan gate.Event, 8),
	}
}

// Events delivers session changes observed by this client.
func (c *Client) Events() <-chan gate.Event { return c.events }

func (c *Client) token() string {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *Client) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(c.tokenPath), 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(c.tokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (c *Client) clearToken() {
	os.Remove(c.tokenPath)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type meResponse struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// GetPersistedSession validates the token file against the server.
// A missing file or a rejected token yields (nil, nil): there is no
// session, but that is not an error.
func (c *Client) GetPersistedSession(ctx context.Context) (*gate.Session, error) {
	token := c.token()
	if token == "" {
		return nil, nil
	}

	var me meResponse
	status, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &me)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.clearToken()
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("validate session: status %d", status)
	}

	return &gate.Session{
		Token:       token,
		UserID:      me.UserID,
		Email:       me.Email,
		DisplayName: me.Email,
	}, nil
}

type loginResponse struct {
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
}

// SignInWithPassword exchanges credentials for a session and emits a
// SIGNED_IN event on success.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*gate.Session, error) {
	var resp loginResponse
	status, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		if resp.Error != "" {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return nil, fmt.Errorf("sign in: status %d", status)
	}

	if err := c.saveToken(resp.Token); err != nil {
		return nil, err
	}

	sess := &gate.Session{Token: resp.Token, Email: email, DisplayName: email}
	if resp.User != nil {
		sess.UserID = resp.User.ID
		sess.Email = resp.User.Email
		if resp.User.DisplayName != "" {
			sess.DisplayName = resp.User.DisplayName
		}
	}

	c.emit(gate.Event{Kind: gate.EventSignedIn, Session: sess})
	return sess, nil
}

// SignOut revokes the session server side. The token file is only
// removed once the server confirms, so a failed sign-out leaves the
// local session intact.
func (c *Client) SignOut(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusUnauthorized {
		return fmt.Errorf("sign out: status %d", status)
	}

	c.clearToken()
	c.emit(gate.Event{Kind: gate.EventSignedOut, Session: nil})
	return nil
}

func (c *Client) emit(ev gate.Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event channel full, dropping", "kind", ev.Kind)
	}
}

// FindUserByEmail implements gate.Directory against the users API.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*gate.UserRecord, error) {
	var u model.User
	status, err := c.do(ctx, http.MethodGet, "/api/users/lookup?email="+url.QueryEscape(email), nil, &u)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return &gate.UserRecord{
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Role:        u.Role,
			CreatedAt:   u.CreatedAt,
		}, nil
	case http.StatusNotFound:
		return nil, gate.ErrNotFound
	default:
		return nil, fmt.Errorf("find user: status %d", status)
	}
}

// CreateUserRecord implements gate.Directory against the users API.
func (c *Client) CreateUserRecord(ctx context.Context, rec gate.UserRecord) error {
	status, err := c.do(ctx, http.MethodPost, "/api/users", map[string]string{
		"email":        rec.Email,
		"display_name": rec.DisplayName,
		"role":         rec.Role,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusCreated && status != http.StatusConflict {
		return fmt.Errorf("create user record: status %d", status)
	}
	return nil
}

// Dashboard fetches the console summary stats.
func (c *Client) Dashboard(ctx context.Context) (*model.DashboardStats, []*model.LicenseKey, error) {
	var resp struct {
		Stats  model.DashboardStats `json:"stats"`
		Recent []*model.LicenseKey  `json:"recent_keys"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &resp)
	if err != nil {
		return nil, nil, err
	}
	if status != http.StatusOK {
		return nil, nil, fmt.Errorf("dashboard: status %d", status)
	}
	return &resp.Stats, resp.Recent, nil
}

// ValidateLicense checks a license key against the public endpoint.
func (c *Client) ValidateLicense(ctx context.Context, key string) (bool, string, error) {
	var resp struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/license/validate", map[string]string{"key": key}, &resp)
	if err != nil {
		return false, "", err
	}
	if status != http.StatusOK {
		return false, "", fmt.Errorf("validate license: status %d", status)
	}
	return resp.Valid, resp.Reason, nil
}
