// Package backend talks to the clinic REST API on behalf of the session
// model: credential exchange, logout and permission lookup.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/medrex/clinic-portal/pkg/logger"
	"github.com/medrex/clinic-portal/pkg/types"
)

const maxErrorBody = 4096

// Client is the REST collaborator of the auth lifecycle. Requests after
// SetToken carry the bearer credential.
type Client struct {
	baseURL string
	base    *http.Client
	logger  *logger.Logger

	mu     sync.RWMutex
	token  string
	authed *http.Client
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base URL %q", baseURL)
	}

	base := &http.Client{Timeout: timeout}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		base:    base,
		authed:  base,
		logger:  log,
	}, nil
}

// SetToken swaps the credential used for authenticated requests. An empty
// token drops it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	if token == "" {
		c.authed = c.base
		return
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	authed := oauth2.NewClient(ctx, source)
	authed.Timeout = c.base.Timeout
	c.authed = authed
}

// HasToken reports whether a credential is currently propagated
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// HTTPClient returns the client carrying the current credential, for
// callers issuing their own backend requests.
func (c *Client) HTTPClient() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authed
}

type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, creds types.Credentials) (*types.LoginResult, error) {
	body, err := json.Marshal(loginRequest{
		Email:          creds.Email,
		Password:       creds.Password,
		OrganizationID: creds.OrganizationID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	resp, err := c.do(ctx, c.base, http.MethodPost, "/auth/login", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, types.NewAuthenticationError(types.ErrCodeInvalidCredentials, "credentials rejected", readError(resp))
	case resp.StatusCode >= 300:
		return nil, types.NewExternalError(types.ErrCodeExternalError, "login request failed", readError(resp))
	}

	var result types.LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, types.NewExternalError(types.ErrCodeExternalError, "malformed login response", err)
	}
	return &result, nil
}

// Logout invalidates the server-side session for the current credential
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, c.HTTPClient(), http.MethodPost, "/auth/logout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return types.NewExternalError(types.ErrCodeExternalError, "logout request failed", readError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// GetUserPermissions returns the permission names granted to userID
func (c *Client) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "user id is required", nil)
	}

	resp, err := c.do(ctx, c.HTTPClient(), http.MethodGet, "/permissions/user/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, types.NewAuthorizationError(types.ErrCodeUnauthorized, "permission lookup not authorized")
	case resp.StatusCode == http.StatusNotFound:
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "user not found: "+userID)
	case resp.StatusCode >= 300:
		return nil, types.NewExternalError(types.ErrCodeExternalError, "permission request failed", readError(resp))
	}

	var entries []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, types.NewExternalError(types.ErrCodeExternalError, "malformed permission response", err)
	}
	return permissionNames(entries)
}

// permissionNames accepts plain names or objects carrying a name field
func permissionNames(entries []json.RawMessage) ([]string, error) {
	names := make([]string, 0, len(entries))
	for _, raw := range entries {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			names = append(names, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Name == "" {
			return nil, types.NewExternalError(types.ErrCodeExternalError, "unrecognized permission entry", err)
		}
		names = append(names, obj.Name)
	}
	return names, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	entry := c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"component":   "backend",
		"method":      method,
		"path":        path,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("Backend request failed")
		return nil, types.NewExternalError(types.ErrCodeExternalError, "backend unreachable", err)
	}
	entry.WithField("status_code", resp.StatusCode).Debug("Backend request completed")
	return resp, nil
}

func readError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}
