// Package client talks to the mesa HTTP API on behalf of mesactl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mesa/internal/auth"
	"mesa/internal/domain"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"error"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", msg, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s (%d)", msg, e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client is an authenticated mesa API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a client for baseURL. token may be empty before login.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns the session token in use.
func (c *Client) Token() string {
	return c.token
}

// LoginResult describes a successful staff login.
type LoginResult struct {
	Success  bool        `json:"success"`
	Redirect string      `json:"redirect"`
	Role     domain.Role `json:"type"`
}

// Login exchanges credentials for a session token. kitchen selects the
// kitchen login endpoint, which also accepts admins.
func (c *Client) Login(ctx context.Context, username, password string, kitchen bool) (*LoginResult, error) {
	path := "/login"
	if kitchen {
		path = "/login-cocina"
	}

	body := map[string]string{"username": username, "password": password}
	resp, err := c.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == auth.CookieName && cookie.Value != "" {
			c.token = cookie.Value
			return &result, nil
		}
	}
	return nil, fmt.Errorf("login response carried no session cookie")
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Health returns the server health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTables returns every registered table.
func (c *Client) ListTables(ctx context.Context) ([]domain.Table, error) {
	var out []domain.Table
	if err := c.do(ctx, http.MethodGet, "/api/tables", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTableRequest registers a table. An empty Code asks the server to
// generate one.
type CreateTableRequest struct {
	Code        string `json:"code,omitempty"`
	IsTemporary bool   `json:"is_temporary"`
	Note        string `json:"note,omitempty"`
}

// CreateTable registers a table.
func (c *Client) CreateTable(ctx context.Context, req CreateTableRequest) (*domain.Table, error) {
	var out domain.Table
	if err := c.do(ctx, http.MethodPost, "/api/tables", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTableStatus activates or deactivates a table.
func (c *Client) SetTableStatus(ctx context.Context, code string, status domain.TableStatus) (*domain.Table, error) {
	var out domain.Table
	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, http.MethodPatch, "/api/tables/"+url.PathEscape(code)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReissueTable issues a fresh token for a table, invalidating the old one.
func (c *Client) ReissueTable(ctx context.Context, code string) (*domain.Table, error) {
	var out domain.Table
	if err := c.do(ctx, http.MethodPost, "/api/tables/"+url.PathEscape(code)+"/reissue", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTable removes a table.
func (c *Client) DeleteTable(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, "/api/tables/"+url.PathEscape(code), nil, nil)
}

// ListOrders returns every order.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetOrderStatus moves an order through the kitchen workflow.
func (c *Client) SetOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	var out domain.Order
	body := map[string]string{"status": string(status)}
	path := "/api/orders/" + strconv.FormatInt(id, 10) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send performs the request and converts error statuses into *APIError.
// On success the caller owns the response body.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	return nil, apiErr
}
