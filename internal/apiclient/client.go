// Package apiclient is an HTTP client for the ruletracker API. Every
// operation either returns the updated record or fails with an error that
// wraps ErrRequestFailed.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"ruletracker/internal/categorytree"
	"ruletracker/internal/models"
)

// ErrRequestFailed is wrapped by every error caused by a non-success
// response or a transport failure.
var ErrRequestFailed = errors.New("request failed")

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrRequestFailed }

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client talks to one ruletracker server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8080". A trailing "/api" is optional.
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	base := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/api")
	c := &Client{
		baseURL: base + "/api",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Categories ---

// Categories fetches every category as a flat list.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := c.do(ctx, "fetch categories", http.MethodGet, "/categories", nil, &out)
	return out, err
}

// Category fetches a single category. An unknown id fails with a 404
// StatusError.
func (c *Client) Category(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, "fetch category", http.MethodGet, "/categories/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CategoryTree fetches the server-built forest.
func (c *Client) CategoryTree(ctx context.Context) (*categorytree.Tree, error) {
	var out categorytree.Tree
	if err := c.do(ctx, "fetch category tree", http.MethodGet, "/categories/tree", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Children fetches the direct children of a category.
func (c *Client) Children(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	var out []models.Category
	err := c.do(ctx, "fetch children", http.MethodGet, "/categories/"+id.String()+"/children", nil, &out)
	return out, err
}

// Path fetches the ancestor path of a category, top level first.
func (c *Client) Path(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	var out []models.Category
	err := c.do(ctx, "fetch path", http.MethodGet, "/categories/"+id.String()+"/path", nil, &out)
	return out, err
}

// CreateCategory creates a category under parentID, or at the top level
// when parentID is nil.
func (c *Client) CreateCategory(ctx context.Context, name string, parentID *uuid.UUID) (*models.Category, error) {
	body := map[string]any{"name": name}
	if parentID != nil {
		body["parent_id"] = parentID.String()
	}
	var out models.Category
	if err := c.do(ctx, "create category", http.MethodPost, "/categories", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameCategory updates a category's name.
func (c *Client) RenameCategory(ctx context.Context, id uuid.UUID, name string) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, "update category", http.MethodPut, "/categories/"+id.String(), map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory deletes a category, its descendants and their rules.
func (c *Client) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "delete category", http.MethodDelete, "/categories/"+id.String(), nil, nil)
}

// MoveCategory executes a move request.
func (c *Client) MoveCategory(ctx context.Context, req models.MoveRequest) (*models.Category, error) {
	body := map[string]any{"sort_order": req.SortOrder}
	if req.NewParentID != nil {
		body["new_parent_id"] = req.NewParentID.String()
	}
	var out models.Category
	if err := c.do(ctx, "move category", http.MethodPost, "/categories/"+req.CategoryID.String()+"/move", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Rules ---

// RuleQuery selects and orders a rule listing. Zero values use the server
// defaults: all categories, follow_count, desc.
type RuleQuery struct {
	CategoryID *uuid.UUID
	SortBy     models.RuleSortField
	Direction  models.SortDirection
}

func (q RuleQuery) encode() string {
	v := url.Values{}
	if q.CategoryID != nil {
		v.Set("categoryId", q.CategoryID.String())
	}
	if q.SortBy != "" {
		v.Set("sortBy", string(q.SortBy))
	}
	if q.Direction != "" {
		v.Set("sortOrder", string(q.Direction))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Rules fetches rules matching q.
func (c *Client) Rules(ctx context.Context, q RuleQuery) ([]models.Rule, error) {
	var out []models.Rule
	err := c.do(ctx, "fetch rules", http.MethodGet, "/rules"+q.encode(), nil, &out)
	return out, err
}

// CreateRule adds a rule to a category.
func (c *Client) CreateRule(ctx context.Context, categoryID uuid.UUID, content string) (*models.Rule, error) {
	body := map[string]string{"category_id": categoryID.String(), "content": content}
	var out models.Rule
	if err := c.do(ctx, "create rule", http.MethodPost, "/rules", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRule replaces a rule's content.
func (c *Client) UpdateRule(ctx context.Context, id uuid.UUID, content string) (*models.Rule, error) {
	var out models.Rule
	if err := c.do(ctx, "update rule", http.MethodPut, "/rules/"+id.String(), map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "delete rule", http.MethodDelete, "/rules/"+id.String(), nil, nil)
}

// FollowRule increments a rule's follow tally.
func (c *Client) FollowRule(ctx context.Context, id uuid.UUID, note string) (*models.Rule, error) {
	return c.count(ctx, "follow", id, note)
}

// ViolateRule increments a rule's violate tally.
func (c *Client) ViolateRule(ctx context.Context, id uuid.UUID, note string) (*models.Rule, error) {
	return c.count(ctx, "violate", id, note)
}

func (c *Client) count(ctx context.Context, action string, id uuid.UUID, note string) (*models.Rule, error) {
	var body any
	if note != "" {
		body = map[string]string{"note": note}
	}
	var out models.Rule
	if err := c.do(ctx, action+" rule", http.MethodPost, "/rules/"+id.String()+"/"+action, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Records fetches up to limit follow/violate records, newest first. A
// limit of zero uses the server default.
func (c *Client) Records(ctx context.Context, id uuid.UUID, limit int) ([]models.CountRecord, error) {
	path := "/rules/" + id.String() + "/records"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.CountRecord
	err := c.do(ctx, "fetch records", http.MethodGet, path, nil, &out)
	return out, err
}

// do sends one request and decodes a JSON response into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w: read response: %w", op, ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Op: op, StatusCode: resp.StatusCode}
		var eb struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &eb) == nil {
			se.Message = eb.Error
		}
		return se
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %w", op, ErrRequestFailed, err)
	}
	return nil
}
