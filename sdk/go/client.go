package fieldlenssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Fieldlens HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "api/v1",
		Timeout:  10 * time.Second,
	}
}

// Customer represents the API customer model.
type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedDate int64  `json:"createdDate"`
	IssueCount  int    `json:"issueCount"`
}

// Screenshot represents an image attached to an issue.
type Screenshot struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	DateAdded   int64  `json:"dateAdded"`
}

// Issue represents the API issue model.
type Issue struct {
	ID               string       `json:"id"`
	CustomerID       string       `json:"customerId"`
	CustomerName     string       `json:"customerName,omitempty"`
	Title            string       `json:"title"`
	Category         string       `json:"category,omitempty"`
	Status           string       `json:"status"`
	Model            string       `json:"model,omitempty"`
	Workflow         string       `json:"workflow,omitempty"`
	ExecutionLogLink string       `json:"executionLogLink,omitempty"`
	IssueSummary     string       `json:"issueSummary,omitempty"`
	Fix              string       `json:"fix,omitempty"`
	Screenshots      []Screenshot `json:"screenshots"`
	DateAdded        int64        `json:"dateAdded"`
	LastUpdated      int64        `json:"lastUpdated"`
	ReportedBy       string       `json:"reportedBy,omitempty"`
}

// CreateIssueInput carries the fields for CreateIssue.
type CreateIssueInput struct {
	CustomerID       string       `json:"customerId"`
	Title            string       `json:"title"`
	Category         string       `json:"category,omitempty"`
	Status           string       `json:"status,omitempty"`
	Model            string       `json:"model,omitempty"`
	Workflow         string       `json:"workflow,omitempty"`
	ExecutionLogLink string       `json:"executionLogLink,omitempty"`
	IssueSummary     string       `json:"issueSummary,omitempty"`
	Fix              string       `json:"fix,omitempty"`
	Screenshots      []Screenshot `json:"screenshots,omitempty"`
}

// Bucket is a (key, count) tally pair.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary holds the headline issue counts.
type Summary struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

// GalleryItem pairs a screenshot with its owning issue.
type GalleryItem struct {
	Screenshot Screenshot `json:"screenshot"`
	Issue      Issue      `json:"issue"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateCustomer creates a customer.
func (c *Client) CreateCustomer(ctx context.Context, name string) (Customer, error) {
	var resp Customer
	err := c.do(ctx, http.MethodPost, c.apiPath("customers"), map[string]any{"name": name}, &resp)
	return resp, err
}

// Customers lists all customers.
func (c *Client) Customers(ctx context.Context) ([]Customer, error) {
	var resp []Customer
	err := c.do(ctx, http.MethodGet, c.apiPath("customers"), nil, &resp)
	return resp, err
}

// CreateIssue creates an issue.
func (c *Client) CreateIssue(ctx context.Context, in CreateIssueInput) (Issue, error) {
	var resp Issue
	err := c.do(ctx, http.MethodPost, c.apiPath("issues"), in, &resp)
	return resp, err
}

// IssueFilters narrow an Issues listing. Zero values disable a predicate;
// status and category also accept the sentinel "all".
type IssueFilters struct {
	Customer string
	Search   string
	Status   string
	Category string
}

// Issues lists issues matching the filters.
func (c *Client) Issues(ctx context.Context, f IssueFilters) ([]Issue, error) {
	q := url.Values{}
	if f.Customer != "" {
		q.Set("customer", f.Customer)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	endpoint := c.apiPath("issues")
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Issue
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Summary returns the headline counts, optionally scoped to a customer.
func (c *Client) Summary(ctx context.Context, customer string) (Summary, error) {
	endpoint := c.apiPath("reports/summary")
	if customer != "" {
		endpoint += "?customer=" + url.QueryEscape(customer)
	}
	var resp Summary
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Tallies returns grouped buckets for a dimension (category, model, workflow).
func (c *Client) Tallies(ctx context.Context, customer, dimension string) ([]Bucket, error) {
	q := url.Values{"dimension": {dimension}}
	if customer != "" {
		q.Set("customer", customer)
	}
	var resp []Bucket
	err := c.do(ctx, http.MethodGet, c.apiPath("reports/tallies")+"?"+q.Encode(), nil, &resp)
	return resp, err
}

// Timeline returns the per-day buckets.
func (c *Client) Timeline(ctx context.Context, customer string) ([]Bucket, error) {
	endpoint := c.apiPath("reports/timeline")
	if customer != "" {
		endpoint += "?customer=" + url.QueryEscape(customer)
	}
	var resp []Bucket
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// StatusTally returns the three status buckets, zeros included.
func (c *Client) StatusTally(ctx context.Context, customer string) ([]Bucket, error) {
	endpoint := c.apiPath("reports/status")
	if customer != "" {
		endpoint += "?customer=" + url.QueryEscape(customer)
	}
	var resp []Bucket
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Categories returns distinct non-empty categories in first-seen order.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var resp []string
	err := c.do(ctx, http.MethodGet, c.apiPath("reports/categories"), nil, &resp)
	return resp, err
}

// Event is one audit log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         int64  `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Actor      string `json:"actor,omitempty"`
	Payload    string `json:"payload_json"`
}

// Events returns recent audit events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := c.apiPath("events")
	if limit > 0 {
		endpoint += fmt.Sprintf("?limit=%d", limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// User is the API user model.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// DevLogin exchanges an email for a bearer token and stores it on the client.
func (c *Client) DevLogin(ctx context.Context, email string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, c.apiPath("auth/dev/login"), map[string]any{"email": email}, &resp)
	if err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// Gallery returns screenshots paired with their issues.
func (c *Client) Gallery(ctx context.Context, customer, issue string) ([]GalleryItem, error) {
	q := url.Values{}
	if customer != "" {
		q.Set("customer", customer)
	}
	if issue != "" {
		q.Set("issue", issue)
	}
	endpoint := c.apiPath("gallery")
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []GalleryItem
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) apiPath(p string) string {
	base := strings.Trim(c.BasePath, "/")
	if base == "" {
		base = "api/v1"
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
