package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldlens/internal/blob"
	"fieldlens/internal/config"
	"fieldlens/internal/domain"
	"fieldlens/internal/events"
	"fieldlens/internal/repo"
	"fieldlens/internal/report"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Blobs  blob.Store
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, blobs blob.Store) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Blobs:  blobs,
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowMillis() int64 {
	return e.now().UTC().UnixMilli()
}

// CreateCustomer registers a new customer tenant with a zero issue count.
func (e Engine) CreateCustomer(ctx context.Context, name, actor string) (domain.Customer, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Customer{}, errors.New("name is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Customer{}, err
	}
	defer tx.Rollback()

	c := domain.Customer{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		CreatedDate: e.nowMillis(),
	}
	if err := e.Repo.InsertCustomer(ctx, tx, c); err != nil {
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "customer.created", "customer", c.ID, actor, events.EventPayload{"name": c.Name}); err != nil {
		return domain.Customer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

// IssueCreateOptions are parameters for creating an issue. Screenshots are
// already-uploaded values (see UploadScreenshot) and are persisted in the
// given order.
type IssueCreateOptions struct {
	CustomerID       string
	Title            string
	Category         string
	Status           string
	Model            string
	Workflow         string
	ExecutionLogLink string
	IssueSummary     string
	Fix              string
	Screenshots      []domain.Screenshot
	ReportedBy       string
}

// CreateIssue validates the owning customer exists, persists the issue and
// its screenshots, and increments the customer's denormalized issue count
// by one, all in a single transaction.
func (e Engine) CreateIssue(ctx context.Context, opts IssueCreateOptions) (domain.Issue, error) {
	if opts.CustomerID == "" {
		return domain.Issue{}, errors.New("customer is required")
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Issue{}, errors.New("title is required")
	}
	if opts.Status == "" {
		opts.Status = domain.StatusOpen
	}
	if !domain.ValidStatus(opts.Status) {
		return domain.Issue{}, fmt.Errorf("invalid status %q", opts.Status)
	}
	cust, err := e.Repo.GetCustomer(ctx, opts.CustomerID)
	if err != nil {
		return domain.Issue{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Issue{}, err
	}
	defer tx.Rollback()

	now := e.nowMillis()
	is := domain.Issue{
		ID:               uuid.NewString(),
		CustomerID:       cust.ID,
		CustomerName:     cust.Name,
		Title:            strings.TrimSpace(opts.Title),
		Category:         opts.Category,
		Status:           opts.Status,
		Model:            opts.Model,
		Workflow:         opts.Workflow,
		ExecutionLogLink: opts.ExecutionLogLink,
		IssueSummary:     opts.IssueSummary,
		Fix:              opts.Fix,
		Screenshots:      []domain.Screenshot{},
		DateAdded:        now,
		LastUpdated:      now,
		ReportedBy:       opts.ReportedBy,
	}
	if err := e.Repo.InsertIssue(ctx, tx, is); err != nil {
		return domain.Issue{}, fmt.Errorf("insert issue: %w", err)
	}
	for i, s := range opts.Screenshots {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.URL == "" {
			return domain.Issue{}, fmt.Errorf("screenshot %d has no url", i)
		}
		if s.DateAdded == 0 {
			s.DateAdded = now
		}
		if err := e.Repo.InsertScreenshot(ctx, tx, is.ID, i, s); err != nil {
			return domain.Issue{}, fmt.Errorf("insert screenshot: %w", err)
		}
		is.Screenshots = append(is.Screenshots, s)
	}
	if err := e.Repo.IncrementIssueCount(ctx, tx, cust.ID); err != nil {
		return domain.Issue{}, fmt.Errorf("increment issue count: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "issue.created", "issue", is.ID, opts.ReportedBy, events.EventPayload{
		"customer_id": cust.ID,
		"title":       is.Title,
		"status":      is.Status,
		"screenshots": len(is.Screenshots),
	}); err != nil {
		return domain.Issue{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Issue{}, err
	}
	return is, nil
}

// UploadScreenshot stores the file content through the blob store and
// returns a screenshot value not yet bound to any issue. Binding happens
// when the issue is created, so an abandoned upload never leaves partial
// issue state behind.
func (e Engine) UploadScreenshot(ctx context.Context, customerID, filename, description string, r io.Reader) (domain.Screenshot, error) {
	if e.Blobs == nil {
		return domain.Screenshot{}, errors.New("blob store not configured")
	}
	if _, err := e.Repo.GetCustomer(ctx, customerID); err != nil {
		return domain.Screenshot{}, err
	}
	url, err := e.Blobs.Put(ctx, customerID, filename, r)
	if err != nil {
		return domain.Screenshot{}, fmt.Errorf("store screenshot: %w", err)
	}
	if description == "" {
		description = filename
	}
	return domain.Screenshot{
		ID:          uuid.NewString(),
		URL:         url,
		Description: description,
		DateAdded:   e.nowMillis(),
	}, nil
}

// RegisterUser creates or refreshes a user record keyed by email.
func (e Engine) RegisterUser(ctx context.Context, email, name, role string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, errors.New("email is required")
	}
	if role == "" {
		role = e.Config.Defaults.ReporterRole
	}
	if !domain.ValidRole(role) {
		return domain.User{}, fmt.Errorf("invalid role %q", role)
	}
	if existing, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	u := domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: e.nowMillis(),
	}
	if u.Name == "" {
		u.Name = email
	}
	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "user.registered", "user", u.ID, email, events.EventPayload{"role": u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// CreateAPIKey mints a key for the user and returns the plaintext exactly
// once; only its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, userID, name string) (string, domain.APIKey, error) {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return "", domain.APIKey{}, err
	}
	plain := "flk_" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(plain),
		CreatedAt: e.nowMillis(),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", domain.APIKey{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
		return "", domain.APIKey{}, fmt.Errorf("insert api key: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "apikey.created", "api_key", key.ID, u.Email, nil); err != nil {
		return "", domain.APIKey{}, err
	}
	if err := tx.Commit(); err != nil {
		return "", domain.APIKey{}, err
	}
	return plain, key, nil
}

// Snapshot loads the collection state the report functions consume: issues
// in creation order with screenshots attached in upload order, customers in
// creation order. customerID empty means all customers.
func (e Engine) Snapshot(ctx context.Context, customerID string) (report.Snapshot, error) {
	if customerID == report.All {
		customerID = ""
	}
	issues, err := e.Repo.ListIssues(ctx, customerID)
	if err != nil {
		return report.Snapshot{}, err
	}
	customers, err := e.Repo.ListCustomers(ctx)
	if err != nil {
		return report.Snapshot{}, err
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	return report.Snapshot{Issues: issues, Customers: customers}, nil
}
