package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fieldlens/internal/blob"
	"fieldlens/internal/config"
	"fieldlens/internal/db"
	"fieldlens/internal/domain"
	"fieldlens/internal/engine"
	"fieldlens/internal/migrate"
	"fieldlens/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default(), blob.NewMemStore())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func TestCreateCustomer(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.CreateCustomer(env.Ctx, "  Acme Corp  ", "pm@acme.test")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if c.Name != "Acme Corp" {
		t.Fatalf("name = %q", c.Name)
	}
	if c.IssueCount != 0 {
		t.Fatalf("issue count = %d, want 0", c.IssueCount)
	}
	if c.CreatedDate != time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli() {
		t.Fatalf("created date = %d", c.CreatedDate)
	}
	if _, err := env.Engine.CreateCustomer(env.Ctx, "   ", "pm@acme.test"); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestCreateIssueIncrementsIssueCount(t *testing.T) {
	env := newTestEnv(t)
	cust, err := env.Engine.CreateCustomer(env.Ctx, "Acme", "pm@acme.test")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
			CustomerID: cust.ID,
			Title:      "wrong extraction",
			ReportedBy: "fde@acme.test",
		})
		if err != nil {
			t.Fatalf("create issue %d: %v", i, err)
		}
	}
	got, err := env.Engine.Repo.GetCustomer(env.Ctx, cust.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IssueCount != 3 {
		t.Fatalf("issue count = %d, want 3", got.IssueCount)
	}
}

func TestCreateIssueDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	cust, _ := env.Engine.CreateCustomer(env.Ctx, "Acme", "pm@acme.test")

	is, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{CustomerID: cust.ID, Title: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if is.Status != domain.StatusOpen {
		t.Fatalf("status = %q, want Open", is.Status)
	}
	if is.CustomerName != "Acme" {
		t.Fatalf("customer name = %q", is.CustomerName)
	}
	if is.LastUpdated != is.DateAdded {
		t.Fatalf("lastUpdated %d != dateAdded %d", is.LastUpdated, is.DateAdded)
	}

	if _, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{CustomerID: cust.ID, Title: "t", Status: "Closed"}); err == nil {
		t.Fatal("expected error for invalid status")
	}
	if _, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{CustomerID: cust.ID}); err == nil {
		t.Fatal("expected error for missing title")
	}
	_, err = env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{CustomerID: "nope", Title: "t"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateIssuePreservesScreenshotOrder(t *testing.T) {
	env := newTestEnv(t)
	cust, _ := env.Engine.CreateCustomer(env.Ctx, "Acme", "pm@acme.test")

	shots := []domain.Screenshot{
		{URL: "mem://a", Description: "first"},
		{URL: "mem://b", Description: "second"},
		{URL: "mem://c", Description: "third"},
	}
	is, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{
		CustomerID:  cust.ID,
		Title:       "with shots",
		Screenshots: shots,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := env.Engine.Repo.GetIssue(env.Ctx, is.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Screenshots) != 3 {
		t.Fatalf("screenshots = %d, want 3", len(got.Screenshots))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got.Screenshots[i].Description != want {
			t.Fatalf("screenshot %d = %q, want %q", i, got.Screenshots[i].Description, want)
		}
	}
}

func TestUploadScreenshot(t *testing.T) {
	env := newTestEnv(t)
	cust, _ := env.Engine.CreateCustomer(env.Ctx, "Acme", "pm@acme.test")

	s, err := env.Engine.UploadScreenshot(env.Ctx, cust.ID, "trace.png", "", strings.NewReader("pixels"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Description != "trace.png" {
		t.Fatalf("description = %q, want filename default", s.Description)
	}
	if !strings.HasPrefix(s.URL, "mem://") {
		t.Fatalf("url = %q", s.URL)
	}
	if _, err := env.Engine.UploadScreenshot(env.Ctx, "missing", "a.png", "", strings.NewReader("x")); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegisterUserUpsertByEmail(t *testing.T) {
	env := newTestEnv(t)
	u1, err := env.Engine.RegisterUser(env.Ctx, "PM@Acme.Test", "Pat", "PM")
	if err != nil {
		t.Fatal(err)
	}
	if u1.Email != "pm@acme.test" {
		t.Fatalf("email = %q, want lowercased", u1.Email)
	}
	u2, err := env.Engine.RegisterUser(env.Ctx, "pm@acme.test", "Other Name", "FDE")
	if err != nil {
		t.Fatal(err)
	}
	if u2.ID != u1.ID {
		t.Fatal("expected existing user to be returned")
	}
	if _, err := env.Engine.RegisterUser(env.Ctx, "x@y.test", "X", "ADMIN"); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestCreateAPIKeyStoresHashOnly(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.Engine.RegisterUser(env.Ctx, "fde@acme.test", "Sam", "FDE")
	plain, key, err := env.Engine.CreateAPIKey(env.Ctx, u.ID, "laptop")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(plain, "flk_") {
		t.Fatalf("plaintext key = %q", plain)
	}
	if key.KeyHash != repo.HashAPIKey(plain) {
		t.Fatal("stored hash does not match plaintext key")
	}
	got, err := env.Engine.Repo.GetAPIKeyByHash(env.Ctx, repo.HashAPIKey(plain))
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != u.ID {
		t.Fatalf("user = %q, want %q", got.UserID, u.ID)
	}
}

func TestSnapshotOrdering(t *testing.T) {
	env := newTestEnv(t)
	cust, _ := env.Engine.CreateCustomer(env.Ctx, "Acme", "pm@acme.test")
	other, _ := env.Engine.CreateCustomer(env.Ctx, "Globex", "pm@acme.test")

	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	titles := []string{"first", "second", "third"}
	for i, title := range titles {
		tick := base.Add(time.Duration(i) * time.Hour)
		env.Engine.Now = func() time.Time { return tick }
		owner := cust.ID
		if i == 2 {
			owner = other.ID
		}
		if _, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{CustomerID: owner, Title: title}); err != nil {
			t.Fatal(err)
		}
	}

	snap, err := env.Engine.Snapshot(env.Ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Issues) != 3 || len(snap.Customers) != 2 {
		t.Fatalf("snapshot sizes = %d issues, %d customers", len(snap.Issues), len(snap.Customers))
	}
	for i, want := range titles {
		if snap.Issues[i].Title != want {
			t.Fatalf("issue %d = %q, want %q", i, snap.Issues[i].Title, want)
		}
	}

	scoped, err := env.Engine.Snapshot(env.Ctx, cust.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped.Issues) != 2 {
		t.Fatalf("scoped issues = %d, want 2", len(scoped.Issues))
	}
}

func TestEventsRecordedOnWrites(t *testing.T) {
	env := newTestEnv(t)
	cust, _ := env.Engine.CreateCustomer(env.Ctx, "Acme", "pm@acme.test")
	if _, err := env.Engine.CreateIssue(env.Ctx, engine.IssueCreateOptions{CustomerID: cust.ID, Title: "t", ReportedBy: "fde@acme.test"}); err != nil {
		t.Fatal(err)
	}
	evts, err := env.Engine.Repo.ListEvents(env.Ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 {
		t.Fatalf("events = %d, want 2", len(evts))
	}
	// newest first
	if evts[0].Type != "issue.created" || evts[1].Type != "customer.created" {
		t.Fatalf("event types = %s, %s", evts[0].Type, evts[1].Type)
	}
	if evts[0].Actor != "fde@acme.test" {
		t.Fatalf("actor = %q", evts[0].Actor)
	}
}
