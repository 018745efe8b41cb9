package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"testing"

	"fieldlens/internal/blob"
	"fieldlens/internal/config"
	"fieldlens/internal/db"
	"fieldlens/internal/engine"
	"fieldlens/internal/migrate"
	"fieldlens/internal/report"
)

const testBasePath = "/api/v1"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	e := engine.New(conn, cfg, blob.NewMemStore())
	srvCtx, cancelSrv := context.WithCancel(context.Background())
	handler, err := New(srvCtx, Config{
		Engine:   e,
		BasePath: testBasePath,
		Auth:     AuthConfig{JWTSecret: "test-secret"},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			cancelSrv()
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func devLogin(t *testing.T, srv *testServer, email string) map[string]string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+testBasePath+"/auth/dev/login", map[string]any{
		"email": email,
		"name":  "Test User",
		"role":  "FDE",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, data)
	}
	var out struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if out.Token == "" {
		t.Fatal("empty token")
	}
	return map[string]string{"Authorization": "Bearer " + out.Token}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+testBasePath+"/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, data)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+testBasePath+"/customers", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("code = %q", envelope.Error.Code)
	}
}

func TestCustomerIssueReportFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	auth := devLogin(t, srv, "fde@example.test")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+testBasePath+"/customers", map[string]any{"name": "Acme"}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create customer status %d: %s", res.StatusCode, data)
	}
	var cust CustomerResponse
	if err := json.Unmarshal(data, &cust); err != nil {
		t.Fatalf("unmarshal customer: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+testBasePath+"/issues", map[string]any{
		"customerId": cust.ID,
		"title":      "Wrong total extracted",
		"category":   "Extraction",
		"model":      "gpt-4o",
		"screenshots": []map[string]any{
			{"url": "mem://one", "description": "before"},
			{"url": "mem://two", "description": "after"},
		},
	}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create issue status %d: %s", res.StatusCode, data)
	}
	var created IssueResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal issue: %v", err)
	}
	if created.Status != "Open" {
		t.Fatalf("status = %q, want Open", created.Status)
	}
	if created.CustomerName != "Acme" {
		t.Fatalf("customerName = %q", created.CustomerName)
	}
	if created.ReportedBy != "fde@example.test" {
		t.Fatalf("reportedBy = %q", created.ReportedBy)
	}
	if len(created.Screenshots) != 2 || created.Screenshots[0].Description != "before" {
		t.Fatalf("screenshots = %+v", created.Screenshots)
	}

	// issue count incremented on the owning customer
	res, data = doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/customers/"+cust.ID, nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get customer status %d: %s", res.StatusCode, data)
	}
	var got CustomerResponse
	json.Unmarshal(data, &got)
	if got.IssueCount != 1 {
		t.Fatalf("issueCount = %d, want 1", got.IssueCount)
	}

	// filtered list
	res, data = doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/issues?customer="+cust.ID+"&search=TOTAL&status=all", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list issues status %d: %s", res.StatusCode, data)
	}
	var issues []IssueResponse
	if err := json.Unmarshal(data, &issues); err != nil {
		t.Fatalf("unmarshal issues: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != created.ID {
		t.Fatalf("issues = %+v", issues)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/issues?search=nomatch", nil, auth)
	json.Unmarshal(data, &issues)
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %d", len(issues))
	}

	// status report always has three buckets
	res, data = doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/reports/status", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status report %d: %s", res.StatusCode, data)
	}
	var buckets []report.Bucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		t.Fatalf("unmarshal buckets: %v", err)
	}
	if len(buckets) != 3 || buckets[0].Key != "Open" || buckets[0].Count != 1 {
		t.Fatalf("buckets = %+v", buckets)
	}

	// model tally
	res, data = doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/reports/tallies?dimension=model", nil, auth)
	json.Unmarshal(data, &buckets)
	if len(buckets) != 1 || buckets[0].Key != "gpt-4o" {
		t.Fatalf("model tally = %+v", buckets)
	}

	// categories
	res, data = doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/reports/categories", nil, auth)
	var cats []string
	json.Unmarshal(data, &cats)
	if len(cats) != 1 || cats[0] != "Extraction" {
		t.Fatalf("categories = %v", cats)
	}

	// gallery pairs each screenshot with its issue
	res, data = doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/gallery?customer="+cust.ID, nil, auth)
	var items []GalleryItemResponse
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("unmarshal gallery: %v", err)
	}
	if len(items) != 2 || items[0].Issue.ID != created.ID || items[0].Screenshot.Description != "before" {
		t.Fatalf("gallery = %+v", items)
	}
}

func TestCreateIssueUnknownCustomer(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	auth := devLogin(t, srv, "fde@example.test")
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+testBasePath+"/issues", map[string]any{
		"customerId": "missing",
		"title":      "x",
	}, auth)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	auth := devLogin(t, srv, "pm@example.test")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/me", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, data)
	}
	var me UserResponse
	json.Unmarshal(data, &me)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+testBasePath+"/users/"+me.ID+"/keys", map[string]any{"name": "ci"}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create key status %d: %s", res.StatusCode, data)
	}
	var key APIKeyResponse
	json.Unmarshal(data, &key)
	if key.Key == "" {
		t.Fatal("plaintext key missing from create response")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/me", nil, map[string]string{"X-Api-Key": key.Key})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me via api key status %d: %s", res.StatusCode, data)
	}
	var viaKey UserResponse
	json.Unmarshal(data, &viaKey)
	if viaKey.Email != "pm@example.test" {
		t.Fatalf("email = %q", viaKey.Email)
	}
}

func TestScreenshotUploadMultipart(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	auth := devLogin(t, srv, "fde@example.test")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+testBasePath+"/customers", map[string]any{"name": "Acme"}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create customer status %d: %s", res.StatusCode, data)
	}
	var cust CustomerResponse
	json.Unmarshal(data, &cust)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "trace.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("pixels"))
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+testBasePath+"/customers/"+cust.ID+"/screenshots", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", auth["Authorization"])
	uploadRes, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer uploadRes.Body.Close()
	body, _ := io.ReadAll(uploadRes.Body)
	if uploadRes.StatusCode != http.StatusCreated {
		t.Fatalf("upload status %d: %s", uploadRes.StatusCode, body)
	}
	var shot ScreenshotResponse
	if err := json.Unmarshal(body, &shot); err != nil {
		t.Fatalf("unmarshal screenshot: %v", err)
	}
	if shot.URL == "" || shot.Description != "trace.png" {
		t.Fatalf("screenshot = %+v", shot)
	}
}

func TestEventsRecorded(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	auth := devLogin(t, srv, "fde@example.test")

	doJSON(t, client, http.MethodPost, srv.URL+testBasePath+"/customers", map[string]any{"name": "Acme"}, auth)
	res, data := doJSON(t, client, http.MethodGet, srv.URL+testBasePath+"/events?limit=10", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, data)
	}
	var evts []EventResponse
	if err := json.Unmarshal(data, &evts); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(evts) < 2 {
		t.Fatalf("events = %d, want at least customer.created and user.registered", len(evts))
	}
	if evts[0].Type != "customer.created" {
		t.Fatalf("latest event = %q", evts[0].Type)
	}
}
