package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fieldlens/internal/engine"
	"fieldlens/internal/report"
	"fieldlens/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Logger   zerolog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"customer not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the fieldlens API.
// New builds the API handler. ctx bounds background work started here, such
// as the webhook dispatcher; cancel it on shutdown.
func New(ctx context.Context, cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(cfg.Logger))
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Fieldlens API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCustomers(group, cfg.Engine)
	registerIssues(group, cfg.Engine)
	registerUploads(router, basePath, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerGallery(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerMe(group, cfg.Engine)
	registerDevAuth(group, cfg.Engine, cfg.Auth)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(ctx, cfg.Engine, cfg.Logger)

	return router, nil
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCustomers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-customer",
		Method:        http.MethodPost,
		Path:          "/customers",
		Summary:       "Create customer",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateCustomerRequest `json:"body"`
	}) (*struct {
		Body CustomerResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateCustomer(ctx, input.Body.Name, principal.Email)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CustomerResponse `json:"body"`
		}{Body: customerResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-customers",
		Method:      http.MethodGet,
		Path:        "/customers",
		Summary:     "List customers",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []CustomerResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListCustomers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CustomerResponse `json:"body"`
		}{Body: mapCustomers(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-customer",
		Method:      http.MethodGet,
		Path:        "/customers/{customer_id}",
		Summary:     "Get customer",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CustomerID string `path:"customer_id"`
	}) (*struct {
		Body CustomerResponse `json:"body"`
	}, error) {
		c, err := e.Repo.GetCustomer(ctx, input.CustomerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CustomerResponse `json:"body"`
		}{Body: customerResponse(c)}, nil
	})
}

func registerIssues(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-issue",
		Method:        http.MethodPost,
		Path:          "/issues",
		Summary:       "Create issue",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateIssueRequest `json:"body"`
	}) (*struct {
		Body IssueResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		is, err := e.CreateIssue(ctx, issueCreateOptions(input.Body, principal.Email))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IssueResponse `json:"body"`
		}{Body: issueResponse(is)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-issues",
		Method:      http.MethodGet,
		Path:        "/issues",
		Summary:     "List issues",
		Description: "Issues in creation order, optionally narrowed by customer, title search, status and category. Search is a case-insensitive substring match; status and category accept the sentinel \"all\".",
	}, func(ctx context.Context, input *struct {
		Customer string `query:"customer" doc:"Customer id, or empty/all for every customer"`
		Search   string `query:"search"`
		Status   string `query:"status"`
		Category string `query:"category"`
	}) (*struct {
		Body []IssueResponse `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx, input.Customer)
		if err != nil {
			return nil, handleError(err)
		}
		issues := report.Filter(snap.Issues, report.Filters{
			Search:   input.Search,
			Status:   input.Status,
			Category: input.Category,
		})
		return &struct {
			Body []IssueResponse `json:"body"`
		}{Body: mapIssues(issues)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-issue",
		Method:      http.MethodGet,
		Path:        "/issues/{issue_id}",
		Summary:     "Get issue",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		IssueID string `path:"issue_id"`
	}) (*struct {
		Body IssueResponse `json:"body"`
	}, error) {
		is, err := e.Repo.GetIssue(ctx, input.IssueID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IssueResponse `json:"body"`
		}{Body: issueResponse(is)}, nil
	})
}

// registerUploads wires the multipart screenshot upload as a raw chi route;
// the response is the screenshot value to embed in a subsequent issue
// creation. maxUploadBytes bounds a single file.
const maxUploadBytes = 16 << 20

func registerUploads(router chi.Router, basePath string, e engine.Engine) {
	router.Post(path.Join(basePath, "customers/{customer_id}/screenshots"), func(w http.ResponseWriter, r *http.Request) {
		customerID := chi.URLParam(r, "customer_id")
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "multipart form required", nil))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "file field required", nil))
			return
		}
		defer file.Close()
		s, err := e.UploadScreenshot(r.Context(), customerID, header.Filename, r.FormValue("description"), io.LimitReader(file, maxUploadBytes))
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(screenshotResponse(s))
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "report-summary",
		Method:      http.MethodGet,
		Path:        "/reports/summary",
		Summary:     "Headline issue counts",
	}, func(ctx context.Context, input *struct {
		Customer string `query:"customer"`
	}) (*struct {
		Body report.Summary `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx, input.Customer)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body report.Summary `json:"body"`
		}{Body: report.Summarize(snap.Issues)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-tallies",
		Method:      http.MethodGet,
		Path:        "/reports/tallies",
		Summary:     "Grouped issue tallies",
		Description: "Buckets in first-seen order; absent categories fall back to Uncategorized, absent models and workflows to Unknown.",
	}, func(ctx context.Context, input *struct {
		Customer  string `query:"customer"`
		Dimension string `query:"dimension" enum:"category,model,workflow" default:"category"`
	}) (*struct {
		Body []report.Bucket `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx, input.Customer)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []report.Bucket `json:"body"`
		}{Body: report.Tally(snap.Issues, report.Dimension(input.Dimension))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-status",
		Method:      http.MethodGet,
		Path:        "/reports/status",
		Summary:     "Issue counts per status",
		Description: "Always returns the three fixed buckets Open, In Progress and Resolved, zeros included.",
	}, func(ctx context.Context, input *struct {
		Customer string `query:"customer"`
	}) (*struct {
		Body []report.Bucket `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx, input.Customer)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []report.Bucket `json:"body"`
		}{Body: report.StatusTally(snap.Issues)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-timeline",
		Method:      http.MethodGet,
		Path:        "/reports/timeline",
		Summary:     "Issues per day",
		Description: "Day buckets in first-seen order, truncated to the last 10 positions.",
	}, func(ctx context.Context, input *struct {
		Customer string `query:"customer"`
	}) (*struct {
		Body []report.Bucket `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx, input.Customer)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []report.Bucket `json:"body"`
		}{Body: report.Timeline(snap.Issues)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-categories",
		Method:      http.MethodGet,
		Path:        "/reports/categories",
		Summary:     "Distinct issue categories",
		Description: "Distinct non-empty categories across all issues in first-seen order, for the category filter control.",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []string `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx, "")
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []string `json:"body"`
		}{Body: report.Categories(snap.Issues)}, nil
	})
}

type GalleryItemResponse struct {
	Screenshot ScreenshotResponse `json:"screenshot"`
	Issue      IssueResponse      `json:"issue"`
}

func registerGallery(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "gallery",
		Method:      http.MethodGet,
		Path:        "/gallery",
		Summary:     "Flattened screenshot gallery",
		Description: "One entry per screenshot, paired with its owning issue, in issue order then attachment order.",
	}, func(ctx context.Context, input *struct {
		Customer string `query:"customer"`
		Issue    string `query:"issue" doc:"Related issue id, or empty/all"`
	}) (*struct {
		Body []GalleryItemResponse `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx, input.Customer)
		if err != nil {
			return nil, handleError(err)
		}
		items := report.Gallery(snap.Issues, input.Issue)
		out := make([]GalleryItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, GalleryItemResponse{
				Screenshot: screenshotResponse(item.Screenshot),
				Issue:      issueResponse(item.Issue),
			})
		}
		return &struct {
			Body []GalleryItemResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "gallery-issues",
		Method:      http.MethodGet,
		Path:        "/gallery/issues",
		Summary:     "Issues for the related-issue filter",
		Description: "Each issue exactly once, in order of first occurrence.",
	}, func(ctx context.Context, input *struct {
		Customer string `query:"customer"`
	}) (*struct {
		Body []IssueResponse `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx, input.Customer)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []IssueResponse `json:"body"`
		}{Body: mapIssues(report.GalleryIssues(snap.Issues))}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Register user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body RegisterUserRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		u, err := e.RegisterUser(ctx, input.Body.Email, input.Body.Name, input.Body.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/users/{user_id}/keys",
		Summary:       "Create API key",
		Description:   "The plaintext key is returned once and never stored.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		UserID string              `path:"user_id"`
		Body   CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		plain, key, err := e.CreateAPIKey(ctx, input.UserID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: APIKeyResponse{
			ID:        key.ID,
			UserID:    key.UserID,
			Name:      key.Name,
			CreatedAt: key.CreatedAt,
			Key:       plain,
		}}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Authenticated user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Repo.GetUserByEmail(ctx, principal.Email)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// Token without a user row (e.g. api key for a deleted
				// user never happens; jwt minted elsewhere can).
				return &struct {
					Body UserResponse `json:"body"`
				}{Body: UserResponse{ID: principal.UserID, Email: principal.Email, Role: principal.Role}}, nil
			}
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})
}

func registerDevAuth(api huma.API, e engine.Engine, auth AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "Mint a development token",
		Description: "Registers the user if needed and returns a signed bearer token. Stands in for the external identity provider.",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body struct {
			Token string       `json:"token"`
			User  UserResponse `json:"user"`
		} `json:"body"`
	}, error) {
		u, err := e.RegisterUser(ctx, input.Body.Email, input.Body.Name, input.Body.Role)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := signDevToken(u.ID, u.Email, u.Role, auth.JWTSecret, auth.TokenTTL)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		out := &struct {
			Body struct {
				Token string       `json:"token"`
				User  UserResponse `json:"user"`
			} `json:"body"`
		}{}
		out.Body.Token = token
		out.Body.User = userResponse(u)
		return out, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit events",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0" maximum:"500"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListEvents(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(items)}, nil
	})
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	open := map[string]bool{
		"/" + strings.TrimPrefix(path.Join(basePath, "health"), "/"):         true,
		"/" + strings.TrimPrefix(path.Join(basePath, "auth/dev/login"), "/"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Fieldlens API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}
