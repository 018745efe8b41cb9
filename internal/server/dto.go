package server

import (
	"fieldlens/internal/domain"
	"fieldlens/internal/engine"
)

// Request payloads

type CreateCustomerRequest struct {
	Name string `json:"name" minLength:"1"`
}

type ScreenshotPayload struct {
	ID          string `json:"id,omitempty"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	DateAdded   int64  `json:"dateAdded,omitempty"`
}

type CreateIssueRequest struct {
	CustomerID       string              `json:"customerId"`
	Title            string              `json:"title" minLength:"1"`
	Category         string              `json:"category,omitempty"`
	Status           string              `json:"status,omitempty" enum:"Open,In Progress,Resolved"`
	Model            string              `json:"model,omitempty"`
	Workflow         string              `json:"workflow,omitempty"`
	ExecutionLogLink string              `json:"executionLogLink,omitempty"`
	IssueSummary     string              `json:"issueSummary,omitempty"`
	Fix              string              `json:"fix,omitempty"`
	Screenshots      []ScreenshotPayload `json:"screenshots,omitempty"`
}

type RegisterUserRequest struct {
	Email string `json:"email" format:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty" enum:"PM,FDE"`
}

type DevLoginRequest struct {
	Email string `json:"email" format:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty" enum:"PM,FDE"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// Response payloads

type CustomerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedDate int64  `json:"createdDate"`
	IssueCount  int    `json:"issueCount"`
}

type ScreenshotResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	DateAdded   int64  `json:"dateAdded"`
}

type IssueResponse struct {
	ID               string               `json:"id"`
	CustomerID       string               `json:"customerId"`
	CustomerName     string               `json:"customerName,omitempty"`
	Title            string               `json:"title"`
	Category         string               `json:"category,omitempty"`
	Status           string               `json:"status" enum:"Open,In Progress,Resolved"`
	Model            string               `json:"model,omitempty"`
	Workflow         string               `json:"workflow,omitempty"`
	ExecutionLogLink string               `json:"executionLogLink,omitempty"`
	IssueSummary     string               `json:"issueSummary,omitempty"`
	Fix              string               `json:"fix,omitempty"`
	Screenshots      []ScreenshotResponse `json:"screenshots"`
	DateAdded        int64                `json:"dateAdded"`
	LastUpdated      int64                `json:"lastUpdated"`
	ReportedBy       string               `json:"reportedBy,omitempty"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role" enum:"PM,FDE"`
	CreatedAt int64  `json:"createdAt"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt int64  `json:"created_at"`
	// Key carries the plaintext exactly once, on creation.
	Key string `json:"key,omitempty"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         int64  `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Actor      string `json:"actor,omitempty"`
	Payload    string `json:"payload_json"`
}

// Conversions

func customerResponse(c domain.Customer) CustomerResponse {
	return CustomerResponse{ID: c.ID, Name: c.Name, CreatedDate: c.CreatedDate, IssueCount: c.IssueCount}
}

func mapCustomers(in []domain.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(in))
	for _, c := range in {
		out = append(out, customerResponse(c))
	}
	return out
}

func screenshotResponse(s domain.Screenshot) ScreenshotResponse {
	return ScreenshotResponse{ID: s.ID, URL: s.URL, Description: s.Description, DateAdded: s.DateAdded}
}

func issueResponse(is domain.Issue) IssueResponse {
	shots := make([]ScreenshotResponse, 0, len(is.Screenshots))
	for _, s := range is.Screenshots {
		shots = append(shots, screenshotResponse(s))
	}
	return IssueResponse{
		ID:               is.ID,
		CustomerID:       is.CustomerID,
		CustomerName:     is.CustomerName,
		Title:            is.Title,
		Category:         is.Category,
		Status:           is.Status,
		Model:            is.Model,
		Workflow:         is.Workflow,
		ExecutionLogLink: is.ExecutionLogLink,
		IssueSummary:     is.IssueSummary,
		Fix:              is.Fix,
		Screenshots:      shots,
		DateAdded:        is.DateAdded,
		LastUpdated:      is.LastUpdated,
		ReportedBy:       is.ReportedBy,
	}
}

func mapIssues(in []domain.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(in))
	for _, is := range in {
		out = append(out, issueResponse(is))
	}
	return out
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{ID: e.ID, TS: e.TS, Type: e.Type, EntityKind: e.EntityKind, EntityID: e.EntityID, Actor: e.Actor, Payload: e.Payload}
}

func mapEvents(in []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(in))
	for _, e := range in {
		out = append(out, eventResponse(e))
	}
	return out
}

func screenshotInputs(in []ScreenshotPayload) []domain.Screenshot {
	out := make([]domain.Screenshot, 0, len(in))
	for _, s := range in {
		out = append(out, domain.Screenshot{ID: s.ID, URL: s.URL, Description: s.Description, DateAdded: s.DateAdded})
	}
	return out
}

func issueCreateOptions(req CreateIssueRequest, reportedBy string) engine.IssueCreateOptions {
	return engine.IssueCreateOptions{
		CustomerID:       req.CustomerID,
		Title:            req.Title,
		Category:         req.Category,
		Status:           req.Status,
		Model:            req.Model,
		Workflow:         req.Workflow,
		ExecutionLogLink: req.ExecutionLogLink,
		IssueSummary:     req.IssueSummary,
		Fix:              req.Fix,
		Screenshots:      screenshotInputs(req.Screenshots),
		ReportedBy:       reportedBy,
	}
}
