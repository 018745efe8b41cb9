package domain

// Status values are a closed set: the engine never produces or accepts
// anything outside these three.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
)

const (
	RolePM  = "PM"
	RoleFDE = "FDE"
)

// ValidStatus reports whether s is one of the three fixed status values.
func ValidStatus(s string) bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusResolved
}

// ValidRole reports whether r is a known user role.
func ValidRole(r string) bool {
	return r == RolePM || r == RoleFDE
}

type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedDate int64  `json:"createdDate"`
	// IssueCount is a denormalized counter, incremented by exactly one on
	// each issue created under this customer. It is never recomputed.
	IssueCount int `json:"issueCount"`
}

type Issue struct {
	ID               string       `json:"id"`
	CustomerID       string       `json:"customerId"`
	CustomerName     string       `json:"customerName,omitempty"`
	Title            string       `json:"title"`
	Category         string       `json:"category,omitempty"`
	Status           string       `json:"status" enum:"Open,In Progress,Resolved"`
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

type Screenshot struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	DateAdded   int64  `json:"dateAdded"`
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role" enum:"PM,FDE"`
	CreatedAt int64  `json:"createdAt"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt int64  `json:"created_at"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         int64  `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Actor      string `json:"actor"`
	Payload    string `json:"payload_json"`
}
