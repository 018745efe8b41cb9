package repo

import (
	"context"
	"database/sql"
	"errors"

	"fieldlens/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertCustomer(ctx context.Context, tx *sql.Tx, c domain.Customer) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO customers(id,name,created_date,issue_count) VALUES (?,?,?,?)`,
		c.ID, c.Name, c.CreatedDate, c.IssueCount)
	return err
}

func (r Repo) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_date,issue_count FROM customers WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedDate, &c.IssueCount)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_date,issue_count FROM customers ORDER BY created_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedDate, &c.IssueCount); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// IncrementIssueCount bumps the denormalized counter by one. There is no
// corresponding decrement path.
func (r Repo) IncrementIssueCount(ctx context.Context, tx *sql.Tx, customerID string) error {
	res, err := tx.ExecContext(ctx, `UPDATE customers SET issue_count=issue_count+1 WHERE id=?`, customerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertIssue(ctx context.Context, tx *sql.Tx, is domain.Issue) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO issues(id,customer_id,customer_name,title,category,status,model,workflow,execution_log_link,issue_summary,fix,reported_by,date_added,last_updated)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		is.ID, is.CustomerID, is.CustomerName, is.Title, is.Category, is.Status, is.Model, is.Workflow,
		is.ExecutionLogLink, is.IssueSummary, is.Fix, is.ReportedBy, is.DateAdded, is.LastUpdated)
	return err
}

func (r Repo) InsertScreenshot(ctx context.Context, tx *sql.Tx, issueID string, position int, s domain.Screenshot) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO screenshots(id,issue_id,position,url,description,date_added) VALUES (?,?,?,?,?,?)`,
		s.ID, issueID, position, s.URL, s.Description, s.DateAdded)
	return err
}

const issueColumns = `id,customer_id,customer_name,title,category,status,model,workflow,execution_log_link,issue_summary,fix,reported_by,date_added,last_updated`

func scanIssue(rows *sql.Rows) (domain.Issue, error) {
	var is domain.Issue
	err := rows.Scan(&is.ID, &is.CustomerID, &is.CustomerName, &is.Title, &is.Category, &is.Status,
		&is.Model, &is.Workflow, &is.ExecutionLogLink, &is.IssueSummary, &is.Fix, &is.ReportedBy,
		&is.DateAdded, &is.LastUpdated)
	return is, err
}

func (r Repo) GetIssue(ctx context.Context, id string) (domain.Issue, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id=?`, id)
	if err != nil {
		return domain.Issue{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Issue{}, err
		}
		return domain.Issue{}, ErrNotFound
	}
	is, err := scanIssue(rows)
	if err != nil {
		return domain.Issue{}, err
	}
	rows.Close()
	out, err := r.listScreenshots(ctx, is.ID)
	if err != nil {
		return domain.Issue{}, err
	}
	is.Screenshots = out
	return is, nil
}

// ListIssues returns issues in creation order, screenshots attached in
// upload order. customerID empty means all customers; search, status and
// category filtering happen in memory downstream.
func (r Repo) ListIssues(ctx context.Context, customerID string) ([]domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues`
	var args []any
	if customerID != "" {
		query += ` WHERE customer_id=?`
		args = append(args, customerID)
	}
	query += ` ORDER BY date_added ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Issue
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, is)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachScreenshots(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r Repo) listScreenshots(ctx context.Context, issueID string) ([]domain.Screenshot, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,url,description,date_added FROM screenshots WHERE issue_id=? ORDER BY position ASC`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Screenshot{}
	for rows.Next() {
		var s domain.Screenshot
		if err := rows.Scan(&s.ID, &s.URL, &s.Description, &s.DateAdded); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r Repo) attachScreenshots(ctx context.Context, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	byIssue := make(map[string]int, len(issues))
	for i := range issues {
		issues[i].Screenshots = []domain.Screenshot{}
		byIssue[issues[i].ID] = i
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT issue_id,id,url,description,date_added FROM screenshots ORDER BY issue_id, position ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var issueID string
		var s domain.Screenshot
		if err := rows.Scan(&issueID, &s.ID, &s.URL, &s.Description, &s.DateAdded); err != nil {
			return err
		}
		if i, ok := byIssue[issueID]; ok {
			issues[i].Screenshots = append(issues[i].Screenshots, s)
		}
	}
	return rows.Err()
}

// EventsAfter returns up to limit events with id greater than after, oldest
// first. Used by the webhook dispatcher to page through the log.
func (r Repo) EventsAfter(ctx context.Context, limit int, after int64) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,ts,type,entity_kind,entity_id,actor,payload_json FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`,
		after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Actor, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the highest event id, or 0 for an empty log.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM events`).Scan(&id)
	return id, err
}

func (r Repo) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	query := `SELECT id,ts,type,entity_kind,entity_id,actor,payload_json FROM events ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Actor, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
