package migrate

import (
	"database/sql"
	"strings"
	"testing"

	"fieldlens/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMigrateCreatesSchema(t *testing.T) {
	conn := openTestDB(t)
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"customers", "issues", "screenshots", "users", "api_keys", "events"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing after migrate: %v", table, err)
		}
	}
}

func TestMigrateRecordsAppliedFiles(t *testing.T) {
	conn := openTestDB(t)
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	names, err := Applied(conn)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected at least one recorded migration")
	}
	if !strings.HasPrefix(names[0], "001_") {
		t.Fatalf("expected first applied migration to be 001_*, got %s", names[0])
	}
	var appliedAt int64
	if err := conn.QueryRow(`SELECT applied_at FROM migrations WHERE name=?`, names[0]).Scan(&appliedAt); err != nil {
		t.Fatalf("read applied_at: %v", err)
	}
	if appliedAt <= 0 {
		t.Fatalf("expected positive applied_at, got %d", appliedAt)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	if err := Migrate(conn); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	first, err := Applied(conn)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	second, err := Applied(conn)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("re-running migrate changed the record count: %d != %d", len(first), len(second))
	}
}
