package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded sql/*.sql files in lexical order, each at most
// once. Applied files are recorded by name in the migrations table, so a
// database created by an older binary picks up only what it is missing. All
// pending migrations run in a single transaction.
func Migrate(db *sql.DB) error {
	pending, err := readMigrations()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS migrations(
	name TEXT PRIMARY KEY,
	applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("migrate: create bookkeeping table: %w", err)
	}
	applied, err := appliedSet(tx)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if _, ok := applied[m.name]; ok {
			continue
		}
		if _, err := tx.Exec(m.sql); err != nil {
			return fmt.Errorf("migrate: apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO migrations(name, applied_at) VALUES (?,?)`,
			m.name, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("migrate: record %s: %w", m.name, err)
		}
	}
	return tx.Commit()
}

// Applied returns the names of migrations already recorded, in applied order.
func Applied(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM migrations ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("migrate: read bookkeeping table: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type migration struct {
	name string
	sql  string
}

func readMigrations() ([]migration, error) {
	files, err := fs.ReadDir(migrationsFS, "sql")
	if err != nil {
		return nil, err
	}
	out := make([]migration, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := migrationsFS.ReadFile("sql/" + f.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, migration{name: f.Name(), sql: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

func appliedSet(tx *sql.Tx) (map[string]struct{}, error) {
	rows, err := tx.Query(`SELECT name FROM migrations`)
	if err != nil {
		return nil, fmt.Errorf("migrate: read bookkeeping table: %w", err)
	}
	defer rows.Close()
	set := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[name] = struct{}{}
	}
	return set, rows.Err()
}
