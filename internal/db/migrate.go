package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func ApplyMigrationFile(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	for _, stmt := range splitStatements(string(b)) {
		if _, err := db.Exec(stmt); err != nil && !isAlreadyExistsErr(err) {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// ApplyMigrations runs every .sql file of the driver's dialect in name order.
func ApplyMigrations(db *sql.DB, dir, driver string) error {
	matches, err := filepath.Glob(filepath.Join(dir, MigrationDialect(driver), "*.sql"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no migrations found in %s", filepath.Join(dir, MigrationDialect(driver)))
	}
	sort.Strings(matches)
	for _, m := range matches {
		if err := ApplyMigrationFile(db, m); err != nil {
			return err
		}
	}
	return nil
}

func splitStatements(src string) []string {
	parts := strings.Split(src, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isAlreadyExistsErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key name")
}
