package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"portfolio/internal/config"
)

func OpenSQLite(path string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects to the configured backend. pgx and mysql DSNs are passed
// through untouched; mysql needs parseTime=true for timestamp columns.
func Open(cfg config.Config) (*sql.DB, error) {
	switch cfg.DBDriver {
	case "sqlite", "":
		return OpenSQLite(cfg.DBPath, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	case "pgx", "mysql":
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
	if cfg.DBDriver == "mysql" && !strings.Contains(cfg.DBDSN, "parseTime=true") {
		return nil, fmt.Errorf("mysql dsn must set parseTime=true")
	}
	db, err := sql.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MigrationDialect maps a driver name to its migrations subdirectory.
func MigrationDialect(driver string) string {
	switch driver {
	case "pgx":
		return "postgres"
	case "mysql":
		return "mysql"
	}
	return "sqlite"
}
