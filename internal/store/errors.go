package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var uniqueFields = []string{"username", "email", "code", "token_hash"}

// uniqueViolation reports whether err is a unique constraint failure from any
// supported driver and which logical field it hit.
func uniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var detail string
	var sqliteErr *sqlite.Error
	var pgErr *pgconn.PgError
	var myErr *mysql.MySQLError
	switch {
	case errors.As(err, &sqliteErr):
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		case sqlite3.SQLITE_CONSTRAINT:
			// extended codes disabled; fall back to the message
			if !strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed") {
				return "", false
			}
		default:
			return "", false
		}
		detail = after(sqliteErr.Error(), "failed:")
	case errors.As(err, &pgErr):
		if pgErr.Code != "23505" {
			return "", false
		}
		detail = pgErr.ConstraintName
		if detail == "" {
			detail = pgErr.Detail
		}
	case errors.As(err, &myErr):
		if myErr.Number != 1062 {
			return "", false
		}
		detail = after(myErr.Message, "for key")
	default:
		return "", false
	}
	detail = strings.ToLower(detail)
	for _, f := range uniqueFields {
		if strings.Contains(detail, f) {
			return f, true
		}
	}
	return "", true
}

func after(s, marker string) string {
	if i := strings.LastIndex(s, marker); i >= 0 {
		return s[i+len(marker):]
	}
	return s
}
