package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/internal/models"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")
var ErrInvalidRow = errors.New("invalid row")

// ConflictError names the unique column a write collided with.
type ConflictError struct {
	Field string
}

func (e ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%v: %s", ErrConflict, e.Field)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

type Store struct {
	db     *sql.DB
	driver string
}

func New(db *sql.DB, driver string) *Store { return &Store{db: db, driver: driver} }

const accountColumns = `id,username,email,password_hash,failed_login_attempts,locked_until,last_login,is_verified,invited_by,created_at`

const invitationColumns = `id,code,email,expires_at,used_at,used_by,created_by,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) CreateAccount(ctx context.Context, a models.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO admin_users(`+accountColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?)`),
		a.ID, a.Username, a.Email, a.PasswordHash, a.FailedLoginAttempts, a.LockedUntil, a.LastLogin, a.IsVerified, a.InvitedBy, a.CreatedAt,
	)
	if field, ok := uniqueViolation(err); ok {
		return ConflictError{Field: field}
	}
	return err
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	return s.getAccount(ctx, "username", username)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.getAccount(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (models.Account, error) {
	return s.getAccount(ctx, "id", id)
}

func (s *Store) getAccount(ctx context.Context, col, value string) (models.Account, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+accountColumns+` FROM admin_users WHERE `+col+`=?`), value)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return models.Account{}, ErrNotFound
	}
	return a, err
}

// scanAccount reads accountColumns after any leading columns in lead.
func scanAccount(row rowScanner, lead ...any) (models.Account, error) {
	var a models.Account
	var lockedUntil, lastLogin sql.NullTime
	var invitedBy sql.NullString
	dest := append(lead, &a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FailedLoginAttempts, &lockedUntil, &lastLogin, &a.IsVerified, &invitedBy, &a.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		return models.Account{}, err
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time.UTC()
		a.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		a.LastLogin = &t
	}
	if invitedBy.Valid {
		v := invitedBy.String
		a.InvitedBy = &v
	}
	a.CreatedAt = a.CreatedAt.UTC()
	if err := a.Validate(); err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
	}
	return a, nil
}

// RecordFailedLogin overwrites the attempt counter and lock. It is a plain
// write of values the caller read earlier, so concurrent failures can lose
// increments.
func (s *Store) RecordFailedLogin(ctx context.Context, accountID string, attempts int, lockedUntil *time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE admin_users SET failed_login_attempts=?, locked_until=? WHERE id=?`), attempts, lockedUntil, accountID)
	return err
}

func (s *Store) RecordSuccessfulLogin(ctx context.Context, accountID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE admin_users SET failed_login_attempts=0, locked_until=NULL, last_login=? WHERE id=?`), at, accountID)
	return err
}

func (s *Store) CreateInvitation(ctx context.Context, inv models.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if err := inv.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO admin_invitations(`+invitationColumns+`) VALUES(?,?,?,?,?,?,?,?)`),
		inv.ID, inv.Code, inv.Email, inv.ExpiresAt, inv.UsedAt, inv.UsedBy, inv.CreatedBy, inv.CreatedAt,
	)
	if field, ok := uniqueViolation(err); ok {
		return ConflictError{Field: field}
	}
	return err
}

func (s *Store) GetInvitationByCode(ctx context.Context, code string) (models.Invitation, error) {
	var inv models.Invitation
	var usedAt sql.NullTime
	var usedBy sql.NullString
	err := s.db.QueryRowContext(ctx, s.q(`SELECT `+invitationColumns+` FROM admin_invitations WHERE code=?`), code).
		Scan(&inv.ID, &inv.Code, &inv.Email, &inv.ExpiresAt, &usedAt, &usedBy, &inv.CreatedBy, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Invitation{}, ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	if usedAt.Valid {
		t := usedAt.Time.UTC()
		inv.UsedAt = &t
	}
	if usedBy.Valid {
		v := usedBy.String
		inv.UsedBy = &v
	}
	if err := inv.Validate(); err != nil {
		return models.Invitation{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
	}
	return inv, nil
}

// ConsumeInvitation marks an unused invitation as used. ErrConflict means
// another registration consumed it first.
func (s *Store) ConsumeInvitation(ctx context.Context, invitationID, accountID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE admin_invitations SET used_at=?, used_by=? WHERE id=? AND used_at IS NULL`), at, accountID, invitationID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO admin_sessions(id,token_hash,admin_user_id,expires_at,created_at) VALUES(?,?,?,?,?)`),
		sess.ID, sess.TokenHash, sess.AdminUserID, sess.ExpiresAt, sess.CreatedAt,
	)
	if field, ok := uniqueViolation(err); ok {
		return ConflictError{Field: field}
	}
	return err
}

// GetActiveSession joins the session to its account and drops rows whose
// expiry is not after now. Expired rows stay in the table.
func (s *Store) GetActiveSession(ctx context.Context, tokenHash string, now time.Time) (models.Session, models.Account, error) {
	var sess models.Session
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT s.id,s.token_hash,s.admin_user_id,s.expires_at,s.created_at,`+prefixed("u", accountColumns)+`
		 FROM admin_sessions s JOIN admin_users u ON u.id = s.admin_user_id
		 WHERE s.token_hash=?`), tokenHash)
	a, err := scanAccount(row, &sess.ID, &sess.TokenHash, &sess.AdminUserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Session{}, models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, models.Account{}, err
	}
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	sess.CreatedAt = sess.CreatedAt.UTC()
	if err := sess.Validate(); err != nil {
		return models.Session{}, models.Account{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
	}
	if !sess.Active(now) {
		return models.Session{}, models.Account{}, ErrNotFound
	}
	return sess, a, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM admin_sessions WHERE token_hash=?`), tokenHash)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// q rewrites ? placeholders for drivers that number them.
func (s *Store) q(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ",")
}
