package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidField = errors.New("invalid field")

type Account struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLogin           *time.Time
	IsVerified          bool
	InvitedBy           *string
	CreatedAt           time.Time
}

// PublicAccount is the subset of Account that may leave the service.
type PublicAccount struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	LastLogin *time.Time `json:"lastLogin"`
}

func (a Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Username: a.Username, Email: a.Email, LastLogin: a.LastLogin}
}

// Locked reports whether the lockout window is still open at now.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

func (a Account) Validate() error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return fieldErr("account", "id")
	case strings.TrimSpace(a.Username) == "":
		return fieldErr("account", "username")
	case strings.TrimSpace(a.Email) == "":
		return fieldErr("account", "email")
	case a.PasswordHash == "":
		return fieldErr("account", "password_hash")
	case a.FailedLoginAttempts < 0:
		return fieldErr("account", "failed_login_attempts")
	}
	return nil
}

type Invitation struct {
	ID        string
	Code      string
	Email     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	UsedBy    *string
	CreatedBy string
	CreatedAt time.Time
}

// Consumable reports whether the invitation is unused and unexpired at now.
func (i Invitation) Consumable(now time.Time) bool {
	return i.UsedAt == nil && i.ExpiresAt.After(now)
}

func (i Invitation) Validate() error {
	switch {
	case strings.TrimSpace(i.ID) == "":
		return fieldErr("invitation", "id")
	case strings.TrimSpace(i.Code) == "":
		return fieldErr("invitation", "code")
	case strings.TrimSpace(i.Email) == "":
		return fieldErr("invitation", "email")
	case i.ExpiresAt.IsZero():
		return fieldErr("invitation", "expires_at")
	case i.UsedAt != nil && i.UsedBy == nil:
		return fieldErr("invitation", "used_by")
	}
	return nil
}

type Session struct {
	ID          string
	TokenHash   string
	AdminUserID string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Active reports whether the session may authenticate at now.
func (s Session) Active(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

func (s Session) Validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return fieldErr("session", "id")
	case len(s.TokenHash) != 64:
		return fieldErr("session", "token_hash")
	case strings.TrimSpace(s.AdminUserID) == "":
		return fieldErr("session", "admin_user_id")
	case s.ExpiresAt.IsZero():
		return fieldErr("session", "expires_at")
	}
	return nil
}

func fieldErr(row, field string) error {
	return fmt.Errorf("%w: %s.%s", ErrInvalidField, row, field)
}
