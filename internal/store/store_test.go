package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"portfolio/internal/auth"
	"portfolio/internal/db"
	"portfolio/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "admin.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplyMigrations(sqdb, filepath.Join("..", "..", "migrations"), "sqlite"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return New(sqdb, "sqlite")
}

func seedAccount(t *testing.T, st *Store, username, email string) models.Account {
	t.Helper()
	a := models.Account{
		ID:           auth.NewAccountID(),
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		IsVerified:   true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := st.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func TestAccountRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, st, "alice", "a@x.com")

	got, err := st.GetAccountByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got.ID != a.ID || !got.IsVerified || got.FailedLoginAttempts != 0 || got.LockedUntil != nil || got.LastLogin != nil {
		t.Fatalf("unexpected account: %+v", got)
	}
	if _, err := st.GetAccountByEmail(ctx, " A@X.com "); err != nil {
		t.Fatalf("get by email should normalize case: %v", err)
	}
	if _, err := st.GetAccountByUsername(ctx, "Alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("username lookup must be exact, got %v", err)
	}
}

func TestCreateAccountConflicts(t *testing.T) {
	st := newTestStore(t)
	seedAccount(t, st, "alice", "a@x.com")

	base := models.Account{ID: auth.NewAccountID(), PasswordHash: "h", CreatedAt: time.Now().UTC()}
	dupUser := base
	dupUser.Username, dupUser.Email = "alice", "other@x.com"
	err := st.CreateAccount(context.Background(), dupUser)
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "username" {
		t.Fatalf("expected username conflict, got %v", err)
	}

	dupEmail := base
	dupEmail.ID = auth.NewAccountID()
	dupEmail.Username, dupEmail.Email = "bob", "a@x.com"
	err = st.CreateAccount(context.Background(), dupEmail)
	if !errors.As(err, &ce) || ce.Field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ConflictError to unwrap to ErrConflict")
	}
}

func TestLoginBookkeeping(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, st, "alice", "a@x.com")

	until := time.Now().UTC().Add(15 * time.Minute).Truncate(time.Microsecond)
	if err := st.RecordFailedLogin(ctx, a.ID, 5, &until); err != nil {
		t.Fatalf("record failed login: %v", err)
	}
	got, _ := st.GetAccountByID(ctx, a.ID)
	if got.FailedLoginAttempts != 5 || got.LockedUntil == nil || !got.LockedUntil.Equal(until) {
		t.Fatalf("unexpected lock state: %+v", got)
	}

	at := time.Now().UTC().Truncate(time.Microsecond)
	if err := st.RecordSuccessfulLogin(ctx, a.ID, at); err != nil {
		t.Fatalf("record successful login: %v", err)
	}
	got, _ = st.GetAccountByID(ctx, a.ID)
	if got.FailedLoginAttempts != 0 || got.LockedUntil != nil || got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("unexpected state after success: %+v", got)
	}
}

func TestInvitationConsumedOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	inv := models.Invitation{Code: "ABC123", Email: "a@x.com", ExpiresAt: now.Add(24 * time.Hour), CreatedBy: "owner", CreatedAt: now}
	if err := st.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	if err := st.CreateInvitation(ctx, inv); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate code conflict, got %v", err)
	}
	got, err := st.GetInvitationByCode(ctx, "ABC123")
	if err != nil {
		t.Fatalf("get invitation: %v", err)
	}
	if !got.Consumable(now) {
		t.Fatalf("expected fresh invitation to be consumable")
	}
	if err := st.ConsumeInvitation(ctx, got.ID, "acc-1", now); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := st.ConsumeInvitation(ctx, got.ID, "acc-2", now); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected second consume to conflict, got %v", err)
	}
	got, _ = st.GetInvitationByCode(ctx, "ABC123")
	if got.UsedAt == nil || got.UsedBy == nil || *got.UsedBy != "acc-1" {
		t.Fatalf("unexpected consumed invitation: %+v", got)
	}
	if _, err := st.GetInvitationByCode(ctx, "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestActiveSessionHonoursExpiry(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, st, "alice", "a@x.com")
	now := time.Now().UTC()

	raw, hash, _ := auth.NewSessionToken()
	sess := models.Session{ID: "s1", TokenHash: hash, AdminUserID: a.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	if err := st.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	gotSess, gotAcc, err := st.GetActiveSession(ctx, auth.HashToken(raw), now)
	if err != nil {
		t.Fatalf("get active session: %v", err)
	}
	if gotSess.ID != "s1" || gotAcc.ID != a.ID || gotAcc.Username != "alice" {
		t.Fatalf("unexpected join result: %+v %+v", gotSess, gotAcc)
	}
	if _, _, err := st.GetActiveSession(ctx, hash, now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be excluded, got %v", err)
	}

	if err := st.DeleteSession(ctx, hash); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, _, err := st.GetActiveSession(ctx, hash, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
}

func TestMultipleSessionsPerAccount(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, st, "alice", "a@x.com")
	now := time.Now().UTC()
	var hashes []string
	for _, id := range []string{"s1", "s2"} {
		_, hash, _ := auth.NewSessionToken()
		hashes = append(hashes, hash)
		if err := st.CreateSession(ctx, models.Session{ID: id, TokenHash: hash, AdminUserID: a.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}); err != nil {
			t.Fatalf("create session %s: %v", id, err)
		}
	}
	for _, h := range hashes {
		if _, _, err := st.GetActiveSession(ctx, h, now); err != nil {
			t.Fatalf("expected concurrent sessions to be valid: %v", err)
		}
	}
}

func TestMalformedRowIsRejected(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()
	if _, err := st.db.Exec(`INSERT INTO admin_users(id,username,email,password_hash,failed_login_attempts,is_verified,created_at) VALUES(?,?,?,?,?,?,?)`,
		"u1", "mallory", "m@x.com", "", 0, 1, now); err != nil {
		t.Fatalf("seed malformed row: %v", err)
	}
	if _, err := st.GetAccountByUsername(context.Background(), "mallory"); !errors.Is(err, ErrInvalidRow) {
		t.Fatalf("expected ErrInvalidRow, got %v", err)
	}
}

func TestPlaceholderRebind(t *testing.T) {
	pg := &Store{driver: "pgx"}
	if got := pg.q(`UPDATE t SET a=?, b=? WHERE id=?`); got != `UPDATE t SET a=$1, b=$2 WHERE id=$3` {
		t.Fatalf("unexpected rebind: %s", got)
	}
	my := &Store{driver: "mysql"}
	if got := my.q(`SELECT 1 WHERE a=?`); got != `SELECT 1 WHERE a=?` {
		t.Fatalf("unexpected rebind for mysql: %s", got)
	}
}
