package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/db"
	"portfolio/internal/models"
	"portfolio/internal/notice"
	"portfolio/internal/store"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingSender struct {
	sent []models.Invitation
}

func (r *recordingSender) SendInvitation(ctx context.Context, inv models.Invitation) error {
	r.sent = append(r.sent, inv)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		SessionTTLHours:   24,
		LockoutThreshold:  5,
		LockoutMinutes:    15,
		PasswordHasher:    "bcrypt",
		BcryptCost:        bcrypt.MinCost,
		PasswordMinLength: 6,
		PasswordMaxLength: 72,
		InviteTTLHours:    7 * 24,
	}
}

type fixture struct {
	svc    *Service
	st     *store.Store
	clock  *testClock
	bus    *notice.Bus
	sender *recordingSender
}

func newFixture(t *testing.T, wrap ...func(Store) Store) *fixture {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "admin.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplyMigrations(sqdb, filepath.Join("..", "..", "migrations"), "sqlite"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	st := store.New(sqdb, "sqlite")
	var backend Store = st
	for _, w := range wrap {
		backend = w(backend)
	}
	f := &fixture{
		st:     st,
		clock:  &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		bus:    notice.NewBus(4),
		sender: &recordingSender{},
	}
	f.svc = New(testConfig(), backend, auth.BcryptHasher{Cost: bcrypt.MinCost}, f.bus,
		WithClock(f.clock.Now), WithSender(f.sender))
	return f
}

func (f *fixture) invite(t *testing.T, code, email string, expiresIn time.Duration) {
	t.Helper()
	now := f.clock.Now()
	inv := models.Invitation{ID: code + "-id", Code: code, Email: email, ExpiresAt: now.Add(expiresIn), CreatedBy: "owner", CreatedAt: now}
	if err := f.st.CreateInvitation(context.Background(), inv); err != nil {
		t.Fatalf("seed invitation: %v", err)
	}
}

func (f *fixture) account(t *testing.T, username, email, password string) models.PublicAccount {
	t.Helper()
	code := "SEED-" + username
	f.invite(t, code, email, time.Hour)
	a, err := f.svc.Register(context.Background(), RegisterInput{InvitationCode: code, Username: username, Email: email, Password: password})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func kindOf(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if e.Kind != kind {
		t.Fatalf("expected kind %v, got %v (%s)", kind, e.Kind, e.Msg)
	}
	if msg != "" && e.Msg != msg {
		t.Fatalf("expected message %q, got %q", msg, e.Msg)
	}
}
