package guard

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "client.json")
	fs := NewFileTokenStore(path)

	if tok, err := fs.Load(); err != nil || tok != "" {
		t.Fatalf("expected empty token from missing file, got %q %v", tok, err)
	}
	if err := fs.Save("tok-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if tok, _ := NewFileTokenStore(path).Load(); tok != "tok-1" {
		t.Fatalf("expected persisted token, got %q", tok)
	}

	raw, _ := os.ReadFile(path)
	kv := map[string]string{}
	if err := json.Unmarshal(raw, &kv); err != nil || kv[TokenKey] != "tok-1" {
		t.Fatalf("unexpected file content %s (%v)", raw, err)
	}
	if info, err := os.Stat(path); err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 file, got %v %v", info.Mode().Perm(), err)
	}

	if err := fs.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if tok, _ := fs.Load(); tok != "" {
		t.Fatalf("expected cleared token, got %q", tok)
	}
}

func TestFileTokenStoreKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	fs := NewFileTokenStore(path)
	if err := fs.Save("tok"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := fs.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	raw, _ := os.ReadFile(path)
	kv := map[string]string{}
	_ = json.Unmarshal(raw, &kv)
	if kv["theme"] != "dark" {
		t.Fatalf("expected unrelated key to survive, got %s", raw)
	}
	if _, ok := kv[TokenKey]; ok {
		t.Fatalf("expected token key removed")
	}
}

func TestFileTokenStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	_ = os.WriteFile(path, []byte("not json"), 0o600)
	if _, err := NewFileTokenStore(path).Load(); !errors.Is(err, ErrCorruptTokenFile) {
		t.Fatalf("expected ErrCorruptTokenFile, got %v", err)
	}
}

func TestFileTokenStoreClearRemovesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	_ = os.WriteFile(path, []byte("not json"), 0o600)
	fs := NewFileTokenStore(path)

	if err := fs.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected corrupt file removed, stat err=%v", err)
	}
	if tok, err := fs.Load(); err != nil || tok != "" {
		t.Fatalf("expected empty token after clear, got %q %v", tok, err)
	}
}

func TestLogoutWithCorruptFileEndsUnauthenticated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	_ = os.WriteFile(path, []byte("not json"), 0o600)
	sessions := &fakeSessions{}
	g := New(NewFileTokenStore(path), sessions, nil)

	if err := g.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.ended) != 0 {
		t.Fatalf("expected no remote delete without a token, got %v", sessions.ended)
	}
	a, err := g.Restore(context.Background())
	if err != nil || a != nil {
		t.Fatalf("expected unauthenticated after logout, got %+v %v", a, err)
	}
}
