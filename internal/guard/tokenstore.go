package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenKey is the key the session token is persisted under.
const TokenKey = "admin_session_token"

// ErrCorruptTokenFile is returned when the token file is not a JSON object.
var ErrCorruptTokenFile = errors.New("corrupt token file")

// TokenStore persists the single client-held session token. Load returns ""
// when nothing is stored.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	return m.Save("")
}

// FileTokenStore keeps the token in a JSON object file, leaving any other
// keys in the file untouched.
type FileTokenStore struct {
	Path string
	mu   sync.Mutex
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

func (f *FileTokenStore) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kv, err := f.read()
	if err != nil {
		return "", err
	}
	return kv[TokenKey], nil
}

func (f *FileTokenStore) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kv, err := f.read()
	if err != nil {
		return err
	}
	kv[TokenKey] = token
	return f.write(kv)
}

// Clear drops the token. A file that cannot be decoded is removed, since no
// token in it can be trusted.
func (f *FileTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kv, err := f.read()
	if errors.Is(err, ErrCorruptTokenFile) {
		if rerr := os.Remove(f.Path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			return rerr
		}
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := kv[TokenKey]; !ok {
		return nil
	}
	delete(kv, TokenKey)
	return f.write(kv)
}

func (f *FileTokenStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	kv := map[string]string{}
	if len(raw) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(raw, &kv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTokenFile, err)
	}
	return kv, nil
}

func (f *FileTokenStore) write(kv map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(kv, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
