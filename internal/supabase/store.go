package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/ivalora-gadget/console/internal/account"
)

const keyringService = "ivalora-console"

// SessionStore persists the current session between runs
type SessionStore interface {
	Load() (*account.Session, error)
	Save(session *account.Session) error
	Delete() error
}

// KeyringStore keeps the session in the OS keychain/credential manager
type KeyringStore struct {
	key string
}

// NewKeyringStore returns a store keyed by the project host, so several
// projects can be signed in side by side.
func NewKeyringStore(projectURL string) *KeyringStore {
	host := projectURL
	if u, err := url.Parse(projectURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &KeyringStore{key: fmt.Sprintf("session-%s", host)}
}

// Load returns nil when nothing is stored
func (k *KeyringStore) Load() (*account.Session, error) {
	data, err := keyring.Get(keyringService, k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session account.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to decode stored session: %w", err)
	}
	return &session, nil
}

func (k *KeyringStore) Save(session *account.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := keyring.Set(keyringService, k.key, string(data)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (k *KeyringStore) Delete() error {
	if err := keyring.Delete(keyringService, k.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// MemoryStore keeps the session for the lifetime of the process
type MemoryStore struct {
	mu      sync.Mutex
	session *account.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*account.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone(), nil
}

func (m *MemoryStore) Save(session *account.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session.Clone()
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
