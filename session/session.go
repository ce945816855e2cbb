// Package session owns the bearer token: restoring it at startup, checking its expiry,
// logging in and out, and persisting it between runs.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/moyoez/fileserver-admin/metrics"
	"github.com/moyoez/fileserver-admin/tool"
)

// ErrEmptyCredentials is returned by Login when username or password is blank.
var ErrEmptyCredentials = errors.New("please enter username and password")

// Authenticator exchanges credentials for a token and carries the token on later calls.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	SetAuthToken(token string)
}

// Manager holds the session token. It is safe for concurrent use.
type Manager struct {
	auth  Authenticator
	store Store
	now   func() time.Time

	mu    sync.RWMutex
	token string
}

// NewManager builds a manager. now may be nil, in which case time.Now is used.
func NewManager(auth Authenticator, store Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	if store == nil {
		store = &MemoryStore{}
	}
	return &Manager{auth: auth, store: store, now: now}
}

// Restore loads the persisted token and adopts it when it has not expired.
// An expired or malformed token is ignored but left in the store.
func (m *Manager) Restore() (string, bool) {
	token, err := m.store.Load()
	if err != nil {
		tool.DefaultLogger.Warnf("Failed to restore session: %v", err)
		return "", false
	}
	if token == "" {
		return "", false
	}
	if !IsValid(token, m.now()) {
		tool.DefaultLogger.Debugf("Stored token is expired or malformed, ignoring it")
		return "", false
	}
	m.setToken(token)
	return token, true
}

// Login validates the credentials, authenticates and persists the token.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return ErrEmptyCredentials
	}
	token, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	m.setToken(token)
	if err := m.store.Save(token); err != nil {
		tool.DefaultLogger.Errorf("Failed to persist session: %v", err)
	}
	tool.DefaultLogger.Infof("Logged in as %s", username)
	return nil
}

// Logout forgets the token in memory and in the store.
func (m *Manager) Logout() error {
	m.setToken("")
	return m.store.Clear()
}

// Token returns the current token, "" when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// LoggedIn reports whether a token is held.
func (m *Manager) LoggedIn() bool {
	return m.Token() != ""
}

func (m *Manager) setToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	m.auth.SetAuthToken(token)
	metrics.SetLoggedIn(token != "")
}
