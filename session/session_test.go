package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moyoez/fileserver-admin/mockserver"
	"github.com/moyoez/fileserver-admin/transfer"
)

// fakeAuth records calls instead of talking to a server.
type fakeAuth struct {
	calls int
	token string
	err   error
	set   string
}

func (f *fakeAuth) Login(context.Context, string, string) (string, error) {
	f.calls++
	return f.token, f.err
}

func (f *fakeAuth) SetAuthToken(token string) { f.set = token }

func TestLoginRejectsBlankCredentialsWithoutCallingServer(t *testing.T) {
	auth := &fakeAuth{token: "x.y.z"}
	m := NewManager(auth, &MemoryStore{}, nil)

	for _, creds := range [][2]string{{"", "secret"}, {"admin", ""}, {"   ", "secret"}, {"admin", "  "}} {
		err := m.Login(context.Background(), creds[0], creds[1])
		if !errors.Is(err, ErrEmptyCredentials) {
			t.Fatalf("Login(%q, %q) error = %v, want ErrEmptyCredentials", creds[0], creds[1], err)
		}
	}
	if auth.calls != 0 {
		t.Errorf("authenticator called %d times, want 0", auth.calls)
	}
	if m.LoggedIn() {
		t.Error("manager should stay logged out")
	}
}

func TestLoginPersistsTokenAndLogoutClearsIt(t *testing.T) {
	srv := mockserver.New(mockserver.Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := transfer.New(transfer.Config{BaseURL: ts.URL, ClientID: "shared"})
	store := NewFileStore(t.TempDir())
	m := NewManager(client, store, nil)

	if err := m.Login(context.Background(), mockserver.DefaultUsername, mockserver.DefaultPassword); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !m.LoggedIn() {
		t.Fatal("expected a session after login")
	}
	if client.AuthToken() != m.Token() {
		t.Error("client bearer token was not updated")
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("token file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
	saved, _ := store.Load()
	if saved != m.Token() {
		t.Errorf("saved token = %q, want %q", saved, m.Token())
	}
	if filepath.Base(store.Path()) != TokenKey {
		t.Errorf("token file name = %s, want %s", filepath.Base(store.Path()), TokenKey)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if m.LoggedIn() || client.AuthToken() != "" {
		t.Error("logout should clear the in-memory token")
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("token file should be removed, stat error = %v", err)
	}
}

func TestLoginFailureKeepsStoreUntouched(t *testing.T) {
	srv := mockserver.New(mockserver.Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := transfer.New(transfer.Config{BaseURL: ts.URL, ClientID: "shared"})
	store := &MemoryStore{}
	_ = store.Save("previous")
	m := NewManager(client, store, nil)

	err := m.Login(context.Background(), "admin", "wrong")
	if err == nil {
		t.Fatal("expected an error for bad credentials")
	}
	if msg := transfer.UserMessage(err); msg != "Invalid username or password" {
		t.Errorf("UserMessage = %q, want the server error", msg)
	}
	if saved, _ := store.Load(); saved != "previous" {
		t.Errorf("store changed to %q on failed login", saved)
	}
}

func TestLoginWithoutTokenUsesDefaultMessage(t *testing.T) {
	m := NewManager(&fakeAuth{err: errors.New("boom")}, &MemoryStore{}, nil)
	if err := m.Login(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected error")
	}
	if m.LoggedIn() {
		t.Error("failed login must not create a session")
	}
}

func TestRestore(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	srv := mockserver.New(mockserver.Config{Now: func() time.Time { return now }})

	valid, err := srv.IssueToken("admin", now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	expired, err := srv.IssueToken("admin", now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("valid token is adopted", func(t *testing.T) {
		auth := &fakeAuth{}
		store := &MemoryStore{}
		_ = store.Save(valid)
		m := NewManager(auth, store, func() time.Time { return now })
		token, ok := m.Restore()
		if !ok || token != valid {
			t.Fatalf("Restore() = %q, %v", token, ok)
		}
		if auth.set != valid {
			t.Error("restored token was not pushed to the client")
		}
	})

	t.Run("expired token is ignored but kept", func(t *testing.T) {
		store := &MemoryStore{}
		_ = store.Save(expired)
		m := NewManager(&fakeAuth{}, store, func() time.Time { return now })
		if _, ok := m.Restore(); ok {
			t.Fatal("expired token must not be restored")
		}
		if saved, _ := store.Load(); saved != expired {
			t.Error("startup validation must not clear the store")
		}
	})

	t.Run("nothing stored", func(t *testing.T) {
		m := NewManager(&fakeAuth{}, NewFileStore(t.TempDir()), nil)
		if _, ok := m.Restore(); ok {
			t.Fatal("Restore() with empty store should report absent")
		}
	})
}
