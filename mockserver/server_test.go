package mockserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/fileserver-admin/types"
)

func serve(s *Server, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("X-Client-Id", DefaultClient)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestFilesRequireToken(t *testing.T) {
	s := New(Config{})
	w := serve(s, http.MethodGet, "/api/files/list/shared", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var env types.Envelope[any]
	if err := sonic.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Success || env.Error != "Authentication token required" {
		t.Errorf("envelope = %+v", env)
	}

	expired, _ := s.IssueToken("admin", time.Now().Add(-time.Minute))
	if w := serve(s, http.MethodGet, "/api/files/list/shared", expired); w.Code != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", w.Code)
	}
}

func TestUnknownClient(t *testing.T) {
	s := New(Config{})
	token, _ := s.IssueToken("admin", time.Now().Add(time.Hour))
	w := serve(s, http.MethodGet, "/api/files/list/nobody", token)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Invalid client") {
		t.Errorf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestListFiltersByFolder(t *testing.T) {
	s := New(Config{})
	s.Seed(DefaultClient, "a.txt", "my docs", []byte("a"))
	s.Seed(DefaultClient, "b.txt", "", []byte("b"))
	token, _ := s.IssueToken("admin", time.Now().Add(time.Hour))

	w := serve(s, http.MethodGet, "/api/files/list/shared?folder=my_docs", token)
	var env types.Envelope[[]types.FileRecord]
	if err := sonic.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if len(env.Data) != 1 || env.Count != 1 || env.Data[0].OriginalName != "a.txt" {
		t.Errorf("envelope = %+v", env)
	}
	if env.Data[0].URL != "/static/shared/my_docs/"+env.Data[0].FileName {
		t.Errorf("url = %s", env.Data[0].URL)
	}

	w = serve(s, http.MethodGet, env.Data[0].URL, "")
	if w.Code != http.StatusOK || w.Body.String() != "a" {
		t.Errorf("static = %d %q", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := New(Config{})
	if w := serve(s, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("healthy status = %d", w.Code)
	}
	s.SetHealthy(false)
	if w := serve(s, http.MethodGet, "/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := New(Config{AllowedOrigins: []string{"http://panel.local"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/files/list/shared", nil)
	req.Header.Set("Origin", "http://panel.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if s.ListCalls() != 0 {
		t.Error("preflight must not reach the handler")
	}
}
