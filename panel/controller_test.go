package panel

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moyoez/fileserver-admin/mockserver"
	"github.com/moyoez/fileserver-admin/notify"
	"github.com/moyoez/fileserver-admin/session"
	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/transfer"
	"github.com/moyoez/fileserver-admin/types"
	"github.com/moyoez/fileserver-admin/view"
)

type recorder struct {
	mu   sync.Mutex
	sent []types.Notification
}

func (r *recorder) Broadcast(n *types.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, *n)
}

func (r *recorder) ofType(typ string) []types.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Notification
	for _, n := range r.sent {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	ctrl  *Controller
	srv   *mockserver.Server
	ts    *httptest.Server
	store *session.FileStore
	notes *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := mockserver.New(mockserver.Config{})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	client := transfer.New(transfer.Config{BaseURL: ts.URL, ClientID: mockserver.DefaultClient})
	store := session.NewFileStore(t.TempDir())
	notes := &recorder{}
	ctrl := New(Options{
		Session:     session.NewManager(client, store, nil),
		Files:       client,
		Notifier:    notify.NewNotifier(notes),
		DownloadDir: t.TempDir(),
	})
	return &fixture{ctrl: ctrl, srv: srv, ts: ts, store: store, notes: notes}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if err := f.ctrl.Login(context.Background(), mockserver.DefaultUsername, mockserver.DefaultPassword); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func confirmAll(types.FileRecord) bool { return true }

func textSource(name, content string) UploadSource {
	return UploadSource{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func TestLoginListDeleteLogout(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		f.srv.Seed(mockserver.DefaultClient, name, "", []byte("x"))
	}
	ctx := context.Background()

	f.login(t)
	if got := f.ctrl.State(); got != StateLoggedIn {
		t.Fatalf("state = %s, want %s", got, StateLoggedIn)
	}
	saved, err := f.store.Load()
	if err != nil || saved == "" {
		t.Fatalf("token not persisted: %q, %v", saved, err)
	}

	snap := f.ctrl.Snapshot()
	if len(snap.List.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(snap.List.Rows))
	}
	if !snap.Health.Online || snap.Health.Label != healthOnlineLabel {
		t.Errorf("health = %+v, want online", snap.Health)
	}

	if err := f.ctrl.DeleteFile(ctx, snap.List.Rows[0].FileID, confirmAll); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	snap = f.ctrl.Snapshot()
	if len(snap.List.Rows) != 2 {
		t.Errorf("rows after delete = %d, want 2", len(snap.List.Rows))
	}
	if snap.Banner == nil || snap.Banner.Text != "File deleted" || snap.Banner.Kind != view.KindSuccess {
		t.Errorf("banner = %+v", snap.Banner)
	}
	if len(f.notes.ofType(types.NotifyTypeMessage)) == 0 {
		t.Error("banner was not broadcast")
	}

	if err := f.ctrl.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	snap = f.ctrl.Snapshot()
	if snap.State != StateLoggedOut || len(snap.List.Rows) != 0 || snap.Banner != nil {
		t.Errorf("snapshot after logout = %+v", snap)
	}
	if _, err := os.Stat(f.store.Path()); !os.IsNotExist(err) {
		t.Errorf("token file should be gone, stat error = %v", err)
	}
	if err := f.ctrl.LoadFiles(ctx); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("LoadFiles() after logout = %v, want ErrNotLoggedIn", err)
	}
}

func TestDeclinedConfirmationSendsNoDelete(t *testing.T) {
	f := newFixture(t)
	rec := f.srv.Seed(mockserver.DefaultClient, "keep.txt", "", []byte("x"))
	f.login(t)

	var asked types.FileRecord
	err := f.ctrl.DeleteFile(context.Background(), rec.FileID, func(file types.FileRecord) bool {
		asked = file
		return false
	})
	if !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("DeleteFile() error = %v, want ErrNotConfirmed", err)
	}
	if asked.OriginalName != "keep.txt" {
		t.Errorf("confirm got %+v, want the listed record", asked)
	}
	if n := f.srv.DeleteCalls(); n != 0 {
		t.Errorf("DELETE calls = %d, want 0", n)
	}
	if err := f.ctrl.DeleteFile(context.Background(), rec.FileID, nil); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("nil confirm should decline, got %v", err)
	}
	if len(f.srv.Files(mockserver.DefaultClient)) != 1 {
		t.Error("file should still exist")
	}
}

func TestUploadFilesIsSequential(t *testing.T) {
	f := newFixture(t)
	f.srv.UploadDelay = 30 * time.Millisecond
	f.login(t)

	results, err := f.ctrl.UploadFiles(context.Background(), []UploadSource{
		textSource("one.txt", "first"),
		textSource("two.txt", "second"),
		textSource("three.txt", "third"),
	}, " docs ")
	if err != nil {
		t.Fatalf("UploadFiles() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for _, r := range results {
		if r.Error != "" || r.Record == nil {
			t.Errorf("upload %s failed: %q", r.Name, r.Error)
			continue
		}
		if r.Record.Folder != "docs" {
			t.Errorf("%s folder = %q, want docs", r.Name, r.Record.Folder)
		}
	}
	if n := f.srv.UploadCalls(); n != 3 {
		t.Errorf("upload calls = %d, want 3", n)
	}
	if n := f.srv.MaxConcurrentUploads(); n != 1 {
		t.Errorf("max concurrent uploads = %d, want 1", n)
	}

	snap := f.ctrl.Snapshot()
	if len(snap.List.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(snap.List.Rows))
	}
	if snap.Uploading || snap.Progress != nil {
		t.Error("upload state should be cleared after the batch")
	}
	if snap.Banner == nil || snap.Banner.Text != "three.txt uploaded successfully" {
		t.Errorf("banner = %+v", snap.Banner)
	}
	if len(f.notes.ofType(types.NotifyTypeProgress)) == 0 {
		t.Error("no progress was reported")
	}
}

func TestUploadFallsBackToDefaultFolder(t *testing.T) {
	srv := mockserver.New(mockserver.Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := transfer.New(transfer.Config{BaseURL: ts.URL, ClientID: mockserver.DefaultClient})
	ctrl := New(Options{
		Session:       session.NewManager(client, session.NewFileStore(t.TempDir()), nil),
		Files:         client,
		DefaultFolder: " inbox ",
		SkipHealth:    true,
	})
	if err := ctrl.Login(context.Background(), mockserver.DefaultUsername, mockserver.DefaultPassword); err != nil {
		t.Fatal(err)
	}

	results, err := ctrl.UploadFiles(context.Background(), []UploadSource{textSource("a.txt", "a")}, "  ")
	if err != nil || results[0].Record == nil {
		t.Fatalf("UploadFiles() = %+v, %v", results, err)
	}
	if got := results[0].Record.Folder; got != "inbox" {
		t.Errorf("folder = %q, want inbox", got)
	}

	results, _ = ctrl.UploadFiles(context.Background(), []UploadSource{textSource("b.txt", "b")}, "docs")
	if len(results) != 1 || results[0].Record == nil {
		t.Fatalf("UploadFiles() = %+v", results)
	}
	if got := results[0].Record.Folder; got != "docs" {
		t.Errorf("explicit folder = %q, want docs", got)
	}
}

func TestUploadFailureIsBannered(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	broken := UploadSource{Name: "gone.txt", Open: func() (io.ReadCloser, error) {
		return nil, os.ErrNotExist
	}}
	results, err := f.ctrl.UploadFiles(context.Background(), []UploadSource{broken, textSource("ok.txt", "fine")}, "")
	if err != nil {
		t.Fatalf("UploadFiles() error = %v", err)
	}
	if results[0].Error == "" || results[1].Error != "" {
		t.Errorf("results = %+v", results)
	}
	if n := f.srv.UploadCalls(); n != 1 {
		t.Errorf("upload calls = %d, want 1", n)
	}
}

func TestOfflineHealthDoesNotBlockLogin(t *testing.T) {
	f := newFixture(t)
	f.srv.SetHealthy(false)
	f.login(t)

	snap := f.ctrl.Snapshot()
	if snap.State != StateLoggedIn {
		t.Fatalf("state = %s, want %s", snap.State, StateLoggedIn)
	}
	if snap.Health.Online || snap.Health.Label != healthOfflineLabel || snap.Health.Error == "" {
		t.Errorf("health = %+v, want offline with an error", snap.Health)
	}
	if f.srv.ListCalls() != 1 {
		t.Errorf("list calls = %d, want 1", f.srv.ListCalls())
	}
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		password   string
		want       string
		loginCalls int
	}{
		{"blank username", "   ", "secret", "Please fill in all fields", 0},
		{"blank password", "admin", "", "Please fill in all fields", 0},
		{"wrong password", "admin", "nope", "Invalid username or password", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.ctrl.Login(context.Background(), tt.username, tt.password); err == nil {
				t.Fatal("Login() should fail")
			}
			if n := f.srv.LoginCalls(); n != tt.loginCalls {
				t.Errorf("login calls = %d, want %d", n, tt.loginCalls)
			}
			snap := f.ctrl.Snapshot()
			if snap.State != StateLoggedOut {
				t.Errorf("state = %s, want %s", snap.State, StateLoggedOut)
			}
			if snap.LoginError == nil || snap.LoginError.Text != tt.want {
				t.Errorf("login error = %+v, want %q", snap.LoginError, tt.want)
			}
			if got := f.notes.ofType(types.NotifyTypeLoginError); len(got) != 1 || got[0].Message != tt.want {
				t.Errorf("login error notifications = %+v", got)
			}
		})
	}
}

func TestListErrorReplacesList(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed(mockserver.DefaultClient, "a.txt", "", []byte("x"))
	f.login(t)
	f.ts.Close()

	if err := f.ctrl.LoadFiles(context.Background()); err == nil {
		t.Fatal("LoadFiles() should fail with the server gone")
	}
	list := f.ctrl.Snapshot().List
	if want := "Error: " + transfer.ConnectionErrorMessage; list.Error != want {
		t.Errorf("list error = %q, want %q", list.Error, want)
	}
	if len(list.Rows) != 0 {
		t.Errorf("rows = %d, want none", len(list.Rows))
	}
	if f.ctrl.State() != StateLoggedIn {
		t.Error("a list error must not log the user out")
	}
}

func TestStartRestoresSession(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed(mockserver.DefaultClient, "a.txt", "", []byte("x"))
	token, err := f.srv.IssueToken("admin", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.Save(token); err != nil {
		t.Fatal(err)
	}

	if got := f.ctrl.Start(context.Background()); got != StateLoggedIn {
		t.Fatalf("Start() = %s, want %s", got, StateLoggedIn)
	}
	if f.srv.LoginCalls() != 0 {
		t.Error("a restored session must not log in again")
	}
	if rows := f.ctrl.Snapshot().List.Rows; len(rows) != 1 {
		t.Errorf("rows = %d, want 1", len(rows))
	}
}

func TestStartWithExpiredToken(t *testing.T) {
	f := newFixture(t)
	token, _ := f.srv.IssueToken("admin", time.Now().Add(-time.Minute))
	_ = f.store.Save(token)

	if got := f.ctrl.Start(context.Background()); got != StateLoggedOut {
		t.Fatalf("Start() = %s, want %s", got, StateLoggedOut)
	}
	if f.srv.ListCalls() != 0 {
		t.Error("no list should be loaded while logged out")
	}
}

func TestSearchSurvivesReload(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed(mockserver.DefaultClient, "report.pdf", "", []byte("x"))
	f.srv.Seed(mockserver.DefaultClient, "image.png", "", []byte("x"))
	f.login(t)

	if rows := f.ctrl.Search("rep").VisibleRows(); len(rows) != 1 || rows[0].Name != "report.pdf" {
		t.Fatalf("visible rows = %+v", rows)
	}
	listCalls := f.srv.ListCalls()
	if err := f.ctrl.LoadFiles(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.srv.ListCalls() != listCalls+1 {
		t.Error("LoadFiles should hit the server once")
	}
	snap := f.ctrl.Snapshot()
	if rows := snap.List.VisibleRows(); len(rows) != 1 || snap.SearchTerm != "rep" {
		t.Errorf("search lost after reload: term %q, visible %d", snap.SearchTerm, len(rows))
	}
}

func TestSearchDoesNotFetch(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	before := f.srv.ListCalls()
	f.ctrl.Search("anything")
	if f.srv.ListCalls() != before {
		t.Error("client-side search must not hit the server")
	}
}

func TestSelectFolder(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed(mockserver.DefaultClient, "a.txt", "docs", []byte("x"))
	f.srv.Seed(mockserver.DefaultClient, "b.txt", "pics", []byte("x"))
	f.srv.Seed(mockserver.DefaultClient, "c.txt", "", []byte("x"))
	f.login(t)

	if got := f.ctrl.Snapshot().Folders.Options; len(got) != 2 {
		t.Fatalf("folder options = %v, want [docs pics]", got)
	}
	if err := f.ctrl.SelectFolder(context.Background(), "docs"); err != nil {
		t.Fatal(err)
	}
	snap := f.ctrl.Snapshot()
	if len(snap.List.Rows) != 1 || snap.List.Rows[0].Name != "a.txt" {
		t.Errorf("rows = %+v", snap.List.Rows)
	}
	if snap.Folders.Selected != "docs" {
		t.Errorf("selected = %q, want docs", snap.Folders.Selected)
	}
}

func TestDownloadFile(t *testing.T) {
	f := newFixture(t)
	rec := f.srv.Seed(mockserver.DefaultClient, "notes.txt", "", []byte("hello"))
	f.login(t)

	path, err := f.ctrl.DownloadFile(context.Background(), rec.FileID)
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	if filepath.Base(path) != "notes.txt" {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
	if b := f.ctrl.Snapshot().Banner; b == nil || b.Text != "Downloaded notes.txt" {
		t.Errorf("banner = %+v", b)
	}

	if _, err := f.ctrl.DownloadFile(context.Background(), "missing"); err == nil {
		t.Fatal("download of a missing file should fail")
	}
	if b := f.ctrl.Snapshot().Banner; b == nil || b.Text != "Error downloading: Error downloading file" {
		t.Errorf("banner = %+v", b)
	}
}

func TestViewFileAndInfo(t *testing.T) {
	f := newFixture(t)
	rec := f.srv.Seed(mockserver.DefaultClient, "pic.png", "", []byte("x"))
	f.login(t)

	url, err := f.ctrl.ViewFile(rec.FileID)
	if err != nil {
		t.Fatal(err)
	}
	if url != f.ts.URL+rec.URL {
		t.Errorf("ViewFile() = %s, want %s", url, f.ts.URL+rec.URL)
	}

	if _, err := f.ctrl.ViewFile("https://evil.example/steal"); !errors.Is(err, tool.ErrForeignOrigin) {
		t.Errorf("ViewFile(foreign) error = %v, want ErrForeignOrigin", err)
	}

	info, err := f.ctrl.FileInfo(context.Background(), rec.FileID)
	if err != nil {
		t.Fatal(err)
	}
	if info.OriginalName != "pic.png" || info.Hash == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestSearchServer(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed(mockserver.DefaultClient, "report.pdf", "", []byte("x"))
	f.srv.Seed(mockserver.DefaultClient, "image.png", "", []byte("x"))
	f.login(t)
	f.ctrl.Search("img")

	list, err := f.ctrl.SearchServer(context.Background(), types.SearchRequest{Query: "report"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Rows) != 1 || !list.Rows[0].Visible {
		t.Errorf("rows = %+v", list.Rows)
	}
	if f.ctrl.Snapshot().SearchTerm != "" {
		t.Error("server search should clear the local search term")
	}
	if _, err := f.ctrl.SearchServer(context.Background(), types.SearchRequest{Query: "  "}); err == nil {
		t.Error("blank query should be rejected")
	}
}
