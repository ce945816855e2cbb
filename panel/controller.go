// Package panel is the view controller: it drives the session and file client through
// the LoggedOut/LoggedIn state machine and keeps the rendered state the front-ends read.
package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/moyoez/fileserver-admin/metrics"
	"github.com/moyoez/fileserver-admin/notify"
	"github.com/moyoez/fileserver-admin/session"
	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/transfer"
	"github.com/moyoez/fileserver-admin/types"
	"github.com/moyoez/fileserver-admin/view"
)

var (
	// ErrNotLoggedIn is returned by file operations while logged out.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNotConfirmed is returned by DeleteFile when the user declines.
	ErrNotConfirmed = errors.New("deletion not confirmed")
	// ErrUploadInProgress is returned when an upload batch is already running.
	ErrUploadInProgress = errors.New("an upload is already in progress")
)

const emptyCredentialsMessage = "Please fill in all fields"

// Files is the part of the file server client the controller uses. *transfer.Client implements it.
type Files interface {
	ClientID() string
	Health(ctx context.Context) (*types.HealthResponse, error)
	List(ctx context.Context, folder string) ([]types.FileRecord, error)
	UploadReader(ctx context.Context, name string, content io.Reader, size int64, folder string, progress transfer.ProgressFunc) (*types.FileRecord, error)
	Delete(ctx context.Context, fileID string) error
	Fetch(ctx context.Context, fileID string) (*transfer.Download, error)
	Download(ctx context.Context, fileID, dir string) (string, error)
	ResolveURL(resource string) (string, error)
	Metadata(ctx context.Context, fileID string) (*types.FileRecord, error)
	Search(ctx context.Context, req types.SearchRequest) ([]types.FileRecord, error)
}

// ConfirmFunc asks the user to confirm deleting file. Returning false aborts the delete.
type ConfirmFunc func(file types.FileRecord) bool

// UploadSource is one file picked for upload.
type UploadSource struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// PathSource returns an UploadSource reading the local file at path.
func PathSource(path string) (UploadSource, error) {
	name, size, _, err := tool.GetFileInfoFromPath(path)
	if err != nil {
		return UploadSource{}, err
	}
	return UploadSource{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Options are the controller's dependencies.
type Options struct {
	Session       *session.Manager
	Files         Files
	Notifier      *notify.Notifier // may be nil
	Now           func() time.Time // defaults to time.Now
	DownloadDir   string
	DefaultFolder string // upload folder used when a batch names none
	SkipHealth    bool   // do not check /health when entering LoggedIn
}

// Controller owns the panel state. Methods may be called concurrently; the lock is only
// held around state changes, never across a network call, so when two loads overlap the
// one that finishes last is what stays on screen.
type Controller struct {
	session       *session.Manager
	files         Files
	notifier      *notify.Notifier
	now           func() time.Time
	downloadDir   string
	defaultFolder string
	skipHealth    bool

	banner      *view.Banner
	loginBanner *view.Banner

	mu         sync.Mutex
	state      State
	health     Health
	records    []types.FileRecord
	list       view.ListView
	folders    view.FolderOptions
	searchTerm string
	progress   *types.UploadProgress
	uploading  bool
}

// New creates a controller in the LoggedOut state.
func New(opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}
	return &Controller{
		session:       opts.Session,
		files:         opts.Files,
		notifier:      opts.Notifier,
		now:           opts.Now,
		downloadDir:   opts.DownloadDir,
		defaultFolder: strings.TrimSpace(opts.DefaultFolder),
		skipHealth:    opts.SkipHealth,
		banner:        view.NewBanner(opts.Now),
		loginBanner:   view.NewBanner(opts.Now),
		state:         StateLoggedOut,
		list:          view.RenderList(nil),
	}
}

// Start restores a saved session. With a valid token the panel goes straight to LoggedIn.
func (c *Controller) Start(ctx context.Context) State {
	if _, ok := c.session.Restore(); ok {
		tool.DefaultLogger.Infof("Restored saved session")
		c.enterLoggedIn(ctx)
	}
	return c.State()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Login authenticates and enters LoggedIn. Failures are shown as the login error and returned.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	if err := c.session.Login(ctx, username, password); err != nil {
		msg := transfer.UserMessage(err)
		if errors.Is(err, session.ErrEmptyCredentials) {
			msg = emptyCredentialsMessage
		}
		c.loginBanner.Show(msg, view.KindError)
		c.notifier.LoginError(msg)
		tool.DefaultLogger.Warnf("Login failed: %v", err)
		return err
	}
	c.loginBanner.Dismiss()
	c.enterLoggedIn(ctx)
	return nil
}

// Logout clears the session and all file state and returns to LoggedOut.
func (c *Controller) Logout() error {
	err := c.session.Logout()
	c.mu.Lock()
	c.state = StateLoggedOut
	c.health = Health{}
	c.records = nil
	c.list = view.RenderList(nil)
	c.folders = view.FolderOptions{}
	c.searchTerm = ""
	c.progress = nil
	c.mu.Unlock()
	c.banner.Dismiss()
	metrics.SetListedFiles(0)
	c.notifier.State(string(StateLoggedOut))
	tool.DefaultLogger.Infof("Logged out")
	if err != nil {
		return fmt.Errorf("failed to clear saved session: %w", err)
	}
	return nil
}

func (c *Controller) enterLoggedIn(ctx context.Context) {
	c.mu.Lock()
	c.state = StateLoggedIn
	c.mu.Unlock()
	c.notifier.State(string(StateLoggedIn))
	if !c.skipHealth {
		c.CheckHealth(ctx)
	}
	_ = c.LoadFiles(ctx)
}

// CheckHealth asks the server for /health and records the result as is. It never changes state.
func (c *Controller) CheckHealth(ctx context.Context) Health {
	h := Health{Online: true, Label: healthOnlineLabel, CheckedAt: c.now()}
	resp, err := c.files.Health(ctx)
	if err != nil {
		h.Online = false
		h.Label = healthOfflineLabel
		h.Error = transfer.UserMessage(err)
		tool.DefaultLogger.Warnf("Health check failed: %v", err)
	} else {
		h.Service = resp.Service
		h.Version = resp.Version
	}
	c.mu.Lock()
	c.health = h
	c.mu.Unlock()
	return h
}

// LoadFiles fetches the listing for the selected folder and re-renders it. On failure the
// list is replaced by the error.
func (c *Controller) LoadFiles(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateLoggedIn {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	folder := c.folders.Selected
	c.mu.Unlock()

	records, err := c.files.List(ctx, folder)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoggedIn {
		return ErrNotLoggedIn
	}
	if err != nil {
		c.list = view.ErrorView("Error: " + transfer.UserMessage(err))
		tool.DefaultLogger.Errorf("Failed to load files: %v", err)
		return err
	}
	c.applyRecordsLocked(records)
	return nil
}

// applyRecordsLocked replaces the listing and re-applies the current search term.
func (c *Controller) applyRecordsLocked(records []types.FileRecord) {
	c.records = records
	c.list = view.RenderList(records)
	view.FilterBySearch(c.list.Rows, c.searchTerm)
	c.folders = view.DeriveFolderOptions(records, c.folders.Selected)
	metrics.SetListedFiles(len(records))
}

// SelectFolder changes the folder filter and reloads.
func (c *Controller) SelectFolder(ctx context.Context, folder string) error {
	c.mu.Lock()
	c.folders.Selected = strings.TrimSpace(folder)
	c.mu.Unlock()
	return c.LoadFiles(ctx)
}

// Search hides rows not matching term. It does not contact the server.
func (c *Controller) Search(term string) view.ListView {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchTerm = term
	view.FilterBySearch(c.list.Rows, term)
	return copyList(c.list)
}

// UploadFiles uploads sources one after another into folder (the default folder when
// blank), waiting for each to finish before starting the next. Every success reloads the
// list; every outcome is bannered.
func (c *Controller) UploadFiles(ctx context.Context, sources []UploadSource, folder string) ([]types.UploadResult, error) {
	c.mu.Lock()
	if c.state != StateLoggedIn {
		c.mu.Unlock()
		return nil, ErrNotLoggedIn
	}
	if c.uploading {
		c.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	c.uploading = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.progress = nil
		c.mu.Unlock()
	}()

	folder = strings.TrimSpace(folder)
	if folder == "" {
		folder = c.defaultFolder
	}
	results := make([]types.UploadResult, 0, len(sources))
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			results = append(results, types.UploadResult{Name: src.Name, Error: err.Error()})
			continue
		}
		record, err := c.uploadOne(ctx, src, folder, i, len(sources))
		if err != nil {
			msg := transfer.UserMessage(err)
			c.showMessage("Error: "+msg, view.KindError)
			tool.DefaultLogger.Errorf("Upload of %s failed: %v", src.Name, err)
			results = append(results, types.UploadResult{Name: src.Name, Error: msg})
			continue
		}
		c.showMessage(src.Name+" uploaded successfully", view.KindSuccess)
		results = append(results, types.UploadResult{Name: src.Name, Record: record})
		_ = c.LoadFiles(ctx)
	}
	return results, nil
}

func (c *Controller) uploadOne(ctx context.Context, src UploadSource, folder string, index, total int) (*types.FileRecord, error) {
	if src.Open == nil {
		return nil, fmt.Errorf("invalid upload source %q", src.Name)
	}
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", src.Name, err)
	}
	defer rc.Close()

	progress := func(p types.UploadProgress) {
		c.mu.Lock()
		c.progress = &p
		c.mu.Unlock()
		c.notifier.Progress(p, index, total)
	}
	return c.files.UploadReader(ctx, src.Name, rc, src.Size, folder, progress)
}

// DeleteFile asks confirm and, only if it agrees, deletes the file and reloads the list.
func (c *Controller) DeleteFile(ctx context.Context, fileID string, confirm ConfirmFunc) error {
	if c.State() != StateLoggedIn {
		return ErrNotLoggedIn
	}
	file := c.lookup(fileID)
	if confirm == nil || !confirm(file) {
		return ErrNotConfirmed
	}
	if err := c.files.Delete(ctx, fileID); err != nil {
		c.showMessage("Error deleting: "+transfer.UserMessage(err), view.KindError)
		return err
	}
	c.showMessage("File deleted", view.KindSuccess)
	_ = c.LoadFiles(ctx)
	return nil
}

// DownloadFile saves the file into the download directory and returns its path.
func (c *Controller) DownloadFile(ctx context.Context, fileID string) (string, error) {
	if c.State() != StateLoggedIn {
		return "", ErrNotLoggedIn
	}
	path, err := c.files.Download(ctx, fileID, c.downloadDir)
	if err != nil {
		c.showMessage("Error downloading: "+transfer.UserMessage(err), view.KindError)
		return "", err
	}
	c.showMessage("Downloaded "+filepath.Base(path), view.KindSuccess)
	return path, nil
}

// OpenDownload opens the download stream for callers that forward it themselves.
// The caller closes the body.
func (c *Controller) OpenDownload(ctx context.Context, fileID string) (*transfer.Download, error) {
	if c.State() != StateLoggedIn {
		return nil, ErrNotLoggedIn
	}
	dl, err := c.files.Fetch(ctx, fileID)
	if err != nil {
		c.showMessage("Error downloading: "+transfer.UserMessage(err), view.KindError)
		return nil, err
	}
	return dl, nil
}

// ViewFile resolves a record url (or a file id from the current listing) to the absolute
// URL the front-end navigates to.
func (c *Controller) ViewFile(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("nothing to view")
	}
	if f := c.lookup(ref); f.URL != "" {
		ref = f.URL
	}
	return c.files.ResolveURL(ref)
}

// FileInfo loads the server metadata of one file.
func (c *Controller) FileInfo(ctx context.Context, fileID string) (*types.FileRecord, error) {
	if c.State() != StateLoggedIn {
		return nil, ErrNotLoggedIn
	}
	record, err := c.files.Metadata(ctx, fileID)
	if err != nil {
		c.showMessage("Error: "+transfer.UserMessage(err), view.KindError)
		return nil, err
	}
	return record, nil
}

// SearchServer runs a server-side search and shows its results as the listing.
func (c *Controller) SearchServer(ctx context.Context, req types.SearchRequest) (view.ListView, error) {
	if c.State() != StateLoggedIn {
		return view.ListView{}, ErrNotLoggedIn
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return view.ListView{}, fmt.Errorf("search query must not be empty")
	}
	records, err := c.files.Search(ctx, req)
	if err != nil {
		c.showMessage("Error: "+transfer.UserMessage(err), view.KindError)
		return view.ListView{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchTerm = ""
	c.applyRecordsLocked(records)
	return copyList(c.list), nil
}

// Snapshot returns a copy of the displayed state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		State:      c.state,
		ClientID:   c.files.ClientID(),
		Health:     c.health,
		List:       copyList(c.list),
		Folders:    view.FolderOptions{Options: slices.Clone(c.folders.Options), Selected: c.folders.Selected},
		SearchTerm: c.searchTerm,
		Uploading:  c.uploading,
	}
	if c.progress != nil {
		p := *c.progress
		s.Progress = &p
	}
	c.mu.Unlock()

	if m, ok := c.banner.Current(); ok {
		s.Banner = &m
	}
	if m, ok := c.loginBanner.Current(); ok {
		s.LoginError = &m
	}
	return s
}

// Records returns the current listing as received from the server.
func (c *Controller) Records() []types.FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.records)
}

func (c *Controller) lookup(fileID string) types.FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.records {
		if f.FileID == fileID {
			return f
		}
	}
	return types.FileRecord{FileID: fileID, OriginalName: fileID}
}

func (c *Controller) showMessage(text, kind string) {
	m := c.banner.Show(text, kind)
	c.notifier.Message(m.ID, m.Text, m.Kind)
}

func copyList(v view.ListView) view.ListView {
	v.Rows = slices.Clone(v.Rows)
	if v.Rows == nil {
		v.Rows = []view.Row{}
	}
	return v
}
