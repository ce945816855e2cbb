// Package mockserver is an in-memory stand-in for the file server API. It serves the same
// routes, envelopes, tenant checks and bearer token checks, and counts calls so tests can
// assert on how a client behaves.
package mockserver

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/moyoez/fileserver-admin/types"
)

// Tenant is the per-client policy.
type Tenant struct {
	RequiresAuth bool
	MaxFileSize  int64
	AllowedTypes []string // "*/*", "image/*" or exact types
}

// Config configures a Server. Zero fields get the defaults below.
type Config struct {
	Username      string
	Password      string
	Secret        string
	DefaultClient string
	Tenants       map[string]Tenant
	TokenTTL      time.Duration
	Now           func() time.Time

	// AllowedOrigins are the CORS origins; empty allows any.
	AllowedOrigins []string
}

const (
	DefaultUsername = "admin"
	DefaultPassword = "admin123"
	DefaultSecret   = "mock-secret"
	DefaultClient   = "shared"
)

// Server implements http.Handler.
type Server struct {
	cfg     Config
	router  *mux.Router
	handler http.Handler

	// UploadDelay holds every upload handler open for the given time before storing.
	UploadDelay time.Duration

	mu      sync.RWMutex
	files   map[string][]*storedFile // by client, in upload order
	healthy bool

	uploadCalls    atomic.Int64
	uploadInFlight atomic.Int64
	uploadMax      atomic.Int64
	deleteCalls    atomic.Int64
	listCalls      atomic.Int64
	loginCalls     atomic.Int64
	lastHeaders    atomic.Pointer[http.Header]
}

type storedFile struct {
	meta    types.FileRecord
	content []byte
}

// New creates a server. Without tenants it serves a single "shared" tenant that requires auth.
func New(cfg Config) *Server {
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}
	if cfg.Password == "" {
		cfg.Password = DefaultPassword
	}
	if cfg.Secret == "" {
		cfg.Secret = DefaultSecret
	}
	if cfg.DefaultClient == "" {
		cfg.DefaultClient = DefaultClient
	}
	if len(cfg.Tenants) == 0 {
		cfg.Tenants = map[string]Tenant{
			DefaultClient: {RequiresAuth: true, MaxFileSize: 10 << 20, AllowedTypes: []string{"*/*"}},
		}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		cfg:     cfg,
		files:   make(map[string][]*storedFile),
		healthy: true,
	}
	s.router = s.routes()
	s.handler = handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Client-Id"}),
	)(s.router)
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recordHeaders)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/static/{client}/{path:.+}", s.handleStatic).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	files := api.PathPrefix("/files").Subrouter()
	files.Use(s.clientValidation, s.jwtAuth)
	files.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	files.HandleFunc("/download/{fileId}", s.handleDownload).Methods(http.MethodGet)
	files.HandleFunc("/list/{client}", s.handleList).Methods(http.MethodGet)
	files.HandleFunc("/metadata/{fileId}", s.handleMetadata).Methods(http.MethodGet)
	files.HandleFunc("/search/{client}", s.handleSearch).Methods(http.MethodPost)
	files.HandleFunc("/{fileId}", s.handleDelete).Methods(http.MethodDelete)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// SetHealthy switches /health between ok and a 503.
func (s *Server) SetHealthy(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = ok
}

// UploadCalls is the number of upload requests received.
func (s *Server) UploadCalls() int { return int(s.uploadCalls.Load()) }

// MaxConcurrentUploads is the highest number of uploads seen in flight at once.
func (s *Server) MaxConcurrentUploads() int { return int(s.uploadMax.Load()) }

// DeleteCalls is the number of delete requests received.
func (s *Server) DeleteCalls() int { return int(s.deleteCalls.Load()) }

// ListCalls is the number of list requests received.
func (s *Server) ListCalls() int { return int(s.listCalls.Load()) }

// LoginCalls is the number of login requests received.
func (s *Server) LoginCalls() int { return int(s.loginCalls.Load()) }

// LastHeaders returns the headers of the most recent request.
func (s *Server) LastHeaders() http.Header {
	if h := s.lastHeaders.Load(); h != nil {
		return h.Clone()
	}
	return http.Header{}
}

// Files returns the stored records of client in upload order.
func (s *Server) Files(client string) []types.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.FileRecord, 0, len(s.files[client]))
	for _, f := range s.files[client] {
		out = append(out, f.meta)
	}
	return out
}

func (s *Server) recordHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Clone()
		s.lastHeaders.Store(&h)
		next.ServeHTTP(w, r)
	})
}
