// Package transfer is the HTTP client of the file server API: session login, health,
// and the tenant-scoped file operations (list, upload, delete, download, metadata, search).
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/fileserver-admin/metrics"
	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/types"
)

const (
	HeaderClientID      = "X-Client-Id"
	HeaderAuthorization = "Authorization"
)

// operation names, used in errors and metrics labels
const (
	opHealth   = "health"
	opLogin    = "login"
	opList     = "list"
	opUpload   = "upload"
	opDelete   = "delete"
	opDownload = "download"
	opMetadata = "metadata"
	opSearch   = "search"
)

// Config holds client configuration.
type Config struct {
	BaseURL    string // e.g. http://localhost:3000, without /api
	ClientID   string
	HTTPClient *http.Client
	// ProgressInterval bounds how often upload progress is reported. Zero means 100ms.
	ProgressInterval time.Duration
}

// Client talks to the file server on behalf of one tenant.
type Client struct {
	baseURL          string
	clientID         string
	httpClient       *http.Client
	progressInterval time.Duration

	mu        sync.RWMutex
	authToken string
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = tool.NewHTTPClient(0)
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 100 * time.Millisecond
	}
	return &Client{
		baseURL:          cfg.BaseURL,
		clientID:         cfg.ClientID,
		httpClient:       cfg.HTTPClient,
		progressInterval: cfg.ProgressInterval,
	}
}

// ClientID returns the tenant the client is scoped to.
func (c *Client) ClientID() string {
	return c.clientID
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAuthToken sets the bearer token sent with file operations.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

// AuthToken returns the current bearer token.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// applyHeaders adds the tenant header and, when a token is set, the bearer header.
func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set(HeaderClientID, c.clientID)
	if token := c.AuthToken(); token != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	}
}

// ResolveURL turns a record url into an absolute URL on the server origin.
func (c *Client) ResolveURL(resource string) (string, error) {
	return tool.ResolveResourceURL(c.baseURL, resource)
}

func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s cancelled: %w", op, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s request failed: %v", ErrConnection, op, err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader, op string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %v", op, err)
	}
	return req, nil
}

// decodeEnvelope reads the whole body and parses it as an API envelope. Anything that
// is not JSON counts as a connection problem, not as a server-reported error.
func decodeEnvelope[T any](body io.Reader, op string) (*types.Envelope[T], error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s response: %v", ErrConnection, op, err)
	}
	var env types.Envelope[T]
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s response: %v", ErrConnection, op, err)
	}
	return &env, nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
	}
}

func observe(op string, started time.Time, err error) {
	outcome := metrics.OutcomeOK
	var se *ServerError
	switch {
	case err == nil:
	case errors.As(err, &se):
		outcome = metrics.OutcomeServerError
	default:
		outcome = metrics.OutcomeConnection
	}
	metrics.RecordAPICall(op, outcome, started)
}
