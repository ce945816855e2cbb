package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/types"
)

// Health calls GET /health. A reachable server answering anything but status "ok"
// is reported as an error too.
func (c *Client) Health(ctx context.Context) (result *types.HealthResponse, err error) {
	defer func(started time.Time) { observe(opHealth, started, err) }(time.Now())

	req, err := c.newRequest(ctx, http.MethodGet, tool.BuildHealthURL(c.baseURL), nil, opHealth)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, opHealth)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read health response: %v", ErrConnection, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(opHealth, resp.StatusCode)
	}
	var health types.HealthResponse
	if err := sonic.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("%w: failed to parse health response: %v", ErrConnection, err)
	}
	if health.Status != "ok" {
		return &health, newServerError(opHealth, resp.StatusCode, fmt.Sprintf("server reports status %q", health.Status))
	}
	return &health, nil
}

// Login sends the credentials to POST /api/login and returns the issued token.
// It does not install the token; the session manager decides what to keep.
func (c *Client) Login(ctx context.Context, username, password string) (token string, err error) {
	defer func(started time.Time) { observe(opLogin, started, err) }(time.Now())

	payload, err := sonic.Marshal(&types.LoginRequest{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login request: %v", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, tool.BuildLoginURL(c.baseURL), bytes.NewReader(payload), opLogin)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, opLogin)
	if err != nil {
		return "", err
	}
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read login response: %v", ErrConnection, err)
	}
	var result types.LoginResponse
	if err := sonic.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: failed to parse login response: %v", ErrConnection, err)
	}
	if !result.Success || result.Token == "" {
		return "", newServerError(opLogin, resp.StatusCode, result.Error)
	}
	tool.DefaultLogger.Debugf("Login succeeded for %s", username)
	return result.Token, nil
}
