package transfer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/types"
)

// List fetches the tenant's files, optionally restricted to one folder.
func (c *Client) List(ctx context.Context, folder string) (files []types.FileRecord, err error) {
	defer func(started time.Time) { observe(opList, started, err) }(time.Now())

	req, err := c.newRequest(ctx, http.MethodGet, tool.BuildListURL(c.baseURL, c.clientID, folder), nil, opList)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)

	resp, err := c.do(req, opList)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	env, err := decodeEnvelope[[]types.FileRecord](resp.Body, opList)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, newServerError(opList, resp.StatusCode, env.Error)
	}
	if env.Data == nil {
		return []types.FileRecord{}, nil
	}
	tool.DefaultLogger.Debugf("Listed %d files for client %s (folder %q)", len(env.Data), c.clientID, folder)
	return env.Data, nil
}

// Delete removes one file. Callers are expected to have asked the user first.
func (c *Client) Delete(ctx context.Context, fileID string) (err error) {
	defer func(started time.Time) { observe(opDelete, started, err) }(time.Now())

	if fileID == "" {
		return fmt.Errorf("invalid parameters: fileID must not be empty")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, tool.BuildDeleteURL(c.baseURL, fileID), nil, opDelete)
	if err != nil {
		return err
	}
	c.applyHeaders(req)

	resp, err := c.do(req, opDelete)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	env, err := decodeEnvelope[any](resp.Body, opDelete)
	if err != nil {
		return err
	}
	if !env.Success {
		return newServerError(opDelete, resp.StatusCode, env.Error)
	}
	tool.DefaultLogger.Infof("Deleted file %s", fileID)
	return nil
}

// Metadata fetches the record of a single file.
func (c *Client) Metadata(ctx context.Context, fileID string) (record *types.FileRecord, err error) {
	defer func(started time.Time) { observe(opMetadata, started, err) }(time.Now())

	if fileID == "" {
		return nil, fmt.Errorf("invalid parameters: fileID must not be empty")
	}
	req, err := c.newRequest(ctx, http.MethodGet, tool.BuildMetadataURL(c.baseURL, fileID), nil, opMetadata)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)

	resp, err := c.do(req, opMetadata)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	env, err := decodeEnvelope[types.FileRecord](resp.Body, opMetadata)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, newServerError(opMetadata, resp.StatusCode, env.Error)
	}
	return &env.Data, nil
}

// Search runs a server-side search over the tenant's files.
func (c *Client) Search(ctx context.Context, request types.SearchRequest) (files []types.FileRecord, err error) {
	defer func(started time.Time) { observe(opSearch, started, err) }(time.Now())

	payload, err := sonic.Marshal(&request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %v", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, tool.BuildSearchURL(c.baseURL, c.clientID), bytes.NewReader(payload), opSearch)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.do(req, opSearch)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	env, err := decodeEnvelope[[]types.FileRecord](resp.Body, opSearch)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, newServerError(opSearch, resp.StatusCode, env.Error)
	}
	if env.Data == nil {
		return []types.FileRecord{}, nil
	}
	return env.Data, nil
}
