package transfer

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moyoez/fileserver-admin/metrics"
	"github.com/moyoez/fileserver-admin/tool"
)

// Download is an open download stream. Body must be closed by the caller.
type Download struct {
	FileName string
	MimeType string
	Size     int64
	Body     io.ReadCloser
}

// Fetch opens the download stream for fileID. Any non-2xx answer is reported with the
// generic download error, the body is not inspected.
func (c *Client) Fetch(ctx context.Context, fileID string) (dl *Download, err error) {
	defer func(started time.Time) { observe(opDownload, started, err) }(time.Now())

	if fileID == "" {
		return nil, fmt.Errorf("invalid parameters: fileId must not be empty")
	}
	req, err := c.newRequest(ctx, http.MethodGet, tool.BuildDownloadURL(c.baseURL, fileID), nil, opDownload)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)

	resp, err := c.do(req, opDownload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		closeBody(resp)
		return nil, newServerError(opDownload, resp.StatusCode, "")
	}

	name := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fileID
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = tool.DetectMimeType(name)
	}
	return &Download{
		FileName: name,
		MimeType: mimeType,
		Size:     resp.ContentLength,
		Body:     resp.Body,
	}, nil
}

// Download saves fileID into dir and returns the final path. The content is written to a
// transient file first and only renamed once complete; the transient file never survives
// a failure.
func (c *Client) Download(ctx context.Context, fileID, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %v", err)
	}

	dl, err := c.Fetch(ctx, fileID)
	if err != nil {
		return "", err
	}
	defer dl.Body.Close()

	tmp, err := os.CreateTemp(dir, ".fsadmin-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	tmpPath := tmp.Name()
	done := false
	defer func() {
		if !done {
			tmp.Close()
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				tool.DefaultLogger.Warnf("Failed to remove temp file %s: %v", tmpPath, rmErr)
			}
		}
	}()

	written, err := tool.CopyWithContext(ctx, tmp, dl.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if dl.Size > 0 && written != dl.Size {
		return "", fmt.Errorf("%w: short download, got %d of %d bytes", ErrConnection, written, dl.Size)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize temp file: %v", err)
	}

	target := tool.NextAvailablePath(dir, dl.FileName)
	if err := os.Rename(tmpPath, target); err != nil {
		return "", fmt.Errorf("failed to move download into place: %v", err)
	}
	done = true
	metrics.RecordDownloadBytes(written)
	tool.DefaultLogger.Infof("Downloaded %s to %s (%d bytes)", fileID, target, written)
	return target, nil
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" {
		return ""
	}
	// never trust a server-supplied path
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == ".." {
		return ""
	}
	return name
}
