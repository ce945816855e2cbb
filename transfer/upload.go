package transfer

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/moyoez/fileserver-admin/metrics"
	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/types"
)

// ProgressFunc receives upload byte counts. It is called from the goroutine that
// streams the request body, so it must be safe to call concurrently with the caller.
type ProgressFunc func(types.UploadProgress)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload sends a local file to the upload endpoint, optionally into folder.
func (c *Client) Upload(ctx context.Context, filePath, folder string, progress ProgressFunc) (*types.FileRecord, error) {
	name, size, _, err := tool.GetFileInfoFromPath(filePath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", filePath, err)
	}
	defer f.Close()
	return c.UploadReader(ctx, name, f, size, folder, progress)
}

// UploadReader streams content as the "file" part of a multipart request, adding a
// "folder" field when folder is not blank. size is only used for progress reports;
// pass -1 when unknown.
func (c *Client) UploadReader(ctx context.Context, name string, content io.Reader, size int64, folder string, progress ProgressFunc) (record *types.FileRecord, err error) {
	defer func(started time.Time) { observe(opUpload, started, err) }(time.Now())

	if name == "" {
		return nil, fmt.Errorf("invalid parameters: file name must not be empty")
	}
	if content == nil {
		return nil, fmt.Errorf("invalid parameters: content must not be nil")
	}

	counter := newProgressReader(content, name, size, progress, c.progressInterval)
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeUploadBody(mw, name, counter, strings.TrimSpace(folder))
		if err == nil {
			counter.report(true)
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, tool.BuildUploadURL(c.baseURL), pr, opUpload)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.applyHeaders(req)

	resp, err := c.do(req, opUpload)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	env, err := decodeEnvelope[types.FileRecord](resp.Body, opUpload)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, newServerError(opUpload, resp.StatusCode, env.Error)
	}
	metrics.RecordUploadBytes(counter.Sent())
	tool.DefaultLogger.Infof("Uploaded %s (%d bytes) as %s", name, counter.Sent(), env.Data.FileID)
	return &env.Data, nil
}

func writeUploadBody(mw *multipart.Writer, name string, content io.Reader, folder string) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", tool.DetectMimeType(name))
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create file part: %v", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to stream file content: %v", err)
	}
	if folder != "" {
		if err := mw.WriteField("folder", folder); err != nil {
			return fmt.Errorf("failed to write folder field: %v", err)
		}
	}
	return mw.Close()
}

// progressReader counts the payload bytes read into the request body and reports them,
// at most once per interval, plus a final report once the payload is fully written.
type progressReader struct {
	r       io.Reader
	name    string
	total   int64
	sent    atomic.Int64
	fn      ProgressFunc
	limiter *rate.Limiter
}

func newProgressReader(r io.Reader, name string, total int64, fn ProgressFunc, every time.Duration) *progressReader {
	return &progressReader{
		r:       r,
		name:    name,
		total:   total,
		fn:      fn,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent.Add(int64(n))
		p.report(false)
	}
	return n, err
}

func (p *progressReader) report(final bool) {
	if p.fn == nil {
		return
	}
	if !final && !p.limiter.Allow() {
		return
	}
	sent := p.sent.Load()
	total := p.total
	if final && total < 0 {
		total = sent
	}
	p.fn(types.UploadProgress{FileName: p.name, Sent: sent, Total: total})
}

// Sent returns the number of payload bytes read so far.
func (p *progressReader) Sent() int64 {
	return p.sent.Load()
}
