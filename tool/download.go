package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NextAvailablePath picks where a download named fileName lands in dir without replacing
// an earlier one: report.pdf, then report-2.pdf, report-3.pdf and so on.
func NextAvailablePath(dir, fileName string) string {
	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(filepath.Base(fileName), ext)
	if stem == "" {
		// dotfiles such as ".env" keep their whole name as the stem
		stem, ext = fileName, ""
	}
	name := fileName
	for n := 2; exists(filepath.Join(dir, name)); n++ {
		name = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
	return filepath.Join(dir, name)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CopyWithContext streams a download body into dst and stops with ctx.Err() once the
// transfer is cancelled.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.CopyBuffer(dst, ctxReader{ctx: ctx, r: src}, make([]byte, 256*1024))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
