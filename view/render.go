// Package view turns file records into display rows and keeps the transient banner.
// Nothing here does I/O; the panel controller feeds it data and reads the result.
package view

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/moyoez/fileserver-admin/types"
)

// TimestampLayout is used for upload times, rendered in local time.
const TimestampLayout = "2006-01-02 15:04:05"

// EmptyPlaceholder is shown instead of rows when a listing is empty.
const EmptyPlaceholder = "No files for this client"

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// Row is one rendered file.
type Row struct {
	FileID     string `json:"fileId"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Size       string `json:"size"`
	SizeBytes  int64  `json:"sizeBytes"`
	MimeType   string `json:"mimeType"`
	UploadedAt string `json:"uploadedAt"`
	Folder     string `json:"folder,omitempty"`
	URL        string `json:"url"`
	Visible    bool   `json:"visible"`
}

// ListView is the rendered file list. Placeholder is set when there are no rows;
// Error replaces the list when loading failed.
type ListView struct {
	Rows        []Row  `json:"rows"`
	Placeholder string `json:"placeholder,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Empty reports whether the view has no rows.
func (v ListView) Empty() bool {
	return len(v.Rows) == 0
}

// VisibleRows returns the rows not hidden by the search filter.
func (v ListView) VisibleRows() []Row {
	out := make([]Row, 0, len(v.Rows))
	for _, r := range v.Rows {
		if r.Visible {
			out = append(out, r)
		}
	}
	return out
}

// RenderList builds one visible row per record, in server order.
func RenderList(files []types.FileRecord) ListView {
	if len(files) == 0 {
		return ListView{Rows: []Row{}, Placeholder: EmptyPlaceholder}
	}
	rows := make([]Row, 0, len(files))
	for _, f := range files {
		rows = append(rows, Row{
			FileID:     f.FileID,
			Name:       f.OriginalName,
			Icon:       FileIcon(f.MimeType),
			Size:       FormatFileSize(f.Size),
			SizeBytes:  f.Size,
			MimeType:   f.MimeType,
			UploadedAt: FormatTimestamp(f.UploadedAt),
			Folder:     f.Folder,
			URL:        f.URL,
			Visible:    true,
		})
	}
	return ListView{Rows: rows}
}

// ErrorView is the list state after a failed load.
func ErrorView(message string) ListView {
	return ListView{Rows: []Row{}, Error: message}
}

// FileIcon maps a MIME type to its icon. Rules are checked in order.
func FileIcon(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "🖼️"
	case mimeType == "application/pdf":
		return "📄"
	case strings.HasPrefix(mimeType, "text/"):
		return "📝"
	case strings.HasPrefix(mimeType, "video/"):
		return "🎬"
	case strings.HasPrefix(mimeType, "audio/"):
		return "🎵"
	default:
		return "📎"
	}
}

// FormatFileSize renders bytes with binary prefixes up to GB, two decimals at most:
// 0 -> "0 B", 1536 -> "1.5 KB", 1048576 -> "1 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	unit := 0
	for n := bytes; n >= 1024 && unit < len(sizeUnits)-1; n /= 1024 {
		unit++
	}
	value := float64(bytes) / math.Pow(1024, float64(unit))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[unit]
}

// FormatTimestamp renders t in local time; the zero time renders as "-".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(TimestampLayout)
}
