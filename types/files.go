package types

import "time"

// FileRecord is the server-side description of a stored file, as returned by the list,
// upload, metadata and search endpoints. It is read-only on the client.
type FileRecord struct {
	FileID       string    `json:"fileId"`
	OriginalName string    `json:"originalName"`
	FileName     string    `json:"fileName,omitempty"`
	Client       string    `json:"client,omitempty"`
	Folder       string    `json:"folder,omitempty"` // empty when the file sits at the tenant root
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	Extension    string    `json:"extension,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
	URL          string    `json:"url"`
	Hash         string    `json:"hash,omitempty"`
}

// SearchRequest is the body of POST /api/files/search/{client}.
type SearchRequest struct {
	Query    string   `json:"query"`
	Types    []string `json:"types,omitempty"`
	MinSize  int64    `json:"minSize,omitempty"`
	MaxSize  int64    `json:"maxSize,omitempty"`
	DateFrom string   `json:"dateFrom,omitempty"`
	DateTo   string   `json:"dateTo,omitempty"`
}
