package types

// UploadProgress reports how many bytes of the file payload have left the client.
// Total is -1 when the size is unknown.
type UploadProgress struct {
	FileName string `json:"fileName"`
	Sent     int64  `json:"sent"`
	Total    int64  `json:"total"`
}

// UploadResult is the outcome of one file of a multi-file upload.
type UploadResult struct {
	Name   string      `json:"name"`
	Record *FileRecord `json:"record,omitempty"`
	Error  string      `json:"error,omitempty"`
}
