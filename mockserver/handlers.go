package mockserver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/types"
)

const maxFolderLen = 50

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message, "code": status})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	healthy := s.healthy
	s.mu.RUnlock()
	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, types.HealthResponse{Status: "down", Service: "file-server", Version: "1.0.0"})
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", Service: "file-server", Version: "1.0.0"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)
	var req types.LoginRequest
	body, err := io.ReadAll(r.Body)
	if err != nil || sonic.Unmarshal(body, &req) != nil {
		writeJSON(w, http.StatusBadRequest, types.LoginResponse{Error: "Invalid request data"})
		return
	}
	if req.Username != s.cfg.Username || req.Password != s.cfg.Password {
		writeJSON(w, http.StatusUnauthorized, types.LoginResponse{Error: "Invalid username or password"})
		return
	}
	token, err := s.IssueToken(req.Username, s.cfg.Now().Add(s.cfg.TokenTTL))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, types.LoginResponse{Error: "Error generating token"})
		return
	}
	writeJSON(w, http.StatusOK, types.LoginResponse{Success: true, Token: token, Message: "Login successful"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.uploadCalls.Add(1)
	inFlight := s.uploadInFlight.Add(1)
	defer s.uploadInFlight.Add(-1)
	for {
		seen := s.uploadMax.Load()
		if inFlight <= seen || s.uploadMax.CompareAndSwap(seen, inFlight) {
			break
		}
	}

	clientID := clientFrom(r)
	tenant := s.cfg.Tenants[clientID]
	if tenant.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, tenant.MaxFileSize+1<<20)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Error processing file: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File not found in form")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error saving file: "+err.Error())
		return
	}
	if tenant.MaxFileSize > 0 && int64(len(content)) > tenant.MaxFileSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("File too large. Max: %d bytes", tenant.MaxFileSize))
		return
	}
	mimeType := tool.DetectMimeType(header.Filename)
	if !typeAllowed(mimeType, tenant.AllowedTypes) {
		writeError(w, http.StatusBadRequest, "File type not allowed")
		return
	}

	if s.UploadDelay > 0 {
		select {
		case <-time.After(s.UploadDelay):
		case <-r.Context().Done():
			return
		}
	}

	record := s.store(clientID, header.Filename, sanitizeFolder(r.FormValue("folder")), content, mimeType)
	writeJSON(w, http.StatusCreated, types.Envelope[types.FileRecord]{Success: true, Data: record})
}

// Seed stores a file directly, bypassing HTTP.
func (s *Server) Seed(clientID, name, folder string, content []byte) types.FileRecord {
	return s.store(clientID, name, sanitizeFolder(folder), content, tool.DetectMimeType(name))
}

func (s *Server) store(clientID, name, folder string, content []byte, mimeType string) types.FileRecord {
	id := uuid.New().String()
	ext := filepath.Ext(name)
	fileName := id + ext
	sum := sha256.Sum256(content)
	url := path.Join("/static", clientID, fileName)
	if folder != "" {
		url = path.Join("/static", clientID, folder, fileName)
	}
	record := types.FileRecord{
		FileID:       id,
		OriginalName: name,
		FileName:     fileName,
		Client:       clientID,
		Folder:       folder,
		Size:         int64(len(content)),
		MimeType:     mimeType,
		Extension:    ext,
		UploadedAt:   s.cfg.Now().UTC().Truncate(time.Second),
		URL:          url,
		Hash:         hex.EncodeToString(sum[:]),
	}
	s.mu.Lock()
	s.files[clientID] = append(s.files[clientID], &storedFile{meta: record, content: content})
	s.mu.Unlock()
	return record
}

func sanitizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	folder = strings.ReplaceAll(folder, " ", "_")
	folder = strings.ReplaceAll(folder, "..", "")
	if len(folder) > maxFolderLen {
		folder = folder[:maxFolderLen]
	}
	return folder
}

func typeAllowed(mimeType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		switch {
		case a == "*/*", a == mimeType:
			return true
		case strings.HasSuffix(a, "/*") && strings.HasPrefix(mimeType, strings.TrimSuffix(a, "*")):
			return true
		}
	}
	return false
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.listCalls.Add(1)
	folder := r.URL.Query().Get("folder")
	records := s.Files(clientFrom(r))
	out := make([]types.FileRecord, 0, len(records))
	for _, f := range records {
		if folder == "" || f.Folder == folder {
			out = append(out, f)
		}
	}
	writeJSON(w, http.StatusOK, types.Envelope[[]types.FileRecord]{Success: true, Data: out, Count: len(out)})
}

func (s *Server) find(clientID, fileID string) (*storedFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files[clientID] {
		if f.meta.FileID == fileID {
			return f, true
		}
	}
	return nil, false
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	f, ok := s.find(clientFrom(r), mux.Vars(r)["fileId"])
	if !ok {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", f.meta.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.meta.OriginalName))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.content)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(f.content))
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	want := path.Join("/static", vars["client"], vars["path"])
	for _, rec := range s.Files(vars["client"]) {
		if rec.URL != want {
			continue
		}
		if f, ok := s.find(vars["client"], rec.FileID); ok {
			w.Header().Set("Content-Type", rec.MimeType)
			_, _ = w.Write(f.content)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	f, ok := s.find(clientFrom(r), mux.Vars(r)["fileId"])
	if !ok {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	writeJSON(w, http.StatusOK, types.Envelope[types.FileRecord]{Success: true, Data: f.meta})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteCalls.Add(1)
	clientID := clientFrom(r)
	fileID := mux.Vars(r)["fileId"]

	s.mu.Lock()
	files := s.files[clientID]
	idx := -1
	for i, f := range files {
		if f.meta.FileID == fileID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		s.files[clientID] = append(files[:idx:idx], files[idx+1:]...)
	}
	s.mu.Unlock()

	if idx < 0 {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "File deleted successfully", "fileId": fileID})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	body, err := io.ReadAll(r.Body)
	if err != nil || sonic.Unmarshal(body, &req) != nil {
		writeError(w, http.StatusBadRequest, "Invalid search request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Search query required")
		return
	}
	out := make([]types.FileRecord, 0)
	for _, f := range s.Files(clientFrom(r)) {
		if matchesSearch(f, req) {
			out = append(out, f)
		}
	}
	writeJSON(w, http.StatusOK, types.Envelope[[]types.FileRecord]{Success: true, Data: out, Count: len(out)})
}

func matchesSearch(f types.FileRecord, req types.SearchRequest) bool {
	q := strings.ToLower(req.Query)
	if !strings.Contains(strings.ToLower(f.OriginalName), q) &&
		!strings.Contains(strings.ToLower(f.FileName), q) &&
		!strings.Contains(strings.ToLower(f.Extension), q) {
		return false
	}
	if len(req.Types) > 0 && !typeAllowed(f.MimeType, req.Types) {
		return false
	}
	if req.MinSize > 0 && f.Size < req.MinSize {
		return false
	}
	if req.MaxSize > 0 && f.Size > req.MaxSize {
		return false
	}
	if from, err := time.Parse(time.DateOnly, req.DateFrom); err == nil && f.UploadedAt.Before(from) {
		return false
	}
	if to, err := time.Parse(time.DateOnly, req.DateTo); err == nil && f.UploadedAt.After(to.Add(24*time.Hour)) {
		return false
	}
	return true
}
