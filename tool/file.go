package tool

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// GetFileInfoFromPath reads the name, size and MIME type (from the extension) of a local file.
func GetFileInfoFromPath(filePath string) (string, int64, string, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to stat file: %v", err)
	}
	if fileInfo.IsDir() {
		return "", 0, "", fmt.Errorf("path is a directory, not a file")
	}

	fileName := filepath.Base(filePath)
	return fileName, fileInfo.Size(), DetectMimeType(fileName), nil
}

// DetectMimeType guesses a MIME type from the file extension.
func DetectMimeType(fileName string) string {
	fileType := mime.TypeByExtension(filepath.Ext(fileName))
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	return fileType
}
