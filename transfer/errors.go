package transfer

import (
	"errors"
	"fmt"
)

// ConnectionErrorMessage is shown for every transport-level failure.
const ConnectionErrorMessage = "Connection error with the server"

// ErrConnection marks transport failures and responses that are not a JSON envelope.
var ErrConnection = errors.New("connection error")

// defaultMessages are used when the server reports a failure without an error string.
var defaultMessages = map[string]string{
	opHealth:   "Health check failed",
	opLogin:    "Authentication error",
	opList:     "Error loading files",
	opUpload:   "Upload failed",
	opDelete:   "Error deleting file",
	opDownload: "Error downloading file",
	opMetadata: "Error loading file metadata",
	opSearch:   "Error searching files",
}

// ServerError is a business error reported by the server through success=false.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

func newServerError(op string, status int, message string) *ServerError {
	if message == "" {
		message = defaultMessages[op]
	}
	return &ServerError{Op: op, Status: status, Message: message}
}

// AsServerError checks if an error is a ServerError and returns it.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// UserMessage maps an error returned by the client to the text shown to the user:
// the server's own message verbatim, a fixed connection message, or the error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if se, ok := AsServerError(err); ok {
		return se.Message
	}
	if errors.Is(err, ErrConnection) {
		return ConnectionErrorMessage
	}
	return err.Error()
}

func unexpectedStatus(op string, status int) error {
	return fmt.Errorf("%w: %s returned status %d", ErrConnection, op, status)
}
