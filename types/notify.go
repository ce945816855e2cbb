package types

const (
	NotifyTypeMessage    = "message"     // banner shown to the user
	NotifyTypeLoginError = "login_error" // inline error under the login form
	NotifyTypeState      = "state"       // logged in / logged out transitions
	NotifyTypeProgress   = "progress"    // upload byte counts
)

// Notification represents a notification message structure
type Notification struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type,omitempty"`    // one of the NotifyType constants
	Kind    string         `json:"kind,omitempty"`    // "success" or "error" for banners
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}
