package panel

import (
	"time"

	"github.com/moyoez/fileserver-admin/types"
	"github.com/moyoez/fileserver-admin/view"
)

// State is the view state of the panel.
type State string

const (
	StateLoggedOut State = "logged_out"
	StateLoggedIn  State = "logged_in"
)

// Health is the last health check result.
type Health struct {
	Online    bool      `json:"online"`
	Label     string    `json:"label"`
	Service   string    `json:"service,omitempty"`
	Version   string    `json:"version,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

const (
	healthOnlineLabel  = "Server online"
	healthOfflineLabel = "Server offline"
)

// Snapshot is a consistent copy of everything the panel displays.
type Snapshot struct {
	State      State                 `json:"state"`
	ClientID   string                `json:"clientId"`
	Health     Health                `json:"health"`
	List       view.ListView         `json:"list"`
	Folders    view.FolderOptions    `json:"folders"`
	SearchTerm string                `json:"searchTerm"`
	Banner     *view.Message         `json:"banner,omitempty"`
	LoginError *view.Message         `json:"loginError,omitempty"`
	Progress   *types.UploadProgress `json:"progress,omitempty"`
	Uploading  bool                  `json:"uploading"`
}
