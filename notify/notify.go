// Package notify fans banner messages, login errors, state changes and upload progress
// out to whoever is watching the panel.
package notify

import (
	"sync"

	"github.com/moyoez/fileserver-admin/tool"
	"github.com/moyoez/fileserver-admin/types"
)

// Broadcaster receives notifications. *Hub implements it.
type Broadcaster interface {
	Broadcast(notification *types.Notification)
}

var (
	useNotifyMu sync.RWMutex
	useNotify   = true
)

// SetUseNotify sets whether notifications are forwarded at all.
func SetUseNotify(use bool) {
	useNotifyMu.Lock()
	defer useNotifyMu.Unlock()
	useNotify = use
}

// Enabled reports whether notifications are forwarded.
func Enabled() bool {
	useNotifyMu.RLock()
	defer useNotifyMu.RUnlock()
	return useNotify
}

// Notifier stamps notifications with an id and hands them to a broadcaster.
// The zero value and a nil *Notifier drop everything.
type Notifier struct {
	target Broadcaster
}

// NewNotifier wraps target. target may be nil.
func NewNotifier(target Broadcaster) *Notifier {
	return &Notifier{target: target}
}

// Send forwards n, assigning an id when it has none.
func (n *Notifier) Send(notification *types.Notification) {
	if n == nil || n.target == nil || notification == nil || !Enabled() {
		return
	}
	if notification.ID == "" {
		notification.ID = tool.GenerateRandomUUID()
	}
	n.target.Broadcast(notification)
}

// Message sends a banner message of the given kind ("success" or "error").
func (n *Notifier) Message(id, text, kind string) {
	n.Send(&types.Notification{ID: id, Type: types.NotifyTypeMessage, Kind: kind, Message: text})
}

// LoginError sends the inline login error.
func (n *Notifier) LoginError(text string) {
	n.Send(&types.Notification{Type: types.NotifyTypeLoginError, Kind: "error", Message: text})
}

// State announces a state machine transition.
func (n *Notifier) State(state string) {
	n.Send(&types.Notification{
		Type: types.NotifyTypeState,
		Data: map[string]any{"state": state},
	})
}

// Progress reports upload byte counts for the file at position index of total files.
func (n *Notifier) Progress(p types.UploadProgress, index, total int) {
	n.Send(&types.Notification{
		Type: types.NotifyTypeProgress,
		Data: map[string]any{
			"fileName":   p.FileName,
			"sent":       p.Sent,
			"total":      p.Total,
			"fileIndex":  index,
			"totalFiles": total,
		},
	})
}
