package notify

import (
	"testing"

	"github.com/moyoez/fileserver-admin/types"
)

type captured struct {
	got []*types.Notification
}

func (c *captured) Broadcast(n *types.Notification) { c.got = append(c.got, n) }

func TestNotifierAssignsIDs(t *testing.T) {
	c := &captured{}
	n := NewNotifier(c)

	n.Message("", "File deleted", "success")
	n.LoginError("Invalid username or password")
	n.Progress(types.UploadProgress{FileName: "a.txt", Sent: 5, Total: 10}, 0, 2)

	if len(c.got) != 3 {
		t.Fatalf("got %d notifications, want 3", len(c.got))
	}
	for _, got := range c.got {
		if got.ID == "" {
			t.Errorf("%s notification has no id", got.Type)
		}
	}
	if c.got[1].Type != types.NotifyTypeLoginError || c.got[1].Kind != "error" {
		t.Errorf("login error = %+v", c.got[1])
	}
	if c.got[2].Data["sent"] != int64(5) || c.got[2].Data["totalFiles"] != 2 {
		t.Errorf("progress data = %v", c.got[2].Data)
	}
}

func TestNotifierKeepsGivenID(t *testing.T) {
	c := &captured{}
	NewNotifier(c).Message("msg-1", "hi", "success")
	if c.got[0].ID != "msg-1" {
		t.Errorf("ID = %q, want msg-1", c.got[0].ID)
	}
}

func TestDisabledNotifierDrops(t *testing.T) {
	c := &captured{}
	n := NewNotifier(c)

	SetUseNotify(false)
	t.Cleanup(func() { SetUseNotify(true) })
	n.State("logged_in")
	if len(c.got) != 0 {
		t.Error("disabled notifier should drop notifications")
	}

	var nilNotifier *Notifier
	nilNotifier.Message("", "ignored", "error")
	NewNotifier(nil).State("logged_out")
}
