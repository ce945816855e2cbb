package view

import (
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/fileserver-admin/tool"
)

// BannerLifetime is how long a message stays up.
const BannerLifetime = 5 * time.Second

const (
	KindSuccess = "success"
	KindError   = "error"
)

const bannerKey = "current"

// Message is a shown banner message.
type Message struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Kind    string    `json:"kind"`
	ShownAt time.Time `json:"shownAt"`
}

// Banner holds at most one message. A new message replaces the old one, and a message
// is gone once BannerLifetime has passed on the banner's clock.
type Banner struct {
	mu    sync.Mutex
	now   func() time.Time
	cache *ttlworker.Cache[string, Message]
}

// NewBanner creates a banner. now may be nil, in which case time.Now is used.
func NewBanner(now func() time.Time) *Banner {
	if now == nil {
		now = time.Now
	}
	return &Banner{
		now:   now,
		cache: ttlworker.NewCache[string, Message](BannerLifetime),
	}
}

// Show replaces the current message.
func (b *Banner) Show(text, kind string) Message {
	if kind != KindError {
		kind = KindSuccess
	}
	msg := Message{
		ID:      tool.GenerateRandomUUID(),
		Text:    text,
		Kind:    kind,
		ShownAt: b.now(),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Set(bannerKey, msg)
	return msg
}

// Current returns the message still on display, if any.
func (b *Banner) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := b.cache.Get(bannerKey)
	if msg.ID == "" {
		return Message{}, false
	}
	if b.now().Sub(msg.ShownAt) >= BannerLifetime {
		b.cache.Delete(bannerKey)
		return Message{}, false
	}
	return msg, true
}

// Dismiss removes the current message.
func (b *Banner) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Delete(bannerKey)
}
