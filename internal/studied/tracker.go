package studied

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Store keys. Each is suffixed with ":<owner>".
const (
	KeyStudiedTopics = "studied_topics"
	KeySidebarHidden = "sidebar_hidden"
	KeyDarkMode      = "dark_mode"
)

// DefaultTTL is how long studied marks and preferences are kept.
const DefaultTTL = 365 * 24 * time.Hour

// Pages maps a "domain-topic" key to the page indices seen, in the order they
// were first visited.
type Pages map[string][]int

// Has reports whether the page was marked as studied.
func (p Pages) Has(domain, topic, page int) bool {
	return slices.Contains(p[topicKey(domain, topic)], page)
}

// Preferences are the learner's display toggles.
type Preferences struct {
	SidebarHidden bool `json:"sidebarHidden"`
	DarkMode      bool `json:"darkMode"`
}

// Tracker records studied pages and preferences for owners. Store failures are
// logged and otherwise ignored: losing a studied mark never blocks navigation.
type Tracker struct {
	kv  KV
	ttl time.Duration

	mu sync.Mutex // serializes read-modify-write of studied pages
}

// NewTracker creates a tracker. A non-positive ttl selects DefaultTTL.
func NewTracker(kv KV, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{kv: kv, ttl: ttl}
}

// MarkStudied adds a page to the owner's studied set.
func (t *Tracker) MarkStudied(ctx context.Context, owner string, domain, topic, page int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pages := t.Studied(ctx, owner)
	key := topicKey(domain, topic)
	if slices.Contains(pages[key], page) {
		return
	}
	pages[key] = append(pages[key], page)

	data, err := json.Marshal(pages)
	if err != nil {
		slog.Warn("failed to encode studied pages", "owner", owner, "error", err)
		return
	}
	if err := t.kv.Set(ctx, ownerKey(KeyStudiedTopics, owner), string(data), t.ttl); err != nil {
		slog.Warn("failed to save studied pages", "owner", owner, "error", err)
	}
}

// Studied returns the owner's studied pages. Missing or unreadable data reads
// as nothing studied.
func (t *Tracker) Studied(ctx context.Context, owner string) Pages {
	pages := Pages{}
	raw, ok, err := t.kv.Get(ctx, ownerKey(KeyStudiedTopics, owner))
	if err != nil {
		slog.Warn("failed to read studied pages", "owner", owner, "error", err)
		return pages
	}
	if !ok || raw == "" {
		return pages
	}
	if err := json.Unmarshal([]byte(raw), &pages); err != nil || pages == nil {
		slog.Debug("discarding malformed studied pages", "owner", owner, "error", err)
		return Pages{}
	}
	return pages
}

// Preferences returns the owner's display preferences.
func (t *Tracker) Preferences(ctx context.Context, owner string) Preferences {
	return Preferences{
		SidebarHidden: t.flag(ctx, KeySidebarHidden, owner),
		DarkMode:      t.flag(ctx, KeyDarkMode, owner),
	}
}

// SetPreferences stores the owner's display preferences.
func (t *Tracker) SetPreferences(ctx context.Context, owner string, p Preferences) {
	t.setFlag(ctx, KeySidebarHidden, owner, p.SidebarHidden)
	t.setFlag(ctx, KeyDarkMode, owner, p.DarkMode)
}

func (t *Tracker) flag(ctx context.Context, name, owner string) bool {
	raw, ok, err := t.kv.Get(ctx, ownerKey(name, owner))
	if err != nil {
		slog.Warn("failed to read preference", "name", name, "owner", owner, "error", err)
		return false
	}
	return ok && raw == "true"
}

func (t *Tracker) setFlag(ctx context.Context, name, owner string, v bool) {
	if err := t.kv.Set(ctx, ownerKey(name, owner), strconv.FormatBool(v), t.ttl); err != nil {
		slog.Warn("failed to save preference", "name", name, "owner", owner, "error", err)
	}
}

func topicKey(domain, topic int) string {
	return fmt.Sprintf("%d-%d", domain, topic)
}

func ownerKey(name, owner string) string {
	return name + ":" + owner
}
