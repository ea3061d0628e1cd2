package studied_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/pai-study/internal/studied"
)

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store down")
}

func (failingKV) Set(context.Context, string, string, time.Duration) error {
	return errors.New("store down")
}

func TestTracker_MarkStudied(t *testing.T) {
	kv := studied.NewMemoryKV()
	tr := studied.NewTracker(kv, 0)
	ctx := t.Context()

	tr.MarkStudied(ctx, "alice", 0, 1, 2)
	tr.MarkStudied(ctx, "alice", 0, 1, 0)
	tr.MarkStudied(ctx, "alice", 0, 1, 2)
	tr.MarkStudied(ctx, "alice", 1, 0, 0)

	raw, ok, err := kv.Get(ctx, "studied_topics:alice")
	if err != nil || !ok {
		t.Fatalf("stored value missing: %v", err)
	}
	if want := `{"0-1":[2,0],"1-0":[0]}`; raw != want {
		t.Errorf("stored = %s, want %s", raw, want)
	}

	pages := tr.Studied(ctx, "alice")
	if !pages.Has(0, 1, 0) || !pages.Has(1, 0, 0) {
		t.Errorf("Studied() = %v, missing marked pages", pages)
	}
	if pages.Has(0, 1, 1) {
		t.Error("Has(0,1,1) = true for unvisited page")
	}
}

func TestTracker_OwnersAreIsolated(t *testing.T) {
	tr := studied.NewTracker(studied.NewMemoryKV(), time.Hour)
	ctx := t.Context()

	tr.MarkStudied(ctx, "alice", 0, 0, 0)
	if got := tr.Studied(ctx, "bob"); len(got) != 0 {
		t.Errorf("Studied(bob) = %v, want empty", got)
	}
}

func TestTracker_MalformedStoredValue(t *testing.T) {
	tests := []string{`not json`, `[1,2]`, `null`, `{"0-0":"x"}`}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			kv := studied.NewMemoryKV()
			ctx := t.Context()
			kv.Set(ctx, "studied_topics:alice", raw, 0)

			tr := studied.NewTracker(kv, 0)
			if got := tr.Studied(ctx, "alice"); len(got) != 0 {
				t.Errorf("Studied() = %v, want empty", got)
			}

			tr.MarkStudied(ctx, "alice", 2, 3, 4)
			if got := tr.Studied(ctx, "alice"); !got.Has(2, 3, 4) {
				t.Errorf("Studied() after mark = %v", got)
			}
		})
	}
}

func TestTracker_Preferences(t *testing.T) {
	kv := studied.NewMemoryKV()
	tr := studied.NewTracker(kv, 0)
	ctx := t.Context()

	if got := tr.Preferences(ctx, "alice"); got != (studied.Preferences{}) {
		t.Errorf("default Preferences() = %+v", got)
	}

	want := studied.Preferences{SidebarHidden: true, DarkMode: false}
	tr.SetPreferences(ctx, "alice", want)
	if got := tr.Preferences(ctx, "alice"); got != want {
		t.Errorf("Preferences() = %+v, want %+v", got, want)
	}

	if v, _, _ := kv.Get(ctx, "sidebar_hidden:alice"); v != "true" {
		t.Errorf("sidebar_hidden = %q, want true", v)
	}
	if v, _, _ := kv.Get(ctx, "dark_mode:alice"); v != "false" {
		t.Errorf("dark_mode = %q, want false", v)
	}
}

func TestTracker_StoreFailuresAreSwallowed(t *testing.T) {
	tr := studied.NewTracker(failingKV{}, 0)
	ctx := t.Context()

	tr.MarkStudied(ctx, "alice", 0, 0, 0)
	tr.SetPreferences(ctx, "alice", studied.Preferences{DarkMode: true})

	if got := tr.Studied(ctx, "alice"); len(got) != 0 {
		t.Errorf("Studied() = %v, want empty", got)
	}
	if got := tr.Preferences(ctx, "alice"); got.DarkMode {
		t.Error("Preferences().DarkMode = true from failing store")
	}
}

// slowKV widens the window between reading and writing a record.
type slowKV struct {
	studied.KV
}

func (s slowKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.KV.Get(ctx, key)
	time.Sleep(time.Millisecond)
	return v, ok, err
}

func TestTracker_ConcurrentMarksKeepEveryPage(t *testing.T) {
	tr := studied.NewTracker(slowKV{studied.NewMemoryKV()}, 0)
	ctx := t.Context()

	const pages = 20
	var wg sync.WaitGroup
	for p := range pages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.MarkStudied(ctx, "alice", 0, 0, p)
		}()
	}
	wg.Wait()

	got := tr.Studied(ctx, "alice")
	for p := range pages {
		if !got.Has(0, 0, p) {
			t.Errorf("page %d missing from %v", p, got)
		}
	}
}
