package curriculum_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

type countingReloader struct {
	calls atomic.Int32
}

func (r *countingReloader) Reload(ctx context.Context) (*curriculum.Curriculum, error) {
	r.calls.Add(1)
	return nil, nil
}

func startWatcher(t *testing.T, dir string, r curriculum.Reloader) {
	t.Helper()
	w, err := curriculum.NewWatcher(dir, r, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := setupTestCurriculum(t)
	store, err := curriculum.NewDirStore(dir)
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	loader, err := curriculum.NewLoader(store)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	before, err := loader.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	startWatcher(t, dir, loader)
	writeFile(t, filepath.Join(dir, "definitions.json"), `{"definitions": {"phishing": "Deceptive email."}}`)

	waitFor(t, "reload", func() bool {
		c, ok := loader.Current()
		return ok && c != before
	})
	c, _ := loader.Current()
	if _, ok := c.Definitions.Lookup("phishing"); !ok {
		t.Error("reloaded glossary is missing the new term")
	}
	if _, ok := before.Definitions.Lookup("phishing"); ok {
		t.Error("previous snapshot changed after reload")
	}
}

func TestWatcher_IgnoresNonJSON(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}
	startWatcher(t, dir, r)

	writeFile(t, filepath.Join(dir, "notes.txt"), "draft")
	time.Sleep(200 * time.Millisecond)
	if got := r.calls.Load(); got != 0 {
		t.Fatalf("reloads after a text file = %d, want 0", got)
	}

	writeFile(t, filepath.Join(dir, "definitions.json"), `{"definitions": {}}`)
	waitFor(t, "reload", func() bool { return r.calls.Load() > 0 })
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}
	startWatcher(t, dir, r)

	writeFile(t, filepath.Join(dir, "domains", "net", "outline.json"), `{"topics": []}`)
	waitFor(t, "first reload", func() bool { return r.calls.Load() > 0 })

	seen := r.calls.Load()
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "domains", "net", "outline.json"), `{"topics": [{"id": "fw"}]}`)
	waitFor(t, "reload from nested directory", func() bool { return r.calls.Load() > seen })
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	if _, err := curriculum.NewWatcher(filepath.Join(t.TempDir(), "nope"), &countingReloader{}, 0); err == nil {
		t.Fatal("NewWatcher() should fail for a missing directory")
	}
}
