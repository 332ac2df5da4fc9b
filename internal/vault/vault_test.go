package vault

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestOpenRejectsMissingAndNonDirectory(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("missing directory must be rejected")
	}

	file := filepath.Join(t.TempDir(), "file.md")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(file); err == nil {
		t.Error("regular file must be rejected")
	}
}

func TestReadWriteDocument(t *testing.T) {
	v, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := v.WriteDocument("Tasks.md", "# Tasks\n"); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadDocument("Tasks.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "# Tasks\n" {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestReadDocumentNotFound(t *testing.T) {
	v, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = v.ReadDocument("Missing.md")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	v, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	w, err := v.Watch(func(name string) {
		mu.Lock()
		seen[name] = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := v.WriteDocument("Tasks.md", "# Tasks\n"); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		okSeen := seen["Tasks.md"]
		mu.Unlock()
		if okSeen {
			return
		}
		select {
		case <-deadline:
			t.Fatal("watcher never reported the write")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcherCloseStopsDelivery(t *testing.T) {
	v, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	w, err := v.Watch(func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	// goleak verifies the delivery goroutine is gone at TestMain exit.
}
