package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hargabyte/phpimpact/internal/analysis"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, dir string, debounce time.Duration) (<-chan []ChangeEvent, context.Context) {
	t.Helper()
	w, err := NewWatcher(dir, debounce, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)

	out := make(chan []ChangeEvent, 10)
	go func() { _ = w.Run(ctx, out) }()
	return out, ctx
}

func waitForBatch(t *testing.T, ch <-chan []ChangeEvent) []ChangeEvent {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func containsPath(batch []ChangeEvent, path string) bool {
	for _, ev := range batch {
		if ev.Path == path {
			return true
		}
	}
	return false
}

func TestWatcherEmitsPHPChanges(t *testing.T) {
	tests := []struct {
		name   string
		change func(t *testing.T, dir string)
		path   string
	}{
		{"create", func(t *testing.T, dir string) { writeFile(t, dir, "New.php", "<?php\n") }, "New.php"},
		{"modify", func(t *testing.T, dir string) { writeFile(t, dir, "Init.php", "<?php\nclass A {}\n") }, "Init.php"},
		{"delete", func(t *testing.T, dir string) { _ = os.Remove(filepath.Join(dir, "Init.php")) }, "Init.php"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "Init.php", "<?php\n")
			out, _ := startWatcher(t, dir, 50*time.Millisecond)

			tt.change(t, dir)

			batch := waitForBatch(t, out)
			if !containsPath(batch, filepath.Join(dir, tt.path)) {
				t.Errorf("batch %+v lacks %s", batch, tt.path)
			}
		})
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "vendor"), 0755); err != nil {
		t.Fatal(err)
	}
	out, ctx := startWatcher(t, dir, 50*time.Millisecond)

	writeFile(t, dir, "README.md", "hello")
	writeFile(t, filepath.Join(dir, "vendor"), "Lib.php", "<?php\n")

	select {
	case batch := <-out:
		t.Fatalf("expected no events, got %+v", batch)
	case <-ctx.Done():
	}
}

func TestWatcherDebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	out, _ := startWatcher(t, dir, 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		writeFile(t, dir, "Rapid.php", "<?php\n// v"+string(rune('0'+i))+"\n")
		time.Sleep(20 * time.Millisecond)
	}

	batch := waitForBatch(t, out)
	count := 0
	for _, ev := range batch {
		if filepath.Base(ev.Path) == "Rapid.php" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected 1 coalesced event, got %d", count)
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, make(chan []ChangeEvent)) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRebuilderKeepsIndexOnFailure(t *testing.T) {
	var (
		mu      sync.Mutex
		swapped []*analysis.Index
	)
	fresh := &analysis.Index{Files: []string{"a.php"}}
	fail := errors.New("boom")
	calls := 0

	r := &Rebuilder{
		Build: func(ctx context.Context) (*analysis.Index, error) {
			calls++
			if calls == 2 {
				return nil, fail
			}
			return fresh, nil
		},
		Swap: func(idx *analysis.Index) {
			mu.Lock()
			swapped = append(swapped, idx)
			mu.Unlock()
		},
	}

	batch := []ChangeEvent{{Path: "a.php"}}
	if err := r.HandleChanges(context.Background(), batch); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	if err := r.HandleChanges(context.Background(), batch); !errors.Is(err, fail) {
		t.Fatalf("second rebuild err = %v", err)
	}
	if len(swapped) != 1 || swapped[0] != fresh {
		t.Errorf("swapped = %v", swapped)
	}
}

func TestLoopRebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	swaps := make(chan *analysis.Index, 1)
	r := &Rebuilder{
		Build: func(ctx context.Context) (*analysis.Index, error) {
			return &analysis.Index{}, nil
		},
		Swap: func(idx *analysis.Index) {
			select {
			case swaps <- idx:
			default:
			}
		},
	}
	done := make(chan error, 1)
	go func() { done <- Loop(ctx, w, r) }()

	writeFile(t, dir, "Facade.php", "<?php\n")

	select {
	case <-swaps:
	case <-ctx.Done():
		t.Fatal("no rebuild after change")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Loop err = %v", err)
	}
}
