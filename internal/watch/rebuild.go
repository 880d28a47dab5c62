package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hargabyte/phpimpact/internal/analysis"
)

// BuildFunc builds a fresh index from the current state of the tree.
type BuildFunc func(ctx context.Context) (*analysis.Index, error)

// Rebuilder runs a full rebuild for every change batch and hands each
// successful index to Swap. A failed rebuild keeps the previous index.
type Rebuilder struct {
	Build  BuildFunc
	Swap   func(*analysis.Index)
	Logger *slog.Logger
}

// HandleChanges rebuilds once for the whole batch.
func (r *Rebuilder) HandleChanges(ctx context.Context, events []ChangeEvent) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	start := time.Now()

	idx, err := r.Build(ctx)
	if err != nil {
		logger.Error("watch.rebuild_failed", "files", len(events), "error", err)
		return err
	}
	r.Swap(idx)
	logger.Info("watch.rebuild",
		"changed", len(events),
		"files", len(idx.Files),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Loop feeds the batches of w into r until ctx is cancelled. Rebuild
// failures are logged and do not stop the loop.
func Loop(ctx context.Context, w *Watcher, r *Rebuilder) error {
	batches := make(chan []ChangeEvent, 1)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, batches) }()

	for {
		select {
		case batch := <-batches:
			if err := r.HandleChanges(ctx, batch); err != nil && errors.Is(err, context.Canceled) {
				return err
			}
		case err := <-errc:
			return err
		}
	}
}
