// Package worker runs the single background loop that drives each accepted
// upload through the inspection pipeline: Pending -> Scanning -> Clean ->
// Completed, exiting to Failed or VirusDetected. Exactly one loop runs per
// process, which is what keeps per-upload transitions strictly ordered and
// file relocation race-free.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"filegate/internal/model"
	"filegate/internal/queue"
	"filegate/internal/scan"
	"filegate/internal/status"
)

// Worker consumes the queue and executes items against the status store and
// the filesystem, independent of any request lifetime.
type Worker struct {
	queue     *queue.Queue
	store     status.Store
	scanner   scan.Scanner
	uploadDir string
	log       *slog.Logger
}

// New constructs a Worker committing accepted files under uploadDir.
func New(q *queue.Queue, store status.Store, scanner scan.Scanner, uploadDir string, log *slog.Logger) *Worker {
	return &Worker{
		queue:     q,
		store:     store,
		scanner:   scanner,
		uploadDir: uploadDir,
		log:       log,
	}
}

// Run dequeues and processes items until ctx is cancelled. It processes one
// item fully before starting the next and returns nil on shutdown; an
// in-flight item is abandoned at whatever stage it reached.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", "upload_dir", w.uploadDir)
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.log.Info("worker stopped", "reason", err)
			return nil
		}
		w.process(ctx, item)
	}
}

// process runs one item through the state machine. Every failure, panics
// included, becomes a Failed transition; nothing propagates out, so a bad
// item can never stop the uploads behind it.
func (w *Worker) process(ctx context.Context, item queue.Item) {
	defer func() {
		if r := recover(); r != nil {
			w.fail(item, fmt.Sprintf("panic while processing: %v", r))
		}
	}()

	w.log.Info("processing upload", "id", item.ID)
	w.setState(item.ID, model.StateScanning, "")

	res, err := w.scanner.Scan(ctx, item.TempPath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Shutdown mid-scan: abandon the item without forcing a terminal
			// state; the store does not survive the restart either.
			w.log.Warn("scan interrupted by shutdown", "id", item.ID)
			return
		}
		w.fail(item, fmt.Sprintf("scan failed: %v", err))
		return
	}
	if res.Verdict != scan.VerdictClean {
		w.log.Warn("upload flagged by scanner", "id", item.ID, "detail", res.Detail)
		w.setState(item.ID, model.StateVirusDetected, res.Detail)
		w.discard(item)
		return
	}
	w.setState(item.ID, model.StateClean, "")

	dest := filepath.Join(w.uploadDir, item.FinalName)
	if err := w.commit(item.TempPath, dest); err != nil {
		w.fail(item, fmt.Sprintf("commit to storage failed: %v", err))
		return
	}
	w.setState(item.ID, model.StateCompleted, "")
	w.log.Info("upload completed", "id", item.ID, "path", dest)
}

// commit moves the temp file into the uploads directory. The rename is atomic
// on a single filesystem; when temp and uploads live on different devices it
// falls back to copy-then-remove.
func (w *Worker) commit(src, dest string) error {
	if err := os.MkdirAll(w.uploadDir, 0o750); err != nil {
		return fmt.Errorf("ensure upload dir: %w", err)
	}
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if copyErr := copyFile(src, dest); copyErr != nil {
			return fmt.Errorf("copy across devices: %w", copyErr)
		}
		if rmErr := os.Remove(src); rmErr != nil {
			w.log.Warn("failed to remove temp file after copy", "path", src, "error", rmErr)
		}
		return nil
	}
	return fmt.Errorf("move file: %w", err)
}

func (w *Worker) fail(item queue.Item, detail string) {
	w.log.Error("processing failed", "id", item.ID, "detail", detail)
	w.setState(item.ID, model.StateFailed, detail)
	w.discard(item)
}

// discard removes the temp file for an upload that will never be committed.
func (w *Worker) discard(item queue.Item) {
	if err := os.Remove(item.TempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.log.Warn("failed to remove temp file", "path", item.TempPath, "error", err)
	}
}

func (w *Worker) setState(id string, state model.UploadState, detail string) {
	if err := w.store.Set(id, state, detail); err != nil {
		w.log.Error("status update failed", "id", id, "state", state, "error", err)
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
