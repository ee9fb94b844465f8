// Package inbox watches a drop directory and captures files placed there
// as new items.
package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/selfhq/self/internal/capture"
)

// EventCallback is called after a file has been captured as an item.
type EventCallback func(itemID string)

// settleDelay is how long a file must stay quiet before it is ingested.
// Copies into the inbox arrive as a Create followed by a burst of Writes.
const settleDelay = 500 * time.Millisecond

// Watch starts an fsnotify watcher on dir and ingests dropped files until
// ctx is cancelled. Each settled file becomes one item; the source file is
// removed after a successful capture. Hidden files and partial-download
// suffixes are ignored.
func Watch(ctx context.Context, svc *capture.Service, dir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("inbox: started", slog.String("dir", dir))

	// One settle timer per in-flight file; all fire into settledCh.
	settledCh := make(chan string, 64)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	schedule := func(path string) {
		if t, ok := pending[path]; ok {
			t.Reset(settleDelay)
			return
		}
		pending[path] = time.AfterFunc(settleDelay, func() {
			select {
			case settledCh <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("inbox: stopped")
			return nil

		case path := <-settledCh:
			delete(pending, path)
			ingest(ctx, svc, path, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if ignored(ev.Name) {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			schedule(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// ingest captures one settled file as an item and removes the source.
func ingest(ctx context.Context, svc *capture.Service, path string, logger *slog.Logger, cb EventCallback) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("inbox: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	name := filepath.Base(path)

	item, err := svc.CreateItem(ctx, capture.ItemInput{Content: name}, &capture.Upload{
		Data:     data,
		FileName: name,
	})
	if err != nil {
		logger.Warn("inbox: capture failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if err := os.Remove(path); err != nil {
		logger.Warn("inbox: remove failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	logger.Info("inbox: captured", slog.String("file", name), slog.String("item", item.ID))
	if cb != nil {
		cb(item.ID)
	}
}

// ignored filters dotfiles and common partial-transfer suffixes.
func ignored(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, suffix := range []string{".part", ".crdownload", ".download", ".tmp"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
