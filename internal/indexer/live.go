package indexer

import (
	"path/filepath"

	"scipdex/internal/binding"
	"scipdex/internal/logging"
	"scipdex/internal/updatestream"
	"scipdex/internal/watcher"
)

// Watch starts a file-system watcher over the package root and keeps
// the in-memory index (and disk cache) current as files are created,
// modified, removed, or moved — the live half of §4.F, emitting
// FileUpdated/FileRemoved events as each change lands. Watch must be
// called after Open. Calling it twice replaces the previous watcher.
func (ix *Indexer) Watch() error {
	cfg := ix.opts.WatchConfig
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = ix.opts.Binding.Extensions()
	}

	logger := ix.opts.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}

	w, err := watcher.New(cfg, logger, ix.handleWatchEvents)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	if err := w.WatchRoot(ix.opts.Pkg.Path); err != nil {
		_ = w.Stop()
		return err
	}

	ix.mu.Lock()
	if ix.w != nil {
		_ = ix.w.Stop()
	}
	ix.w = w
	ix.mu.Unlock()
	return nil
}

// handleWatchEvents is the watcher.ChangeHandler invoked, debounced, for
// every batch of changes under root.
func (ix *Indexer) handleWatchEvents(root string, events []watcher.Event) {
	ix.mu.Lock()
	adapter := ix.adapter
	ix.mu.Unlock()
	if adapter == nil {
		return
	}

	for _, ev := range events {
		rel, err := filepath.Rel(root, ev.Path)
		if err != nil {
			continue
		}

		switch ev.Type {
		case watcher.EventDelete:
			ix.handleRemoved(rel)
		case watcher.EventMove:
			if ev.PreviousPath != "" {
				if prevRel, err := filepath.Rel(root, ev.PreviousPath); err == nil {
					ix.handleRemoved(prevRel)
				}
			}
			ix.handleUpdated(adapter, rel)
		default: // create, modify
			ix.handleUpdated(adapter, rel)
		}
	}

	if err := ix.persist(); err != nil {
		ix.stream.Publish(updatestream.NewError(err.Error(), ""))
	}
}

// handleUpdated re-resolves rel through adapter and installs the result
// in the in-memory index, emitting FileUpdated or, for a file the
// adapter no longer recognizes (e.g. deleted between the fsnotify event
// and this read), FileRemoved instead.
func (ix *Indexer) handleUpdated(adapter binding.AnalyzerAdapter, rel string) {
	adapter.NotifyFileChange(binding.FileChange{Path: rel})

	doc, ok, err := adapter.ResolvedUnit(rel)
	if err != nil {
		ix.stream.Publish(updatestream.NewError(err.Error(), rel))
		return
	}
	if !ok {
		ix.handleRemoved(rel)
		return
	}

	ix.idx.UpdateDocument(doc)

	if h, err := hashFile(filepath.Join(ix.opts.Pkg.Path, rel)); err == nil {
		ix.mu.Lock()
		ix.hashes[rel] = h
		ix.mu.Unlock()
	}

	ix.stream.Publish(updatestream.NewFileUpdated(rel, len(doc.Symbols)))
}

func (ix *Indexer) handleRemoved(rel string) {
	ix.idx.RemoveDocument(rel)

	ix.mu.Lock()
	delete(ix.hashes, rel)
	ix.mu.Unlock()

	ix.stream.Publish(updatestream.NewFileRemoved(rel))
}
