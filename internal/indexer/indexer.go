// Package indexer implements the per-package open/incremental-update
// loop of SPEC_FULL.md §4.F: resolve a package's files through a
// language binding, compare their content hashes against the last
// cached run, update the in-memory index with only what changed, persist
// the result to disk, and report what happened over an update stream.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scipdex/internal/binding"
	"scipdex/internal/diskcache"
	"scipdex/internal/index"
	"scipdex/internal/logging"
	"scipdex/internal/project"
	"scipdex/internal/scipmodel"
	"scipdex/internal/updatestream"
	"scipdex/internal/watcher"
)

// Options configures a single package's Indexer.
type Options struct {
	// Pkg identifies the package to index: its path, language, and
	// declared name/version.
	Pkg project.DiscoveredPackage
	// SourceRoot is where this package's sources actually live on disk.
	// Empty defaults to Pkg.Path. For an external dependency, Pkg.Path
	// doubles as the cache key while SourceRoot is the vendored/
	// downloaded source location (§9).
	SourceRoot string
	// CacheDir overrides the default per-package cache location
	// (diskcache.LocalCacheDir(Pkg.Path)).
	CacheDir string
	// CacheMaxBytes overrides the disk cache's size ceiling; 0 uses
	// diskcache.DefaultMaxIndexBytes.
	CacheMaxBytes int64
	// Binding supplies the language-specific file discovery and
	// document-resolution behavior. Required.
	Binding binding.LanguageBinding
	// Logger is used by the live watcher; nil disables its logging.
	Logger *logging.Logger
	// WatchConfig configures the live file watcher started by Watch.
	WatchConfig watcher.Config
	// StreamCap bounds each update-stream subscriber's buffer; 0 uses
	// updatestream.DefaultCapacity.
	StreamCap int
}

// Indexer owns one package's in-memory index, its disk cache, and the
// live-update machinery that keeps both current as files change.
type Indexer struct {
	opts Options

	idx    *index.Index
	cache  *diskcache.Cache
	stream *updatestream.Stream

	mu      sync.Mutex
	adapter binding.AnalyzerAdapter
	hashes  map[string]string

	w *watcher.Watcher
}

// New creates an Indexer around opts. It does not touch the filesystem;
// call Open to load (or build) the index.
func New(opts Options) *Indexer {
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = diskcache.LocalCacheDir(opts.Pkg.Path)
	}
	sourceRoot := opts.SourceRoot
	if sourceRoot == "" {
		sourceRoot = opts.Pkg.Path
	}
	cache := diskcache.New(cacheDir)
	if opts.CacheMaxBytes > 0 {
		cache.MaxIndexBytes = opts.CacheMaxBytes
	}
	return &Indexer{
		opts:   opts,
		idx:    index.New(opts.Pkg.Path, sourceRoot),
		cache:  cache,
		stream: updatestream.New(opts.StreamCap),
		hashes: make(map[string]string),
	}
}

// Index returns the package's in-memory index.
func (ix *Indexer) Index() *index.Index { return ix.idx }

// Stream returns the update-event stream subscribers can follow.
func (ix *Indexer) Stream() *updatestream.Stream { return ix.stream }

// Open loads a compatible cache when one exists, discovers the
// package's current files through the language binding, and applies
// whatever added/changed/removed set the comparison implies — emitting
// exactly one Initial, Cached, or Incremental event (§4.F, §9).
func (ix *Indexer) Open(ctx context.Context) error {
	start := time.Now()

	adapter, err := ix.opts.Binding.CreateContext(ix.opts.Pkg)
	if err != nil {
		return fmt.Errorf("indexer: creating analyzer context: %w", err)
	}
	ix.mu.Lock()
	ix.adapter = adapter
	ix.mu.Unlock()

	files, err := adapter.ListFiles()
	if err != nil {
		return fmt.Errorf("indexer: listing files: %w", err)
	}

	currentHashes := make(map[string]string, len(files))
	for _, f := range files {
		h, err := hashFile(filepath.Join(ix.opts.Pkg.Path, f))
		if err != nil {
			ix.stream.Publish(updatestream.NewError(err.Error(), f))
			continue
		}
		currentHashes[f] = h
	}

	loaded, hasCache, err := ix.cache.Load()
	if err != nil {
		ix.stream.Publish(updatestream.NewError(err.Error(), ""))
		hasCache = false
	}

	if !hasCache {
		return ix.buildFromScratch(adapter, files, currentHashes, start)
	}
	return ix.applyIncremental(adapter, loaded, currentHashes, files)
}

func (ix *Indexer) buildFromScratch(adapter binding.AnalyzerAdapter, files []string, hashes map[string]string, start time.Time) error {
	for _, f := range files {
		doc, ok, err := adapter.ResolvedUnit(f)
		if err != nil {
			// BindingFailure (§7): skip the file and withhold its hash so a
			// subsequent open retries it instead of treating it as indexed.
			ix.stream.Publish(updatestream.NewError(err.Error(), f))
			delete(hashes, f)
			continue
		}
		if !ok {
			continue
		}
		ix.idx.UpdateDocument(doc)
	}

	ix.mu.Lock()
	ix.hashes = hashes
	ix.mu.Unlock()

	if err := ix.persist(); err != nil {
		return err
	}
	ix.stream.Publish(updatestream.NewInitial(toStreamStats(ix.idx.Stats()), time.Since(start)))
	return nil
}

func (ix *Indexer) applyIncremental(adapter binding.AnalyzerAdapter, loaded *diskcache.Loaded, currentHashes map[string]string, files []string) error {
	for _, doc := range loaded.Documents {
		ix.idx.UpdateDocument(doc)
	}

	added, changed, removed := diffHashes(loaded.FileHashes, currentHashes)

	for _, f := range removed {
		ix.idx.RemoveDocument(f)
	}
	for _, f := range append(append([]string{}, added...), changed...) {
		doc, ok, err := adapter.ResolvedUnit(f)
		if err != nil {
			// BindingFailure (§7): withhold the hash so the next open retries.
			ix.stream.Publish(updatestream.NewError(err.Error(), f))
			delete(currentHashes, f)
			continue
		}
		if !ok {
			continue
		}
		ix.idx.UpdateDocument(doc)
	}

	ix.mu.Lock()
	ix.hashes = currentHashes
	ix.mu.Unlock()

	if err := ix.persist(); err != nil {
		return err
	}

	if len(added) == 0 && len(changed) == 0 && len(removed) == 0 {
		ix.stream.Publish(updatestream.NewCached(toStreamStats(ix.idx.Stats()), len(files)))
		return nil
	}
	ix.stream.Publish(updatestream.NewIncremental(toStreamStats(ix.idx.Stats()), len(added), len(changed), len(removed)))
	return nil
}

// persist snapshots every document currently in the in-memory index and
// writes it, alongside the latest hash set, to the disk cache.
func (ix *Indexer) persist() error {
	ix.mu.Lock()
	hashes := ix.hashes
	ix.mu.Unlock()

	var docs []scipmodel.Document
	for _, f := range ix.idx.Files() {
		if doc, ok := ix.idx.Document(f); ok {
			docs = append(docs, doc)
		}
	}
	return ix.cache.Save(docs, ix.opts.Pkg.Path, hashes)
}

// Close releases the live watcher (if running) and the language
// binding's adapter.
func (ix *Indexer) Close() error {
	ix.mu.Lock()
	w := ix.w
	adapter := ix.adapter
	ix.mu.Unlock()

	var err error
	if w != nil {
		err = w.Stop()
	}
	ix.stream.Close()
	if adapter != nil {
		if cerr := adapter.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// diffHashes classifies files between a previous and a current hash
// snapshot into added, changed, and removed relative paths.
func diffHashes(previous, current map[string]string) (added, changed, removed []string) {
	for f, h := range current {
		prevHash, existed := previous[f]
		if !existed {
			added = append(added, f)
		} else if prevHash != h {
			changed = append(changed, f)
		}
	}
	for f := range previous {
		if _, ok := current[f]; !ok {
			removed = append(removed, f)
		}
	}
	return added, changed, removed
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func toStreamStats(s index.Stats) updatestream.Stats {
	return updatestream.Stats{
		Files:      s.Files,
		Symbols:    s.Symbols,
		References: s.References,
		CallEdges:  s.CallEdges,
	}
}
