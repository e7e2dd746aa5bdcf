package diskcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"scipdex/internal/errors"
	"scipdex/internal/scipmodel"
)

// Cache reads and writes the per-package cache rooted at Dir (conventionally
// "<package>/.ckb/" for local packages, or a directory under the global
// cache for external packages — see paths.go and SPEC_FULL.md §4.G/§6).
type Cache struct {
	Dir           string
	MaxIndexBytes int64
}

// New creates a Cache rooted at dir with the default size ceiling.
func New(dir string) *Cache {
	return &Cache{Dir: dir, MaxIndexBytes: DefaultMaxIndexBytes}
}

// Loaded is the result of a successful cache load.
type Loaded struct {
	Documents  []scipmodel.Document
	FileHashes map[string]string
	Manifest   Manifest
}

// Load reads and decodes the cache. ok is false (with a nil error) both
// when no cache exists and when an existing cache is version-incompatible
// or its manifest is unparseable — all three degrade silently to a fresh
// build, per §4.G and §7 ("cache-read errors degrade silently"). A
// CorruptCache error is returned only once the manifest is known
// compatible but the index payload itself is unreadable or oversized,
// since that case still wants to be surfaced to observers as an Error
// event further up the indexing loop.
func (c *Cache) Load() (loaded *Loaded, ok bool, err error) {
	manifestPath := filepath.Join(c.Dir, manifestFileName)
	manifestBytes, readErr := os.ReadFile(manifestPath)
	if os.IsNotExist(readErr) {
		return nil, false, nil
	}
	if readErr != nil {
		return nil, false, errors.NewIoFailure("read manifest", manifestPath, readErr)
	}

	var manifest Manifest
	if jsonErr := json.Unmarshal(manifestBytes, &manifest); jsonErr != nil {
		return nil, false, nil
	}
	if !Compatible(manifest.ManifestVersion) {
		return nil, false, nil
	}

	indexPath := filepath.Join(c.Dir, indexFileName)
	raw, readErr := os.ReadFile(indexPath)
	if os.IsNotExist(readErr) {
		return nil, false, nil
	}
	if readErr != nil {
		return nil, false, errors.NewIoFailure("read index cache", indexPath, readErr)
	}

	payload, decErr := decompress(raw)
	if decErr != nil {
		return nil, false, errors.NewCorruptCache("index cache is not a valid zstd stream", decErr)
	}

	maxBytes := c.MaxIndexBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxIndexBytes
	}
	if int64(len(payload)) > maxBytes {
		return nil, false, errors.NewCorruptCache(fmt.Sprintf("index cache exceeds %d byte limit", maxBytes), nil)
	}

	docs, decodeErr := scipmodel.DecodeIndex(payload)
	if decodeErr != nil {
		return nil, false, errors.NewCorruptCache("index cache protobuf is unreadable", decodeErr)
	}

	return &Loaded{Documents: docs, FileHashes: manifest.FileHashes, Manifest: manifest}, true, nil
}

// Save serializes docs and hashes into index.scip/manifest.json, writing
// both atomically via write-to-temp + rename (§4.G "Save").
func (c *Cache) Save(docs []scipmodel.Document, projectRoot string, hashes map[string]string) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return errors.NewIoFailure("create cache dir", c.Dir, err)
	}

	raw, err := scipmodel.EncodeIndex(docs, projectRoot)
	if err != nil {
		return errors.NewIoFailure("encode index", c.Dir, err)
	}

	maxBytes := c.MaxIndexBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxIndexBytes
	}
	if int64(len(raw)) > maxBytes {
		return errors.NewCorruptCache(fmt.Sprintf("index exceeds %d byte cache limit", maxBytes), nil)
	}

	compressed, err := compress(raw)
	if err != nil {
		return errors.NewIoFailure("compress index", c.Dir, err)
	}
	if err := writeAtomic(filepath.Join(c.Dir, indexFileName), compressed); err != nil {
		return err
	}

	manifest := Manifest{
		ToolVersion:     ToolVersion,
		ManifestVersion: CurrentManifestVersion,
		IndexedAt:       time.Now(),
		FileHashes:      hashes,
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.NewIoFailure("marshal manifest", c.Dir, err)
	}
	return writeAtomic(filepath.Join(c.Dir, manifestFileName), manifestBytes)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.NewIoFailure("write", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.NewIoFailure("rename", path, err)
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
