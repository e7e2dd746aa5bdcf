// Package diskcache implements the authoritative per-package index cache
// described in SPEC_FULL.md §4.G: a zstd-compressed serialized SCIP index
// (index.scip) plus a JSON manifest of per-file content hashes
// (manifest.json), written atomically and discarded — not errored — when
// incompatible with the running build's manifest version.
//
// This is distinct from internal/cache, the teacher's SQLite query-result
// cache; that one caches DSL query answers, not the index itself.
package diskcache

import (
	"strconv"
	"strings"
	"time"
)

// ToolVersion is stamped into every manifest this build writes.
const ToolVersion = "0.1.0"

// CurrentManifestVersion is this build's manifest schema version, in
// "major.minor.patch" form. See Compatible.
const CurrentManifestVersion = "1.0.0"

// DefaultMaxIndexBytes is the default protobuf size ceiling (§4.G); an
// index.scip whose decompressed payload exceeds it is treated as
// CorruptCache.
const DefaultMaxIndexBytes = 256 * 1024 * 1024

const (
	indexFileName    = "index.scip"
	manifestFileName = "manifest.json"
)

// Manifest is manifest.json's shape.
type Manifest struct {
	ToolVersion     string            `json:"tool_version"`
	ManifestVersion string            `json:"manifest_version"`
	IndexedAt       time.Time         `json:"indexed_at"`
	FileHashes      map[string]string `json:"file_hashes"`
}

// Compatible reports whether a manifest written with version is usable by
// this build: major and minor must match exactly; patch may differ.
func Compatible(version string) bool {
	vMajor, vMinor, ok := majorMinor(version)
	if !ok {
		return false
	}
	cMajor, cMinor, _ := majorMinor(CurrentManifestVersion)
	return vMajor == cMajor && vMinor == cMinor
}

func majorMinor(version string) (major, minor int, ok bool) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
