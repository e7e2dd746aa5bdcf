package project

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// overridesFilename is the per-package manifest a monorepo can drop
// beside a package's own manifest (pubspec.yaml, go.mod, ...) to
// override how that one package is indexed, without touching the
// project-wide .ckb/project.json.
const overridesFilename = ".ckbpkg.toml"

// PackageOverrides holds the subset of a DiscoveredPackage's indexing
// behavior a package itself can override: a different indexer command
// than its language's default, and whether incremental indexing should be
// disabled for it even if the language generally supports it (a package
// with a deliberately slow or stateful indexer might opt out).
// ExcludePaths is parsed from the file, but neither Apply nor file
// listing consults it.
type PackageOverrides struct {
	IndexerCmd         string   `toml:"indexer_cmd"`
	IndexerArgs        []string `toml:"indexer_args"`
	ExcludePaths       []string `toml:"exclude_paths"`
	DisableIncremental bool     `toml:"disable_incremental"`
}

// LoadPackageOverrides reads packageRoot's .ckbpkg.toml, if present.
// ok is false (with a nil error) when no override file exists.
func LoadPackageOverrides(packageRoot string) (PackageOverrides, bool, error) {
	data, err := os.ReadFile(filepath.Join(packageRoot, overridesFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return PackageOverrides{}, false, nil
		}
		return PackageOverrides{}, false, err
	}

	var out PackageOverrides
	if err := toml.Unmarshal(data, &out); err != nil {
		return PackageOverrides{}, false, err
	}
	return out, true, nil
}

// Apply returns the IndexerConfig cfg should use once po's overrides are
// layered on top, leaving cfg untouched when po sets nothing.
func (po PackageOverrides) Apply(cfg IndexerConfig) IndexerConfig {
	if po.IndexerCmd != "" {
		cfg.Cmd = po.IndexerCmd
	}
	if len(po.IndexerArgs) > 0 {
		cfg.Args = po.IndexerArgs
	}
	if po.DisableIncremental {
		cfg.SupportsIncremental = false
	}
	return cfg
}
