package project

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DiscoveredPackage is one package found under a project root, tagged
// with the language its own manifest declares. A project can contain
// more than one package of different languages (a workspace/monorepo);
// language is a per-package property, never a single project-wide
// default (§6, §9).
type DiscoveredPackage struct {
	Name     string
	Path     string   // absolute path to the package root
	Version  string
	Language Language
	Manifest string // manifest file name that identified it, e.g. "pubspec.yaml"
}

// packageManifests maps a manifest filename to the language it declares.
// readPackageMeta below reads each format's name and version; a Gemfile
// is not read, so its package takes the directory name.
var packageManifests = map[string]Language{
	"go.mod":         LangGo,
	"package.json":   LangTypeScript,
	"pubspec.yaml":   LangDart,
	"Cargo.toml":     LangRust,
	"pyproject.toml": LangPython,
	"composer.json":  LangPHP,
	"Gemfile":        LangRuby,
}

// DiscoverPackages walks root, bounded the same way findWithDepth is,
// and returns one DiscoveredPackage per directory containing a
// recognized manifest file — including root itself when it qualifies.
// A monorepo with, say, a Go service and a Dart client under the same
// root yields one DiscoveredPackage per language.
func DiscoverPackages(root string) ([]DiscoveredPackage, error) {
	var out []DiscoveredPackage
	checked := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if checked >= maxFilesToCheck {
			return fs.SkipAll
		}

		rel, _ := filepath.Rel(root, path)
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(os.PathSeparator)) + 1
		}
		if d.IsDir() {
			switch d.Name() {
			case "node_modules", ".git", "vendor", ".ckb", "__pycache__", ".venv", "venv", "build":
				return filepath.SkipDir
			}
			if depth > maxScanDepth {
				return filepath.SkipDir
			}
			return nil
		}

		checked++
		lang, ok := packageManifests[d.Name()]
		if !ok {
			return nil
		}
		pkgRoot := filepath.Dir(path)
		name, version := readPackageMeta(d.Name(), path)
		if name == "" {
			name = filepath.Base(pkgRoot)
		}
		out = append(out, DiscoveredPackage{
			Name:     name,
			Path:     pkgRoot,
			Version:  version,
			Language: lang,
			Manifest: d.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// readPackageMeta best-effort extracts a package's declared name and
// version from its manifest. Manifests it cannot parse (or that lack
// the field) yield empty strings, and the caller falls back to the
// directory name.
func readPackageMeta(manifestName, path string) (name, version string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}

	switch manifestName {
	case "package.json", "composer.json":
		var m struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		if json.Unmarshal(data, &m) == nil {
			return m.Name, m.Version
		}
	case "pubspec.yaml":
		var m struct {
			Name    string `yaml:"name"`
			Version string `yaml:"version"`
		}
		if yaml.Unmarshal(data, &m) == nil {
			return m.Name, m.Version
		}
	case "Cargo.toml":
		var m struct {
			Package struct {
				Name    string `toml:"name"`
				Version string `toml:"version"`
			} `toml:"package"`
		}
		if toml.Unmarshal(data, &m) == nil {
			return m.Package.Name, m.Package.Version
		}
	case "pyproject.toml":
		var m struct {
			Project struct {
				Name    string `toml:"name"`
				Version string `toml:"version"`
			} `toml:"project"`
			Tool struct {
				Poetry struct {
					Name    string `toml:"name"`
					Version string `toml:"version"`
				} `toml:"poetry"`
			} `toml:"tool"`
		}
		if toml.Unmarshal(data, &m) == nil {
			if m.Project.Name != "" {
				return m.Project.Name, m.Project.Version
			}
			return m.Tool.Poetry.Name, m.Tool.Poetry.Version
		}
	case "go.mod":
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "module ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "module ")), ""
			}
		}
	}
	return "", ""
}
