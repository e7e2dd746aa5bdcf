package main

import (
	"context"
	"fmt"

	"scipdex/internal/binding"
	"scipdex/internal/config"
	"scipdex/internal/indexer"
	"scipdex/internal/logging"
	"scipdex/internal/project"
	repos "scipdex/internal/registry"
)

// extensionsByLanguage gives ExecBinding the source extensions it needs
// for ListFiles/matchesExtension; it mirrors project.packageManifests'
// language set.
var extensionsByLanguage = map[project.Language][]string{
	project.LangGo:         {".go"},
	project.LangTypeScript: {".ts", ".tsx"},
	project.LangJavaScript: {".js", ".jsx"},
	project.LangPython:     {".py"},
	project.LangRust:       {".rs"},
	project.LangDart:       {".dart"},
	project.LangPHP:        {".php"},
	project.LangRuby:       {".rb"},
}

// openProject discovers every package under root, opens (building or
// loading from cache) one Indexer per package, and composes them into an
// IndexSet: the package whose path equals root is the project index,
// every other discovered package becomes a named local package (§4.F,
// §4.H). Callers own the returned indexers and must Close them.
func openProject(ctx context.Context, root string, loaded *config.LoadResult, logger *logging.Logger) (*repos.IndexSet, []*indexer.Indexer, error) {
	pkgs, err := project.DiscoverPackages(root)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering packages under %s: %w", root, err)
	}
	if len(pkgs) == 0 {
		return nil, nil, fmt.Errorf("no recognized package manifest found under %s", root)
	}

	var indexers []*indexer.Indexer
	rootIdx := -1
	for _, pkg := range pkgs {
		ext := extensionsByLanguage[pkg.Language]
		ix := indexer.New(indexer.Options{
			Pkg:           pkg,
			Binding:       binding.NewExecBinding(pkg.Language, ext...),
			Logger:        logger,
			CacheMaxBytes: loaded.Config.Cache.MaxIndexBytes,
			WatchConfig:   loaded.Config.Watcher,
		})
		if err := ix.Open(ctx); err != nil {
			closeAll(indexers)
			return nil, nil, fmt.Errorf("opening package %s: %w", pkg.Path, err)
		}
		if pkg.Path == root {
			rootIdx = len(indexers)
		}
		indexers = append(indexers, ix)
	}

	// The package discovered at root itself becomes the project index; a
	// monorepo with no manifest at its literal root still queries fine as
	// an all-local-packages IndexSet with no project index of its own.
	var set *repos.IndexSet
	if rootIdx >= 0 {
		set = repos.NewIndexSet(indexers[rootIdx].Index())
	} else {
		set = repos.NewIndexSet(nil)
	}
	for i, pkg := range pkgs {
		if i == rootIdx {
			continue
		}
		set.AddLocalPackage(pkg.Name, indexers[i].Index())
	}

	return set, indexers, nil
}

func closeAll(indexers []*indexer.Indexer) {
	for _, ix := range indexers {
		_ = ix.Close()
	}
}
