package repos

import (
	"fmt"
	"regexp"
	"strings"

	"scipdex/internal/index"
	"scipdex/internal/scipmodel"
)

// Scope controls whether external (SDK/hosted/git/flutter) packages
// participate in a find_symbols/find_qualified lookup (SPEC_FULL.md §4.H).
type Scope string

const (
	// ScopeProject restricts a lookup to the project index plus its local
	// packages.
	ScopeProject Scope = "project"
	// ScopeProjectAndLoaded additionally includes every loaded external
	// package index.
	ScopeProjectAndLoaded Scope = "project_and_loaded"
)

// IndexSet composes one project index with zero or more local-package
// indexes and external dependency indexes (sdk/hosted/git/flutter),
// implementing the Registry and Provider contract of SPEC_FULL.md §4.H.
// Its ProjectIndex/AllIndexes methods satisfy internal/queryengine's
// Provider interface directly — queryengine depends only on *index.Index,
// so no import back to this package is needed.
type IndexSet struct {
	project *index.Index

	localNames []string
	local      map[string]*index.Index

	sdk *index.Index

	hostedOrder []string
	hosted      map[string]*index.Index

	gitOrder []string
	git      map[string]*index.Index

	flutterOrder []string
	flutter      map[string]*index.Index
}

// NewIndexSet creates an IndexSet around the primary, writable project
// index. project may be nil only for a set that composes purely external
// indexes (e.g. while a project is still being discovered).
func NewIndexSet(project *index.Index) *IndexSet {
	return &IndexSet{
		project: project,
		local:   make(map[string]*index.Index),
		hosted:  make(map[string]*index.Index),
		git:     make(map[string]*index.Index),
		flutter: make(map[string]*index.Index),
	}
}

// AddLocalPackage registers (or replaces) a local package's index under
// name.
func (s *IndexSet) AddLocalPackage(name string, idx *index.Index) {
	if _, exists := s.local[name]; !exists {
		s.localNames = append(s.localNames, name)
	}
	s.local[name] = idx
}

// SetSDK installs the language SDK's index, if one is loaded.
func (s *IndexSet) SetSDK(idx *index.Index) { s.sdk = idx }

// AddHosted registers a registry-hosted dependency's index under a
// "name@version" key.
func (s *IndexSet) AddHosted(nameAtVersion string, idx *index.Index) {
	if _, exists := s.hosted[nameAtVersion]; !exists {
		s.hostedOrder = append(s.hostedOrder, nameAtVersion)
	}
	s.hosted[nameAtVersion] = idx
}

// AddGit registers a git-sourced dependency's index under key (typically
// "repo-shortcommit").
func (s *IndexSet) AddGit(key string, idx *index.Index) {
	if _, exists := s.git[key]; !exists {
		s.gitOrder = append(s.gitOrder, key)
	}
	s.git[key] = idx
}

// AddFlutter registers a Flutter SDK package's index under name.
func (s *IndexSet) AddFlutter(name string, idx *index.Index) {
	if _, exists := s.flutter[name]; !exists {
		s.flutterOrder = append(s.flutterOrder, name)
	}
	s.flutter[name] = idx
}

// ProjectIndex returns the primary writable index.
func (s *IndexSet) ProjectIndex() *index.Index { return s.project }

// LocalIndexes returns the registered local-package indexes, in
// registration order.
func (s *IndexSet) LocalIndexes() []*index.Index {
	out := make([]*index.Index, 0, len(s.localNames))
	for _, name := range s.localNames {
		out = append(out, s.local[name])
	}
	return out
}

// ExternalIndexes returns sdk + hosted + git + flutter indexes, in that
// order.
func (s *IndexSet) ExternalIndexes() []*index.Index {
	var out []*index.Index
	if s.sdk != nil {
		out = append(out, s.sdk)
	}
	for _, k := range s.hostedOrder {
		out = append(out, s.hosted[k])
	}
	for _, k := range s.gitOrder {
		out = append(out, s.git[k])
	}
	for _, k := range s.flutterOrder {
		out = append(out, s.flutter[k])
	}
	return out
}

// AllIndexes returns project + local + external indexes, project first.
func (s *IndexSet) AllIndexes() []*index.Index {
	out := make([]*index.Index, 0, 1+len(s.localNames)+len(s.hostedOrder)+len(s.gitOrder)+len(s.flutterOrder))
	if s.project != nil {
		out = append(out, s.project)
	}
	out = append(out, s.LocalIndexes()...)
	out = append(out, s.ExternalIndexes()...)
	return out
}

// StateID summarizes the mutable state of every composed index into a
// short string that changes whenever any index's contents change. It is
// not a content hash, only a cheap invalidation signal for a
// query-result cache keyed by (query text, StateID): a file add/remove/
// edit changes at least one of files/symbols/references/call-edges in
// some index, which changes this string.
func (s *IndexSet) StateID() string {
	var b strings.Builder
	for _, idx := range s.AllIndexes() {
		st := idx.Stats()
		fmt.Fprintf(&b, "%d:%d:%d:%d|", st.Files, st.Symbols, st.References, st.CallEdges)
	}
	return b.String()
}

// indexesForScope returns the indexes a find_symbols/find_qualified
// lookup should search for scope.
func (s *IndexSet) indexesForScope(scope Scope) []*index.Index {
	var out []*index.Index
	if s.project != nil {
		out = append(out, s.project)
	}
	out = append(out, s.LocalIndexes()...)
	if scope == ScopeProjectAndLoaded {
		out = append(out, s.ExternalIndexes()...)
	}
	return out
}

// FindOwningIndex returns the first index whose symbols contain id, the
// project winning ties (§4.H).
func (s *IndexSet) FindOwningIndex(id string) (*index.Index, bool) {
	for _, idx := range s.AllIndexes() {
		if idx == nil {
			continue
		}
		if _, ok := idx.GetSymbol(id); ok {
			return idx, true
		}
	}
	return nil, false
}

// GetSymbol looks up id across every composed index, project first.
func (s *IndexSet) GetSymbol(id string) (scipmodel.SymbolInfo, bool) {
	idx, ok := s.FindOwningIndex(id)
	if !ok {
		return scipmodel.SymbolInfo{}, false
	}
	return idx.GetSymbol(id)
}

// FindSymbols runs an anchored-name lookup across every index in scope,
// returning at most one entry per SymbolID (§4.H dedup).
func (s *IndexSet) FindSymbols(pattern string, scope Scope) ([]scipmodel.SymbolInfo, error) {
	seen := make(map[string]struct{})
	var out []scipmodel.SymbolInfo
	for _, idx := range s.indexesForScope(scope) {
		if idx == nil {
			continue
		}
		found, err := idx.FindSymbols(pattern)
		if err != nil {
			return nil, err
		}
		for _, sym := range found {
			if _, dup := seen[sym.ID]; dup {
				continue
			}
			seen[sym.ID] = struct{}{}
			out = append(out, sym)
		}
	}
	return out, nil
}

// FindQualified runs find_qualified across project, local, and external
// indexes and dedups by SymbolID.
func (s *IndexSet) FindQualified(container, member string) ([]scipmodel.SymbolInfo, error) {
	seen := make(map[string]struct{})
	var out []scipmodel.SymbolInfo
	for _, idx := range s.indexesForScope(ScopeProjectAndLoaded) {
		if idx == nil {
			continue
		}
		found, err := idx.FindQualified(container, member)
		if err != nil {
			return nil, err
		}
		for _, sym := range found {
			if _, dup := seen[sym.ID]; dup {
				continue
			}
			seen[sym.ID] = struct{}{}
			out = append(out, sym)
		}
	}
	return out, nil
}

type refKey struct {
	file   string
	line   int
	column int
}

// FindAllReferences aggregates find_references across every composed
// index and dedups by (file, line, column), per §8 scenario 6.
func (s *IndexSet) FindAllReferences(id string) []scipmodel.OccurrenceInfo {
	seen := make(map[refKey]struct{})
	var out []scipmodel.OccurrenceInfo
	for _, idx := range s.AllIndexes() {
		if idx == nil {
			continue
		}
		for _, occ := range idx.FindReferences(id) {
			key := refKey{occ.File, occ.Range.StartLine, occ.Range.StartCol}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, occ)
		}
	}
	return out
}

// GetSource dispatches to the owning index's GetSource, which reads from
// that index's own SourceRoot — not its ProjectRoot. External packages
// keep their cache under project_root and their actual sources under
// source_root (§9).
func (s *IndexSet) GetSource(id string) (lines []string, startLine int, ok bool, err error) {
	idx, found := s.FindOwningIndex(id)
	if !found {
		return nil, 0, false, nil
	}
	return idx.GetSource(id)
}

// Grep runs Grep across the project and local indexes, plus every
// external index when includeExternal is set.
func (s *IndexSet) Grep(re *regexp.Regexp, opts index.GrepOptions, includeExternal bool) ([]index.GrepMatch, error) {
	var indexes []*index.Index
	if s.project != nil {
		indexes = append(indexes, s.project)
	}
	indexes = append(indexes, s.LocalIndexes()...)
	if includeExternal {
		indexes = append(indexes, s.ExternalIndexes()...)
	}

	var out []index.GrepMatch
	for _, idx := range indexes {
		if idx == nil {
			continue
		}
		matches, err := idx.Grep(re, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}
