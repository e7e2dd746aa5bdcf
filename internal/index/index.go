// Package index holds the in-memory semantic index: symbol, occurrence,
// document, parent/child, and call-graph maps, the mutation operations
// that keep them consistent, and the query primitives the query DSL
// executor and Provider build on.
//
// A single Index instance is single-writer/multi-reader (see SPEC_FULL.md
// §5): callers that mutate the index (update_document/remove_document)
// are expected to serialize with each other; lookups take a read lock and
// never suspend.
package index

import (
	"sync"

	"scipdex/internal/scipmodel"
)

// Index is the in-memory semantic index for one package. All maps are
// keyed by SymbolID except documents, which is keyed by relative path.
type Index struct {
	mu sync.RWMutex

	symbols     map[string]scipmodel.SymbolInfo
	occurrences map[string][]scipmodel.OccurrenceInfo
	documents   map[string]scipmodel.Document
	children    map[string][]string
	calls       map[string]map[string]struct{}
	callers     map[string]map[string]struct{}

	projectRoot string
	sourceRoot  string
}

// New creates an empty index rooted at projectRoot. If sourceRoot is
// empty it defaults to projectRoot, matching the spec's default for
// local (non-external) packages.
func New(projectRoot, sourceRoot string) *Index {
	if sourceRoot == "" {
		sourceRoot = projectRoot
	}
	return &Index{
		symbols:     make(map[string]scipmodel.SymbolInfo),
		occurrences: make(map[string][]scipmodel.OccurrenceInfo),
		documents:   make(map[string]scipmodel.Document),
		children:    make(map[string][]string),
		calls:       make(map[string]map[string]struct{}),
		callers:     make(map[string]map[string]struct{}),
		projectRoot: projectRoot,
		sourceRoot:  sourceRoot,
	}
}

// FromSCIP builds an index from a batch of already-decoded documents, e.g.
// the output of scipmodel.DecodeIndex. It is equivalent to calling
// UpdateDocument for each document in order.
func FromSCIP(docs []scipmodel.Document, projectRoot, sourceRoot string) *Index {
	idx := New(projectRoot, sourceRoot)
	for _, d := range docs {
		idx.UpdateDocument(d)
	}
	return idx
}

// ProjectRoot returns the directory the index was built/cached under.
func (idx *Index) ProjectRoot() string { return idx.projectRoot }

// SourceRoot returns the directory actual source files live under. For
// local packages this equals ProjectRoot; for external packages it does
// not (see SPEC_FULL.md §9).
func (idx *Index) SourceRoot() string { return idx.sourceRoot }

// UpdateDocument performs an idempotent replace: any existing document at
// the same path is removed first, then doc is ingested in two passes —
// pass 1 registers symbols and parent/child edges, pass 2 builds
// occurrence lists and the call graph (see callgraph.go).
func (idx *Index) UpdateDocument(doc scipmodel.Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeDocumentLocked(doc.RelativePath)

	for _, sym := range doc.Symbols {
		s := sym
		if s.File == "" {
			s.File = doc.RelativePath
		}
		if s.Language == "" {
			s.Language = doc.Language
		}
		idx.symbols[s.ID] = s
		if parent, ok := scipmodel.ParentOf(s.ID); ok {
			idx.children[parent] = append(idx.children[parent], s.ID)
		}
	}

	for _, occ := range doc.Occurrences {
		idx.occurrences[occ.Symbol] = append(idx.occurrences[occ.Symbol], occ)
	}

	buildCallGraph(idx, doc)

	idx.documents[doc.RelativePath] = doc
}

// RemoveDocument deletes everything a document at path contributed:
// symbols it defined, children entries for those symbols, occurrences
// whose file matches, and any call/caller edges incident to a deleted
// symbol.
func (idx *Index) RemoveDocument(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeDocumentLocked(path)
}

func (idx *Index) removeDocumentLocked(path string) {
	doc, ok := idx.documents[path]
	if !ok {
		return
	}

	deleted := make(map[string]struct{}, len(doc.Symbols))
	for _, sym := range doc.Symbols {
		deleted[sym.ID] = struct{}{}
		delete(idx.symbols, sym.ID)
		if parent, has := scipmodel.ParentOf(sym.ID); has {
			idx.children[parent] = removeString(idx.children[parent], sym.ID)
			if len(idx.children[parent]) == 0 {
				delete(idx.children, parent)
			}
		}
	}

	for sym, occs := range idx.occurrences {
		filtered := occs[:0:0]
		for _, o := range occs {
			if o.File != path {
				filtered = append(filtered, o)
			}
		}
		if len(filtered) == 0 {
			delete(idx.occurrences, sym)
		} else {
			idx.occurrences[sym] = filtered
		}
	}

	for sym := range deleted {
		for target := range idx.calls[sym] {
			delete(idx.callers[target], sym)
			if len(idx.callers[target]) == 0 {
				delete(idx.callers, target)
			}
		}
		delete(idx.calls, sym)
		for caller := range idx.callers[sym] {
			delete(idx.calls[caller], sym)
			if len(idx.calls[caller]) == 0 {
				delete(idx.calls, caller)
			}
		}
		delete(idx.callers, sym)
	}

	delete(idx.documents, path)
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// GetSymbol returns the symbol registered under id, if any.
func (idx *Index) GetSymbol(id string) (scipmodel.SymbolInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	s, ok := idx.symbols[id]
	return s, ok
}

// FindByName returns every symbol whose derived name exactly equals name.
func (idx *Index) FindByName(name string) []scipmodel.SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []scipmodel.SymbolInfo
	for _, s := range idx.symbols {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

// FindDefinition returns the first occurrence of id with the Definition
// bit set, per invariant 4.
func (idx *Index) FindDefinition(id string) (scipmodel.OccurrenceInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, occ := range idx.occurrences[id] {
		if occ.IsDefinition {
			return occ, true
		}
	}
	return scipmodel.OccurrenceInfo{}, false
}

// FindReferences returns every occurrence of id that is not a
// definition.
func (idx *Index) FindReferences(id string) []scipmodel.OccurrenceInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []scipmodel.OccurrenceInfo
	for _, occ := range idx.occurrences[id] {
		if !occ.IsDefinition {
			out = append(out, occ)
		}
	}
	return out
}

// FindImplementations returns symbols with a relationship targeting id
// where IsImplementation is set.
func (idx *Index) FindImplementations(id string) []scipmodel.SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []scipmodel.SymbolInfo
	for _, s := range idx.symbols {
		for _, rel := range s.Relationships {
			if rel.TargetID == id && rel.IsImplementation {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// SupertypesOf returns the symbols id's relationships mark as
// type-definition targets (its supertypes/interfaces).
func (idx *Index) SupertypesOf(id string) []scipmodel.SymbolInfo {
	idx.mu.RLock()
	s, ok := idx.symbols[id]
	idx.mu.RUnlock()
	if !ok {
		return nil
	}
	var out []scipmodel.SymbolInfo
	for _, rel := range s.Relationships {
		if rel.IsTypeDefinition {
			if target, ok := idx.GetSymbol(rel.TargetID); ok {
				out = append(out, target)
			}
		}
	}
	return out
}

// SubtypesOf returns symbols that implement or extend id.
func (idx *Index) SubtypesOf(id string) []scipmodel.SymbolInfo {
	return idx.FindImplementations(id)
}

// MembersOf returns the resolved children of id, in insertion order,
// excluding symbols of kind Parameter per the spec's filtering policy.
func (idx *Index) MembersOf(id string) []scipmodel.SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []scipmodel.SymbolInfo
	for _, childID := range idx.children[id] {
		s, ok := idx.symbols[childID]
		if !ok || s.Kind == scipmodel.KindParameter {
			continue
		}
		out = append(out, s)
	}
	return out
}

// GetCalls returns the set of symbols id calls.
func (idx *Index) GetCalls(id string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return setKeys(idx.calls[id])
}

// GetCallers returns the set of symbols that call id.
func (idx *Index) GetCallers(id string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return setKeys(idx.callers[id])
}

func setKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// SymbolsInFile returns the symbols defined by the document at path.
func (idx *Index) SymbolsInFile(path string) []scipmodel.SymbolInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	doc, ok := idx.documents[path]
	if !ok {
		return nil
	}
	return append([]scipmodel.SymbolInfo(nil), doc.Symbols...)
}

// Files returns every indexed relative path.
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.documents))
	for path := range idx.documents {
		out = append(out, path)
	}
	return out
}

// Stats summarizes the index for the `stats` DSL action.
type Stats struct {
	Files      int
	Symbols    int
	References int
	CallEdges  int
}

// Stats computes aggregate counters over the current index state.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	refs := 0
	for _, occs := range idx.occurrences {
		for _, o := range occs {
			if !o.IsDefinition {
				refs++
			}
		}
	}
	edges := 0
	for _, targets := range idx.calls {
		edges += len(targets)
	}
	return Stats{
		Files:      len(idx.documents),
		Symbols:    len(idx.symbols),
		References: refs,
		CallEdges:  edges,
	}
}

// Document returns the document stored at path, if any.
func (idx *Index) Document(path string) (scipmodel.Document, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	d, ok := idx.documents[path]
	return d, ok
}

// Occurrences returns the full occurrence list for id, in insertion
// order.
func (idx *Index) Occurrences(id string) []scipmodel.OccurrenceInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]scipmodel.OccurrenceInfo(nil), idx.occurrences[id]...)
}

// Children returns the raw children list for a parent id, used by tests
// exercising the parent/children round-trip invariant.
func (idx *Index) Children(parent string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]string(nil), idx.children[parent]...)
}
