package queryengine

import (
	"regexp"

	"scipdex/internal/index"
	"scipdex/internal/scipmodel"
)

// Provider is the subset of the Registry/Provider contract (SPEC_FULL.md
// §4.H) the query executor needs: the project's own index plus every
// index (project, local packages, external dependencies) references and
// grep should aggregate across.
type Provider interface {
	ProjectIndex() *index.Index
	AllIndexes() []*index.Index
}

// SingleIndexProvider adapts one *index.Index to Provider, for a single
// local package with no external dependencies configured.
type SingleIndexProvider struct {
	Index *index.Index
}

func (p SingleIndexProvider) ProjectIndex() *index.Index    { return p.Index }
func (p SingleIndexProvider) AllIndexes() []*index.Index    { return []*index.Index{p.Index} }

// findInIndexes runs a pattern lookup across every index in scope and
// concatenates results, per the Provider contract's find_symbols(pattern,
// scope).
func findInIndexes(indexes []*index.Index, kind PatternKind, body, flags, container, member string) ([]scipmodel.SymbolInfo, error) {
	var out []scipmodel.SymbolInfo
	for _, idx := range indexes {
		var found []scipmodel.SymbolInfo
		var err error
		switch kind {
		case PatternRegex:
			re, reErr := compileRegex(body, flags)
			if reErr != nil {
				return nil, reErr
			}
			found = matchByRegex(idx, re)
		case PatternFuzzy:
			found = idx.FindSymbolsFuzzy(body, 2)
		case PatternQualified:
			found, err = idx.FindQualified(container, member)
		default: // glob, bare
			found, err = idx.FindSymbols(body)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// ownerOf returns the first index among indexes that has id registered,
// project-first since AllIndexes() lists project before local/external
// (§4.H: find_owning_index, project wins ties). Operations that read a
// symbol's definition, source, members, or call graph must dispatch
// through the owning index rather than assuming the project index, since
// an external symbol's definition and source_root live in its own index.
func ownerOf(indexes []*index.Index, id string) (*index.Index, bool) {
	for _, idx := range indexes {
		if idx == nil {
			continue
		}
		if _, ok := idx.GetSymbol(id); ok {
			return idx, true
		}
	}
	return nil, false
}

func compileRegex(body, flags string) (*regexp.Regexp, error) {
	prefix := ""
	for _, f := range flags {
		if f == 'i' {
			prefix = "(?i)"
		}
	}
	return regexp.Compile(prefix + body)
}

func matchByRegex(idx *index.Index, re *regexp.Regexp) []scipmodel.SymbolInfo {
	var out []scipmodel.SymbolInfo
	for _, path := range idx.Files() {
		for _, s := range idx.SymbolsInFile(path) {
			if re.MatchString(s.Name()) {
				out = append(out, s)
			}
		}
	}
	return out
}

type refKey struct {
	file   string
	line   int
	column int
}

// aggregateImplementations runs find_implementations across every index
// in scope and dedups by SymbolID, since the symbol implementing/
// extending id may be defined in a different package's index than id
// itself (e.g. a project class implementing an external interface).
func aggregateImplementations(indexes []*index.Index, id string) []scipmodel.SymbolInfo {
	seen := make(map[string]struct{})
	var out []scipmodel.SymbolInfo
	for _, idx := range indexes {
		for _, s := range idx.FindImplementations(id) {
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// resolveSupertypes resolves s's is_type_definition relationships across
// every index in scope, since a relationship target may live in a
// different index than s (e.g. an external interface s implements).
func resolveSupertypes(indexes []*index.Index, s scipmodel.SymbolInfo) []scipmodel.SymbolInfo {
	var out []scipmodel.SymbolInfo
	for _, rel := range s.Relationships {
		if !rel.IsTypeDefinition {
			continue
		}
		if owner, ok := ownerOf(indexes, rel.TargetID); ok {
			if target, ok := owner.GetSymbol(rel.TargetID); ok {
				out = append(out, target)
			}
		}
	}
	return out
}

// findAllReferences aggregates find_references across every index, then
// dedups by (file, line, column), per §8 scenario 6.
func findAllReferences(indexes []*index.Index, id string) []scipmodel.OccurrenceInfo {
	seen := make(map[refKey]struct{})
	var out []scipmodel.OccurrenceInfo
	for _, idx := range indexes {
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
