package queryengine

import (
	"strings"

	coreerrors "scipdex/internal/errors"
	"scipdex/internal/index"
	"scipdex/internal/scipmodel"
)

// Run parses and executes query against provider, returning one of the
// Result types from results.go, an ErrorResult, or a NotFoundResult —
// never a Go error for well-formed input (SPEC_FULL.md §7: query errors
// are values).
func Run(provider Provider, query string) interface{} {
	stages, err := Parse(query)
	if err != nil {
		return ErrorResult{Type: "error", Message: err.Error()}
	}

	var symbols []scipmodel.SymbolInfo
	var stageResults []interface{}
	var lastResult interface{}

	for _, stage := range stages {
		result, nextSymbols, err := executeStage(provider, symbols, stage)
		if err != nil {
			if ce, ok := err.(*coreerrors.CoreError); ok && ce.Code == coreerrors.NotFound {
				return NotFoundResult{Type: "not_found", Message: ce.Message}
			}
			return ErrorResult{Type: "error", Message: err.Error()}
		}
		lastResult = result
		stageResults = append(stageResults, result)
		symbols = nextSymbols
	}

	if len(stages) == 1 {
		return lastResult
	}
	// A final stage that fanned out over several input symbols (e.g.
	// `find * kind:class | members`) already returns one result per
	// symbol; that is the pipeline's result.
	if pr, ok := lastResult.(PipelineResult); ok {
		return pr
	}
	return PipelineResult{Type: "pipeline", Action: stages[len(stages)-1].Action, Results: stageResults}
}

func executeStage(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	switch stage.Action {
	case "find", "which":
		return execFind(provider, stage)
	case "get":
		return execGet(provider, stage)
	case "def":
		return execDef(provider, prevSymbols, stage)
	case "source":
		return execSource(provider, prevSymbols, stage)
	case "sig":
		return execSig(provider, prevSymbols, stage)
	case "refs":
		return execRefs(provider, prevSymbols, stage)
	case "members":
		return execMembers(provider, prevSymbols, stage)
	case "impls":
		return execImpls(provider, prevSymbols, stage)
	case "supertypes":
		return execSupertypes(provider, prevSymbols, stage)
	case "subtypes":
		return execSubtypes(provider, prevSymbols, stage)
	case "hierarchy":
		return execHierarchy(provider, prevSymbols, stage)
	case "calls":
		return execCallGraph(provider, prevSymbols, stage, "calls")
	case "callers":
		return execCallGraph(provider, prevSymbols, stage, "callers")
	case "grep":
		return execGrep(provider, stage)
	case "files":
		return execFiles(provider)
	case "stats":
		return execStats(provider)
	case "imports", "exports", "deps":
		return nil, nil, coreerrors.NewNotFound(stage.Action).WithDetails(
			stage.Action + " requires package-manifest metadata from a language binding, not available from the index alone")
	default:
		return nil, nil, coreerrors.NewParseFailure(stage.Action, nil)
	}
}

func symbolsForStage(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) ([]scipmodel.SymbolInfo, error) {
	if len(prevSymbols) > 0 {
		return applyFilters(prevSymbols, stage), nil
	}
	return resolvePattern(provider, stage)
}

// resolvePattern runs the §4.C pattern-matching rules against every
// index in scope, then applies kind:/in:/lang: filters.
func resolvePattern(provider Provider, stage Stage) ([]scipmodel.SymbolInfo, error) {
	if stage.Pattern == "" {
		return nil, nil
	}
	kind, body, flags, container, member := ClassifyPattern(stage.Pattern)
	found, err := findInIndexes(provider.AllIndexes(), kind, body, flags, container, member)
	if err != nil {
		return nil, coreerrors.NewParseFailure(stage.Pattern, err)
	}
	return applyFilters(found, stage), nil
}

func applyFilters(symbols []scipmodel.SymbolInfo, stage Stage) []scipmodel.SymbolInfo {
	if stage.Kind == "" && stage.In == "" && stage.Lang == "" {
		return symbols
	}
	var out []scipmodel.SymbolInfo
	for _, s := range symbols {
		if stage.Kind != "" && !strings.EqualFold(s.Kind.String(), stage.Kind) {
			continue
		}
		if stage.In != "" && !strings.HasPrefix(s.File, stage.In) {
			continue
		}
		if stage.Lang != "" && !strings.EqualFold(s.Language, stage.Lang) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func execFind(provider Provider, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := resolvePattern(provider, stage)
	if err != nil {
		return nil, nil, err
	}
	return SearchResult{Type: "search", Count: len(symbols), Results: toSymbolRefs(symbols)}, symbols, nil
}

func execGet(provider Provider, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	id := stage.Pattern
	owner, ok := ownerOf(provider.AllIndexes(), id)
	if !ok {
		return nil, nil, coreerrors.NewNotFound(id)
	}
	s, ok := owner.GetSymbol(id)
	if !ok {
		return nil, nil, coreerrors.NewNotFound(id)
	}
	return SearchResult{Type: "search", Count: 1, Results: toSymbolRefs([]scipmodel.SymbolInfo{s})}, []scipmodel.SymbolInfo{s}, nil
}

// disambiguate prefers container-like kinds (class/interface/mixin/enum)
// when a pattern matched more than one symbol, per §4.C.
func disambiguate(symbols []scipmodel.SymbolInfo) (scipmodel.SymbolInfo, bool) {
	if len(symbols) == 1 {
		return symbols[0], true
	}
	for _, s := range symbols {
		switch s.Kind {
		case scipmodel.KindClass, scipmodel.KindInterface, scipmodel.KindMixin, scipmodel.KindEnum:
			return s, true
		}
	}
	return scipmodel.SymbolInfo{}, false
}

func execDef(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s, ok := disambiguate(symbols)
	if !ok {
		return SearchResult{Type: "search", Count: len(symbols), Results: toSymbolRefs(symbols)}, symbols, nil
	}
	owner, ok := ownerOf(provider.AllIndexes(), s.ID)
	if !ok {
		return nil, nil, coreerrors.NewNotFound(s.ID)
	}
	occ, ok := owner.FindDefinition(s.ID)
	if !ok {
		return nil, nil, coreerrors.NewNotFound(s.ID)
	}
	ref := SymbolRef{Symbol: s.ID, Name: s.Name(), Kind: s.Kind.String(), File: occ.File, Line: occ.Range.StartLine, Column: occ.Range.StartCol}
	return DefinitionResult{Type: "definitions", Count: 1, Results: []SymbolRef{ref}}, []scipmodel.SymbolInfo{s}, nil
}

func execSource(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s, ok := disambiguate(symbols)
	if !ok {
		return SearchResult{Type: "search", Count: len(symbols), Results: toSymbolRefs(symbols)}, symbols, nil
	}
	owner, ok := ownerOf(provider.AllIndexes(), s.ID)
	if !ok {
		return nil, nil, coreerrors.NewNotFound(s.ID)
	}
	lines, start, ok, err := owner.GetSource(s.ID)
	if err != nil {
		return nil, nil, coreerrors.NewIoFailure("read source", s.File, err)
	}
	if !ok {
		return nil, nil, coreerrors.NewNotFound(s.ID)
	}
	return SourceResult{Type: "source", Symbol: s.ID, File: s.File, StartLine: start, Source: strings.Join(lines, "\n")}, []scipmodel.SymbolInfo{s}, nil
}

func execSig(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s, ok := disambiguate(symbols)
	if !ok {
		return SearchResult{Type: "search", Count: len(symbols), Results: toSymbolRefs(symbols)}, symbols, nil
	}
	owner, ok := ownerOf(provider.AllIndexes(), s.ID)
	if !ok {
		return nil, nil, coreerrors.NewNotFound(s.ID)
	}
	occ, ok := owner.FindDefinition(s.ID)
	if !ok {
		return nil, nil, coreerrors.NewNotFound(s.ID)
	}
	lines, err := readSignatureLine(owner, occ)
	if err != nil {
		return nil, nil, coreerrors.NewIoFailure("read signature", occ.File, err)
	}
	return SignatureResult{Type: "signature", File: occ.File, Line: occ.Range.StartLine, Signature: lines}, []scipmodel.SymbolInfo{s}, nil
}

func readSignatureLine(idx *index.Index, occ scipmodel.OccurrenceInfo) (string, error) {
	ctx, err := idx.GetContext(occ, 0, 0)
	if err != nil {
		return "", err
	}
	if len(ctx) == 0 {
		return "", nil
	}
	return strings.TrimSpace(ctx[0]), nil
}

func execRefs(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s := symbols[0]
	occs := findAllReferences(provider.AllIndexes(), s.ID)
	refs := make([]ReferenceRef, 0, len(occs))
	for _, occ := range occs {
		refs = append(refs, ReferenceRef{File: occ.File, Line: occ.Range.StartLine, Column: occ.Range.StartCol})
	}
	return ReferencesResult{Type: "references", Symbol: s.ID, Name: s.Name(), Count: len(refs), Results: refs}, symbols, nil
}

func execMembers(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	// A pipeline stage such as `find * kind:class | members` expands
	// every matched symbol's members, not just the first.
	var allMembers []scipmodel.SymbolInfo
	perSymbol := make([]interface{}, 0, len(symbols))
	for _, s := range symbols {
		var members []scipmodel.SymbolInfo
		if owner, ok := ownerOf(provider.AllIndexes(), s.ID); ok {
			members = owner.MembersOf(s.ID)
		}
		allMembers = append(allMembers, members...)
		perSymbol = append(perSymbol, MembersResult{Type: "members", Symbol: s.ID, Name: s.Name(), Count: len(members), Results: toSymbolRefs(members)})
	}
	if len(symbols) == 1 {
		return perSymbol[0], allMembers, nil
	}
	return PipelineResult{Type: "pipeline", Action: "members", Results: perSymbol}, allMembers, nil
}

func execImpls(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s := symbols[0]
	impls := aggregateImplementations(provider.AllIndexes(), s.ID)
	return SearchResult{Type: "search", Count: len(impls), Results: toSymbolRefs(impls)}, impls, nil
}

func execSupertypes(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s := symbols[0]
	sup := resolveSupertypes(provider.AllIndexes(), s)
	return SearchResult{Type: "search", Count: len(sup), Results: toSymbolRefs(sup)}, sup, nil
}

func execSubtypes(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s := symbols[0]
	sub := aggregateImplementations(provider.AllIndexes(), s.ID)
	return SearchResult{Type: "search", Count: len(sub), Results: toSymbolRefs(sub)}, sub, nil
}

func execHierarchy(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s := symbols[0]
	sup := resolveSupertypes(provider.AllIndexes(), s)
	sub := aggregateImplementations(provider.AllIndexes(), s.ID)
	return HierarchyResult{Type: "hierarchy", Symbol: s.ID, Name: s.Name(), Supertypes: toSymbolRefs(sup), Subtypes: toSymbolRefs(sub)}, symbols, nil
}

func execCallGraph(provider Provider, prevSymbols []scipmodel.SymbolInfo, stage Stage, direction string) (interface{}, []scipmodel.SymbolInfo, error) {
	symbols, err := symbolsForStage(provider, prevSymbols, stage)
	if err != nil {
		return nil, nil, err
	}
	if len(symbols) == 0 {
		return nil, nil, coreerrors.NewNotFound(stage.Pattern)
	}
	s := symbols[0]
	owner, ok := ownerOf(provider.AllIndexes(), s.ID)
	if !ok {
		return nil, nil, coreerrors.NewNotFound(s.ID)
	}
	var ids []string
	if direction == "calls" {
		ids = owner.GetCalls(s.ID)
	} else {
		ids = owner.GetCallers(s.ID)
	}
	var connections []scipmodel.SymbolInfo
	for _, id := range ids {
		if sym, ok := owner.GetSymbol(id); ok {
			connections = append(connections, sym)
		}
	}
	return CallGraphResult{Type: "call_graph", Direction: direction, Connections: toSymbolRefs(connections)}, connections, nil
}

func execFiles(provider Provider) (interface{}, []scipmodel.SymbolInfo, error) {
	files := provider.ProjectIndex().Files()
	return FilesResult{Type: "files", Count: len(files), Files: files}, nil, nil
}

func execStats(provider Provider) (interface{}, []scipmodel.SymbolInfo, error) {
	s := provider.ProjectIndex().Stats()
	return StatsResult{Type: "stats", Stats: map[string]int{
		"files":      s.Files,
		"symbols":    s.Symbols,
		"references": s.References,
		"call_edges": s.CallEdges,
	}}, nil, nil
}

func toSymbolRefs(symbols []scipmodel.SymbolInfo) []SymbolRef {
	out := make([]SymbolRef, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, SymbolRef{Symbol: s.ID, Name: s.Name(), Kind: s.Kind.String(), File: s.File})
	}
	return out
}
