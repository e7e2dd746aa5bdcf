package queryengine

import (
	"regexp"
	"sort"

	coreerrors "scipdex/internal/errors"
	"scipdex/internal/index"
	"scipdex/internal/scipmodel"
)

func execGrep(provider Provider, stage Stage) (interface{}, []scipmodel.SymbolInfo, error) {
	if stage.Pattern == "" {
		return nil, nil, coreerrors.NewParseFailure(stage.Action, nil)
	}
	re, err := compileGrepPattern(stage)
	if err != nil {
		return nil, nil, coreerrors.NewParseFailure(stage.Pattern, err)
	}

	opts := index.GrepOptions{
		IncludeGlob:  stage.IncludeGlob,
		ExcludeGlob:  stage.ExcludeGlob,
		LinesBefore:  stage.ContextBefore,
		LinesAfter:   stage.ContextAfter,
		Invert:       stage.InvertMatch,
		MaxPerFile:   stage.MaxMatches,
		Multiline:    stage.Multiline,
		OnlyMatching: stage.OnlyMatching,
	}

	// Aggregate across every index in scope, mirroring find/refs: the DSL
	// grammar has no include-external flag of its own, so a grep stage
	// searches everything the Provider composes (§4.H's grep(..., true)).
	var matches []index.GrepMatch
	var allFiles []string
	for _, idx := range provider.AllIndexes() {
		if idx == nil {
			continue
		}
		found, err := idx.Grep(re, opts)
		if err != nil {
			return nil, nil, coreerrors.NewIoFailure("grep", idx.SourceRoot(), err)
		}
		matches = append(matches, found...)
		allFiles = append(allFiles, idx.Files()...)
	}

	if stage.CountOnly {
		counts := make(map[string]int)
		for _, m := range matches {
			counts[m.File]++
		}
		return GrepResult{Type: "grep", Count: len(matches), CountsByFile: counts}, nil, nil
	}
	if stage.FilesWithMatch {
		return GrepResult{Type: "grep", Count: len(matches), FilesWith: filesOf(matches)}, nil, nil
	}
	if stage.FilesWithout {
		matched := make(map[string]struct{})
		for _, m := range matches {
			matched[m.File] = struct{}{}
		}
		var without []string
		for _, path := range allFiles {
			if _, ok := matched[path]; !ok {
				without = append(without, path)
			}
		}
		sort.Strings(without)
		return GrepResult{Type: "grep", Count: len(without), FilesWithout: without}, nil, nil
	}

	results := make([]GrepRef, 0, len(matches))
	for _, m := range matches {
		if stage.OnlyMatching {
			results = append(results, GrepRef{File: m.File, Line: m.Line, Match: m.MatchText})
			continue
		}
		results = append(results, GrepRef{
			File:          m.File,
			Line:          m.Line,
			Text:          m.Text,
			Context:       m.Context,
			SymbolContext: m.SymbolContext,
		})
	}
	return GrepResult{Type: "grep", Count: len(results), Results: results}, nil, nil
}

func filesOf(matches []index.GrepMatch) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range matches {
		if _, ok := seen[m.File]; !ok {
			seen[m.File] = struct{}{}
			out = append(out, m.File)
		}
	}
	sort.Strings(out)
	return out
}

func compileGrepPattern(stage Stage) (*regexp.Regexp, error) {
	pattern := stage.Pattern
	body, flags := pattern, ""
	if len(pattern) > 1 && pattern[0] == '/' {
		if idx := lastSlash(pattern[1:]); idx >= 0 {
			body = pattern[1 : idx+1]
			flags = pattern[idx+2:]
		}
	}
	prefix := ""
	if stage.CaseInsensitive || containsRune(flags, 'i') {
		prefix = "(?i)"
	}
	if stage.FixedString {
		body = regexp.QuoteMeta(body)
	}
	if stage.WholeWord {
		body = `\b(?:` + body + `)\b`
	}
	if stage.Multiline {
		prefix += "(?s)"
	}
	return regexp.Compile(prefix + body)
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
