package queryengine

import (
	"strconv"
	"strings"
)

// Stage is one pipe-separated segment of a query: an action plus its
// filters, flags, and pattern (see SPEC_FULL.md §4.C's grammar).
type Stage struct {
	Action  string
	Pattern string

	Kind string // filter: kind:KIND
	In   string // filter: in:PATH
	Lang string // filter: lang:LANG

	CaseInsensitive bool // -i
	InvertMatch     bool // -v
	WholeWord       bool // -w
	FilesWithMatch  bool // -l
	FilesWithout    bool // -L
	CountOnly       bool // -c
	OnlyMatching    bool // -o
	FixedString     bool // -F
	Multiline       bool // -M
	Dedup           bool // -D

	ContextBefore int // -C:N
	ContextAfter  int
	MaxMatches    int // -m:N

	IncludeGlob string // --include:GLOB
	ExcludeGlob string // --exclude:GLOB

	// Args carries any tokens not otherwise claimed, in case an action
	// needs positional arguments beyond its pattern (e.g. `get <id>`).
	Args []string
}

// Parse splits a query into pipe-separated stages and parses each one.
// An empty query or empty stage is a parse error.
func Parse(query string) ([]Stage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errParseFailure(query, "empty query")
	}
	parts := splitTopLevel(query)
	stages := make([]Stage, 0, len(parts))
	for _, part := range parts {
		s, err := parseStage(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

// splitTopLevel splits a query into pipe-separated stages. Per the
// grammar (§4.C), every argument is a whitespace-delimited token, so "|"
// only ever means the pipeline separator when it appears as its own
// token — a "|" embedded in a larger token is glob alternation
// (`Scip*|*Index`) or lives inside a `/regex/` body, never a stage
// boundary. Splitting on whitespace-delimited tokens, rather than
// scanning raw characters for a `/.../ ` literal, also means a SymbolID
// argument full of '/' path separators (e.g. `get <id> | subtypes`)
// never confuses the splitter.
func splitTopLevel(s string) []string {
	tokens := strings.Fields(s)
	var parts []string
	var cur []string
	for _, tok := range tokens {
		if tok == "|" {
			parts = append(parts, strings.Join(cur, " "))
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	parts = append(parts, strings.Join(cur, " "))
	return parts
}

func parseStage(stage string) (Stage, error) {
	if stage == "" {
		return Stage{}, errParseFailure(stage, "empty stage")
	}
	tokens := strings.Fields(stage)
	s := Stage{Action: tokens[0]}

	// `get` takes a raw SymbolID, which itself contains spaces, so it
	// consumes the remainder of the stage verbatim rather than going
	// through per-token flag/filter parsing.
	if s.Action == "get" && len(tokens) > 1 {
		s.Pattern = strings.Join(tokens[1:], " ")
		return s, nil
	}

	for _, tok := range tokens[1:] {
		switch {
		case strings.HasPrefix(tok, "kind:"):
			s.Kind = strings.TrimPrefix(tok, "kind:")
		case strings.HasPrefix(tok, "in:"):
			s.In = strings.TrimPrefix(tok, "in:")
		case strings.HasPrefix(tok, "lang:"):
			s.Lang = strings.TrimPrefix(tok, "lang:")
		case strings.HasPrefix(tok, "--include:"):
			s.IncludeGlob = strings.TrimPrefix(tok, "--include:")
		case strings.HasPrefix(tok, "--exclude:"):
			s.ExcludeGlob = strings.TrimPrefix(tok, "--exclude:")
		case strings.HasPrefix(tok, "-C:"):
			s.ContextBefore = atoiOr(tok, "-C:", 0)
			s.ContextAfter = s.ContextBefore
		case strings.HasPrefix(tok, "-A:"):
			s.ContextAfter = atoiOr(tok, "-A:", 0)
		case strings.HasPrefix(tok, "-B:"):
			s.ContextBefore = atoiOr(tok, "-B:", 0)
		case strings.HasPrefix(tok, "-m:"):
			s.MaxMatches = atoiOr(tok, "-m:", 0)
		case tok == "-i":
			s.CaseInsensitive = true
		case tok == "-v":
			s.InvertMatch = true
		case tok == "-w":
			s.WholeWord = true
		case tok == "-l":
			s.FilesWithMatch = true
		case tok == "-L":
			s.FilesWithout = true
		case tok == "-c":
			s.CountOnly = true
		case tok == "-o":
			s.OnlyMatching = true
		case tok == "-F":
			s.FixedString = true
		case tok == "-M":
			s.Multiline = true
		case tok == "-D":
			s.Dedup = true
		default:
			if s.Pattern == "" {
				s.Pattern = tok
			} else {
				s.Args = append(s.Args, tok)
			}
		}
	}
	return s, nil
}

func atoiOr(tok, prefix string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimPrefix(tok, prefix))
	if err != nil {
		return fallback
	}
	return n
}

// PatternKind classifies a parsed pattern token.
type PatternKind int

const (
	PatternGlob PatternKind = iota
	PatternRegex
	PatternFuzzy
	PatternQualified
	PatternBare
)

// ClassifyPattern implements SPEC_FULL.md §4.C's pattern grammar:
// `/body/flags?` is a regex, `~identifier` is fuzzy, `Container.Member`
// is qualified (each side may itself be a glob), anything else is a
// glob (a bare identifier is a degenerate glob with no wildcards).
func ClassifyPattern(pattern string) (kind PatternKind, body string, flags string, container string, member string) {
	if strings.HasPrefix(pattern, "/") {
		rest := pattern[1:]
		if idx := strings.LastIndex(rest, "/"); idx >= 0 {
			return PatternRegex, rest[:idx], rest[idx+1:], "", ""
		}
		return PatternRegex, rest, "", "", ""
	}
	if strings.HasPrefix(pattern, "~") {
		return PatternFuzzy, strings.TrimPrefix(pattern, "~"), "", "", ""
	}
	if idx := strings.LastIndex(pattern, "."); idx > 0 && idx < len(pattern)-1 {
		return PatternQualified, "", "", pattern[:idx], pattern[idx+1:]
	}
	if pattern == "*" || strings.ContainsAny(pattern, "*?|") {
		return PatternGlob, pattern, "", "", ""
	}
	return PatternBare, pattern, "", "", ""
}

func errParseFailure(query, reason string) error {
	return &parseError{query: query, reason: reason}
}

type parseError struct {
	query  string
	reason string
}

func (e *parseError) Error() string {
	return "parse failure: " + e.reason + ": " + strconv.Quote(e.query)
}
