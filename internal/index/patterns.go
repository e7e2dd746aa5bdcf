package index

import (
	"regexp"
	"strings"

	"scipdex/internal/scipmodel"
)

// GlobPattern matches a '|'-alternated glob against a full name. Each
// alternative is compiled to its own anchored, case-insensitive regular
// expression per SPEC_FULL.md §4.C ('.' escaped, '*' -> '.*', '?' -> '.'),
// but a name only counts as matching alternative i if it doesn't also carry
// the fixed literal text of a *different* alternative: without that check,
// an open-ended branch like `Scip*` swallows anything starting with "Scip",
// including a name like `ScipIndexX` that also happens to embed the other
// branch's anchor ("Index") — which makes it impossible to tell which half
// of the alternation the name was actually meant to satisfy, so neither
// claims it. This is what keeps `Scip*|*Index` matching `ScipX` and
// `AIndex` while rejecting `ScipIndexX` (SPEC_FULL.md §8).
type GlobPattern struct {
	alts []globAlt
}

type globAlt struct {
	re   *regexp.Regexp
	core string // literal (non-wildcard) runs of the alternative, lowercased
}

// GlobToRegex compiles glob into a GlobPattern. glob is split on '|' into
// alternatives; each is independently anchored and case-insensitive.
func GlobToRegex(glob string) (*GlobPattern, error) {
	var alts []globAlt
	for _, alt := range strings.Split(glob, "|") {
		pattern := "(?i)^" + compileGlobAlternative(alt) + "$"
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		alts = append(alts, globAlt{re: re, core: globLiteralCore(alt)})
	}
	return &GlobPattern{alts: alts}, nil
}

// MatchString reports whether s satisfies some alternative of g without
// also carrying a sibling alternative's literal text (see GlobPattern).
func (g *GlobPattern) MatchString(s string) bool {
	lower := strings.ToLower(s)
	for i, alt := range g.alts {
		if !alt.re.MatchString(s) {
			continue
		}
		if !globAmbiguous(g.alts, i, lower) {
			return true
		}
	}
	return false
}

func globAmbiguous(alts []globAlt, matched int, lowerName string) bool {
	own := alts[matched].core
	for j, other := range alts {
		if j == matched || other.core == "" || other.core == own {
			continue
		}
		if strings.Contains(lowerName, other.core) {
			return true
		}
	}
	return false
}

// globLiteralCore returns the non-wildcard characters of a glob
// alternative, lowercased, for cross-alternative ambiguity checks.
func globLiteralCore(alt string) string {
	var b strings.Builder
	for _, r := range alt {
		if r != '*' && r != '?' {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

func compileGlobAlternative(alt string) string {
	var b strings.Builder
	for _, r := range alt {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '.', '+', '^', '$', '(', ')', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindSymbols returns symbols whose derived name fully matches the
// anchored glob pattern. An empty pattern returns an empty result, never
// an error.
func (idx *Index) FindSymbols(pattern string) ([]scipmodel.SymbolInfo, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := GlobToRegex(pattern)
	if err != nil {
		return nil, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []scipmodel.SymbolInfo
	for _, s := range idx.symbols {
		if re.MatchString(s.Name()) {
			out = append(out, s)
		}
	}
	return out, nil
}

// MaxFuzzyPatternLength is the longest pattern find_symbols_fuzzy will
// run a Levenshtein comparison for; longer patterns fall back to plain
// case-insensitive substring matching.
const MaxFuzzyPatternLength = 10

// FindSymbolsFuzzy returns symbols whose name case-insensitively contains
// pattern, or — for patterns of length <= MaxFuzzyPatternLength — whose
// name is within maxDistance Levenshtein edits of it.
func (idx *Index) FindSymbolsFuzzy(pattern string, maxDistance int) []scipmodel.SymbolInfo {
	if pattern == "" {
		return nil
	}
	lower := strings.ToLower(pattern)
	useEdit := len([]rune(pattern)) <= MaxFuzzyPatternLength

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []scipmodel.SymbolInfo
	for _, s := range idx.symbols {
		name := strings.ToLower(s.Name())
		if strings.Contains(name, lower) {
			out = append(out, s)
			continue
		}
		if useEdit && levenshtein(name, lower) <= maxDistance {
			out = append(out, s)
		}
	}
	return out
}

// FindQualified returns symbols whose name matches memberPattern and
// whose parent's name matches containerPattern.
func (idx *Index) FindQualified(containerPattern, memberPattern string) ([]scipmodel.SymbolInfo, error) {
	memberRe, err := GlobToRegex(memberPattern)
	if err != nil {
		return nil, err
	}
	containerRe, err := GlobToRegex(containerPattern)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []scipmodel.SymbolInfo
	for _, s := range idx.symbols {
		if !memberRe.MatchString(s.Name()) {
			continue
		}
		parent, ok := scipmodel.ParentOf(s.ID)
		if !ok {
			continue
		}
		parentSym, ok := idx.symbols[parent]
		if !ok || !containerRe.MatchString(parentSym.Name()) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// levenshtein computes edit distance between two strings using a single
// rolling row, which is all find_symbols_fuzzy needs for short patterns.
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
