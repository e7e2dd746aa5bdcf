package index

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"scipdex/internal/scipmodel"
)

// GrepOptions controls Grep's matching, context, and per-file limits (see
// SPEC_FULL.md §4.E).
type GrepOptions struct {
	IncludeGlob string
	ExcludeGlob string
	LinesBefore int
	LinesAfter  int
	Invert      bool
	MaxPerFile  int
	Multiline   bool
	OnlyMatching bool
}

// GrepMatch is one result row from Grep: either a matched (or, with
// Invert, non-matched) line plus its context window, or — in
// OnlyMatching mode — a single match span with no context.
type GrepMatch struct {
	File         string
	Line         int // 0-based line the match starts on
	EndLine      int // for multiline matches; equals Line otherwise
	Text         string
	MatchText    string
	Context      []string
	SymbolContext string
}

// Grep scans every indexed file whose path survives the include/exclude
// globs, per SPEC_FULL.md §4.E.
func (idx *Index) Grep(re *regexp.Regexp, opts GrepOptions) ([]GrepMatch, error) {
	includeRe, err := globFilterRegex(opts.IncludeGlob)
	if err != nil {
		return nil, err
	}
	excludeRe, err := globFilterRegex(opts.ExcludeGlob)
	if err != nil {
		return nil, err
	}

	files := idx.Files()
	sort.Strings(files)

	var out []GrepMatch
	for _, path := range files {
		if includeRe != nil && !includeRe.MatchString(path) {
			continue
		}
		if excludeRe != nil && excludeRe.MatchString(path) {
			continue
		}

		full := filepath.Join(idx.SourceRoot(), path)
		if opts.Multiline {
			matches, err := idx.grepFileMultiline(full, path, re, opts)
			if err != nil {
				continue
			}
			out = append(out, matches...)
			continue
		}
		matches, err := idx.grepFileLines(full, path, re, opts)
		if err != nil {
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

func (idx *Index) grepFileLines(full, relPath string, re *regexp.Regexp, opts GrepOptions) ([]GrepMatch, error) {
	lines, err := readLines(full)
	if err != nil {
		return nil, err
	}

	defs := enclosingDefsInFile(idx, relPath)

	var out []GrepMatch
	emitted := 0
	for lineNo, line := range lines {
		if opts.MaxPerFile > 0 && emitted >= opts.MaxPerFile {
			break
		}
		matches := re.FindAllStringIndex(line, -1)
		matched := len(matches) > 0
		if opts.Invert {
			if matched {
				continue
			}
			out = append(out, GrepMatch{
				File:          relPath,
				Line:          lineNo,
				EndLine:       lineNo,
				Text:          line,
				Context:       contextWindow(lines, lineNo, opts.LinesBefore, opts.LinesAfter),
				SymbolContext: symbolContextAt(defs, lineNo),
			})
			emitted++
			continue
		}
		if !matched {
			continue
		}

		if opts.OnlyMatching {
			for _, m := range matches {
				if opts.MaxPerFile > 0 && emitted >= opts.MaxPerFile {
					break
				}
				out = append(out, GrepMatch{
					File:      relPath,
					Line:      lineNo,
					EndLine:   lineNo,
					MatchText: line[m[0]:m[1]],
				})
				emitted++
			}
			continue
		}

		out = append(out, GrepMatch{
			File:          relPath,
			Line:          lineNo,
			EndLine:       lineNo,
			Text:          line,
			Context:       contextWindow(lines, lineNo, opts.LinesBefore, opts.LinesAfter),
			SymbolContext: symbolContextAt(defs, lineNo),
		})
		emitted++
	}
	return out, nil
}

func (idx *Index) grepFileMultiline(full, relPath string, re *regexp.Regexp, opts GrepOptions) ([]GrepMatch, error) {
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	content := string(data)
	offsets := lineOffsets(content)

	matches := re.FindAllStringIndex(content, -1)
	var out []GrepMatch
	emitted := 0
	for _, m := range matches {
		if opts.MaxPerFile > 0 && emitted >= opts.MaxPerFile {
			break
		}
		startLine := lineForOffset(offsets, m[0])
		endLine := lineForOffset(offsets, m[1])
		out = append(out, GrepMatch{
			File:      relPath,
			Line:      startLine,
			EndLine:   endLine,
			MatchText: content[m[0]:m[1]],
		})
		emitted++
	}
	return out, nil
}

func contextWindow(lines []string, lineNo, before, after int) []string {
	start := lineNo - before
	if start < 0 {
		start = 0
	}
	end := lineNo + after
	if end >= len(lines) {
		end = len(lines) - 1
	}
	return lines[start : end+1]
}

// enclosingDefsInFile collects definitions from relPath's document with
// their enclosing end line, falling back to def.line+100 per §4.E.
func enclosingDefsInFile(idx *Index, relPath string) []enclosingDef {
	doc, ok := idx.Document(relPath)
	if !ok {
		return nil
	}
	var defs []enclosingDef
	for _, occ := range doc.Occurrences {
		if !occ.IsDefinition {
			continue
		}
		d := enclosingDef{symbol: occ.Symbol, start: occ.Range.StartLine, known: true}
		if occ.EnclosingEndLine != nil {
			d.end = *occ.EnclosingEndLine
		} else {
			d.end = occ.Range.StartLine + 100
		}
		defs = append(defs, d)
	}
	return defs
}

func symbolContextAt(defs []enclosingDef, line int) string {
	sym, ok := innermostEnclosing(defs, line)
	if !ok {
		return ""
	}
	return scipmodel.DeriveName(sym)
}

func lineOffsets(content string) []int {
	offsets := []int{0}
	for i, r := range content {
		if r == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func lineForOffset(offsets []int, pos int) int {
	i := sort.SearchInts(offsets, pos+1) - 1
	if i < 0 {
		return 0
	}
	return i
}

// globFilterRegex compiles an include/exclude glob for path filtering per
// §4.E: escapes `.+^$()[]{}|\`, maps `*`->`.*`, `?`->`.`, case-insensitive
// on the full path. An empty glob matches everything (returns nil, nil).
func globFilterRegex(glob string) (*regexp.Regexp, error) {
	if glob == "" {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString("(?i)")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '.', '+', '^', '$', '(', ')', '[', ']', '{', '}', '|', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return regexp.Compile(b.String())
}
