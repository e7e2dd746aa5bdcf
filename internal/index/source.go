package index

import (
	"bufio"
	"os"
	"path/filepath"

	"scipdex/internal/scipmodel"
)

// MaxBraceSearchLines bounds how far the brace matcher scans past a
// definition's start line before giving up (SPEC_FULL.md §4.D).
const MaxBraceSearchLines = 50

// GetSource resolves a symbol's definition to its enclosing source text.
// If the definition's EnclosingEndLine is known, the brace matcher is
// never invoked and exactly lines [def.line, enclosing_end_line] are
// returned. Otherwise the brace matcher (MatchBraces) locates the end.
// Returns ok=false when the file or definition is missing; an I/O error
// on the read is returned as err.
func (idx *Index) GetSource(id string) (lines []string, startLine int, ok bool, err error) {
	def, found := idx.FindDefinition(id)
	if !found {
		return nil, 0, false, nil
	}

	path := filepath.Join(idx.SourceRoot(), def.File)
	fileLines, readErr := readLines(path)
	if readErr != nil {
		return nil, 0, false, readErr
	}

	endLine := def.Range.StartLine
	if def.EnclosingEndLine != nil {
		endLine = *def.EnclosingEndLine
	} else {
		endLine = MatchBraces(fileLines, def.Range.StartLine)
	}
	if endLine >= len(fileLines) {
		endLine = len(fileLines) - 1
	}
	if endLine < def.Range.StartLine {
		endLine = def.Range.StartLine
	}
	return fileLines[def.Range.StartLine : endLine+1], def.Range.StartLine, true, nil
}

// GetContext returns the lines surrounding occ, clamped to file bounds,
// windowed [occ.line-before, occ.line+after].
func (idx *Index) GetContext(occ scipmodel.OccurrenceInfo, before, after int) ([]string, error) {
	path := filepath.Join(idx.SourceRoot(), occ.File)
	fileLines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	start := occ.Range.StartLine - before
	if start < 0 {
		start = 0
	}
	end := occ.Range.StartLine + after
	if end >= len(fileLines) {
		end = len(fileLines) - 1
	}
	if start > end {
		return nil, nil
	}
	return fileLines[start : end+1], nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// MatchBraces implements SPEC_FULL.md §4.D: starting at defLine, skip
// quoted-string and comment content, count braces, and return the line
// index of the closing brace that brings the count back to zero (GetSource
// treats this as the inclusive end of the enclosing block, same as a
// provided enclosing_end_line). If no match is found within
// MaxBraceSearchLines, it returns min(defLine+MaxBraceSearchLines, len(lines)-1).
func MatchBraces(lines []string, defLine int) int {
	limit := defLine + MaxBraceSearchLines
	if limit >= len(lines) {
		limit = len(lines) - 1
	}

	depth := 0
	opened := false
	inBlockComment := false
	var inString rune // 0, '\'', '"', or a triple-quote sentinel '\x01'

	for i := defLine; i <= limit && i < len(lines); i++ {
		line := lines[i]
		runes := []rune(line)
		for j := 0; j < len(runes); j++ {
			r := runes[j]

			if inBlockComment {
				if r == '*' && j+1 < len(runes) && runes[j+1] == '/' {
					inBlockComment = false
					j++
				}
				continue
			}
			if inString != 0 {
				if inString == 1 { // triple-quote sentinel
					if matchesTripleClose(runes, j) {
						inString = 0
						j += 2
					}
					continue
				}
				if r == '\\' {
					j++
					continue
				}
				if r == inString {
					inString = 0
				}
				continue
			}

			if r == '/' && j+1 < len(runes) {
				if runes[j+1] == '/' {
					break // line comment: rest of line is skipped
				}
				if runes[j+1] == '*' {
					inBlockComment = true
					j++
					continue
				}
			}

			if isTripleQuoteStart(runes, j) {
				inString = 1
				j += 2
				continue
			}
			if r == '"' || r == '\'' {
				inString = r
				continue
			}

			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i
				}
			}
		}
	}
	return limit
}

func isTripleQuoteStart(runes []rune, j int) bool {
	if j+2 >= len(runes) {
		return false
	}
	q := runes[j]
	return (q == '"' || q == '\'') && runes[j+1] == q && runes[j+2] == q
}

func matchesTripleClose(runes []rune, j int) bool {
	if j+2 >= len(runes) {
		return false
	}
	return runes[j] == runes[j+1] && runes[j+1] == runes[j+2] && (runes[j] == '"' || runes[j] == '\'')
}
