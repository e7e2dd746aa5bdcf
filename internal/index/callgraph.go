package index

import "scipdex/internal/scipmodel"

// enclosingDef is a definition occurrence together with the line range it
// encloses, used while building the call graph for one document.
type enclosingDef struct {
	symbol  string
	start   int
	end     int // EnclosingEndLine, or start if unknown
	known   bool
}

// buildCallGraph implements SPEC_FULL.md §4.B's from_scip pass 2: for
// every non-definition occurrence in doc, find the innermost definition
// in the same document whose enclosing range contains the occurrence's
// line, and record a calls/callers edge between them. Ties (nested
// definitions starting on the same line) are broken by smallest
// containing range, per §9's resolved open question.
//
// Callers must already hold idx.mu for writing.
func buildCallGraph(idx *Index, doc scipmodel.Document) {
	var defs []enclosingDef
	for _, occ := range doc.Occurrences {
		if !occ.IsDefinition {
			continue
		}
		d := enclosingDef{symbol: occ.Symbol, start: occ.Range.StartLine}
		if occ.EnclosingEndLine != nil {
			d.end = *occ.EnclosingEndLine
			d.known = true
		} else {
			d.end = occ.Range.StartLine
		}
		defs = append(defs, d)
	}
	if len(defs) == 0 {
		return
	}

	for _, occ := range doc.Occurrences {
		if occ.IsDefinition {
			continue
		}
		enclosing, ok := innermostEnclosing(defs, occ.Range.StartLine)
		if !ok || enclosing == occ.Symbol {
			continue
		}
		addEdge(idx, enclosing, occ.Symbol)
	}
}

// innermostEnclosing picks the definition whose range contains line with
// the smallest span; unbounded (unknown-end) definitions only contain
// their own start line.
func innermostEnclosing(defs []enclosingDef, line int) (string, bool) {
	best := ""
	bestSpan := -1
	found := false
	for _, d := range defs {
		end := d.end
		if !d.known {
			end = d.start
		}
		if line < d.start || line > end {
			continue
		}
		span := end - d.start
		if !found || span < bestSpan {
			best = d.symbol
			bestSpan = span
			found = true
		}
	}
	return best, found
}

func addEdge(idx *Index, caller, callee string) {
	if idx.calls[caller] == nil {
		idx.calls[caller] = make(map[string]struct{})
	}
	idx.calls[caller][callee] = struct{}{}
	if idx.callers[callee] == nil {
		idx.callers[callee] = make(map[string]struct{})
	}
	idx.callers[callee][caller] = struct{}{}
}
