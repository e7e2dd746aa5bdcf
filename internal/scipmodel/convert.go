package scipmodel

import (
	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// symbolRoleDefinition is the SCIP SymbolRole bit marking a definition
// occurrence. See scippb.SymbolRole_Definition.
const symbolRoleDefinition = 1

// DecodeIndex parses a serialized SCIP Index protobuf message into the
// internal document model. It performs no filesystem I/O; callers that
// need to read index.scip from disk do so first and hand the bytes here.
func DecodeIndex(data []byte) ([]Document, error) {
	var idx scippb.Index
	if err := proto.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(idx.Documents))
	for _, d := range idx.Documents {
		docs = append(docs, convertDocument(d))
	}
	return docs, nil
}

// EncodeIndex serializes documents back into a SCIP Index protobuf
// message, the inverse of DecodeIndex. ProjectRoot is stamped into the
// index metadata; DecodeIndex does not read it back.
func EncodeIndex(docs []Document, projectRoot string) ([]byte, error) {
	pb := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version:     scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ProjectRoot: projectRoot,
			ToolInfo:    &scippb.ToolInfo{Name: "scipdex"},
		},
	}
	for _, d := range docs {
		pb.Documents = append(pb.Documents, convertDocumentToProto(d))
	}
	return proto.Marshal(pb)
}

func convertDocument(d *scippb.Document) Document {
	out := Document{
		RelativePath: d.RelativePath,
		Language:     d.Language,
	}
	for _, sym := range d.Symbols {
		out.Symbols = append(out.Symbols, convertSymbolInformation(sym, d.RelativePath))
	}
	for _, occ := range d.Occurrences {
		out.Occurrences = append(out.Occurrences, convertOccurrence(occ, d.RelativePath))
	}
	return out
}

func convertSymbolInformation(sym *scippb.SymbolInformation, file string) SymbolInfo {
	info := SymbolInfo{
		ID:            sym.Symbol,
		Kind:          ParseSymbolKind(int32(sym.Kind)),
		DisplayName:   sym.DisplayName,
		Documentation: append([]string(nil), sym.Documentation...),
	}
	for _, rel := range sym.Relationships {
		info.Relationships = append(info.Relationships, Relationship{
			TargetID:         rel.Symbol,
			IsReference:      rel.IsReference,
			IsImplementation: rel.IsImplementation,
			IsTypeDefinition: rel.IsTypeDefinition,
			IsDefinition:     rel.IsDefinition,
		})
	}
	if info.Kind == KindUnspecified {
		info.Kind = ParseSymbolID(sym.Symbol).GuessKind()
	}
	return info
}

func convertOccurrence(occ *scippb.Occurrence, file string) OccurrenceInfo {
	o := OccurrenceInfo{
		File:         file,
		Symbol:       occ.Symbol,
		Range:        rangeFromScip(occ.Range),
		IsDefinition: occ.SymbolRoles&symbolRoleDefinition != 0,
	}
	if len(occ.EnclosingRange) > 0 {
		enclosing := rangeFromScip(occ.EnclosingRange)
		endLine := enclosing.EndLine
		o.EnclosingEndLine = &endLine
	}
	return o
}

// rangeFromScip converts SCIP's 3- or 4-element range encoding into a
// Range. A 3-element range is [startLine, startChar, endChar] on a single
// line; 4 or more elements are [startLine, startChar, endLine, endChar].
func rangeFromScip(r []int32) Range {
	if len(r) == 3 {
		return Range{StartLine: int(r[0]), StartCol: int(r[1]), EndLine: int(r[0]), EndCol: int(r[2])}
	}
	if len(r) >= 4 {
		return Range{StartLine: int(r[0]), StartCol: int(r[1]), EndLine: int(r[2]), EndCol: int(r[3])}
	}
	return Range{}
}

func convertDocumentToProto(d Document) *scippb.Document {
	pb := &scippb.Document{
		RelativePath: d.RelativePath,
		Language:     d.Language,
	}
	for _, s := range d.Symbols {
		sym := &scippb.SymbolInformation{
			Symbol:      s.ID,
			DisplayName: s.DisplayName,
			Documentation: s.Documentation,
		}
		for _, rel := range s.Relationships {
			sym.Relationships = append(sym.Relationships, &scippb.Relationship{
				Symbol:           rel.TargetID,
				IsReference:      rel.IsReference,
				IsImplementation: rel.IsImplementation,
				IsTypeDefinition: rel.IsTypeDefinition,
				IsDefinition:     rel.IsDefinition,
			})
		}
		pb.Symbols = append(pb.Symbols, sym)
	}
	for _, o := range d.Occurrences {
		occ := &scippb.Occurrence{
			Symbol: o.Symbol,
			Range:  rangeToScip(o.Range),
		}
		if o.IsDefinition {
			occ.SymbolRoles |= symbolRoleDefinition
		}
		if o.EnclosingEndLine != nil {
			occ.EnclosingRange = []int32{int32(o.Range.StartLine), int32(o.Range.StartCol), int32(*o.EnclosingEndLine), 0}
		}
		pb.Occurrences = append(pb.Occurrences, occ)
	}
	return pb
}

func rangeToScip(r Range) []int32 {
	if r.StartLine == r.EndLine {
		return []int32{int32(r.StartLine), int32(r.StartCol), int32(r.EndCol)}
	}
	return []int32{int32(r.StartLine), int32(r.StartCol), int32(r.EndLine), int32(r.EndCol)}
}
