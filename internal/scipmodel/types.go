// Package scipmodel holds the value types for symbols, occurrences, and
// documents that the rest of the index is built from, plus the
// identity rules for deriving a symbol's parent and display name from its
// SCIP symbol string.
package scipmodel

// SymbolKind enumerates the kinds a SymbolInfo can carry. The zero value
// is Unspecified.
type SymbolKind int

const (
	KindUnspecified SymbolKind = iota
	KindClass
	KindMethod
	KindFunction
	KindField
	KindConstructor
	KindEnum
	KindEnumMember
	KindInterface
	KindVariable
	KindProperty
	KindParameter
	KindMixin
	KindExtension
	KindGetter
	KindSetter
	KindTypeAlias
	KindConstant
	KindNamespace
	KindPackage
	KindType
)

func (k SymbolKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindFunction:
		return "function"
	case KindField:
		return "field"
	case KindConstructor:
		return "constructor"
	case KindEnum:
		return "enum"
	case KindEnumMember:
		return "enum_member"
	case KindInterface:
		return "interface"
	case KindVariable:
		return "variable"
	case KindProperty:
		return "property"
	case KindParameter:
		return "parameter"
	case KindMixin:
		return "mixin"
	case KindExtension:
		return "extension"
	case KindGetter:
		return "getter"
	case KindSetter:
		return "setter"
	case KindTypeAlias:
		return "type_alias"
	case KindConstant:
		return "constant"
	case KindNamespace:
		return "namespace"
	case KindPackage:
		return "package"
	case KindType:
		return "type"
	default:
		return "unspecified"
	}
}

// ParseSymbolKind maps a SCIP SymbolInformation.Kind protobuf enum value to
// a SymbolKind. Unknown codes fall back to KindUnspecified; callers that
// need a descriptor-based guess should fall back to
// ParsedSymbolID.GuessKind instead.
func ParseSymbolKind(scipKind int32) SymbolKind {
	switch scipKind {
	case 1:
		return KindNamespace
	case 2:
		return KindType
	case 3:
		return KindClass
	case 9:
		return KindEnum
	case 10:
		return KindEnumMember
	case 11:
		return KindInterface
	case 17:
		return KindMethod
	case 6:
		return KindConstructor
	case 26:
		return KindFunction
	case 39:
		return KindVariable
	case 14:
		return KindConstant
	case 23:
		return KindProperty
	case 8:
		return KindField
	case 25:
		return KindParameter
	case 5:
		return KindMixin
	case 27:
		return KindExtension
	case 16:
		return KindGetter
	case 38:
		return KindSetter
	case 35:
		return KindTypeAlias
	case 36:
		return KindPackage
	default:
		return KindUnspecified
	}
}

// Relationship records a directed edge between two symbols, e.g. an
// implementation of an interface or a supertype link.
type Relationship struct {
	TargetID         string
	IsReference      bool
	IsImplementation bool
	IsTypeDefinition bool
	IsDefinition     bool
}

// SymbolInfo is an immutable description of a symbol, independent of any
// particular occurrence of it.
type SymbolInfo struct {
	ID            string
	Kind          SymbolKind
	DisplayName   string
	Documentation []string
	Relationships []Relationship
	File          string // empty => external symbol, no definition in this index
	Language      string
}

// Range is a zero-based, half-open-by-convention source range. EndLine
// equals StartLine for single-line occurrences (SCIP's 3-element
// shorthand).
type Range struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// OccurrenceInfo is one position in a file that refers to a symbol.
type OccurrenceInfo struct {
	File             string
	Symbol           string
	Range            Range
	IsDefinition     bool
	EnclosingEndLine *int
}

// Document is the unit of mutation: everything ingest/update/remove needs
// to know about one source file.
type Document struct {
	RelativePath string
	Language     string
	Symbols      []SymbolInfo
	Occurrences  []OccurrenceInfo
}
