package scipmodel

import (
	"regexp"
	"strings"
)

// ParsedSymbolID holds the pieces of a SCIP symbol string:
// "<scheme> <manager> <package> <version> <descriptor-chain>".
// The version segment is optional; some schemes (notably local symbols)
// omit it entirely.
type ParsedSymbolID struct {
	Scheme     string
	Manager    string
	Package    string
	Version    string
	Descriptor string
	Raw        string
}

// ParseSymbolID splits a SCIP symbol string into its components. It never
// errors: malformed input degrades to a best-effort parse with Descriptor
// set to the trailing remainder (callers needing strict validation should
// use IsValidSymbolID first).
func ParseSymbolID(id string) ParsedSymbolID {
	parts := strings.SplitN(id, " ", 5)
	p := ParsedSymbolID{Raw: id}
	if len(parts) > 0 {
		p.Scheme = parts[0]
	}
	if len(parts) > 1 {
		p.Manager = parts[1]
	}
	if len(parts) > 2 {
		p.Package = parts[2]
	}
	switch len(parts) {
	case 4:
		p.Descriptor = parts[3]
	case 5:
		p.Version = parts[3]
		p.Descriptor = parts[4]
	}
	return p
}

// IsValidSymbolID reports whether id looks like a well-formed SCIP symbol:
// a recognized scheme prefix and at least four space-separated fields.
func IsValidSymbolID(id string) bool {
	if id == "" {
		return false
	}
	if !strings.HasPrefix(id, "scip-") && !strings.HasPrefix(id, "local") {
		return false
	}
	return len(strings.SplitN(id, " ", 4)) >= 4
}

// ParentOf derives a symbol's enclosing parent id per the spec rule:
// compare the position of the last '/' against the last '#' in the raw
// symbol string. When a '#' follows the last '/' and is not the final
// character, the parent is the prefix up to and including that '#' (the
// enclosing type). Otherwise there is no parent (the symbol is top-level
// in its file).
func ParentOf(id string) (parent string, ok bool) {
	lastSlash := strings.LastIndex(id, "/")
	lastHash := strings.LastIndex(id, "#")
	if lastHash > lastSlash && lastHash < len(id)-1 {
		return id[:lastHash+1], true
	}
	return "", false
}

var (
	getSetPattern      = regexp.MustCompile("`<(?:get|set)>([^`]+)`")
	constructorCapture = regexp.MustCompile("/([A-Za-z_][A-Za-z0-9_]*)#[^#]*`<constructor>`\\(\\)")
	backtickName       = regexp.MustCompile("`([^`]+)`")
	trailingIdentifier = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)[.#()\[\]]+$`)
)

// DeriveName computes a symbol's display name following the spec's
// ordered fallback chain, used when SymbolInfo.DisplayName is empty:
//
//  1. `<get>NAME` or `<set>NAME` -> NAME
//  2. `<constructor>`() preceded by /(NAME)# -> NAME (the class name)
//  3. any `NAME` -> NAME
//  4. trailing identifier before descriptor punctuation
//  5. fallback: the entire id
func DeriveName(id string) string {
	if m := getSetPattern.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	if strings.Contains(id, "`<constructor>`()") {
		if m := constructorCapture.FindStringSubmatch(id); m != nil {
			return m[1]
		}
	}
	if m := backtickName.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	if m := trailingIdentifier.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return id
}

// Name resolves a symbol's effective display name: the explicit
// DisplayName if set, otherwise DeriveName(ID).
func (s SymbolInfo) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return DeriveName(s.ID)
}

// GuessKind infers a kind from descriptor punctuation alone, used as a
// fallback when a binding didn't supply a SCIP Kind code. '(' marks a
// function/method, a trailing '#' marks a type, an all-uppercase simple
// name marks a constant, and everything else is treated as a property.
func (p ParsedSymbolID) GuessKind() SymbolKind {
	switch {
	case p.Descriptor == "":
		return KindUnspecified
	case strings.Contains(p.Descriptor, "("):
		return KindFunction
	case strings.HasSuffix(p.Descriptor, "#"):
		return KindClass
	default:
		name := DeriveName(p.Raw)
		if name == strings.ToUpper(name) && len(name) > 1 {
			return KindConstant
		}
		return KindProperty
	}
}

// IsLocal reports whether this is a local (non-external) symbol: one
// whose package field is empty or the "." placeholder.
func (p ParsedSymbolID) IsLocal() bool {
	return p.Package == "" || p.Package == "."
}
