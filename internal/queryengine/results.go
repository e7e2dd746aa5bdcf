// Package queryengine parses and executes the pipe-separated query DSL
// over one or more Providers, producing the wire result shapes described
// in SPEC_FULL.md §6.
package queryengine

// SymbolRef is the compact {symbol,name,kind,file,line,column} shape used
// inside most result variants.
type SymbolRef struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Kind      string `json:"kind,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
	Container string `json:"container,omitempty"`
	Source    string `json:"source,omitempty"`
}

// DefinitionResult is the `def` action's result.
type DefinitionResult struct {
	Type    string      `json:"type"`
	Count   int         `json:"count"`
	Results []SymbolRef `json:"results"`
}

// ReferenceRef is one row of a ReferencesResult.
type ReferenceRef struct {
	File    string   `json:"file"`
	Line    int      `json:"line"`
	Column  int      `json:"column"`
	Context []string `json:"context,omitempty"`
}

// ReferencesResult is the `refs` action's result.
type ReferencesResult struct {
	Type    string         `json:"type"`
	Symbol  string         `json:"symbol"`
	Name    string         `json:"name"`
	Count   int            `json:"count"`
	Results []ReferenceRef `json:"results"`
}

// SearchResult is the `find`/`which` action's result.
type SearchResult struct {
	Type    string      `json:"type"`
	Count   int         `json:"count"`
	Results []SymbolRef `json:"results"`
}

// MembersResult is the `members` action's result.
type MembersResult struct {
	Type    string      `json:"type"`
	Symbol  string      `json:"symbol"`
	Name    string      `json:"name"`
	Count   int         `json:"count"`
	Results []SymbolRef `json:"results"`
}

// HierarchyResult is the `hierarchy` action's result.
type HierarchyResult struct {
	Type       string      `json:"type"`
	Symbol     string      `json:"symbol"`
	Name       string      `json:"name"`
	Supertypes []SymbolRef `json:"supertypes"`
	Subtypes   []SymbolRef `json:"subtypes"`
}

// SourceResult is the `source` action's result.
type SourceResult struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	Source    string `json:"source"`
}

// SignatureResult is the `sig` action's result.
type SignatureResult struct {
	Type      string `json:"type"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Signature string `json:"signature"`
}

// CallGraphResult is the `calls`/`callers` action's result.
type CallGraphResult struct {
	Type        string      `json:"type"`
	Direction   string      `json:"direction"`
	Connections []SymbolRef `json:"connections"`
}

// GrepRef is one row of a GrepResult.
type GrepRef struct {
	File          string   `json:"file"`
	Line          int      `json:"line"`
	Text          string   `json:"text,omitempty"`
	Match         string   `json:"match,omitempty"`
	Context       []string `json:"context,omitempty"`
	SymbolContext string   `json:"symbolContext,omitempty"`
}

// GrepResult is the `grep` action's result. CountsByFile and FilesWith /
// FilesWithout are populated only when -c/-l/-L are set, per §4.E.
type GrepResult struct {
	Type          string          `json:"type"`
	Count         int             `json:"count"`
	Results       []GrepRef       `json:"results,omitempty"`
	CountsByFile  map[string]int  `json:"countsByFile,omitempty"`
	FilesWith     []string        `json:"filesWith,omitempty"`
	FilesWithout  []string        `json:"filesWithout,omitempty"`
}

// StatsResult is the `stats` action's result.
type StatsResult struct {
	Type  string         `json:"type"`
	Stats map[string]int `json:"stats"`
}

// FilesResult is the `files` action's result.
type FilesResult struct {
	Type  string   `json:"type"`
	Count int      `json:"count"`
	Files []string `json:"files"`
}

// PipelineResult wraps the per-stage results of a multi-stage query.
type PipelineResult struct {
	Type    string        `json:"type"`
	Action  string        `json:"action"`
	Results []interface{} `json:"results"`
}

// NotFoundResult is returned when a pattern or id matched nothing.
type NotFoundResult struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResult is returned when a query cannot be parsed or executed.
type ErrorResult struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
