// Package model defines the data types shared across Sentinel's subsystems:
// the structural index's rows, analyzer violations, ignore entries, and the
// provider response cache's entry shape. These are plain value types; the
// packages that own persistence (index, rules, cache, stats) attach
// behavior to them.
package model

import "time"

// SymbolKind enumerates the kinds of symbols the parser front-end extracts.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindImport    SymbolKind = "import"
)

// Severity enumerates violation severities, most to least severe handled
// consistently across analyzers and reporting.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityError    Severity = "Error"
	SeverityCritical Severity = "Critical"
)

// FileRecord is the files table row: one per repo-relative path.
type FileRecord struct {
	Path          string    `json:"file_path"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
	ContentHash   string    `json:"content_hash"`
}

// Symbol is a declared function/method/class/interface/type/import.
type Symbol struct {
	ID        int64      `json:"id"`
	FilePath  string     `json:"file_path"`
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	LineStart int        `json:"line_start"`
	LineEnd   int        `json:"line_end"`
}

// CallEdge is a caller -> callee edge. The graph they form is cyclic in
// general, so edges are resolved by callee name only, late, rather than by
// a symbol ID fixed at insertion time.
type CallEdge struct {
	CallerFile   string `json:"caller_file"`
	CallerSymbol string `json:"caller_symbol"`
	CalleeSymbol string `json:"callee_symbol"`
	Line         int    `json:"line"`
}

// ImportReference is one import statement.
type ImportReference struct {
	FilePath     string `json:"file_path"`
	ImportedName string `json:"imported_name"`
	SourceModule string `json:"source_module"`
	Line         int    `json:"line"`
}

// Violation is a single static-analysis finding. Ephemeral: produced per
// analysis run, never persisted.
type Violation struct {
	RuleName string   `json:"rule_name"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	FilePath string   `json:"file_path"`
	Line     int      `json:"line,omitempty"`
	Symbol   string   `json:"symbol,omitempty"`
}

// IgnoreEntry is a persistent suppression rule. A nil/empty Symbol means
// rule-wide suppression in that file.
type IgnoreEntry struct {
	Rule    string    `json:"rule"`
	File    string    `json:"file"`
	Symbol  string    `json:"symbol,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Matches reports whether this ignore entry suppresses v.
func (e IgnoreEntry) Matches(v Violation) bool {
	if e.Rule != v.RuleName || e.File != v.FilePath {
		return false
	}
	if e.Symbol == "" {
		return true
	}
	return e.Symbol == v.Symbol
}

// CacheEntry is a response cache value: an immutable model response plus
// its token accounting, keyed externally by fingerprint.
type CacheEntry struct {
	Prompt       string `json:"prompt"`
	TaskClass    string `json:"task_class"`
	Model        string `json:"model"`
	Response     string `json:"response"`
	PromptTokens int    `json:"prompt_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Stats holds the monotone counters persisted as JSON after each
// modification.
type Stats struct {
	BugsAvoided   int64 `json:"bugs_avoided"`
	FixesApplied  int64 `json:"fixes_applied"`
	TestsFixed    int64 `json:"tests_fixed"`
	TokensIn      int64 `json:"tokens_in"`
	TokensOut     int64 `json:"tokens_out"`
	CostMicroUSD  int64 `json:"cost_micro_usd"`
	MinutesSaved  int64 `json:"minutes_saved"`
}

// ProviderFamily is the tagged variant for provider wire-protocol shapes.
type ProviderFamily string

const (
	FamilyAnthropicLike     ProviderFamily = "anthropic-like"
	FamilyGoogleLike        ProviderFamily = "google-like"
	FamilyOpenAICompatLocal ProviderFamily = "openai-compatible-local"
)

// ModelDescriptor is immutable for the lifetime of a run, loaded at
// startup from the (external) Config Store.
type ModelDescriptor struct {
	Family   ProviderFamily `json:"family"`
	Endpoint string         `json:"endpoint"`
	Model    string         `json:"model_name"`
	APIKey   string         `json:"api_key"`
}

// TaskClass determines routing (a cheaper model may serve Light requests)
// and the time-saved tariff.
type TaskClass string

const (
	TaskLight TaskClass = "Light"
	TaskDeep  TaskClass = "Deep"
)
