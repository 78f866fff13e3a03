// Package agent implements the uniform Agent Interface and its built-in
// agents (Coder, Reviewer, Tester, Refactor), plus the Workflow Engine
// that chains them into sequential, short-circuiting pipelines.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/config"
	"github.com/sergiogswv/sentinel/internal/fallback"
	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/rules"
)

// Kind classifies a Task by the shape of work it asks for.
type Kind string

const (
	KindGenerate Kind = "Generate"
	KindAnalyze  Kind = "Analyze"
	KindRefactor Kind = "Refactor"
	KindTest     Kind = "Test"
	KindExplain  Kind = "Explain"
)

// Task is one unit of work handed to an Agent.
type Task struct {
	ID           string
	Description  string
	Kind         Kind
	File         string
	ExtraContext string

	// Target scopes a Test task to one resolved parent module name (the
	// watcher's parent-resolution result), rather than the whole suite.
	// Empty means "run the configured command unscoped."
	Target string
}

// Result is what Execute returns: textual output, any artifact paths it
// wrote, and whether the step should be treated as failed.
type Result struct {
	Output    string
	Artifacts []string
	Err       error
}

// IndexReader is the subset of the Structural Index agents read from when
// building prompts.
type IndexReader interface {
	rules.IndexReader
	Symbols(ctx context.Context, limit int) ([]model.Symbol, error)
	CallEdges(ctx context.Context, limit int) ([]model.CallEdge, error)
	ImportEdges(ctx context.Context, limit int) ([]model.ImportReference, error)
}

// Context is the shared, read-mostly environment every built-in agent
// executes against.
type Context struct {
	ProjectRoot string
	Config      *config.Config
	Index       IndexReader // nil when no index has been built yet
	Executor    *fallback.Executor
	Log         *zap.Logger
}

// Agent is the uniform contract every built-in (and any future) agent
// implements.
type Agent interface {
	Name() string
	Execute(ctx context.Context, task Task, actx Context) (*Result, error)
}

// structuralContextBlock renders the top symbols/call edges/import edges
// from the index as a plain-text block for embedding in a prompt. Caps
// match the review-context builder's limits: 200 symbols, 100 call edges,
// 100 import edges.
func structuralContextBlock(ctx context.Context, idx IndexReader) string {
	if idx == nil {
		return ""
	}

	symbols, err := idx.Symbols(ctx, 200)
	if err != nil {
		return ""
	}
	calls, err := idx.CallEdges(ctx, 100)
	if err != nil {
		return ""
	}
	imports, err := idx.ImportEdges(ctx, 100)
	if err != nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== structural context ===\n")
	b.WriteString("symbols:\n")
	for _, s := range symbols {
		fmt.Fprintf(&b, "  %s %s %s:%d-%d\n", s.Kind, s.Name, s.FilePath, s.LineStart, s.LineEnd)
	}
	b.WriteString("call edges:\n")
	for _, c := range calls {
		fmt.Fprintf(&b, "  %s:%s -> %s\n", c.CallerFile, c.CallerSymbol, c.CalleeSymbol)
	}
	b.WriteString("import edges:\n")
	for _, i := range imports {
		fmt.Fprintf(&b, "  %s imports %s from %s\n", i.FilePath, i.ImportedName, i.SourceModule)
	}
	return b.String()
}
