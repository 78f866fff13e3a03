// Package parser is the Structural Index's front end: it walks a source
// file's tree-sitter AST and extracts symbols, imports, and unresolved call
// edges in the shapes internal/index stores them in.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/model"
)

// Result is everything the Structural Index needs from one parsed file,
// plus the per-function metrics the tree-walking analyzers need (computed
// here since the tree is already in hand and is closed before this Result
// is returned).
type Result struct {
	Symbols []model.Symbol
	Imports []model.ImportReference
	Calls   []model.CallEdge
	Metrics []FunctionMetric
}

// FunctionMetric is the complexity/length reading for one function or
// method body, keyed by the same (file_path, name, line_start) triple as
// its Symbol.
type FunctionMetric struct {
	FilePath   string
	Name       string
	LineStart  int
	LineEnd    int
	Complexity int
	Lines      int
}

// Parser extracts Result from source text using the grammar selected by
// file extension. Each ParseFile call builds its own *sitter.Parser, since
// sitter.Parser values are not safe for concurrent use; the *sitter.Language
// grammars themselves are immutable and shared across calls.
type Parser struct {
	languages map[string]*sitter.Language
	log       *zap.Logger
}

// New builds a Parser with grammars for every extension Sentinel supports.
func New(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{
		log: log,
		languages: map[string]*sitter.Language{
			".go":  golang.GetLanguage(),
			".js":  javascript.GetLanguage(),
			".jsx": javascript.GetLanguage(),
			".ts":  typescript.GetLanguage(),
			".tsx": tsx.GetLanguage(),
			".py":  python.GetLanguage(),
		},
	}
}

// Supports reports whether ext has a registered grammar.
func (p *Parser) Supports(ext string) bool {
	_, ok := p.languages[ext]
	return ok
}

// ParseFile parses content (the file at path) and extracts its structural
// facts. An unsupported extension is not an error: it returns an empty
// Result so callers can uniformly skip non-code files.
func (p *Parser) ParseFile(ctx context.Context, path string, content []byte) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := p.languages[ext]
	if !ok {
		return &Result{}, nil
	}

	sp := sitter.NewParser()
	sp.SetLanguage(lang)
	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := countErrors(root); n > 0 {
			p.log.Warn("parser.syntax_errors", zap.String("path", path), zap.Int("error_count", n))
		}
		// Tree-sitter is error-tolerant; continue extracting from the
		// partial tree rather than discarding the file.
	}

	switch ext {
	case ".go":
		return parseGo(root, content, path), nil
	case ".ts", ".tsx", ".js", ".jsx":
		return parseJSFamily(root, content, path), nil
	case ".py":
		return parsePython(root, content, path), nil
	default:
		return &Result{}, nil
	}
}

// countErrors counts ERROR nodes in a subtree, used only for diagnostics:
// tree-sitter keeps parsing past a syntax error, so a non-zero count is a
// signal, not necessarily a reason to discard the result.
func countErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if node.Type() == "ERROR" {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrors(node.Child(i))
	}
	return count
}

func text(content []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func lineOf(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}

// functionMetric builds a FunctionMetric for fn using branchCounter to
// compute cyclomatic complexity over fn's body.
func functionMetric(fn *sitter.Node, path, name string, lineStart, lineEnd int, branchCounter func(*sitter.Node) int) FunctionMetric {
	complexity := 1 // baseline: one path through a function with no branches
	if body := fn.ChildByFieldName("body"); body != nil {
		complexity += branchCounter(body)
	}
	return FunctionMetric{
		FilePath: path, Name: name, LineStart: lineStart, LineEnd: lineEnd,
		Complexity: complexity, Lines: lineEnd - lineStart + 1,
	}
}

// countBranchNodes sums occurrences of nodeTypes anywhere under n, the
// shared cyclomatic-complexity primitive: every recognized branch or loop
// node adds one path through the function.
func countBranchNodes(n *sitter.Node, nodeTypes map[string]bool) int {
	if n == nil {
		return 0
	}
	count := 0
	if nodeTypes[n.Type()] {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countBranchNodes(n.Child(i), nodeTypes)
	}
	return count
}
