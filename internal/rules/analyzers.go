// Package rules implements the Static Analyzers and the Rule Engine that
// filters their raw output against the Structural Index and the Ignore
// Store.
//
// Every analyzer is a pure function over a file's source bytes (and, for
// the tree-walking analyzers, the parser.Result already computed for it).
// Analyzers never touch the Index directly — cross-file reasoning belongs
// to the Rule Engine.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/parser"
)

// Thresholds mirrors config.RuleThresholds without importing the config
// package, keeping rules free of a dependency on project-config shape.
type Thresholds struct {
	ComplexityMax    int
	FunctionMaxLines int
}

var identifierRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

func countOccurrences(source []byte, name string) int {
	count := 0
	for _, m := range identifierRe.FindAllString(string(source), -1) {
		if m == name {
			count++
		}
	}
	return count
}

// DeadCode emits DEAD_CODE for every declared function/method symbol whose
// identifier occurs exactly once in the source (its own declaration).
// Cross-file callers are not visible here — that filter runs in the Rule
// Engine, against the Index.
func DeadCode(path string, source []byte, res *parser.Result) []model.Violation {
	var out []model.Violation
	for _, s := range res.Symbols {
		if s.Kind != model.KindFunction && s.Kind != model.KindMethod {
			continue
		}
		if countOccurrences(source, s.Name) == 1 {
			out = append(out, model.Violation{
				RuleName: "DEAD_CODE",
				Message:  fmt.Sprintf("%q is declared but never referenced in this file", s.Name),
				Severity: model.SeverityWarning,
				FilePath: path,
				Line:     s.LineStart,
				Symbol:   s.Name,
			})
		}
	}
	return out
}

// UnusedImport emits UNUSED_IMPORT for every imported name that occurs
// exactly once in the source (its own import line) and has no `@Name`
// decorator use anywhere — decorators reference their target only at the
// use site, which would otherwise look unused.
func UnusedImport(path string, source []byte, res *parser.Result) []model.Violation {
	var out []model.Violation
	for _, imp := range res.Imports {
		if countOccurrences(source, imp.ImportedName) != 1 {
			continue
		}
		if strings.Contains(string(source), "@"+imp.ImportedName) {
			continue
		}
		out = append(out, model.Violation{
			RuleName: "UNUSED_IMPORT",
			Message:  fmt.Sprintf("%q is imported but never used", imp.ImportedName),
			Severity: model.SeverityWarning,
			FilePath: path,
			Line:     imp.Line,
			Symbol:   imp.ImportedName,
		})
	}
	return out
}

// Complexity emits HIGH_COMPLEXITY for every function/method whose
// cyclomatic count (computed during parsing) exceeds max.
func Complexity(path string, res *parser.Result, max int) []model.Violation {
	var out []model.Violation
	for _, m := range res.Metrics {
		if m.Complexity > max {
			out = append(out, model.Violation{
				RuleName: "HIGH_COMPLEXITY",
				Message:  fmt.Sprintf("%q has cyclomatic complexity %d (max %d)", m.Name, m.Complexity, max),
				Severity: model.SeverityError,
				FilePath: path,
				Line:     m.LineStart,
				Symbol:   m.Name,
			})
		}
	}
	return out
}

// FunctionLength emits FUNCTION_TOO_LONG for every function/method whose
// line span exceeds max.
func FunctionLength(path string, res *parser.Result, max int) []model.Violation {
	var out []model.Violation
	for _, m := range res.Metrics {
		if m.Lines > max {
			out = append(out, model.Violation{
				RuleName: "FUNCTION_TOO_LONG",
				Message:  fmt.Sprintf("%q spans %d lines (max %d)", m.Name, m.Lines, max),
				Severity: model.SeverityWarning,
				FilePath: path,
				Line:     m.LineStart,
				Symbol:   m.Name,
			})
		}
	}
	return out
}

// namingPatterns maps symbol kind to the convention its name must match.
// Functions/methods: lowerCamelCase or snake_case (both appear across the
// supported languages). Classes/interfaces/types: UpperCamelCase.
var (
	lowerNameRe = regexp.MustCompile(`^[a-z_][a-zA-Z0-9_]*$`)
	upperNameRe = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
)

// Naming emits NAMING_CONVENTION for symbols whose name doesn't match the
// convention expected for their kind.
func Naming(path string, res *parser.Result) []model.Violation {
	var out []model.Violation
	for _, s := range res.Symbols {
		var ok bool
		switch s.Kind {
		case model.KindFunction, model.KindMethod:
			ok = lowerNameRe.MatchString(s.Name)
		case model.KindClass, model.KindInterface, model.KindType:
			ok = upperNameRe.MatchString(s.Name)
		default:
			ok = true
		}
		if !ok {
			out = append(out, model.Violation{
				RuleName: "NAMING_CONVENTION",
				Message:  fmt.Sprintf("%q does not follow the naming convention for %s", s.Name, s.Kind),
				Severity: model.SeverityInfo,
				FilePath: path,
				Line:     s.LineStart,
				Symbol:   s.Name,
			})
		}
	}
	return out
}

// RunAll runs every analyzer over one file's parse result and source.
func RunAll(path string, source []byte, res *parser.Result, t Thresholds) []model.Violation {
	var out []model.Violation
	out = append(out, DeadCode(path, source, res)...)
	out = append(out, UnusedImport(path, source, res)...)
	out = append(out, Complexity(path, res, t.ComplexityMax)...)
	out = append(out, FunctionLength(path, res, t.FunctionMaxLines)...)
	out = append(out, Naming(path, res)...)
	return out
}
