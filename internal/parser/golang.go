package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sergiogswv/sentinel/internal/model"
)

func parseGo(root *sitter.Node, content []byte, path string) *Result {
	res := &Result{}
	walkGo(root, content, path, res)
	return res
}

func walkGo(n *sitter.Node, content []byte, path string, res *Result) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "import_declaration":
		collectGoImports(n, content, path, res)

	case "function_declaration":
		name := text(content, n.ChildByFieldName("name"))
		if name != "" {
			lineStart, lineEnd := lineOf(n), int(n.EndPoint().Row)+1
			res.Symbols = append(res.Symbols, model.Symbol{
				FilePath: path, Name: name, Kind: model.KindFunction,
				LineStart: lineStart, LineEnd: lineEnd,
			})
			collectGoCalls(n, content, path, name, res)
			res.Metrics = append(res.Metrics, functionMetric(n, path, name, lineStart, lineEnd, goComplexity))
		}

	case "method_declaration":
		name := text(content, n.ChildByFieldName("name"))
		if name != "" {
			lineStart, lineEnd := lineOf(n), int(n.EndPoint().Row)+1
			res.Symbols = append(res.Symbols, model.Symbol{
				FilePath: path, Name: name, Kind: model.KindMethod,
				LineStart: lineStart, LineEnd: lineEnd,
			})
			collectGoCalls(n, content, path, name, res)
			res.Metrics = append(res.Metrics, functionMetric(n, path, name, lineStart, lineEnd, goComplexity))
		}

	case "type_declaration":
		collectGoTypes(n, content, path, res)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		walkGo(n.Child(i), content, path, res)
	}
}

func collectGoImports(n *sitter.Node, content []byte, path string, res *Result) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import_spec":
			addGoImportSpec(child, content, path, res)
		case "import_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				if spec := child.Child(j); spec.Type() == "import_spec" {
					addGoImportSpec(spec, content, path, res)
				}
			}
		}
	}
}

func addGoImportSpec(spec *sitter.Node, content []byte, path string, res *Result) {
	pathNode := spec.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	modulePath := trimQuotes(text(content, pathNode))

	name := modulePath
	if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
		name = text(content, nameNode)
	} else if idx := lastSlash(modulePath); idx >= 0 {
		name = modulePath[idx+1:]
	}

	res.Imports = append(res.Imports, model.ImportReference{
		FilePath:     path,
		ImportedName: name,
		SourceModule: modulePath,
		Line:         lineOf(spec),
	})
}

// collectGoCalls walks fn's body for call_expression nodes and records a
// caller -> callee edge by the callee's simple name. Selector calls
// (pkg.Fn or recv.Method) are recorded by their final identifier only; the
// Structural Index resolves ambiguity (if any) at query time.
func collectGoCalls(fn *sitter.Node, content []byte, path, callerName string, res *Result) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			if fnNode := n.ChildByFieldName("function"); fnNode != nil {
				callee := calleeName(fnNode, content)
				if callee != "" {
					res.Calls = append(res.Calls, model.CallEdge{
						CallerFile:   path,
						CallerSymbol: callerName,
						CalleeSymbol: callee,
						Line:         lineOf(n),
					})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	if body := fn.ChildByFieldName("body"); body != nil {
		walk(body)
	}
}

func calleeName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "identifier":
		return text(content, n)
	case "selector_expression":
		if field := n.ChildByFieldName("field"); field != nil {
			return text(content, field)
		}
	}
	return ""
}

func collectGoTypes(n *sitter.Node, content []byte, path string, res *Result) {
	for i := 0; i < int(n.ChildCount()); i++ {
		spec := n.Child(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		kind := model.KindType
		if typeNode := spec.ChildByFieldName("type"); typeNode != nil {
			if typeNode.Type() == "interface_type" {
				kind = model.KindInterface
			} else if typeNode.Type() == "struct_type" {
				kind = model.KindClass
			}
		}
		res.Symbols = append(res.Symbols, model.Symbol{
			FilePath:  path,
			Name:      text(content, nameNode),
			Kind:      kind,
			LineStart: lineOf(spec),
			LineEnd:   int(spec.EndPoint().Row) + 1,
		})
	}
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

var goBranchNodes = map[string]bool{
	"if_statement":          true,
	"for_statement":         true,
	"expression_case":       true, // switch/select case arms
	"communication_case":    true,
	"type_switch_statement": true,
}

func goComplexity(body *sitter.Node) int {
	count := countBranchNodes(body, goBranchNodes)
	count += countGoShortCircuits(body)
	return count
}

// countGoShortCircuits adds one per && or || operator, each a distinct
// execution path through a boolean condition.
func countGoShortCircuits(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Type() == "binary_expression" {
		for i := 0; i < int(n.ChildCount()); i++ {
			if t := n.Child(i).Type(); t == "&&" || t == "||" {
				count++
			}
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countGoShortCircuits(n.Child(i))
	}
	return count
}
