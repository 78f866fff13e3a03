package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sergiogswv/sentinel/internal/model"
)

// parseJSFamily handles JavaScript, JSX, TypeScript, and TSX with one
// walker: the four grammars agree closely enough on the node types this
// extractor cares about (functions, classes, imports, calls).
func parseJSFamily(root *sitter.Node, content []byte, path string) *Result {
	res := &Result{}
	walkJS(root, content, path, res)
	return res
}

func walkJS(n *sitter.Node, content []byte, path string, res *Result) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "import_statement":
		collectJSImport(n, content, path, res)

	case "function_declaration", "generator_function_declaration":
		name := text(content, n.ChildByFieldName("name"))
		if name != "" {
			lineStart, lineEnd := lineOf(n), int(n.EndPoint().Row)+1
			res.Symbols = append(res.Symbols, model.Symbol{
				FilePath: path, Name: name, Kind: model.KindFunction,
				LineStart: lineStart, LineEnd: lineEnd,
			})
			collectJSCalls(n, content, path, name, res)
			res.Metrics = append(res.Metrics, functionMetric(n, path, name, lineStart, lineEnd, jsComplexity))
		}

	case "method_definition":
		name := text(content, n.ChildByFieldName("name"))
		if name != "" {
			lineStart, lineEnd := lineOf(n), int(n.EndPoint().Row)+1
			res.Symbols = append(res.Symbols, model.Symbol{
				FilePath: path, Name: name, Kind: model.KindMethod,
				LineStart: lineStart, LineEnd: lineEnd,
			})
			collectJSCalls(n, content, path, name, res)
			res.Metrics = append(res.Metrics, functionMetric(n, path, name, lineStart, lineEnd, jsComplexity))
		}

	case "class_declaration":
		name := text(content, n.ChildByFieldName("name"))
		if name != "" {
			res.Symbols = append(res.Symbols, model.Symbol{
				FilePath: path, Name: name, Kind: model.KindClass,
				LineStart: lineOf(n), LineEnd: int(n.EndPoint().Row) + 1,
			})
		}

	case "interface_declaration":
		name := text(content, n.ChildByFieldName("name"))
		if name != "" {
			res.Symbols = append(res.Symbols, model.Symbol{
				FilePath: path, Name: name, Kind: model.KindInterface,
				LineStart: lineOf(n), LineEnd: int(n.EndPoint().Row) + 1,
			})
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		walkJS(n.Child(i), content, path, res)
	}
}

func collectJSImport(n *sitter.Node, content []byte, path string, res *Result) {
	var source *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == "string" {
			source = c
		}
	}
	module := trimQuotes(text(content, source))

	addedAny := false
	var walkClause func(n *sitter.Node)
	walkClause = func(n *sitter.Node) {
		switch n.Type() {
		case "identifier":
			res.Imports = append(res.Imports, model.ImportReference{
				FilePath: path, ImportedName: text(content, n), SourceModule: module, Line: lineOf(n),
			})
			addedAny = true
		case "import_specifier":
			nameNode := n.ChildByFieldName("name")
			res.Imports = append(res.Imports, model.ImportReference{
				FilePath: path, ImportedName: text(content, nameNode), SourceModule: module, Line: lineOf(n),
			})
			addedAny = true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walkClause(n.Child(i))
		}
	}
	if clause := n.ChildByFieldName("import"); clause != nil {
		walkClause(clause)
	} else {
		walkClause(n)
	}

	if !addedAny && module != "" {
		res.Imports = append(res.Imports, model.ImportReference{
			FilePath: path, ImportedName: module, SourceModule: module, Line: lineOf(n),
		})
	}
}

func collectJSCalls(fn *sitter.Node, content []byte, path, callerName string, res *Result) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			if fnNode := n.ChildByFieldName("function"); fnNode != nil {
				if callee := jsCalleeName(fnNode, content); callee != "" {
					res.Calls = append(res.Calls, model.CallEdge{
						CallerFile: path, CallerSymbol: callerName, CalleeSymbol: callee, Line: lineOf(n),
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

func jsCalleeName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "identifier":
		return text(content, n)
	case "member_expression":
		if prop := n.ChildByFieldName("property"); prop != nil {
			return text(content, prop)
		}
	}
	return ""
}

var jsBranchNodes = map[string]bool{
	"if_statement":        true,
	"for_statement":       true,
	"for_in_statement":    true,
	"while_statement":     true,
	"do_statement":        true,
	"switch_case":         true,
	"catch_clause":        true,
	"ternary_expression":  true,
}

func jsComplexity(body *sitter.Node) int {
	return countBranchNodes(body, jsBranchNodes) + countJSShortCircuits(body)
}

func countJSShortCircuits(n *sitter.Node) int {
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
		count += countJSShortCircuits(n.Child(i))
	}
	return count
}
