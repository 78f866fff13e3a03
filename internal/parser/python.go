package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sergiogswv/sentinel/internal/model"
)

func parsePython(root *sitter.Node, content []byte, path string) *Result {
	res := &Result{}
	walkPython(root, content, path, res)
	return res
}

func walkPython(n *sitter.Node, content []byte, path string, res *Result) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "import_statement", "import_from_statement":
		collectPythonImport(n, content, path, res)

	case "function_definition":
		name := text(content, n.ChildByFieldName("name"))
		if name != "" {
			kind := model.KindFunction
			if n.Parent() != nil && n.Parent().Type() == "block" &&
				n.Parent().Parent() != nil && n.Parent().Parent().Type() == "class_definition" {
				kind = model.KindMethod
			}
			lineStart, lineEnd := lineOf(n), int(n.EndPoint().Row)+1
			res.Symbols = append(res.Symbols, model.Symbol{
				FilePath: path, Name: name, Kind: kind,
				LineStart: lineStart, LineEnd: lineEnd,
			})
			collectPythonCalls(n, content, path, name, res)
			res.Metrics = append(res.Metrics, functionMetric(n, path, name, lineStart, lineEnd, pythonComplexity))
		}

	case "class_definition":
		name := text(content, n.ChildByFieldName("name"))
		if name != "" {
			res.Symbols = append(res.Symbols, model.Symbol{
				FilePath: path, Name: name, Kind: model.KindClass,
				LineStart: lineOf(n), LineEnd: int(n.EndPoint().Row) + 1,
			})
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		walkPython(n.Child(i), content, path, res)
	}
}

func collectPythonImport(n *sitter.Node, content []byte, path string, res *Result) {
	var module string
	if n.Type() == "import_from_statement" {
		if mod := n.ChildByFieldName("module_name"); mod != nil {
			module = text(content, mod)
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "dotted_name":
			name := text(content, child)
			src := name
			if module != "" {
				src = module
			}
			res.Imports = append(res.Imports, model.ImportReference{
				FilePath: path, ImportedName: name, SourceModule: src, Line: lineOf(child),
			})
		case "aliased_import":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				alias := nameNode
				if a := child.ChildByFieldName("alias"); a != nil {
					alias = a
				}
				res.Imports = append(res.Imports, model.ImportReference{
					FilePath: path, ImportedName: text(content, alias), SourceModule: text(content, nameNode), Line: lineOf(child),
				})
			}
		}
	}
}

func collectPythonCalls(fn *sitter.Node, content []byte, path, callerName string, res *Result) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call" {
			if fnNode := n.ChildByFieldName("function"); fnNode != nil {
				if callee := pythonCalleeName(fnNode, content); callee != "" {
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

func pythonCalleeName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "identifier":
		return text(content, n)
	case "attribute":
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			return text(content, attr)
		}
	}
	return ""
}

var pythonBranchNodes = map[string]bool{
	"if_statement":      true,
	"elif_clause":       true,
	"for_statement":     true,
	"while_statement":   true,
	"except_clause":     true,
	"conditional_expression": true,
}

func pythonComplexity(body *sitter.Node) int {
	return countBranchNodes(body, pythonBranchNodes) + countPythonShortCircuits(body)
}

func countPythonShortCircuits(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Type() == "boolean_operator" {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += countPythonShortCircuits(n.Child(i))
	}
	return count
}
