package parser

import (
	"context"
	"testing"

	"github.com/sergiogswv/sentinel/internal/model"
)

func symbolNames(syms []model.Symbol) []string {
	var out []string
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func contains(haystack []string, want string) bool {
	for _, s := range haystack {
		if s == want {
			return true
		}
	}
	return false
}

func TestParseFile_Go_ExtractsFunctionsTypesImportsCalls(t *testing.T) {
	src := `package main

import (
	"fmt"
	"strings"
)

type Server struct {
	Name string
}

func (s *Server) Start() error {
	fmt.Println("starting")
	return helper()
}

func helper() error {
	return nil
}
`
	p := New(nil)
	res, err := p.ParseFile(context.Background(), "main.go", []byte(src))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	names := symbolNames(res.Symbols)
	for _, want := range []string{"Server", "Start", "helper"} {
		if !contains(names, want) {
			t.Errorf("symbols %v missing %q", names, want)
		}
	}

	var sawFmt, sawStrings bool
	for _, imp := range res.Imports {
		if imp.SourceModule == "fmt" {
			sawFmt = true
		}
		if imp.SourceModule == "strings" {
			sawStrings = true
		}
	}
	if !sawFmt || !sawStrings {
		t.Errorf("imports = %+v, want fmt and strings", res.Imports)
	}

	var sawCall bool
	for _, c := range res.Calls {
		if c.CallerSymbol == "Start" && c.CalleeSymbol == "helper" {
			sawCall = true
		}
	}
	if !sawCall {
		t.Errorf("calls = %+v, want Start -> helper", res.Calls)
	}
}

func TestParseFile_UnsupportedExtension_ReturnsEmptyResult(t *testing.T) {
	p := New(nil)
	res, err := p.ParseFile(context.Background(), "README.md", []byte("# hi"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(res.Symbols) != 0 || len(res.Imports) != 0 || len(res.Calls) != 0 {
		t.Errorf("expected empty Result for unsupported extension, got %+v", res)
	}
}

func TestParseFile_Python_ExtractsFunctionsAndClasses(t *testing.T) {
	src := `import os

class Greeter:
    def greet(self):
        return helper()

def helper():
    return os.getcwd()
`
	p := New(nil)
	res, err := p.ParseFile(context.Background(), "greet.py", []byte(src))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	names := symbolNames(res.Symbols)
	for _, want := range []string{"Greeter", "greet", "helper"} {
		if !contains(names, want) {
			t.Errorf("symbols %v missing %q", names, want)
		}
	}
}
