package rules

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/parser"
)

func TestDeadCode_SingleOccurrence(t *testing.T) {
	source := []byte("package main\n\nfunc unused() {}\n")
	res := &parser.Result{Symbols: []model.Symbol{
		{FilePath: "a.go", Name: "unused", Kind: model.KindFunction, LineStart: 3, LineEnd: 3},
	}}
	violations := DeadCode("a.go", source, res)
	if len(violations) != 1 || violations[0].Symbol != "unused" {
		t.Fatalf("DeadCode = %+v, want exactly one DEAD_CODE for 'unused'", violations)
	}
}

func TestDeadCode_CalledInSameFile_NoViolation(t *testing.T) {
	source := []byte("package main\n\nfunc helper() {}\nfunc main() { helper() }\n")
	res := &parser.Result{Symbols: []model.Symbol{
		{FilePath: "a.go", Name: "helper", Kind: model.KindFunction, LineStart: 3, LineEnd: 3},
	}}
	violations := DeadCode("a.go", source, res)
	if len(violations) != 0 {
		t.Fatalf("DeadCode = %+v, want none (helper is called in this file)", violations)
	}
}

func TestUnusedImport_DecoratorEscape(t *testing.T) {
	source := []byte("import { ApiProperty } from 'lib'\n\nclass X {\n  @ApiProperty()\n  name: string\n}\n")
	res := &parser.Result{Imports: []model.ImportReference{
		{FilePath: "a.ts", ImportedName: "ApiProperty", SourceModule: "lib", Line: 1},
	}}
	violations := UnusedImport("a.ts", source, res)
	if len(violations) != 0 {
		t.Fatalf("UnusedImport = %+v, want none (decorator escape)", violations)
	}
}

func TestUnusedImport_NoUseAtAll(t *testing.T) {
	source := []byte("import { Foo } from 'lib'\n\nconsole.log('hi')\n")
	res := &parser.Result{Imports: []model.ImportReference{
		{FilePath: "a.ts", ImportedName: "Foo", SourceModule: "lib", Line: 1},
	}}
	violations := UnusedImport("a.ts", source, res)
	if len(violations) != 1 {
		t.Fatalf("UnusedImport = %+v, want exactly one", violations)
	}
}

func TestComplexity_AboveThreshold(t *testing.T) {
	res := &parser.Result{Metrics: []parser.FunctionMetric{
		{FilePath: "a.go", Name: "tangled", LineStart: 1, LineEnd: 40, Complexity: 15, Lines: 40},
	}}
	violations := Complexity("a.go", res, 10)
	if len(violations) != 1 || violations[0].RuleName != "HIGH_COMPLEXITY" {
		t.Fatalf("Complexity = %+v, want one HIGH_COMPLEXITY", violations)
	}
}

func TestFunctionLength_AboveThreshold(t *testing.T) {
	res := &parser.Result{Metrics: []parser.FunctionMetric{
		{FilePath: "a.go", Name: "long", LineStart: 1, LineEnd: 80, Complexity: 2, Lines: 80},
	}}
	violations := FunctionLength("a.go", res, 50)
	if len(violations) != 1 || violations[0].RuleName != "FUNCTION_TOO_LONG" {
		t.Fatalf("FunctionLength = %+v, want one FUNCTION_TOO_LONG", violations)
	}
}

type fakeIndex struct {
	callers map[string]int
}

func (f *fakeIndex) CallersOf(ctx context.Context, name, excludingFile string) (int, error) {
	return f.callers[name], nil
}

func TestEngine_CrossFileDeadCodeFilter(t *testing.T) {
	idx := &fakeIndex{callers: map[string]int{"foo": 1}}
	eng := NewEngine(idx, nil)

	violations := []model.Violation{{RuleName: "DEAD_CODE", Symbol: "foo", FilePath: "a.go"}}
	out, err := eng.Filter(context.Background(), violations)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("Filter = %+v, want none (foo has a caller in another file)", out)
	}
}

func TestEngine_NoIndex_SkipsCrossFileFilter(t *testing.T) {
	eng := NewEngine(nil, nil)
	violations := []model.Violation{{RuleName: "DEAD_CODE", Symbol: "foo", FilePath: "a.go"}}
	out, err := eng.Filter(context.Background(), violations)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Filter = %+v, want the violation to survive with no index", out)
	}
}

func TestEngine_IgnoreListFilter(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenIgnoreStore(filepath.Join(dir, "ignore.json"))
	if err != nil {
		t.Fatalf("OpenIgnoreStore: %v", err)
	}
	if err := store.Add("NAMING_CONVENTION", "a.go", ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	eng := NewEngine(nil, store)
	violations := []model.Violation{
		{RuleName: "NAMING_CONVENTION", FilePath: "a.go", Symbol: "anything"},
		{RuleName: "NAMING_CONVENTION", FilePath: "b.go", Symbol: "other"},
	}
	out, err := eng.Filter(context.Background(), violations)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(out) != 1 || out[0].FilePath != "b.go" {
		t.Fatalf("Filter = %+v, want only the b.go violation to survive", out)
	}
}

func TestIgnoreStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore.json")
	store, err := OpenIgnoreStore(path)
	if err != nil {
		t.Fatalf("OpenIgnoreStore: %v", err)
	}
	if err := store.Add("DEAD_CODE", "a.go", "foo"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened, err := OpenIgnoreStore(path)
	if err != nil {
		t.Fatalf("reopen OpenIgnoreStore: %v", err)
	}
	if len(reopened.List()) != 1 {
		t.Fatalf("entries after reopen = %+v, want 1", reopened.List())
	}
}
