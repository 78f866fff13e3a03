package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/parser"
)

func openTest(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestWriteFile_ExactRowsForCurrentParse(t *testing.T) {
	idx := openTest(t)
	ctx := context.Background()

	result := &parser.Result{
		Symbols: []model.Symbol{{FilePath: "a.go", Name: "Foo", Kind: model.KindFunction, LineStart: 1, LineEnd: 3}},
		Calls:   []model.CallEdge{{CallerFile: "a.go", CallerSymbol: "Foo", CalleeSymbol: "Bar", Line: 2}},
		Imports: []model.ImportReference{{FilePath: "a.go", ImportedName: "fmt", SourceModule: "fmt", Line: 1}},
	}
	rec := model.FileRecord{Path: "a.go", LastIndexedAt: time.Now(), ContentHash: "h1"}
	if err := idx.WriteFile(ctx, rec, result); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	syms, err := idx.Symbols(ctx, 100)
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) != 1 {
		t.Fatalf("symbols count = %d, want 1", len(syms))
	}

	// Re-index with a smaller result: old rows must be gone, not accumulated.
	result2 := &parser.Result{
		Symbols: []model.Symbol{{FilePath: "a.go", Name: "Baz", Kind: model.KindFunction, LineStart: 5, LineEnd: 6}},
	}
	rec.ContentHash = "h2"
	if err := idx.WriteFile(ctx, rec, result2); err != nil {
		t.Fatalf("WriteFile (re-index): %v", err)
	}

	syms, err = idx.Symbols(ctx, 100)
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) != 1 || syms[0].Name != "Baz" {
		t.Fatalf("symbols after re-index = %+v, want exactly [Baz]", syms)
	}

	edges, err := idx.CallEdges(ctx, 100)
	if err != nil {
		t.Fatalf("CallEdges: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("call edges after re-index without calls = %+v, want none", edges)
	}
}

func TestCallersOf_ExcludesOwnFile(t *testing.T) {
	idx := openTest(t)
	ctx := context.Background()

	rec := model.FileRecord{Path: "a.go", LastIndexedAt: time.Now(), ContentHash: "h"}
	result := &parser.Result{
		Symbols: []model.Symbol{{FilePath: "a.go", Name: "foo", Kind: model.KindFunction, LineStart: 1, LineEnd: 2}},
		Calls:   []model.CallEdge{{CallerFile: "a.go", CallerSymbol: "self", CalleeSymbol: "foo", Line: 1}},
	}
	if err := idx.WriteFile(ctx, rec, result); err != nil {
		t.Fatalf("WriteFile a.go: %v", err)
	}

	n, err := idx.CallersOf(ctx, "foo", "a.go")
	if err != nil {
		t.Fatalf("CallersOf: %v", err)
	}
	if n != 0 {
		t.Errorf("CallersOf(foo, excluding a.go) = %d, want 0 (only caller is in a.go itself)", n)
	}

	recB := model.FileRecord{Path: "b.go", LastIndexedAt: time.Now(), ContentHash: "h"}
	resultB := &parser.Result{
		Calls: []model.CallEdge{{CallerFile: "b.go", CallerSymbol: "other", CalleeSymbol: "foo", Line: 4}},
	}
	if err := idx.WriteFile(ctx, recB, resultB); err != nil {
		t.Fatalf("WriteFile b.go: %v", err)
	}

	n, err = idx.CallersOf(ctx, "foo", "a.go")
	if err != nil {
		t.Fatalf("CallersOf: %v", err)
	}
	if n != 1 {
		t.Errorf("CallersOf(foo, excluding a.go) = %d, want 1 (caller in b.go)", n)
	}
}

func TestGetDeadCode_NoCallersAnywhere(t *testing.T) {
	idx := openTest(t)
	ctx := context.Background()

	rec := model.FileRecord{Path: "a.go", LastIndexedAt: time.Now(), ContentHash: "h"}
	result := &parser.Result{
		Symbols: []model.Symbol{
			{FilePath: "a.go", Name: "used", Kind: model.KindFunction, LineStart: 1, LineEnd: 2},
			{FilePath: "a.go", Name: "unused", Kind: model.KindFunction, LineStart: 4, LineEnd: 5},
		},
		Calls: []model.CallEdge{{CallerFile: "a.go", CallerSymbol: "used", CalleeSymbol: "used", Line: 1}},
	}
	if err := idx.WriteFile(ctx, rec, result); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dead, err := idx.GetDeadCode(ctx, "")
	if err != nil {
		t.Fatalf("GetDeadCode: %v", err)
	}
	if len(dead) != 1 || dead[0].Name != "unused" {
		t.Fatalf("GetDeadCode = %+v, want exactly [unused]", dead)
	}
}

func TestIsStale(t *testing.T) {
	cases := []struct {
		indexed, disk int
		want          bool
	}{
		{indexed: 100, disk: 100, want: false},
		{indexed: 100, disk: 104, want: false},  // within max(5, 104/10) = 10 tolerance
		{indexed: 100, disk: 112, want: true},   // exceeds tolerance of 11
		{indexed: 10, disk: 1, want: true},      // small disk count uses floor of 5
	}
	for _, c := range cases {
		if got := IsStale(c.indexed, c.disk); got != c.want {
			t.Errorf("IsStale(%d, %d) = %v, want %v", c.indexed, c.disk, got, c.want)
		}
	}
}
