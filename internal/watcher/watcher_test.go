package watcher

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveTestTarget_FindsParentByPriority(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"widget.guard.ts", "widget.service.ts", "widget.controller.ts"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	got := resolveTestTarget(filepath.Join(dir, "widget.guard.ts"))
	want := "widget"
	if got != want {
		t.Fatalf("resolveTestTarget = %q, want %q (service outranks controller, fragment stripped)", got, want)
	}
}

func TestResolveTestTarget_StripsSeparatorBeforeFragment(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"call-inbound.ts", "call.service.ts"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	got := resolveTestTarget(filepath.Join(dir, "call-inbound.ts"))
	want := "call"
	if got != want {
		t.Fatalf("resolveTestTarget = %q, want %q", got, want)
	}
}

func TestResolveTestTarget_NoParent_ReturnsSelf(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "util.ts"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := resolveTestTarget(filepath.Join(dir, "util.ts"))
	if got != "util" {
		t.Fatalf("resolveTestTarget = %q, want %q (no parent present)", got, "util")
	}
}

func TestIsCandidate_RejectsSuggestedSuffix(t *testing.T) {
	w := &Watcher{extensions: map[string]bool{".ts": true}}
	if w.isCandidate("foo.suggested.ts") {
		t.Fatal("isCandidate(foo.suggested.ts) = true, want false")
	}
	if !w.isCandidate("foo.ts") {
		t.Fatal("isCandidate(foo.ts) = false, want true")
	}
}

func TestIsCandidate_RejectsUnknownExtension(t *testing.T) {
	w := &Watcher{extensions: map[string]bool{".ts": true}}
	if w.isCandidate("foo.md") {
		t.Fatal("isCandidate(foo.md) = true, want false")
	}
}

func TestIsIgnored_MatchesSubstring(t *testing.T) {
	w := &Watcher{ignore: []string{"node_modules", ".git"}}
	if !w.isIgnored("/repo/node_modules/pkg/index.ts") {
		t.Fatal("isIgnored(node_modules path) = false, want true")
	}
	if w.isIgnored("/repo/src/index.ts") {
		t.Fatal("isIgnored(src path) = true, want false")
	}
}
