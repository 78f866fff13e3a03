package cache

import (
	"errors"
	"testing"

	"github.com/sergiogswv/sentinel/internal/model"
)

func TestCache_RoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fp := Fingerprint("explain this function", "Light", "claude-test")

	if _, err := c.Get(fp); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get on cold cache: err = %v, want ErrMiss", err)
	}

	entry := model.CacheEntry{
		Prompt:       "explain this function",
		TaskClass:    "Light",
		Model:        "claude-test",
		Response:     "it does X",
		PromptTokens: 5,
		OutputTokens: 3,
	}
	if err := c.Put(fp, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Get(fp)
	if err != nil {
		t.Fatalf("Get after Put: %v", err)
	}
	if got.Response != entry.Response {
		t.Errorf("Response = %q, want %q", got.Response, entry.Response)
	}
}

func TestCache_Clear(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fp := Fingerprint("p", "Deep", "m")
	if err := c.Put(fp, model.CacheEntry{Response: "r"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if n, _ := c.Count(); n != 1 {
		t.Fatalf("Count before Clear = %d, want 1", n)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := c.Count(); n != 0 {
		t.Fatalf("Count after Clear = %d, want 0", n)
	}
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	a := Fingerprint("hello", "Light", "m1")
	b := Fingerprint("hello", "Light", "m1")
	if a != b {
		t.Error("Fingerprint not stable for identical inputs")
	}

	c := Fingerprint("hello", "Deep", "m1")
	if a == c {
		t.Error("Fingerprint collided across different task classes")
	}
}
