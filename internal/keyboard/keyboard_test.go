package keyboard

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeDispatcher struct {
	mu                    sync.Mutex
	paused                bool
	statsPrinted          bool
	cacheCleared          bool
	dailyReportTriggered  bool
	configDeleted         bool
}

func (f *fakeDispatcher) TogglePause()       { f.mu.Lock(); f.paused = !f.paused; f.mu.Unlock() }
func (f *fakeDispatcher) PrintStats()         { f.mu.Lock(); f.statsPrinted = true; f.mu.Unlock() }
func (f *fakeDispatcher) ClearCache()         { f.mu.Lock(); f.cacheCleared = true; f.mu.Unlock() }
func (f *fakeDispatcher) TriggerDailyReport() { f.mu.Lock(); f.dailyReportTriggered = true; f.mu.Unlock() }
func (f *fakeDispatcher) DeleteConfig()       { f.mu.Lock(); f.configDeleted = true; f.mu.Unlock() }

// pipeReader lets the test feed lines to Run asynchronously without
// needing a real stdin.
func newPipe() (io.Reader, io.WriteCloser) {
	r, w := io.Pipe()
	return r, w
}

func TestController_TogglePause(t *testing.T) {
	r, w := newPipe()
	disp := &fakeDispatcher{}
	c := New(r, &bytes.Buffer{}, disp, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	io.WriteString(w, "p\n")
	time.Sleep(20 * time.Millisecond)

	disp.mu.Lock()
	paused := disp.paused
	disp.mu.Unlock()
	if !paused {
		t.Fatal("TogglePause was not called after 'p'")
	}
}

func TestController_ClearCache_RequiresConfirmation(t *testing.T) {
	r, w := newPipe()
	disp := &fakeDispatcher{}
	out := &bytes.Buffer{}
	c := New(r, out, disp, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	io.WriteString(w, "l\n")
	time.Sleep(20 * time.Millisecond)
	io.WriteString(w, "s\n")
	time.Sleep(20 * time.Millisecond)

	disp.mu.Lock()
	cleared := disp.cacheCleared
	disp.mu.Unlock()
	if !cleared {
		t.Fatal("ClearCache was not called after 'l' + 's' confirmation")
	}
	if !strings.Contains(out.String(), "clear response cache") {
		t.Fatalf("output = %q, want a confirmation prompt", out.String())
	}
}

func TestController_ClearCache_DeclinedConfirmation(t *testing.T) {
	r, w := newPipe()
	disp := &fakeDispatcher{}
	c := New(r, &bytes.Buffer{}, disp, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	io.WriteString(w, "l\n")
	time.Sleep(20 * time.Millisecond)
	io.WriteString(w, "n\n")
	time.Sleep(20 * time.Millisecond)

	disp.mu.Lock()
	cleared := disp.cacheCleared
	disp.mu.Unlock()
	if cleared {
		t.Fatal("ClearCache was called despite a declined confirmation")
	}
}

func TestController_UnrecognizedLineWithNoPrompt_IsIgnored(t *testing.T) {
	r, w := newPipe()
	disp := &fakeDispatcher{}
	c := New(r, &bytes.Buffer{}, disp, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	io.WriteString(w, "some random line\n")
	time.Sleep(20 * time.Millisecond)
	// No assertion beyond "doesn't panic/hang" — there is no dispatcher
	// effect for a stray line outside of a pending prompt.
}
