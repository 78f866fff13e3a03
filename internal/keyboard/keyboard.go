// Package keyboard implements the Keyboard Controller: the single reader
// of the process's standard input. Every command and every confirmation
// prompt goes through this one reader, because multiple concurrent
// readers of stdin race.
package keyboard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PromptDeadline is how long a confirmation prompt waits for an answer
// before defaulting to "no".
const PromptDeadline = 30 * time.Second

// Dispatcher receives the effect of each single-letter command. TogglePause,
// PrintStats and TriggerDailyReport run on the Controller's own goroutine
// and should not block for long; ClearCache and DeleteConfig run on a
// separate goroutine once their confirmation prompt is answered, so the
// Controller keeps reading the reply line.
type Dispatcher interface {
	TogglePause()
	PrintStats()
	ClearCache()
	TriggerDailyReport()
	DeleteConfig()
}

// Controller owns the one stdin reader. Line-dispatch happens for the
// single-letter commands; any other line delivered while a prompt is
// pending is instead forwarded to that prompt's one-shot channel.
type Controller struct {
	in   *bufio.Scanner
	out  io.Writer
	disp Dispatcher
	log  *zap.Logger

	mu      sync.Mutex
	pending chan string // non-nil while a Prompt call is awaiting a line
}

// New builds a Controller reading from in and writing command output to out.
func New(in io.Reader, out io.Writer, disp Dispatcher, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		in:   bufio.NewScanner(in),
		out:  out,
		disp: disp,
		log:  log,
	}
}

// Run reads lines until ctx is cancelled or the reader returns EOF. It
// blocks; callers invoke it in its own goroutine.
func (c *Controller) Run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for c.in.Scan() {
			lines <- c.in.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			c.handleLine(line)
		}
	}
}

func (c *Controller) handleLine(line string) {
	trimmed := strings.TrimSpace(line)

	c.mu.Lock()
	waiting := c.pending
	c.mu.Unlock()

	switch trimmed {
	case "p", "m", "l", "r", "x", "h", "help":
		c.dispatchCommand(trimmed)
		return
	}

	// Not a recognized command: if a prompt is pending, it owns this line.
	if waiting != nil {
		select {
		case waiting <- trimmed:
		default:
		}
		return
	}

	c.log.Debug("keyboard.line.unrecognized", zap.String("line", trimmed))
}

func (c *Controller) dispatchCommand(cmd string) {
	switch cmd {
	case "p":
		c.disp.TogglePause()
	case "m":
		c.disp.PrintStats()
	case "l":
		go func() {
			if c.Confirm("clear response cache") {
				c.disp.ClearCache()
			}
		}()
	case "r":
		c.disp.TriggerDailyReport()
	case "x":
		go func() {
			if c.Confirm("delete project config") {
				c.disp.DeleteConfig()
			}
		}()
	case "h", "help":
		c.printHelp()
	}
}

func (c *Controller) printHelp() {
	fmt.Fprintln(c.out, "p  toggle pause")
	fmt.Fprintln(c.out, "m  print stats snapshot")
	fmt.Fprintln(c.out, "l  clear response cache (confirm)")
	fmt.Fprintln(c.out, "r  trigger daily report")
	fmt.Fprintln(c.out, "x  delete project config (confirm)")
	fmt.Fprintln(c.out, "h  this help")
}

// Confirm prints a yes/no prompt and waits up to PromptDeadline for a
// reply from the stdin reader. Any reply other than "s"/"y"/"yes" (case
// insensitive) — including a timeout — is treated as no.
func (c *Controller) Confirm(question string) bool {
	fmt.Fprintf(c.out, "%s? (s/n) ", question)

	reply, err := c.Prompt()
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "s", "y", "yes":
		return true
	default:
		return false
	}
}

// Prompt registers a one-shot receiver for the next non-command line and
// waits up to PromptDeadline. It returns an error on timeout; the caller
// should then treat the prompt as answered "no".
func (c *Controller) Prompt() (string, error) {
	ch := make(chan string, 1)

	c.mu.Lock()
	c.pending = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending == ch {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	select {
	case reply := <-ch:
		return reply, nil
	case <-time.After(PromptDeadline):
		return "", fmt.Errorf("prompt timed out after %s", PromptDeadline)
	}
}
