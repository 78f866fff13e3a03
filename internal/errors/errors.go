// Package errors provides structured, user-facing error handling for the
// Sentinel CLI and its long-running watcher.
//
// SentinelError carries three levels of information: what went wrong, why,
// and how to fix it, plus an exit code drawn from a small fixed taxonomy.
// Deep components return plain wrapped errors. bootstrap.Open converts a
// config load failure into a SentinelError with ExitConfig; every other
// error reaches main as a plain error and exits with ExitOperational, so no
// command currently exits with ExitProvider.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes, matching the CLI contract: 0 success, 1 operational error,
// 2 configuration error, 3 provider failure (both primary and fallback
// exhausted).
const (
	ExitSuccess     = 0
	ExitOperational = 1
	ExitConfig      = 2
	ExitProvider    = 3
)

// SentinelError is an error with structured context for end users.
type SentinelError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *SentinelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SentinelError) Unwrap() error { return e.Err }

// NewOperationalError wraps an input/file/parse error that should not abort
// the watcher loop but is still worth surfacing to the user.
func NewOperationalError(msg, cause, fix string, err error) *SentinelError {
	return &SentinelError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitOperational, Err: err}
}

// NewConfigError wraps a configuration error: missing project root, bad
// TOML, an unrecognized config version.
func NewConfigError(msg, cause, fix string, err error) *SentinelError {
	return &SentinelError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewProviderError wraps the case where both primary and fallback provider
// calls failed.
func NewProviderError(msg, cause, fix string, err error) *SentinelError {
	return &SentinelError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitProvider, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error for terminal display, honoring NO_COLOR.
func (e *SentinelError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")
	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// JSON represents error information for --json output.
type JSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *SentinelError) ToJSON() JSON {
	return JSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// Fatal prints err and exits with its exit code. Non-SentinelError values
// exit with ExitOperational after a plain message.
func Fatal(err error, jsonOutput bool) {
	if err == nil {
		return
	}
	if se, ok := err.(*SentinelError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(se.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, se.Format(false))
		}
		os.Exit(se.ExitCode)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitOperational)
}
