// Package output provides consistent JSON rendering for CLI commands that
// support --json / --format json.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSON writes data as pretty-printed JSON to stdout.
func JSON(data any) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo writes data as pretty-printed JSON to w.
func JSONTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("json encoding failed: %w", err)
	}
	return nil
}

// Error writes an error as a JSON object to stderr.
type errorPayload struct {
	Error string `json:"error"`
}

func Error(err error) error {
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	return enc.Encode(errorPayload{Error: err.Error()})
}
