// Package ui provides color output helpers for the Sentinel CLI and the
// watcher's interactive console, respecting --no-color and NO_COLOR.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Green  = color.New(color.FgGreen)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// InitColors configures global color output.
func InitColors(noColor bool) {
	color.NoColor = noColor
}

func Success(msg string) { fmt.Println(Green.Sprint("✓ ") + msg) }
func Warn(msg string)    { fmt.Println(Yellow.Sprint("! ") + msg) }
func Fail(msg string)    { fmt.Println(Red.Sprint("✗ ") + msg) }
func Info(msg string)    { fmt.Println(Cyan.Sprint("• ") + msg) }

// Progress prints an in-place progress line: "indexing... 42/100".
func Progress(label string, done, total int) {
	fmt.Printf("\r%s %s%d/%d%s", label, Dim.Sprint(""), done, total, "")
}
