package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// scrubbedEnvVars is the fixed allowlist a Tester subprocess's environment
// is reduced to, regardless of the caller's own environment.
var scrubbedEnvVars = []string{"PATH", "CI", "USER", "HOME"}

// Tester runs the project's configured test command with stdout/stderr
// streamed live and also captured, so a failure's output can be handed to
// a diagnosis step.
type Tester struct {
	// Stdout/Stderr receive the live stream; nil defaults to os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

func NewTester() *Tester { return &Tester{} }

func (t *Tester) Name() string { return "tester" }

func (t *Tester) Execute(ctx context.Context, task Task, actx Context) (*Result, error) {
	if actx.Config == nil || len(actx.Config.TestCommand) == 0 {
		return &Result{Err: fmt.Errorf("tester: no test command configured")}, nil
	}
	testCommand := scopeTestCommand(actx.Config.TestCommand, task.Target)

	cmd := exec.CommandContext(ctx, testCommand[0], testCommand[1:]...)
	cmd.Dir = actx.ProjectRoot
	cmd.Env = scrubEnviron()

	var captured bytes.Buffer
	cmd.Stdout = io.MultiWriter(orStdout(t.Stdout), &captured)
	cmd.Stderr = io.MultiWriter(orStderr(t.Stderr), &captured)

	err := cmd.Run()
	if err != nil {
		return &Result{Output: captured.String(), Err: fmt.Errorf("tests failed: %w", err)}, nil
	}
	return &Result{Output: captured.String()}, nil
}

// scopeTestCommand narrows the configured test command to one resolved
// target: a "{target}" placeholder in any argument is substituted; absent
// a placeholder, the target is appended as a trailing argument (the
// common shape for "go test ./... -run Target"-style invocations).
// target == "" returns command unchanged.
func scopeTestCommand(command []string, target string) []string {
	if target == "" {
		return command
	}

	out := make([]string, len(command))
	substituted := false
	for i, arg := range command {
		if strings.Contains(arg, "{target}") {
			out[i] = strings.ReplaceAll(arg, "{target}", target)
			substituted = true
			continue
		}
		out[i] = arg
	}
	if !substituted {
		out = append(out, target)
	}
	return out
}

func orStdout(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}

func orStderr(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stderr
}

// scrubEnviron rebuilds the subprocess environment from the current
// process's, keeping only the fixed allowlist (PATH, a CI/runtime-flag
// variable, USER, HOME).
func scrubEnviron() []string {
	var out []string
	for _, name := range scrubbedEnvVars {
		if v, ok := os.LookupEnv(name); ok {
			out = append(out, name+"="+v)
		}
	}
	return out
}
