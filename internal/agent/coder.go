package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergiogswv/sentinel/internal/provider"
)

// manifestFiles lists the package-manifest names the Coder scans in the
// project root to detect declared dependencies for prompt context.
var manifestFiles = []string{"package.json", "go.mod", "requirements.txt", "Pipfile", "Cargo.toml"}

// Coder handles Generate and Refactor tasks: it builds a prompt embedding
// detected project dependencies and, when the index is available, the call
// edges that originate in the target file, then returns a replacement
// source body as its output.
type Coder struct{}

func NewCoder() *Coder { return &Coder{} }

func (c *Coder) Name() string { return "coder" }

func (c *Coder) Execute(ctx context.Context, task Task, actx Context) (*Result, error) {
	deps := detectDependencies(actx.ProjectRoot)

	var callGraphNote string
	if actx.Index != nil && task.File != "" {
		callGraphNote = c.callGraphContext(ctx, actx, task.File)
	}

	var b strings.Builder
	b.WriteString("Project dependencies detected:\n")
	for _, d := range deps {
		b.WriteString("  " + d + "\n")
	}
	if callGraphNote != "" {
		b.WriteString(callGraphNote)
	}
	fmt.Fprintf(&b, "\nTask (%s): %s\n", task.Kind, task.Description)
	if task.ExtraContext != "" {
		b.WriteString("\nPrevious step output:\n" + task.ExtraContext + "\n")
	}
	b.WriteString("\nReply with ONLY the replacement source body, no commentary.")

	resp, err := actx.Executor.Run(ctx, provider.Request{Prompt: b.String()})
	if err != nil {
		return nil, fmt.Errorf("coder query: %w", err)
	}
	return &Result{Output: resp.Text}, nil
}

// callGraphContext renders, for embedding in the prompt, the call edges
// whose caller file is the target file (what its symbols call), taken from
// the first 100 edges the index returns. Callers of the file's symbols from
// other files are not included.
func (c *Coder) callGraphContext(ctx context.Context, actx Context, file string) string {
	edges, err := actx.Index.CallEdges(ctx, 100)
	if err != nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nCallers/callees touching this file:\n")
	for _, e := range edges {
		if e.CallerFile == file {
			fmt.Fprintf(&b, "  %s calls %s\n", e.CallerSymbol, e.CalleeSymbol)
		}
	}
	return b.String()
}

// detectDependencies scans root for known package-manifest files and
// returns a short human-readable summary line per manifest found.
func detectDependencies(root string) []string {
	var found []string
	for _, name := range manifestFiles {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		found = append(found, summarizeManifest(name, data))
	}
	return found
}

func summarizeManifest(name string, data []byte) string {
	switch name {
	case "package.json":
		var pkg struct {
			Dependencies map[string]string `json:"dependencies"`
		}
		if json.Unmarshal(data, &pkg) == nil && len(pkg.Dependencies) > 0 {
			names := make([]string, 0, len(pkg.Dependencies))
			for k := range pkg.Dependencies {
				names = append(names, k)
			}
			return fmt.Sprintf("%s: %s", name, strings.Join(names, ", "))
		}
		return name
	default:
		return name
	}
}
