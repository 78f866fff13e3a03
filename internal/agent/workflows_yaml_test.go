package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCustomWorkflows_MissingFile_ReturnsEmpty(t *testing.T) {
	wfs, err := LoadCustomWorkflows(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadCustomWorkflows: %v", err)
	}
	if len(wfs) != 0 {
		t.Fatalf("wfs = %+v, want empty for a missing file", wfs)
	}
}

func TestLoadCustomWorkflows_ParsesSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	content := `
workflows:
  - name: explain-and-test
    steps:
      - agent: reviewer
        kind: Analyze
        description: explain this file
      - agent: tester
        kind: Test
        description: confirm nothing broke
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	wfs, err := LoadCustomWorkflows(path)
	if err != nil {
		t.Fatalf("LoadCustomWorkflows: %v", err)
	}
	wf, ok := wfs["explain-and-test"]
	if !ok {
		t.Fatalf("wfs = %+v, want key explain-and-test", wfs)
	}
	if len(wf.Steps) != 2 || wf.Steps[0].AgentName != "reviewer" || wf.Steps[1].AgentName != "tester" {
		t.Fatalf("steps = %+v, want [reviewer tester]", wf.Steps)
	}
}
