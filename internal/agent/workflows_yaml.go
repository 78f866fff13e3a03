package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// workflowFile is the on-disk shape of a user-authored workflow definitions
// file: a list of named sequential steps, each naming a registered agent
// and the task it receives.
type workflowFile struct {
	Workflows []struct {
		Name  string `yaml:"name"`
		Steps []struct {
			Agent       string `yaml:"agent"`
			Kind        string `yaml:"kind"`
			Description string `yaml:"description"`
		} `yaml:"steps"`
	} `yaml:"workflows"`
}

// LoadCustomWorkflows reads a YAML file of user-defined workflows, in
// addition to the two predefined ones built directly in Go. A missing file
// is not an error: it returns no workflows.
func LoadCustomWorkflows(path string) (map[string]Workflow, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]Workflow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workflow definitions %s: %w", path, err)
	}

	var wf workflowFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow definitions %s: %w", path, err)
	}

	out := make(map[string]Workflow, len(wf.Workflows))
	for _, w := range wf.Workflows {
		steps := make([]Step, 0, len(w.Steps))
		for _, s := range w.Steps {
			steps = append(steps, Step{
				AgentName: s.Agent,
				Task:      Task{Kind: Kind(s.Kind), Description: s.Description},
			})
		}
		out[w.Name] = Workflow{Name: w.Name, Steps: steps}
	}
	return out, nil
}
