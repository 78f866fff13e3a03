package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Step is one (agent_name, task) pair in a Workflow.
type Step struct {
	AgentName string
	Task      Task
}

// Workflow is a named sequential list of steps.
type Workflow struct {
	Name  string
	Steps []Step
}

// FixAndVerify is the predefined Coder -> Refactor -> Tester workflow.
func FixAndVerify(description, file string) Workflow {
	return Workflow{
		Name: "fix-and-verify",
		Steps: []Step{
			{AgentName: "coder", Task: Task{Kind: KindGenerate, Description: description, File: file}},
			{AgentName: "refactor", Task: Task{Kind: KindRefactor, Description: description, File: file}},
			{AgentName: "tester", Task: Task{Kind: KindTest, Description: "verify the change", File: file}},
		},
	}
}

// ReviewSecurity is the predefined Reviewer -> Coder workflow.
func ReviewSecurity(description, file string) Workflow {
	return Workflow{
		Name: "review-security",
		Steps: []Step{
			{AgentName: "reviewer", Task: Task{Kind: KindAnalyze, Description: description, File: file}},
			{AgentName: "coder", Task: Task{Kind: KindGenerate, Description: description, File: file}},
		},
	}
}

// StepOutcome is one executed step's recorded result, kept whether the
// step succeeded or short-circuited the run.
type StepOutcome struct {
	AgentName string
	Result    *Result
	Err       error
}

// RunResult is what Orchestrator.Run returns: every step executed (the
// list stops at the first failure) plus the first error encountered, if any.
type RunResult struct {
	RunID string
	Name  string
	Steps []StepOutcome
	Err   error
}

// Orchestrator dispatches Workflow steps to registered agents in order,
// threading each step's output into the next step's ExtraContext.
type Orchestrator struct {
	agents map[string]Agent
	actx   Context
}

// NewOrchestrator builds an Orchestrator over the built-in agents, wired
// against the shared agent Context.
func NewOrchestrator(actx Context, agents ...Agent) *Orchestrator {
	reg := make(map[string]Agent, len(agents))
	for _, a := range agents {
		reg[a.Name()] = a
	}
	return &Orchestrator{agents: reg, actx: actx}
}

// Run executes wf's steps sequentially. A step whose Result carries a
// non-nil Err, or whose Execute call itself returns an error, short-
// circuits the run: later steps are not attempted, and the run's Err is
// set, but the outcomes accumulated so far are still returned.
func (o *Orchestrator) Run(ctx context.Context, wf Workflow) RunResult {
	run := RunResult{RunID: uuid.NewString(), Name: wf.Name}

	var previousOutput string
	for _, step := range wf.Steps {
		a, ok := o.agents[step.AgentName]
		if !ok {
			err := fmt.Errorf("workflow %s: no agent registered for %q", wf.Name, step.AgentName)
			run.Steps = append(run.Steps, StepOutcome{AgentName: step.AgentName, Err: err})
			run.Err = err
			return run
		}

		task := step.Task
		if previousOutput != "" {
			task.ExtraContext = previousOutput
		}

		res, err := a.Execute(ctx, task, o.actx)
		run.Steps = append(run.Steps, StepOutcome{AgentName: step.AgentName, Result: res, Err: err})
		if err != nil {
			run.Err = err
			return run
		}
		if res.Err != nil {
			run.Err = res.Err
			return run
		}
		previousOutput = res.Output
	}

	return run
}
