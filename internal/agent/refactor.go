package agent

import (
	"context"
	"fmt"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/pathsafe"
	"github.com/sergiogswv/sentinel/internal/provider"
	"github.com/sergiogswv/sentinel/internal/vcsignore"
)

// Refactor produces a cleanup proposal and writes it to a sibling
// "<file>.suggested" file rather than overwriting the source directly.
type Refactor struct{}

func NewRefactor() *Refactor { return &Refactor{} }

func (r *Refactor) Name() string { return "refactor" }

func (r *Refactor) Execute(ctx context.Context, task Task, actx Context) (*Result, error) {
	prompt := fmt.Sprintf(
		"Task (%s): %s\n\nPrevious step output:\n%s\n\nPropose a cleaned-up replacement for the file below. "+
			"Reply with ONLY the replacement source body.\n\n%s",
		task.Kind, task.Description, task.ExtraContext, task.File,
	)

	resp, err := actx.Executor.Run(ctx, provider.Request{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("refactor query: %w", err)
	}

	suggestedPath, err := pathsafe.SecureJoin(actx.ProjectRoot, task.File+".suggested")
	if err != nil {
		return nil, fmt.Errorf("refactor: resolve suggested path: %w", err)
	}
	if err := renameio.WriteFile(suggestedPath, []byte(resp.Text), 0o644); err != nil {
		return nil, fmt.Errorf("refactor: write suggested file: %w", err)
	}
	if err := vcsignore.Ensure(actx.ProjectRoot, task.File+".suggested"); err != nil && actx.Log != nil {
		actx.Log.Warn("refactor.vcsignore.error", zap.Error(err))
	}

	return &Result{Output: resp.Text, Artifacts: []string{suggestedPath}}, nil
}
