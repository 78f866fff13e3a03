package rules

import (
	"context"

	"github.com/sergiogswv/sentinel/internal/model"
)

// IndexReader is the subset of *index.Index the Rule Engine needs; kept as
// an interface so the engine and its tests don't depend on the concrete
// SQLite-backed store.
type IndexReader interface {
	CallersOf(ctx context.Context, name, excludingFile string) (int, error)
}

// Engine runs analyzer output through the cross-file dead-code filter and
// the ignore-list filter.
type Engine struct {
	index  IndexReader // nil when no index has been built yet
	ignore *IgnoreStore
}

// NewEngine builds an Engine. index may be nil: cross-file filtering is
// then silently skipped, per the fresh-project contract.
func NewEngine(index IndexReader, ignore *IgnoreStore) *Engine {
	return &Engine{index: index, ignore: ignore}
}

// Filter applies the cross-file dead-code filter, then the ignore-list
// filter, returning the surviving violations.
func (e *Engine) Filter(ctx context.Context, violations []model.Violation) ([]model.Violation, error) {
	survivors := violations
	if e.index != nil {
		filtered, err := e.filterCrossFileDeadCode(ctx, survivors)
		if err != nil {
			return nil, err
		}
		survivors = filtered
	}

	if e.ignore != nil {
		survivors = e.ignore.FilterAll(survivors)
	}
	return survivors, nil
}

func (e *Engine) filterCrossFileDeadCode(ctx context.Context, violations []model.Violation) ([]model.Violation, error) {
	var out []model.Violation
	for _, v := range violations {
		if v.RuleName != "DEAD_CODE" {
			out = append(out, v)
			continue
		}
		n, err := e.index.CallersOf(ctx, v.Symbol, v.FilePath)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			out = append(out, v)
		}
	}
	return out, nil
}
