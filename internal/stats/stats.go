// Package stats implements the Stats Store: monotone counters persisted as
// JSON after each modification, mutexed because it is read by the dashboard
// and written by many components.
//
// Minutes-saved tariff, applied per completed task kind rather than per
// token: auto/monitor fix = 20 min, refactor = 15 min, generate code = 10
// min, generate test = 15 min, migration = 60 min.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sergiogswv/sentinel/internal/model"
)

// TaskKind names the task classes the minutes-saved tariff is keyed by.
type TaskKind string

const (
	TaskAutoFix      TaskKind = "auto_fix"
	TaskRefactor     TaskKind = "refactor"
	TaskGenerateCode TaskKind = "generate_code"
	TaskGenerateTest TaskKind = "generate_test"
	TaskMigration    TaskKind = "migration"
)

var minutesTariff = map[TaskKind]int64{
	TaskAutoFix:      20,
	TaskRefactor:     15,
	TaskGenerateCode: 10,
	TaskGenerateTest: 15,
	TaskMigration:    60,
}

// Store is the process-wide, mutexed Stats Store, owned by bootstrap and
// passed by handle.
type Store struct {
	mu   sync.Mutex
	path string
	data model.Stats

	bugsAvoided  prometheus.Counter
	fixesApplied prometheus.Counter
	tokensIn     prometheus.Counter
	tokensOut    prometheus.Counter
	costMicro    prometheus.Counter
	minutesSaved prometheus.Counter
}

// Open loads the JSON stats file at path, starting from zero counters if it
// is absent; the file is first written by the next modification.
func Open(path string, registry prometheus.Registerer) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Zero counters; will be created on first Save.
	case err != nil:
		return nil, fmt.Errorf("read stats file: %w", err)
	default:
		if err := json.Unmarshal(data, &s.data); err != nil {
			return nil, fmt.Errorf("decode stats file: %w", err)
		}
	}

	s.bugsAvoided = registerCounter(registry, "sentinel_bugs_avoided_total", "Bugs avoided by Sentinel's analysis.")
	s.fixesApplied = registerCounter(registry, "sentinel_fixes_applied_total", "Fixes applied by Sentinel.")
	s.tokensIn = registerCounter(registry, "sentinel_tokens_in_total", "Prompt tokens sent to model providers.")
	s.tokensOut = registerCounter(registry, "sentinel_tokens_out_total", "Completion tokens received from model providers.")
	s.costMicro = registerCounter(registry, "sentinel_cost_micro_usd_total", "Estimated cost in micro-USD.")
	s.minutesSaved = registerCounter(registry, "sentinel_minutes_saved_total", "Estimated developer minutes saved.")

	// Seed the mirrored counters with whatever was already persisted so a
	// local scrape reflects history across restarts, not just this run.
	s.bugsAvoided.Add(float64(s.data.BugsAvoided))
	s.fixesApplied.Add(float64(s.data.FixesApplied))
	s.tokensIn.Add(float64(s.data.TokensIn))
	s.tokensOut.Add(float64(s.data.TokensOut))
	s.costMicro.Add(float64(s.data.CostMicroUSD))
	s.minutesSaved.Add(float64(s.data.MinutesSaved))

	return s, nil
}

func registerCounter(reg prometheus.Registerer, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	if reg != nil {
		// Ignore AlreadyRegisteredError: tests may Open more than once
		// against a shared registry.
		if existing := reg.Register(c); existing != nil {
			if are, ok := existing.(prometheus.AlreadyRegisteredError); ok {
				return are.ExistingCollector.(prometheus.Counter)
			}
		}
	}
	return c
}

// Snapshot returns a copy of the current counters.
func (s *Store) Snapshot() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// AddTokens accounts a completed provider call: tokens, and cost computed
// as tokens * flatRateMicroUSD.
func (s *Store) AddTokens(tokensIn, tokensOut int, flatRateMicroUSD int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.TokensIn += int64(tokensIn)
	s.data.TokensOut += int64(tokensOut)
	cost := int64(tokensIn+tokensOut) * flatRateMicroUSD
	s.data.CostMicroUSD += cost
	s.tokensIn.Add(float64(tokensIn))
	s.tokensOut.Add(float64(tokensOut))
	s.costMicro.Add(float64(cost))
	s.saveLocked()
}

// AddBugAvoided increments bugs_avoided (e.g. a DEAD_CODE violation the
// developer acted on before committing).
func (s *Store) AddBugAvoided(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.BugsAvoided += n
	s.bugsAvoided.Add(float64(n))
	s.saveLocked()
}

// AddFixApplied increments fixes_applied.
func (s *Store) AddFixApplied(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.FixesApplied += n
	s.fixesApplied.Add(float64(n))
	s.saveLocked()
}

// AddTestFixed increments tests_fixed.
func (s *Store) AddTestFixed(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.TestsFixed += n
	s.saveLocked()
}

// ApplyTariff adds the minutes-saved tariff for a successfully completed
// task kind.
func (s *Store) ApplyTariff(kind TaskKind) {
	minutes, ok := minutesTariff[kind]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.MinutesSaved += minutes
	s.minutesSaved.Add(float64(minutes))
	s.saveLocked()
}

// saveLocked persists the counters. Caller must hold s.mu.
func (s *Store) saveLocked() {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return // Stats persistence failures are non-fatal; in-memory state stands.
	}
	_ = renameio.WriteFile(s.path, data, 0o644)
}
