// Package bootstrap wires every subsystem together from on-disk config: it
// opens the config, index, cache, stats, ignore store, and provider clients,
// and constructs the agent/orchestrator/audit components that consume them.
// The watcher and keyboard controller are built by the watch command on top
// of the returned App.
package bootstrap

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/agent"
	"github.com/sergiogswv/sentinel/internal/audit"
	"github.com/sergiogswv/sentinel/internal/cache"
	"github.com/sergiogswv/sentinel/internal/config"
	"github.com/sergiogswv/sentinel/internal/errors"
	"github.com/sergiogswv/sentinel/internal/fallback"
	"github.com/sergiogswv/sentinel/internal/index"
	"github.com/sergiogswv/sentinel/internal/logging"
	"github.com/sergiogswv/sentinel/internal/parser"
	"github.com/sergiogswv/sentinel/internal/provider"
	"github.com/sergiogswv/sentinel/internal/rules"
	"github.com/sergiogswv/sentinel/internal/stats"
	"github.com/sergiogswv/sentinel/internal/vcsignore"
)

// stateDirName is the project-local directory holding Sentinel's own state
// (index database, cache entries, stats, ignore list).
const stateDirName = ".sentinel"

// Options configures Open.
type Options struct {
	ProjectRoot string
	ConfigPath  string // defaults to <ProjectRoot>/sentinel.toml
	Debug       bool
	JSON        bool
}

// App is the fully wired set of components a CLI command or the watch loop
// draws on.
type App struct {
	ProjectRoot string
	Config      *config.Config
	Log         *zap.Logger

	Index  *index.Index
	Cache  *cache.Cache
	Stats  *stats.Store
	Ignore *rules.IgnoreStore
	Engine *rules.Engine
	Parser *parser.Parser

	Executor        *fallback.Executor
	Orchestrator    *agent.Orchestrator
	AgentContext    agent.Context
	Batcher         *audit.Batcher
	CustomWorkflows map[string]agent.Workflow

	registry prometheus.Registerer
}

// Open loads config and constructs every subsystem. Callers must call
// Close when done.
func Open(opts Options) (*App, error) {
	log, err := logging.New(logging.Options{Debug: opts.Debug, JSON: opts.JSON})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(opts.ProjectRoot, "sentinel.toml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.NewConfigError("load config", configPath, "check the file's TOML syntax and version, or run `sentinel init`", err)
	}
	cfg.ProjectRoot = opts.ProjectRoot

	stateDir := filepath.Join(opts.ProjectRoot, stateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if err := vcsignore.Ensure(opts.ProjectRoot, stateDirName+"/"); err != nil {
		log.Warn("bootstrap.vcsignore.error", zap.Error(err))
	}

	idx, err := index.Open(filepath.Join(stateDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	respCache, err := cache.New(filepath.Join(stateDir, "cache"))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	registry := prometheus.NewRegistry()
	statsStore, err := stats.Open(filepath.Join(stateDir, "stats.json"), registry)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("open stats: %w", err)
	}

	ignoreStore, err := rules.OpenIgnoreStore(filepath.Join(stateDir, "ignore.json"))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("open ignore store: %w", err)
	}

	primaryClient, err := provider.New(cfg.Primary, &http.Client{})
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("build primary provider client: %w", err)
	}

	var fallbackClient provider.Client
	if cfg.Fallback != nil {
		fallbackClient, err = provider.New(*cfg.Fallback, &http.Client{})
		if err != nil {
			idx.Close()
			return nil, fmt.Errorf("build fallback provider client: %w", err)
		}
	}

	executor := fallback.New(primaryClient, fallbackClient, respCache, statsStore, log)
	engine := rules.NewEngine(idx, ignoreStore)
	treeParser := parser.New(log)

	actx := agent.Context{
		ProjectRoot: opts.ProjectRoot,
		Config:      cfg,
		Index:       idx,
		Executor:    executor,
		Log:         log,
	}

	reviewer := agent.NewReviewer()
	orchestrator := agent.NewOrchestrator(actx,
		agent.NewCoder(),
		reviewer,
		agent.NewTester(),
		agent.NewRefactor(),
	)

	batcher := audit.New(reviewer, actx)

	customWorkflows, err := agent.LoadCustomWorkflows(filepath.Join(stateDir, "workflows.yaml"))
	if err != nil {
		log.Warn("bootstrap.workflows.load_error", zap.Error(err))
		customWorkflows = map[string]agent.Workflow{}
	}

	return &App{
		ProjectRoot:     opts.ProjectRoot,
		Config:          cfg,
		Log:             log,
		Index:           idx,
		Cache:           respCache,
		Stats:           statsStore,
		Ignore:          ignoreStore,
		Engine:          engine,
		Parser:          treeParser,
		Executor:        executor,
		Orchestrator:    orchestrator,
		AgentContext:    actx,
		Batcher:         batcher,
		CustomWorkflows: customWorkflows,
		registry:        registry,
	}, nil
}

// Registry exposes the prometheus registry components were registered
// against, for an optional local metrics exporter.
func (a *App) Registry() prometheus.Registerer { return a.registry }

// Close releases the Index's database handle. The cache/stats/ignore
// stores have no held resources beyond the filesystem.
func (a *App) Close() error {
	return a.Index.Close()
}
