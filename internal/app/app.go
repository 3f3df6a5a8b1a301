package app

import (
	"context"
	"fmt"
	"log/slog"

	"NewsPoster/internal/config"
	"NewsPoster/internal/filter"
	"NewsPoster/internal/infrastructure/extract"
	"NewsPoster/internal/infrastructure/feed"
	"NewsPoster/internal/infrastructure/llm"
	"NewsPoster/internal/infrastructure/storage"
	"NewsPoster/internal/infrastructure/xapi"
	"NewsPoster/internal/logging"
	"NewsPoster/internal/ports"
	"NewsPoster/internal/schedule"
	"NewsPoster/internal/strategy"
	"NewsPoster/internal/usecase"
)

// Application wires configuration to the orchestration use case and owns the
// store lifecycle.
type Application struct {
	cfg          config.Config
	store        *storage.Store
	orchestrator *usecase.Orchestrator
	runner       *usecase.Runner
}

// New builds a runnable application. The store is opened (and its state
// reloaded) before the first cycle so dedup survives restarts.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path, cfg.App.Location(), cfg.App.MaxDailyPosts,
		baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gate, err := schedule.NewGate(ctx, store, cfg.App.PostTimes, cfg.App.Location(),
		baseLogger.With("component", "gate"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build gate: %w", err)
	}

	var publisher ports.Publisher
	if cfg.App.DryRun {
		publisher = xapi.NewDryRun()
	} else {
		publisher = xapi.New(cfg.X, baseLogger.With("component", "publisher"))
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Source: feed.New(cfg.Sources.RSSFeeds, baseLogger.With("component", "feed")),
		Filter: filter.New(store, cfg.Sources.MinRecencyHours, cfg.Sources.AllowlistDomains,
			baseLogger.With("component", "filter")),
		Selector:  strategy.NewSelector(cfg.Strategy, cfg.Style),
		Gate:      gate,
		Quota:     store,
		Recorder:  store,
		TextGen:   llm.NewTextClient(cfg.OpenAI),
		ImageGen:  llm.NewImageClient(cfg.Image),
		Publisher: publisher,
		Extractor: extract.New(nil),
		Logger:    baseLogger.With("component", "orchestrator"),
	})

	return &Application{
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
		runner: usecase.NewRunner(orchestrator, cfg.App.Tick(),
			baseLogger.With("component", "runner")),
	}, nil
}

// RunOnce executes a single orchestration cycle.
func (a *Application) RunOnce(ctx context.Context) error {
	return a.orchestrator.RunCycle(ctx)
}

// Schedule runs the tick loop until the context is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.runner.Start(ctx); err != nil {
		return fmt.Errorf("start runner: %w", err)
	}
	<-ctx.Done()
	return a.runner.Stop(context.Background())
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}
