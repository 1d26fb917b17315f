package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/modsentry/modsentry/internal/domain/repository"
	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/analyzer"
	_ "github.com/modsentry/modsentry/internal/infrastructure/analyzer/basic"      // register basic backend factory
	_ "github.com/modsentry/modsentry/internal/infrastructure/analyzer/embedding"  // register embedding backend factory
	_ "github.com/modsentry/modsentry/internal/infrastructure/analyzer/gemini"     // register gemini backend factory
	_ "github.com/modsentry/modsentry/internal/infrastructure/analyzer/imagecheck" // register imagecheck backend factory
	_ "github.com/modsentry/modsentry/internal/infrastructure/analyzer/keyword"    // register keyword backend factory
	_ "github.com/modsentry/modsentry/internal/infrastructure/analyzer/openaimod"  // register openaimod backend factory
	"github.com/modsentry/modsentry/internal/infrastructure/config"
	"github.com/modsentry/modsentry/internal/infrastructure/eventbus"
	"github.com/modsentry/modsentry/internal/infrastructure/monitoring"
	"github.com/modsentry/modsentry/internal/infrastructure/notify"
	"github.com/modsentry/modsentry/internal/infrastructure/persistence"
	httpServer "github.com/modsentry/modsentry/internal/interfaces/http"
)

// App is the dependency injection container.
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	repo       repository.ModerationRepository
	backend    analyzer.Backend
	dispatcher *notify.Dispatcher
	bus        *eventbus.InMemoryBus
	monitor    *monitoring.Monitor

	pipeline  *service.Pipeline
	analytics *service.Analytics

	httpServer *httpServer.Server
}

// NewApp wires every layer of the service.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	// Ensure ~/.modsentry/ exists with default files on first run.
	if err := config.Bootstrap(logger); err != nil {
		logger.Warn("Bootstrap failed (non-fatal)", zap.Error(err))
	}

	app := &App{
		config: cfg,
		logger: logger,
	}

	if err := app.initRepository(); err != nil {
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}
	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}
	app.initDomainServices()
	app.initInterfaces()

	return app, nil
}

func (a *App) initRepository() error {
	if a.config.Database.Type == "memory" {
		a.repo = persistence.NewMemoryModerationRepository()
		a.logger.Info("Using in-memory moderation store")
		return nil
	}

	db, err := persistence.NewDBConnection(&a.config.Database)
	if err != nil {
		return err
	}
	a.db = db
	a.repo = persistence.NewGormModerationRepository(db)
	a.logger.Info("Moderation store connected",
		zap.String("type", a.config.Database.Type),
	)
	return nil
}

func (a *App) initInfrastructure() error {
	backend, err := analyzer.CreateBackend(analyzer.Config{
		Type:         a.config.Analyzer.Type,
		BaseURL:      a.config.Analyzer.BaseURL,
		APIKey:       a.config.Analyzer.APIKey,
		Model:        a.config.Analyzer.Model,
		DenylistPath: a.config.Analyzer.DenylistPath,
		Threshold:    a.config.Analyzer.Threshold,
	}, a.logger)
	if err != nil {
		return err
	}
	a.backend = backend
	a.logger.Info("Analysis backend ready", zap.String("backend", backend.Name()))

	a.dispatcher = notify.NewDispatcher(a.config.Notify, a.logger)

	a.bus = eventbus.NewInMemoryBus(a.logger, 256)
	a.monitor = monitoring.NewMonitor(a.logger)
	monitoring.RegisterMetricsHook(a.bus, a.monitor)

	return nil
}

func (a *App) initDomainServices() {
	a.pipeline = service.NewPipeline(
		a.repo,
		a.backend,
		a.dispatcher,
		eventbus.NewSinkAdapter(a.bus),
		a.logger,
	)
	a.analytics = service.NewAnalytics(a.repo)
}

func (a *App) initInterfaces() {
	a.httpServer = httpServer.NewServer(
		httpServer.Config{
			Host: a.config.Server.Host,
			Port: a.config.Server.Port,
			Mode: a.config.Server.Mode,
		},
		a.pipeline,
		a.analytics,
		a.repo,
		a.monitor,
		a.logger,
	)
}

// Start launches the HTTP surface.
func (a *App) Start(ctx context.Context) error {
	return a.httpServer.Start(ctx)
}

// Stop shuts everything down in reverse dependency order.
func (a *App) Stop(ctx context.Context) error {
	var firstErr error

	if err := a.httpServer.Stop(ctx); err != nil {
		firstErr = err
	}

	a.bus.Close()

	if closer, ok := a.backend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// Pipeline exposes the moderation pipeline (used by tests and tooling).
func (a *App) Pipeline() *service.Pipeline { return a.pipeline }

// Logger exposes the application logger.
func (a *App) Logger() *zap.Logger { return a.logger }
