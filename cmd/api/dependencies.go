package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/classification"
	"github.com/FACorreiaa/smart-balance-sheet/internal/domain/client"
	clienthandler "github.com/FACorreiaa/smart-balance-sheet/internal/domain/client/handler"
	importhandler "github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/handler"
	importservice "github.com/FACorreiaa/smart-balance-sheet/internal/domain/import/service"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/config"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/cron"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/db"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/middleware"
	"github.com/FACorreiaa/smart-balance-sheet/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB // nil with the memory store
	Logger *slog.Logger

	// Observability
	Registry    *prometheus.Registry
	HTTPMetrics *middleware.Metrics

	// Repositories
	ClientRepo  client.Repository
	FileStorage *storage.LocalStorage

	// Services
	Oracle        classification.Oracle
	ClientService *client.Service
	ImportService *importservice.ImportService
	Scheduler     *cron.Scheduler

	// Handlers
	ClientHandler *clienthandler.ClientHandler
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Registry = prometheus.NewRegistry()
		deps.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.HTTPMetrics = middleware.NewMetrics(deps.Registry)
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		slog.String("store", string(cfg.Database.Store)),
		slog.Bool("metrics", cfg.Observability.MetricsEnabled),
	)
	return deps, nil
}

// initDatabase connects to Postgres and runs migrations. The memory store
// needs no database.
func (d *Dependencies) initDatabase() error {
	if d.Config.Database.Store == config.StoreTypeMemory {
		d.Logger.Warn("using in-memory client store: line sets are lost on restart")
		return nil
	}

	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	if d.DB != nil {
		d.ClientRepo = client.NewPostgresRepository(d.DB.Pool)
	} else {
		d.ClientRepo = client.NewMemoryRepository()
	}

	fileStorage, err := storage.NewLocalStorage(d.Config.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.Logger.Info("repositories initialized", slog.String("storage_path", d.Config.Storage.Path))
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	oracle, err := d.newOracle(ctx)
	if err != nil {
		return err
	}
	d.Oracle = oracle

	d.ClientService = client.NewService(d.ClientRepo, d.Logger)

	d.ImportService = importservice.NewImportService(d.ClientService, d.Oracle, importservice.Options{
		SampleRows: d.Config.Import.SampleRows,
		TextCap:    d.Config.Import.TextCap,
	}, d.Logger)
	if d.Registry != nil {
		d.ImportService.WithMetrics(d.Registry)
	}

	d.Scheduler = cron.NewScheduler(d.FileStorage, d.Config.Storage.Retention(), d.Config.Storage.Schedule, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// newOracle returns the Gemini oracle when an API key is configured and the
// rule oracle otherwise.
func (d *Dependencies) newOracle(ctx context.Context) (classification.Oracle, error) {
	if d.Config.Gemini.Enabled() {
		oracle, err := classification.NewGeminiOracle(ctx, d.Config.Gemini.APIKey, d.Config.Gemini.Model, d.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init gemini oracle: %w", err)
		}
		d.Logger.Info("using gemini oracle", slog.String("model", d.Config.Gemini.Model))
		return oracle, nil
	}

	rules := classification.DefaultRules()
	if path := d.Config.Import.RulesFile; path != "" {
		custom, err := classification.LoadRulesFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		rules = rules.Merge(custom)
	}
	oracle, err := classification.NewRuleOracle(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to init rule oracle: %w", err)
	}
	d.Logger.Warn("GEMINI_API_KEY not set: using rule oracle, PDF imports are unavailable")
	return oracle, nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ClientHandler = clienthandler.NewClientHandler(d.ClientService, d.Logger)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.FileStorage, d.Config.Server.MaxUploadBytes, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
