package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/handler"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/parser"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/project"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/repository"
	"github.com/FACorreiaa/commissioning-tracker/internal/domain/commissioning/service"
	"github.com/FACorreiaa/commissioning-tracker/pkg/config"
	"github.com/FACorreiaa/commissioning-tracker/pkg/cron"
	"github.com/FACorreiaa/commissioning-tracker/pkg/db"
	"github.com/FACorreiaa/commissioning-tracker/pkg/metrics"
	"github.com/FACorreiaa/commissioning-tracker/pkg/notify"
	"github.com/FACorreiaa/commissioning-tracker/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	PG     *db.DB
	SQLite *sql.DB

	Repo        repository.Repository
	Metrics     *metrics.Metrics
	FileStorage storage.Storage

	ImportService  *service.ImportService
	ProjectService *service.ProjectService

	Handler   *handler.Handler
	Scheduler *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Debug("all dependencies initialized successfully",
		slog.String("db_driver", cfg.Database.Driver))
	return deps, nil
}

// initDatabase opens the configured backend and runs its migrations.
func (d *Dependencies) initDatabase() error {
	switch d.Config.Database.Driver {
	case "postgres":
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
		d.PG = database

		if err := d.PG.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		d.Repo = repository.NewPostgresRepository(d.PG.Pool)

	case "sqlite":
		sqlDB, err := db.OpenSQLite(d.Config.Database.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.SQLite = sqlDB
		d.Repo = repository.NewSQLiteRepository(sqlDB)

	case "memory":
		d.Repo = repository.NewMemoryRepository()

	default:
		return fmt.Errorf("unsupported database driver %q", d.Config.Database.Driver)
	}

	d.Logger.Info("database ready", slog.String("driver", d.Config.Database.Driver))
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	opts, err := parserOptions(d.Config.Import)
	if err != nil {
		return err
	}
	p := parser.New(d.Logger, opts)

	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New()
	}

	fileStorage, err := storage.New(&storage.Config{LocalPath: d.Config.Storage.LocalPath})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.ImportService = service.NewImportService(d.Repo, p, d.Logger).WithStorage(fileStorage)
	d.ProjectService = service.NewProjectService(d.Repo, d.Logger)
	if d.Metrics != nil {
		d.ImportService.WithMetrics(d.Metrics)
		d.ProjectService.WithMetrics(d.Metrics)
	}

	if d.Config.Notify.ResendAPIKey != "" {
		d.ImportService.WithNotifier(notify.NewResendNotifier(
			d.Config.Notify.ResendAPIKey,
			d.Config.Notify.From,
			d.Config.Notify.Recipients,
			d.Logger,
		))
	}

	if d.Config.Cron.Enabled {
		d.Scheduler = cron.NewScheduler(d.Config.Cron.SummarySchedule, d.ProjectService, d.Logger)
	}

	d.Logger.Debug("services initialized")
	return nil
}

func (d *Dependencies) initHandlers() {
	d.Handler = handler.NewHandler(d.ImportService, d.ProjectService, d.Logger).
		WithStorage(d.FileStorage).
		WithDefaultFiscalYear(d.Config.Import.DefaultFiscalYear).
		WithMaxUploadBytes(int64(d.Config.Server.MaxUploadMB) << 20)
}

// Router builds the HTTP handler tree.
func (d *Dependencies) Router() http.Handler {
	return handler.NewRouter(d.Handler, d.Metrics, handler.RouterConfig{
		RateLimitPerSecond: d.Config.Server.RateLimitPerSecond,
		RateLimitBurst:     d.Config.Server.RateLimitBurst,
		CORSOrigins:        d.Config.Server.CORSOrigins,
		TrustProxy:         d.Config.Server.TrustProxy,
	}, d.Logger)
}

// Cleanup waits for pending notifications and closes all resources
func (d *Dependencies) Cleanup() {
	if d.ImportService != nil {
		d.ImportService.Close()
	}
	if d.PG != nil {
		d.PG.Close()
	}
	if d.SQLite != nil {
		if err := d.SQLite.Close(); err != nil {
			d.Logger.Warn("failed to close sqlite", slog.Any("error", err))
		}
	}
	d.Logger.Debug("cleanup completed")
}

func parserOptions(cfg config.ImportConfig) (parser.Options, error) {
	opts := parser.DefaultOptions()
	if cfg.HeaderScanRows > 0 {
		opts.HeaderScanRows = cfg.HeaderScanRows
	}
	if cfg.BannerColumns > 0 {
		opts.BannerColumns = cfg.BannerColumns
	}
	if cfg.ReferenceMonth != "" {
		m, ok := project.ParseMonth(cfg.ReferenceMonth)
		if !ok {
			return opts, fmt.Errorf("invalid reference month %q", cfg.ReferenceMonth)
		}
		opts.ReferenceMonth = m
	}
	return opts, nil
}
