// Package app builds the research pipeline and its collaborators from
// configuration. The server and the CLI share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"zonescout/internal/evidence/registry"
	registrymetrics "zonescout/internal/evidence/registry/metrics"
	"zonescout/internal/evidence/registry/providers"
	"zonescout/internal/evidence/registry/providers/zimas"
	registrystore "zonescout/internal/evidence/registry/store"
	"zonescout/internal/evidence/search"
	"zonescout/internal/platform/config"
	"zonescout/internal/platform/httpclient"
	"zonescout/internal/platform/llm"
	"zonescout/internal/platform/redis"
	"zonescout/internal/research/extractor"
	researchmetrics "zonescout/internal/research/metrics"
	"zonescout/internal/research/models"
	"zonescout/internal/research/planner"
	"zonescout/internal/research/service"
	researchstore "zonescout/internal/research/store"
	"zonescout/internal/research/summarizer"
)

// RegistryProviderID names the ZIMAS scraper provider.
const RegistryProviderID = "zimas"

// RunStore archives and reads back finished runs.
type RunStore interface {
	service.Archive
	FindByID(ctx context.Context, runID string) (*models.Result, error)
}

// App holds the built pipeline and the resources it owns.
type App struct {
	Service  *service.Service
	Registry *registry.Service
	Runs     RunStore

	closers []func() error
}

// New builds the pipeline. reg may be nil, in which case metrics are not
// registered anywhere.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	llmClient := llm.New(cfg.Integrations.LLM, llm.WithLogger(logger))

	registryService, err := a.buildRegistry(ctx, cfg, logger, reg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Registry = registryService

	runs, err := a.buildRunStore(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Runs = runs

	searcher := search.NewTavily(cfg.Integrations.Search,
		search.WithLogger(logger),
		search.WithMetrics(search.NewMetrics(reg)),
	)

	svc, err := service.New(
		registryService,
		searcher,
		planner.New(llmClient, cfg.Pipeline.DefaultDomains, planner.WithLogger(logger)),
		extractor.New(llmClient, extractor.WithLogger(logger)),
		summarizer.New(llmClient, summarizer.WithLogger(logger)),
		service.WithLogger(logger),
		service.WithMetrics(researchmetrics.New(reg)),
		service.WithArchive(newBoundedArchive(runs, 0)),
		service.WithMaxIterations(cfg.Pipeline.MaxIterations),
		service.WithDefaultDomains(cfg.Pipeline.DefaultDomains),
		service.WithCity(cfg.Pipeline.City),
		service.WithStylePrompt(cfg.Pipeline.StylePrompt),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

func (a *App) buildRegistry(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*registry.Service, error) {
	rc := cfg.Integrations.Registry
	if rc.URL == "" {
		logger.Warn("registry URL is not set; every run will start degraded")
	}

	provider := zimas.New(RegistryProviderID, rc.URL, rc.Panels,
		zimas.WithAPIKey(rc.APIKey),
		zimas.WithHTTPClient(httpclient.New(httpclient.TimeoutsFor(rc.RequestTimeoutSec))),
	)
	providerRegistry := providers.NewProviderRegistry()
	if err := providerRegistry.Register(provider); err != nil {
		return nil, fmt.Errorf("register registry provider: %w", err)
	}

	m := registrymetrics.New(reg)
	opts := []registry.Option{registry.WithLogger(logger), registry.WithMetrics(m)}

	if ttl := rc.CacheTTL(); ttl > 0 {
		rdb, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if rdb != nil {
			a.closers = append(a.closers, rdb.Close)
			opts = append(opts, registry.WithCache(registrystore.NewRedisCache(rdb.Client, ttl, m)))
			logger.Info("registry cache enabled", "backend", "redis", "ttl", ttl)
		} else {
			opts = append(opts, registry.WithCache(registrystore.NewInMemoryCache(ttl, m)))
			logger.Info("registry cache enabled", "backend", "memory", "ttl", ttl)
		}
	}

	return registry.NewService(providerRegistry, opts...)
}

func (a *App) buildRunStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (RunStore, error) {
	if cfg.Database.URL == "" {
		return researchstore.NewInMemory(), nil
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pg := researchstore.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("run archive enabled", "backend", "postgres")
	return pg, nil
}

// Close releases the resources the app opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
