package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"DealRadar/internal/config"
	"DealRadar/internal/dedup"
	"DealRadar/internal/index"
	"DealRadar/internal/infrastructure/affiliate"
	"DealRadar/internal/infrastructure/api"
	"DealRadar/internal/infrastructure/rss"
	"DealRadar/internal/infrastructure/scheduler"
	"DealRadar/internal/infrastructure/scraper"
	"DealRadar/internal/infrastructure/storage"
	"DealRadar/internal/infrastructure/submit"
	"DealRadar/internal/logging"
	"DealRadar/internal/metrics"
	"DealRadar/internal/normalizer"
	"DealRadar/internal/ports"
	"DealRadar/internal/pricehistory"
	"DealRadar/internal/scoring"
	"DealRadar/internal/usecase"
)

// Default job cadences; per-source poll periods can tighten the group jobs.
const (
	defaultAffiliateInterval = 15 * time.Minute
	defaultRSSInterval       = 10 * time.Minute
	defaultScrapeInterval    = 30 * time.Minute
	defaultSubmitInterval    = 5 * time.Minute
	verificationInterval     = 60 * time.Minute
	maintenanceInterval      = 24 * time.Hour
)

// Application wires configuration to the engine and owns its lifecycle.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.RecordStore
	pipeline  *usecase.Pipeline
	scheduler *scheduler.Scheduler
	server    *api.Server
}

// New builds a runnable engine instance. Every collaborator is constructed
// here; nothing is a process global.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()
	history := pricehistory.New(cfg.PriceHistory.AllTimeLowTolerance, cfg.Tables.SaleEvents)
	catalog := index.New()

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Normalizer: normalizer.New(cfg.Tables),
		Deduper:    dedup.New(cfg.Dedup.SimilarityThreshold),
		Scorer:     scoring.New(cfg.Scoring, cfg.Tables),
		History:    history,
		Index:      catalog,
		Store:      store,
		Metrics:    reg,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	sched := scheduler.New(cfg.Scheduler.TickInterval(), baseLogger.With("component", "scheduler"))
	sched.OnRunComplete(pipeline.SaveJobStats)

	groups, feeds, submissions := buildAdapters(cfg, baseLogger)
	registerJobs(sched, pipeline, groups, feeds, cfg.PriceHistory.ArchiveDays)

	server := api.New(catalog, history, sched, reg, submissions, baseLogger.With("component", "api"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		pipeline:  pipeline,
		scheduler: sched,
		server:    server,
	}, nil
}

// Run restores persisted state, starts the scheduler and serves the query
// API until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	offers, points, err := a.pipeline.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	a.logger.Info("state restored", "offers", offers, "price_points", points)

	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(a.cfg.API.Addr)
	}()
	a.logger.Info("query api listening", "addr", a.cfg.API.Addr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("api shutdown", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close", "error", err)
	}
	return nil
}

func openStore(cfg config.StorageConfig) (ports.RecordStore, error) {
	switch cfg.Backend {
	case "pebble":
		store, err := storage.NewPebble(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open pebble store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := storage.NewPostgres(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return storage.NewMemory(), nil
	}
}

// adapterGroups partitions configured sources into their scheduler jobs.
type adapterGroups struct {
	affiliate   []ports.SourceAdapter
	rss         []ports.SourceAdapter
	scrape      []ports.SourceAdapter
	submissions []ports.SourceAdapter
}

func buildAdapters(cfg config.Config, logger *slog.Logger) (adapterGroups, []*rss.Adapter, *submit.Queue) {
	var groups adapterGroups
	var feeds []*rss.Adapter
	var intake *submit.Queue

	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		switch src.Kind {
		case "affiliate":
			adapter := affiliate.New(affiliateNetwork(src), affiliate.Options{
				MinInterval: src.MinInterval(),
				PollPeriod:  src.PollPeriod(),
				Logger:      logger.With("component", "source."+src.Name),
			})
			groups.affiliate = append(groups.affiliate, adapter)
		case "rss":
			adapter := rss.New(src.Name, src.URL, rss.Options{
				Category:    src.Category,
				MinInterval: src.MinInterval(),
				PollPeriod:  src.PollPeriod(),
				Logger:      logger.With("component", "source."+src.Name),
			})
			feeds = append(feeds, adapter)
			groups.rss = append(groups.rss, adapter)
		case "scraper":
			adapter := scraper.New(src.Name, src.URL, scraper.ProfileFromMap(src.Selectors), scraper.Options{
				Category:    src.Category,
				MinInterval: src.MinInterval(),
				PollPeriod:  src.PollPeriod(),
				Logger:      logger.With("component", "source."+src.Name),
			})
			groups.scrape = append(groups.scrape, adapter)
		case "submission":
			if intake == nil {
				intake = submit.NewQueue(src.Name, 512)
			}
			groups.submissions = append(groups.submissions, intake)
		}
	}

	return groups, feeds, intake
}

func affiliateNetwork(src config.SourceConfig) affiliate.Network {
	style := affiliate.AuthAPIKey
	if src.Auth.Secret != "" {
		style = affiliate.AuthHMAC
	} else if src.Auth.PartnerID != "" {
		style = affiliate.AuthPartner
	}

	baseURL := src.URL
	if baseURL == "" {
		baseURL = "https://api." + src.Name + ".example"
	}

	return affiliate.Network{
		Name:      src.Name,
		BaseURL:   baseURL,
		Style:     style,
		APIKey:    src.Auth.APIKey,
		PartnerID: src.Auth.PartnerID,
		Secret:    src.Auth.Secret,
	}
}

func registerJobs(sched *scheduler.Scheduler, pipeline *usecase.Pipeline, groups adapterGroups, feeds []*rss.Adapter, archiveDays int) {
	if len(groups.affiliate) > 0 {
		sched.Register("affiliate-poll", groupInterval(groups.affiliate, defaultAffiliateInterval),
			pipeline.SourceGroupJob("affiliate-poll", groups.affiliate))
	}
	if len(groups.rss) > 0 {
		sched.Register("rss-fetch", groupInterval(groups.rss, defaultRSSInterval),
			pipeline.SourceGroupJob("rss-fetch", groups.rss))
	}
	if len(groups.scrape) > 0 {
		sched.Register("scrape", groupInterval(groups.scrape, defaultScrapeInterval),
			pipeline.SourceGroupJob("scrape", groups.scrape))
	}
	if len(groups.submissions) > 0 {
		sched.Register("submission-drain", defaultSubmitInterval,
			pipeline.SourceGroupJob("submission-drain", groups.submissions))
	}
	sched.Register("price-verification", verificationInterval, pipeline.PriceVerificationJob())
	sched.Register("maintenance", maintenanceInterval, pipeline.MaintenanceJob(archiveDays, feeds))
}

// groupInterval is the tightest poll period any adapter in the group asked
// for; the job runs the whole group at that cadence.
func groupInterval(adapters []ports.SourceAdapter, fallback time.Duration) time.Duration {
	interval := fallback
	for _, a := range adapters {
		if p := a.PollPeriod(); p > 0 && p < interval {
			interval = p
		}
	}
	return interval
}
