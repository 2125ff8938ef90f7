package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newspaperscraper/internal/config"
	"newspaperscraper/internal/domain"
	"newspaperscraper/internal/infrastructure/browser"
	"newspaperscraper/internal/infrastructure/extract"
	"newspaperscraper/internal/infrastructure/fetch"
	"newspaperscraper/internal/infrastructure/nlp"
	"newspaperscraper/internal/infrastructure/scheduler"
	"newspaperscraper/internal/infrastructure/storage"
	"newspaperscraper/internal/infrastructure/telegram"
	"newspaperscraper/internal/logging"
	"newspaperscraper/internal/newspaper"
	"newspaperscraper/internal/ports"
	"newspaperscraper/internal/usecase"
)

// Stage names accepted by Run.
const (
	StageIndex   = "index"
	StagePublic  = "public"
	StagePremium = "premium"
	StageNLP     = "nlp"
	StageAll     = "all"
	StageWatch   = "watch"
)

// RunOptions selects the newspaper, the stage and the date range of one run.
type RunOptions struct {
	Site    string
	Stage   string
	From    time.Time
	To      time.Time
	Reindex bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *newspaper.Registry
}

// New builds a runnable application instance with all adapters registered.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	fetcher := fetch.NewClient(cfg.HTTP)

	registry := newspaper.NewRegistry()
	registry.Register(newspaper.NewSpiegel(fetcher, baseLogger.With("component", "newspaper.spiegel")))
	registry.Register(newspaper.NewWelt(fetcher, baseLogger.With("component", "newspaper.welt")))
	registry.Register(newspaper.NewZeit(fetcher, baseLogger.With("component", "newspaper.zeit")))

	for _, site := range cfg.Sites {
		if site.Adapter != "feed" {
			continue
		}
		registry.Register(newspaper.NewFeedAdapter(site.Name, site.Feeds, site.Options,
			fetcher, baseLogger.With("component", "newspaper.feed", "site", site.Name)))
	}

	return &Application{cfg: cfg, logger: baseLogger, registry: registry}
}

// Run executes the selected stage(s) for one newspaper. The store and any
// browser session live exactly as long as this call.
func (a *Application) Run(ctx context.Context, opts RunOptions) error {
	adapter, err := a.registry.Resolve(opts.Site)
	if err != nil {
		return err
	}

	store, err := storage.Open(a.cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	var notifier ports.Notifier
	if a.cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			a.cfg.Notifications.Telegram.BotToken,
			a.cfg.Notifications.Telegram.ChatID,
		)
	}

	browserCfg := a.cfg.Browser
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:     store,
		Adapter:   adapter,
		Extractor: extract.New(),
		Annotator: nlp.New(),
		NewBrowser: func(ctx context.Context) (ports.Browser, error) {
			return browser.NewSession(ctx, browserCfg)
		},
		Notifier: notifier,
		Logger:   a.logger.With("component", "pipeline", "newspaper", adapter.ID()),
	})
	defer pipeline.Close()

	creds := domain.Credentials{
		Username: a.cfg.Credentials.Username,
		Password: a.cfg.Credentials.Password,
	}

	switch opts.Stage {
	case StageIndex:
		_, err = pipeline.IndexDateRange(ctx, opts.From, opts.To, !opts.Reindex)
	case StagePublic:
		_, err = pipeline.ScrapePublic(ctx)
	case StagePremium:
		_, err = pipeline.ScrapePremium(ctx, creds)
	case StageNLP:
		_, err = pipeline.Process(ctx)
	case StageAll:
		err = pipeline.Run(ctx, opts.From, opts.To, creds, !opts.Reindex)
	case StageWatch:
		err = a.watch(ctx, pipeline)
	default:
		err = fmt.Errorf("unknown stage %q", opts.Stage)
	}

	return err
}

// watch runs the daily index/scrape/process job until the context ends.
func (a *Application) watch(ctx context.Context, pipeline *usecase.Pipeline) error {
	driver := scheduler.NewDailyScheduler(a.cfg.Scheduler.Interval)
	recurring := usecase.NewScheduler(driver, pipeline)

	if err := recurring.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return recurring.Stop(context.Background())
}
