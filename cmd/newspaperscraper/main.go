package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newspaperscraper/internal/app"
	"newspaperscraper/internal/config"
	"newspaperscraper/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (defaults to $NEWSPAPER_SCRAPER_CONFIG)")
		site       = flag.String("site", "spiegel", "newspaper to run (spiegel, welt, zeit or a configured feed site)")
		stage      = flag.String("stage", app.StageAll, "stage to run: index, public, premium, nlp, all or watch")
		fromFlag   = flag.String("from", "", "start of the index date range (YYYY-MM-DD, default yesterday)")
		toFlag     = flag.String("to", "", "end of the index date range (YYYY-MM-DD, default yesterday)")
		reindex    = flag.Bool("reindex", false, "index days again even if already present")
	)
	flag.Parse()

	cfg := config.Load(*configPath)
	logger := logging.New(cfg.Logging.Level)

	from, to, err := parseRange(*fromFlag, *toFlag)
	if err != nil {
		logger.Error("invalid date range", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application := app.New(cfg, logger)

	err = application.Run(ctx, app.RunOptions{
		Site:    *site,
		Stage:   *stage,
		From:    from,
		To:      to,
		Reindex: *reindex,
	})
	if err != nil {
		logger.Error("run failed", "site", *site, "stage", *stage, "error", err)
		os.Exit(1)
	}
}

func parseRange(fromFlag, toFlag string) (time.Time, time.Time, error) {
	yesterday := time.Now().AddDate(0, 0, -1)

	from := yesterday
	if fromFlag != "" {
		parsed, err := time.Parse("2006-01-02", fromFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -from: %w", err)
		}
		from = parsed
	}

	to := from
	if toFlag != "" {
		parsed, err := time.Parse("2006-01-02", toFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -to: %w", err)
		}
		to = parsed
	}

	return from, to, nil
}
