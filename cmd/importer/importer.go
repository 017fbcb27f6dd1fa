package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/bird-survey/internal/config"
	"github.com/abelzeko/bird-survey/internal/entities"
	"github.com/abelzeko/bird-survey/internal/integration"
	"github.com/abelzeko/bird-survey/internal/logging"
	"github.com/abelzeko/bird-survey/internal/metrics"
	"github.com/abelzeko/bird-survey/internal/repository"
	"github.com/abelzeko/bird-survey/internal/usecases"
	"github.com/robfig/cron/v3"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := config.LoadDotEnv(""); err != nil {
		slog.Warn("Failed to load .env file", "err", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level)
	slog.Info("Starting Bird Survey Importer")

	if cfg.Source.URL == "" && cfg.Source.CSV == "" {
		slog.Error("Nothing to import: set source.url or source.csv")
		os.Exit(1)
	}

	calc, err := metrics.New(cfg.Metrics)
	if err != nil {
		slog.Error("Invalid metrics config", "err", err)
		os.Exit(1)
	}

	repo, err := repository.NewSQLiteObservationRepository(cfg.Storage.Path)
	if err != nil {
		slog.Error("Failed to initialize repository", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	var source usecases.ObservationSource
	if cfg.Source.URL != "" {
		source = integration.NewSurveyScraper(cfg.Source.URL)
	}
	useCase := usecases.NewSurveyUseCase(repo, calc, source, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Source.CSV != "" {
		n, err := useCase.ImportCSV(cfg.Source.CSV)
		if err != nil {
			slog.Error("Initial csv import failed", "err", err)
		} else {
			slog.Info("Imported csv", "rows", n)
		}
	}

	if source == nil {
		logLatestReport(useCase)
		return
	}

	refresh := func() {
		if err := useCase.RefreshFromSource(ctx); err != nil {
			slog.Error("Data refresh failed", "err", err)
			return
		}
		logLatestReport(useCase)
	}

	// Run immediately on startup
	refresh()

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, refresh); err != nil {
		slog.Error("Failed to set up cron job", "err", err)
		os.Exit(1)
	}

	slog.Info("Importer has been scheduled", "schedule", cfg.Schedule)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("Importer stopped")
}

// logLatestReport logs the diversity report of the most recent survey day
func logLatestReport(useCase *usecases.SurveyUseCase) {
	last, err := useCase.LastSurveyDate()
	if err != nil || last.IsZero() {
		return
	}
	report, err := useCase.DailyReport(last)
	if err != nil {
		slog.Warn("Could not compute latest report", "err", err)
		return
	}

	attrs := []any{
		"date", last.Format(entities.DateLayout),
		"surveys", report.Surveys,
		"completeness", report.Completeness,
		"individuals", report.Individuals,
		"richness", report.Richness,
	}
	if report.Simpson != nil {
		attrs = append(attrs, "simpson", *report.Simpson)
	}
	if report.Shannon != nil {
		attrs = append(attrs, "shannon", *report.Shannon)
	}
	if report.Alpha != nil {
		attrs = append(attrs, "alpha", *report.Alpha)
	}
	slog.Info("Latest survey report", attrs...)
}
