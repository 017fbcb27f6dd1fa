package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/bird-survey/internal/api"
	"github.com/abelzeko/bird-survey/internal/config"
	"github.com/abelzeko/bird-survey/internal/integration"
	"github.com/abelzeko/bird-survey/internal/integration/openai"
	"github.com/abelzeko/bird-survey/internal/logging"
	"github.com/abelzeko/bird-survey/internal/metrics"
	"github.com/abelzeko/bird-survey/internal/repository"
	"github.com/abelzeko/bird-survey/internal/usecases"
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
	slog.Info("Starting Bird Survey Bot")

	calc, err := metrics.New(cfg.Metrics)
	if err != nil {
		slog.Error("Invalid metrics config", "err", err)
		os.Exit(1)
	}

	// Free-text queries are optional
	interpreter, err := openai.NewQueryInterpreter(cfg.Bot.OpenAIKeyEnv)
	if err != nil {
		slog.Warn("Natural language queries disabled", "err", err)
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
	useCase := usecases.NewSurveyUseCase(repo, calc, source, interpreter)

	botToken := cfg.Bot.Token()
	if botToken == "" {
		slog.Error("Bot token environment variable is not set", "env", cfg.Bot.TokenEnv)
		os.Exit(1)
	}

	telegramBot, err := api.NewTelegramBot(botToken, useCase)
	if err != nil {
		slog.Error("Failed to initialize Telegram bot", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramBot.Start(ctx)
}
