// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
	"github.com/abelzeko/bird-survey/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/dates - Show the survey dates\n" +
	"/species - Show the recorded species\n" +
	"/report [YYYY-MM-DD] - Show the diversity report for a day (latest if omitted)\n" +
	"/beta [YYYY-MM-DD] [YYYY-MM-DD] - Compare two survey days\n" +
	"/abundance [species] - Show on how many days a species was seen\n" +
	"/help - Show this help message"

// queryTimeout bounds a single natural language interpretation
const queryTimeout = 30 * time.Second

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase *usecases.SurveyUseCase
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.SurveyUseCase) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
	}, nil
}

// Start begins listening for and handling Telegram messages until ctx is done
func (t *TelegramBot) Start(ctx context.Context) {
	slog.Info("Authorized on Telegram account", "user", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	slog.Info("Bot is now listening for messages")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			slog.Info("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}

			slog.Info("Received message", "user", userName(update.Message), "text", update.Message.Text)
			t.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage answers a single Telegram message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID, t.reply(ctx, message))

	slog.Info("Sending response", "user", userName(message))
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Error sending message", "err", err)
	}
}

// reply builds the response text for a message
func (t *TelegramBot) reply(ctx context.Context, message *tgbotapi.Message) string {
	if message.IsCommand() {
		return t.handleCommand(message)
	}
	return t.handleNonCommand(ctx, message)
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message) string {
	args := strings.TrimSpace(message.CommandArguments())
	slog.Info("Handling command", "command", message.Command(), "args", args, "user", userName(message))

	switch message.Command() {
	case "start":
		return "Welcome to the Bird Survey Bot! Use /dates to see the survey days or /help for more information."
	case "help":
		return helpText
	case "dates":
		return t.handleDatesCommand()
	case "species":
		return t.handleSpeciesCommand()
	case "report":
		return t.handleReportCommand(args)
	case "beta":
		return t.handleBetaCommand(args)
	case "abundance":
		return t.handleAbundanceCommand(args)
	default:
		return "Unknown command. Use /help to see available commands."
	}
}

func (t *TelegramBot) handleDatesCommand() string {
	dates, err := t.useCase.AvailableDates()
	if err != nil {
		slog.Error("Error fetching survey dates", "err", err)
		return "Error fetching survey data. Please try again later."
	}
	return usecases.FormatDateList(dates) + "\nUse /report [date] to get the diversity report."
}

func (t *TelegramBot) handleSpeciesCommand() string {
	species, err := t.useCase.AvailableSpecies()
	if err != nil {
		slog.Error("Error fetching species", "err", err)
		return "Error fetching survey data. Please try again later."
	}
	if len(species) == 0 {
		return "No species recorded yet."
	}
	return "Recorded species:\n\n• " + strings.Join(species, "\n• ") + "\n\nUse /abundance [species] for details."
}

// handleReportCommand processes /report [date]; without a date it reports the latest survey day
func (t *TelegramBot) handleReportCommand(args string) string {
	var (
		date time.Time
		err  error
	)
	if args == "" {
		date, err = t.useCase.LastSurveyDate()
		if err != nil {
			slog.Error("Error fetching last survey date", "err", err)
			return "Error fetching survey data. Please try again later."
		}
		if date.IsZero() {
			return "No survey dates recorded yet."
		}
	} else if date, err = entities.ParseDay(args); err != nil {
		return "Please specify the date as YYYY-MM-DD. Example: /report 2020-05-01"
	}

	report, err := t.useCase.DailyReport(date)
	if err != nil {
		if errors.Is(err, usecases.ErrNoData) {
			return fmt.Sprintf("No observations found for %s. Use /dates to see the survey days.", date.Format(entities.DateLayout))
		}
		slog.Error("Error computing report", "err", err)
		return "Error computing the report. Please try again later."
	}
	return usecases.FormatReport(report)
}

func (t *TelegramBot) handleBetaCommand(args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Please specify two dates. Example: /beta 2020-05-01 2020-05-02"
	}
	d1, err1 := entities.ParseDay(fields[0])
	d2, err2 := entities.ParseDay(fields[1])
	if err1 != nil || err2 != nil {
		return "Please specify the dates as YYYY-MM-DD. Example: /beta 2020-05-01 2020-05-02"
	}
	return t.useCase.FormatBetaCommand(d1, d2)
}

func (t *TelegramBot) handleAbundanceCommand(args string) string {
	if args == "" {
		return "Please specify a species. Example: /abundance American Robin"
	}
	a, err := t.useCase.SpeciesAbundance(args)
	if err != nil {
		slog.Error("Error fetching species abundance", "err", err)
		return "Error fetching survey data. Please try again later."
	}
	return usecases.FormatAbundance(a)
}

// handleNonCommand processes regular messages
func (t *TelegramBot) handleNonCommand(ctx context.Context, message *tgbotapi.Message) string {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	text, err := t.useCase.HandleNaturalLanguageQuery(ctx, message.Text)
	if err != nil {
		slog.Error("Error handling free-text query", "err", err)
		return "I don't understand. Use /help to see available commands."
	}
	return text
}

func userName(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return message.From.UserName
}
