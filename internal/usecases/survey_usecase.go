// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
	"github.com/abelzeko/bird-survey/internal/integration"
	"github.com/abelzeko/bird-survey/internal/integration/openai"
	"github.com/abelzeko/bird-survey/internal/metrics"
	"github.com/abelzeko/bird-survey/internal/repository"
)

// ErrNoData is returned when a query matches no stored observations
var ErrNoData = errors.New("no observations found")

// ObservationSource is an external feed of survey observations
type ObservationSource interface {
	FetchObservations(ctx context.Context) ([]entities.Observation, error)
}

// SurveyUseCase handles business logic related to survey metrics
type SurveyUseCase struct {
	repo        repository.ObservationRepository
	calc        *metrics.Calculator
	source      ObservationSource
	interpreter openai.QueryInterpreter
}

// NewSurveyUseCase creates a new survey use case. source and interpreter may be nil
func NewSurveyUseCase(repo repository.ObservationRepository, calc *metrics.Calculator, source ObservationSource, interpreter openai.QueryInterpreter) *SurveyUseCase {
	return &SurveyUseCase{
		repo:        repo,
		calc:        calc,
		source:      source,
		interpreter: interpreter,
	}
}

// ImportCSV loads a point count species table from path and stores it
func (uc *SurveyUseCase) ImportCSV(path string) (int, error) {
	slog.Info("Importing observations from csv", "path", path)

	data, err := integration.LoadCSVFile(path)
	if err != nil {
		return 0, err
	}
	if err := uc.repo.SaveObservations(data); err != nil {
		return 0, fmt.Errorf("failed to save observations: %w", err)
	}
	return len(data), nil
}

// RefreshFromSource fetches fresh observations from the configured source and stores them
func (uc *SurveyUseCase) RefreshFromSource(ctx context.Context) error {
	if uc.source == nil {
		return errors.New("no observation source configured")
	}
	slog.Info("Starting survey data refresh")

	data, err := uc.source.FetchObservations(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch observations: %w", err)
	}
	slog.Info("Fetched observations", "rows", len(data))

	if err := uc.repo.SaveObservations(data); err != nil {
		return fmt.Errorf("failed to save observations: %w", err)
	}
	return nil
}

// AvailableDates returns the stored survey dates, oldest first
func (uc *SurveyUseCase) AvailableDates() ([]time.Time, error) {
	return uc.repo.GetSurveyDates()
}

// AvailableSpecies returns every recorded species
func (uc *SurveyUseCase) AvailableSpecies() ([]string, error) {
	return uc.repo.GetSpecies()
}

// LastSurveyDate returns the most recent survey date
func (uc *SurveyUseCase) LastSurveyDate() (time.Time, error) {
	return uc.repo.GetLastSurveyDate()
}

// Completeness returns the survey completeness of date
func (uc *SurveyUseCase) Completeness(date time.Time) (float64, error) {
	data, err := uc.repo.GetObservationsByDate(date)
	if err != nil {
		return 0, err
	}
	return uc.calc.Completeness(data, date), nil
}

// Simpson returns Simpson diversity for date
func (uc *SurveyUseCase) Simpson(date time.Time) (float64, error) {
	data, err := uc.repo.GetObservationsByDate(date)
	if err != nil {
		return 0, err
	}
	return uc.calc.Simpson(data, date)
}

// Shannon returns Shannon diversity for date
func (uc *SurveyUseCase) Shannon(date time.Time) (float64, error) {
	data, err := uc.repo.GetObservationsByDate(date)
	if err != nil {
		return 0, err
	}
	return uc.calc.Shannon(data, date)
}

// Alpha returns alpha diversity for date; ok is false when it has no value
func (uc *SurveyUseCase) Alpha(date time.Time) (float64, bool, error) {
	data, err := uc.repo.GetObservationsByDate(date)
	if err != nil {
		return 0, false, err
	}
	return uc.calc.Alpha(data, date)
}

// Beta returns beta diversity between two survey dates
func (uc *SurveyUseCase) Beta(date1, date2 time.Time) (float64, error) {
	first, err := uc.repo.GetObservationsByDate(date1)
	if err != nil {
		return 0, err
	}
	second, err := uc.repo.GetObservationsByDate(date2)
	if err != nil {
		return 0, err
	}
	return uc.calc.Beta(append(first, second...), date1, date2)
}

// DailyReport computes every per-day metric for date
func (uc *SurveyUseCase) DailyReport(date time.Time) (metrics.Report, error) {
	slog.Info("Computing daily report", "date", date.Format(entities.DateLayout))

	data, err := uc.repo.GetObservationsByDate(date)
	if err != nil {
		return metrics.Report{}, err
	}
	if len(data) == 0 {
		return metrics.Report{}, fmt.Errorf("%s: %w", date.Format(entities.DateLayout), ErrNoData)
	}
	return uc.calc.DailyReport(data, date), nil
}

// Abundance summarizes how often a species was seen
type Abundance struct {
	Species          string
	DaysSeen         int
	Frequency        float64
	FrequencyAllDays float64
}

// SpeciesAbundance returns days seen and frequencies for species
func (uc *SurveyUseCase) SpeciesAbundance(species string) (Abundance, error) {
	data, err := uc.repo.GetObservationsBySpecies(species)
	if err != nil {
		return Abundance{}, err
	}
	return Abundance{
		Species:          species,
		DaysSeen:         uc.calc.AbundanceDaysSeen(data, species),
		Frequency:        uc.calc.FrequencyDaysSeen(data, species),
		FrequencyAllDays: uc.calc.FrequencyOverAllDays(data, species),
	}, nil
}

// HandleNaturalLanguageQuery interprets a user's free-text query using the AI service
// and returns an appropriate response string
func (uc *SurveyUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	if uc.interpreter == nil {
		return "I don't understand. Use /help to see available commands.", nil
	}
	slog.Info("Interpreting natural language query", "query", query)

	dates, err := uc.AvailableDates()
	if err != nil {
		slog.Error("Error fetching survey dates", "err", err)
		return "Sorry, I couldn't read the survey database right now.", nil
	}
	species, err := uc.AvailableSpecies()
	if err != nil {
		slog.Error("Error fetching species", "err", err)
		return "Sorry, I couldn't read the survey database right now.", nil
	}

	agentResp, err := uc.interpreter.InterpretUserQuery(ctx, query, formatDates(dates), species)
	if err != nil {
		slog.Error("Error interpreting user query", "err", err)
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}

	slog.Info("Agent response", "command", agentResp.CommandName, "date", agentResp.Date,
		"second_date", agentResp.SecondDate, "species", agentResp.Species)

	var body string
	switch agentResp.CommandName {
	case openai.CommandDailyReport:
		date, err := entities.ParseDay(agentResp.Date)
		if err != nil {
			return withPrefix(agentResp.UserMessage, "Which survey date? Use /dates to see them."), nil
		}
		report, err := uc.DailyReport(date)
		if err != nil {
			body = fmt.Sprintf("No observations found for %s. Use /dates to see the survey days.", agentResp.Date)
		} else {
			body = FormatReport(report)
		}

	case openai.CommandBeta:
		d1, err1 := entities.ParseDay(agentResp.Date)
		d2, err2 := entities.ParseDay(agentResp.SecondDate)
		if err1 != nil || err2 != nil {
			return withPrefix(agentResp.UserMessage, "Please name two survey dates to compare."), nil
		}
		body = uc.formatBetaResult(d1, d2)

	case openai.CommandAbundance:
		if agentResp.Species == "" {
			return withPrefix(agentResp.UserMessage, "Which species? Use /species to see them."), nil
		}
		a, err := uc.SpeciesAbundance(agentResp.Species)
		if err != nil {
			slog.Error("Error fetching species abundance", "err", err)
			return "Sorry, I couldn't read the survey database right now.", nil
		}
		body = FormatAbundance(a)

	case openai.CommandGeneralQuery:
		return agentResp.UserMessage, nil

	default:
		slog.Warn("Agent returned unexpected command", "command", agentResp.CommandName)
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}

	return withPrefix(agentResp.UserMessage, body), nil
}

// formatBetaResult computes beta diversity and renders it or the reason it is undefined
func (uc *SurveyUseCase) formatBetaResult(d1, d2 time.Time) string {
	b, err := uc.Beta(d1, d2)
	if err != nil {
		if errors.Is(err, metrics.ErrZeroDivision) {
			return fmt.Sprintf("No individuals recorded on %s or %s.", d1.Format(entities.DateLayout), d2.Format(entities.DateLayout))
		}
		slog.Error("Error computing beta diversity", "err", err)
		return "Sorry, I couldn't compute beta diversity right now."
	}
	return FormatBeta(d1, d2, b)
}

// FormatBetaCommand renders beta diversity for the bot's /beta command
func (uc *SurveyUseCase) FormatBetaCommand(d1, d2 time.Time) string {
	return uc.formatBetaResult(d1, d2)
}

func withPrefix(prefix, body string) string {
	if prefix == "" {
		return body
	}
	return prefix + "\n\n" + body
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(entities.DateLayout)
	}
	return out
}

// FormatDateList renders survey dates one per line
func FormatDateList(dates []time.Time) string {
	if len(dates) == 0 {
		return "No survey dates recorded yet."
	}
	var b strings.Builder
	b.WriteString("Survey dates:\n\n")
	for _, d := range formatDates(dates) {
		b.WriteString("• " + d + "\n")
	}
	return b.String()
}

// FormatReport formats a daily report for display
func FormatReport(r metrics.Report) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Survey report for %s:\n\n", r.Date.Format(entities.DateLayout)))
	result.WriteString(fmt.Sprintf("📋 Surveys: %d (completeness %.1f%%)\n", r.Surveys, r.Completeness*100))
	result.WriteString(fmt.Sprintf("🐦 Individuals: %d\n", r.Individuals))
	result.WriteString(fmt.Sprintf("🌿 Species richness: %d\n", r.Richness))
	result.WriteString("📊 Simpson diversity: " + formatOptional(r.Simpson) + "\n")
	result.WriteString("📈 Shannon diversity: " + formatOptional(r.Shannon) + "\n")
	result.WriteString("🔢 Alpha diversity: " + formatOptional(r.Alpha) + "\n")
	return result.String()
}

// FormatAbundance formats a species abundance summary for display
func FormatAbundance(a Abundance) string {
	if a.DaysSeen == 0 {
		return fmt.Sprintf("%s was not recorded on any survey day.", a.Species)
	}
	return fmt.Sprintf("%s was seen on %d days (%.1f%% of valid survey days, %.1f%% of all days).",
		a.Species, a.DaysSeen, a.Frequency*100, a.FrequencyAllDays*100)
}

// FormatBeta formats a beta diversity result for display
func FormatBeta(d1, d2 time.Time, b float64) string {
	return fmt.Sprintf("Beta diversity between %s and %s: %.4f",
		d1.Format(entities.DateLayout), d2.Format(entities.DateLayout), b)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
