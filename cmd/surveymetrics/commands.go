package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abelzeko/bird-survey/internal/config"
	"github.com/abelzeko/bird-survey/internal/entities"
	"github.com/abelzeko/bird-survey/internal/logging"
	"github.com/abelzeko/bird-survey/internal/metrics"
	"github.com/abelzeko/bird-survey/internal/repository"
	"github.com/abelzeko/bird-survey/internal/usecases"
	"github.com/spf13/cobra"
)

// cli holds the state shared by all subcommands of one invocation
type cli struct {
	configPath string
	dbPath     string

	repo    *repository.SQLiteObservationRepository
	useCase *usecases.SurveyUseCase
}

// newRootCmd builds the command tree. The caller closes the returned cli once
// Execute returns, whether or not the command failed
func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "surveymetrics",
		Short: "Compute completeness and diversity metrics from bird survey observations",
		Long: `surveymetrics imports point count species tables into a local database and
computes survey completeness, species abundance and Simpson, Shannon, alpha
and beta diversity for survey days.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.open,
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&c.dbPath, "db", "", "path to the SQLite database (overrides storage.path)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "import [csv file]",
			Short: "Imports a point count species table (Date, Species, # Individuals)",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runImport,
		},
		&cobra.Command{
			Use:   "dates",
			Short: "Lists the survey dates in the database",
			Args:  cobra.NoArgs,
			RunE:  c.runDates,
		},
		&cobra.Command{
			Use:   "completeness [date]",
			Short: "Surveys on a day divided by the maximum surveys per day",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runCompleteness,
		},
		&cobra.Command{
			Use:   "abundance [species]",
			Short: "Number of distinct days a species was seen, and its frequency",
			Args:  cobra.MinimumNArgs(1),
			RunE:  c.runAbundance,
		},
		&cobra.Command{
			Use:   "simpson [date]",
			Short: "Simpson diversity of a survey day",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runSimpson,
		},
		&cobra.Command{
			Use:   "shannon [date]",
			Short: "Shannon diversity of a survey day",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runShannon,
		},
		&cobra.Command{
			Use:   "alpha [date]",
			Short: "Alpha diversity (1 / Simpson) of a survey day",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runAlpha,
		},
		&cobra.Command{
			Use:   "beta [date1] [date2]",
			Short: "Beta diversity between two survey days",
			Args:  cobra.ExactArgs(2),
			RunE:  c.runBeta,
		},
		&cobra.Command{
			Use:   "report [date]",
			Short: "All per-day metrics for a survey day (latest day if omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE:  c.runReport,
		},
	)
	return rootCmd, c
}

// open loads the config and wires the repository and use case
func (c *cli) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Log.Level)

	if c.dbPath != "" {
		cfg.Storage.Path = c.dbPath
	}

	calc, err := metrics.New(cfg.Metrics)
	if err != nil {
		return err
	}

	c.repo, err = repository.NewSQLiteObservationRepository(cfg.Storage.Path)
	if err != nil {
		return err
	}
	c.useCase = usecases.NewSurveyUseCase(c.repo, calc, nil, nil)
	return nil
}

func (c *cli) close() error {
	if c.repo == nil {
		return nil
	}
	return c.repo.Close()
}

func parseDate(s string) (time.Time, error) {
	d, err := entities.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func (c *cli) runImport(cmd *cobra.Command, args []string) error {
	n, err := c.useCase.ImportCSV(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d observations from %s\n", n, args[0])
	return nil
}

func (c *cli) runDates(cmd *cobra.Command, _ []string) error {
	dates, err := c.useCase.AvailableDates()
	if err != nil {
		return err
	}
	for _, d := range dates {
		fmt.Fprintln(cmd.OutOrStdout(), d.Format(entities.DateLayout))
	}
	return nil
}

func (c *cli) runCompleteness(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args[0])
	if err != nil {
		return err
	}
	v, err := c.useCase.Completeness(date)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", v)
	return nil
}

func (c *cli) runAbundance(cmd *cobra.Command, args []string) error {
	a, err := c.useCase.SpeciesAbundance(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "days_seen=%d frequency=%.4f frequency_all_days=%.4f\n",
		a.DaysSeen, a.Frequency, a.FrequencyAllDays)
	return nil
}

func (c *cli) runSimpson(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args[0])
	if err != nil {
		return err
	}
	v, err := c.useCase.Simpson(date)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", v)
	return nil
}

func (c *cli) runShannon(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args[0])
	if err != nil {
		return err
	}
	v, err := c.useCase.Shannon(date)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", v)
	return nil
}

func (c *cli) runAlpha(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args[0])
	if err != nil {
		return err
	}
	v, ok, err := c.useCase.Alpha(date)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no value (Simpson diversity is 0)")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", v)
	return nil
}

func (c *cli) runBeta(cmd *cobra.Command, args []string) error {
	d1, err := parseDate(args[0])
	if err != nil {
		return err
	}
	d2, err := parseDate(args[1])
	if err != nil {
		return err
	}
	v, err := c.useCase.Beta(d1, d2)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", v)
	return nil
}

func (c *cli) runReport(cmd *cobra.Command, args []string) error {
	var (
		date time.Time
		err  error
	)
	if len(args) == 1 {
		if date, err = parseDate(args[0]); err != nil {
			return err
		}
	} else {
		if date, err = c.useCase.LastSurveyDate(); err != nil {
			return err
		}
		if date.IsZero() {
			return fmt.Errorf("no survey dates recorded")
		}
		slog.Debug("Reporting latest survey day", "date", date.Format(entities.DateLayout))
	}

	report, err := c.useCase.DailyReport(date)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), usecases.FormatReport(report))
	return nil
}
