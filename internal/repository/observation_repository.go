// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

// ObservationRepository defines the interface for survey observation persistence operations
type ObservationRepository interface {
	SaveObservations(data []entities.Observation) error
	GetObservations() ([]entities.Observation, error)
	GetObservationsByDate(date time.Time) ([]entities.Observation, error)
	GetObservationsBySpecies(species string) ([]entities.Observation, error)
	GetSurveyDates() ([]time.Time, error)
	GetSpecies() ([]string, error)
	GetLastSurveyDate() (time.Time, error)
	Close() error
}

// SQLiteObservationRepository implements ObservationRepository using SQLite
type SQLiteObservationRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteObservationRepository creates and initializes a new SQLite repository
func NewSQLiteObservationRepository(dbPath string) (*SQLiteObservationRepository, error) {
	if dbPath == "" {
		// Set default path if not specified
		dbPath = filepath.Join("data", "survey.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	slog.Info("Opening database", "path", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Dates are stored as YYYY-MM-DD text so equality and ordering work in SQL
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		survey_date TEXT NOT NULL,
		species TEXT NOT NULL,
		individuals INTEGER NOT NULL CHECK (individuals >= 0),
		site TEXT NOT NULL DEFAULT '',
		observer TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_session ON observations(survey_date, site, observer);
	CREATE INDEX IF NOT EXISTS idx_species ON observations(species);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteObservationRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteObservationRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveObservations stores a batch of observations. Each survey session in the
// batch, identified by date, site and observer, replaces the stored rows of
// that session only. Importing the same table twice does not duplicate rows,
// other sites and observers of the same day are kept, and repeated rows within
// one batch are all stored
func (r *SQLiteObservationRepository) SaveObservations(data []entities.Observation) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	type session struct{ day, site, observer string }
	sessions := make(map[session]struct{})
	for _, o := range data {
		sessions[session{o.DayKey(), o.Site, o.Observer}] = struct{}{}
	}
	for s := range sessions {
		if _, err := tx.Exec(`DELETE FROM observations WHERE survey_date = ? AND site = ? AND observer = ?`,
			s.day, s.site, s.observer); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to clear observations for %s at %q by %q: %w", s.day, s.site, s.observer, err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO observations(survey_date, species, individuals, site, observer)
		VALUES(?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range data {
		if _, err := stmt.Exec(o.DayKey(), o.Species, o.Individuals, o.Site, o.Observer); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert observation of %s on %s: %w", o.Species, o.DayKey(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Saved observations", "rows", len(data), "sessions", len(sessions))
	return nil
}

// GetObservations retrieves every stored observation ordered by date
func (r *SQLiteObservationRepository) GetObservations() ([]entities.Observation, error) {
	return r.queryObservations(`
		SELECT id, survey_date, species, individuals, site, observer
		FROM observations
		ORDER BY survey_date, id`)
}

// GetObservationsByDate retrieves the observations of one survey day
func (r *SQLiteObservationRepository) GetObservationsByDate(date time.Time) ([]entities.Observation, error) {
	return r.queryObservations(`
		SELECT id, survey_date, species, individuals, site, observer
		FROM observations
		WHERE survey_date = ?
		ORDER BY id`, entities.Day(date).Format(entities.DateLayout))
}

// GetObservationsBySpecies retrieves every observation of one species
func (r *SQLiteObservationRepository) GetObservationsBySpecies(species string) ([]entities.Observation, error) {
	return r.queryObservations(`
		SELECT id, survey_date, species, individuals, site, observer
		FROM observations
		WHERE species = ?
		ORDER BY survey_date, id`, species)
}

func (r *SQLiteObservationRepository) queryObservations(query string, args ...interface{}) ([]entities.Observation, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var result []entities.Observation
	for rows.Next() {
		var (
			o   entities.Observation
			day string
		)
		if err := rows.Scan(&o.ID, &day, &o.Species, &o.Individuals, &o.Site, &o.Observer); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if o.Date, err = entities.ParseDay(day); err != nil {
			return nil, fmt.Errorf("failed to parse survey date '%s': %w", day, err)
		}
		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return result, nil
}

// GetSurveyDates returns the distinct survey dates, oldest first
func (r *SQLiteObservationRepository) GetSurveyDates() ([]time.Time, error) {
	rows, err := r.db.Query(`SELECT DISTINCT survey_date FROM observations ORDER BY survey_date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query survey dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		d, err := entities.ParseDay(day)
		if err != nil {
			return nil, fmt.Errorf("failed to parse survey date '%s': %w", day, err)
		}
		dates = append(dates, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return dates, nil
}

// GetSpecies returns a list of all recorded species
func (r *SQLiteObservationRepository) GetSpecies() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT species FROM observations ORDER BY species`)
	if err != nil {
		return nil, fmt.Errorf("failed to query species: %w", err)
	}
	defer rows.Close()

	var species []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		species = append(species, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return species, nil
}

// GetLastSurveyDate returns the most recent survey date, or the zero time if the store is empty
func (r *SQLiteObservationRepository) GetLastSurveyDate() (time.Time, error) {
	var day sql.NullString
	if err := r.db.QueryRow(`SELECT MAX(survey_date) FROM observations`).Scan(&day); err != nil {
		return time.Time{}, fmt.Errorf("failed to get last survey date: %w", err)
	}

	if !day.Valid || day.String == "" {
		return time.Time{}, nil
	}

	d, err := entities.ParseDay(day.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse survey date '%s': %w", day.String, err)
	}
	return d, nil
}
