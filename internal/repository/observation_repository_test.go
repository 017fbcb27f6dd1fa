package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	may1 = time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)
	may2 = time.Date(2020, time.May, 2, 0, 0, 0, 0, time.UTC)
)

func newTestRepository(t *testing.T) *SQLiteObservationRepository {
	t.Helper()
	repo, err := NewSQLiteObservationRepository(filepath.Join(t.TempDir(), "test-survey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testData() []entities.Observation {
	return []entities.Observation{
		{Date: may1, Species: "American Robin", Individuals: 3, Site: "P1", Observer: "JD"},
		{Date: may1, Species: "American Robin", Individuals: 3, Site: "P1", Observer: "JD"},
		{Date: may1, Species: "Blue Jay", Individuals: 1, Site: "P2"},
		{Date: may2, Species: "American Robin", Individuals: 2, Site: "P1"},
	}
}

func TestDatabaseIntegration(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.SaveObservations(testData()))

	all, err := repo.GetObservations()
	require.NoError(t, err)
	require.Len(t, all, 4, "repeated rows within a batch are kept")
	assert.Equal(t, may1, all[0].Date)
	assert.NotZero(t, all[0].ID)

	day, err := repo.GetObservationsByDate(may1.Add(9 * time.Hour))
	require.NoError(t, err)
	assert.Len(t, day, 3)

	robins, err := repo.GetObservationsBySpecies("American Robin")
	require.NoError(t, err)
	assert.Len(t, robins, 3)

	dates, err := repo.GetSurveyDates()
	require.NoError(t, err)
	assert.Equal(t, []time.Time{may1, may2}, dates)

	species, err := repo.GetSpecies()
	require.NoError(t, err)
	assert.Equal(t, []string{"American Robin", "Blue Jay"}, species)

	last, err := repo.GetLastSurveyDate()
	require.NoError(t, err)
	assert.Equal(t, may2, last)
}

func TestSaveObservations_ReimportReplacesSessions(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.SaveObservations(testData()))
	require.NoError(t, repo.SaveObservations(testData()))

	all, err := repo.GetObservations()
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// A batch touching only the May 2 P1 session leaves May 1 alone
	require.NoError(t, repo.SaveObservations([]entities.Observation{
		{Date: may2, Species: "Song Sparrow", Individuals: 5, Site: "P1"},
	}))
	day2, err := repo.GetObservationsByDate(may2)
	require.NoError(t, err)
	require.Len(t, day2, 1)
	assert.Equal(t, "Song Sparrow", day2[0].Species)

	day1, err := repo.GetObservationsByDate(may1)
	require.NoError(t, err)
	assert.Len(t, day1, 3)
}

func TestSaveObservations_SitesOnSameDateAccumulate(t *testing.T) {
	repo := newTestRepository(t)
	p1 := []entities.Observation{
		{Date: may1, Species: "American Robin", Individuals: 3, Site: "P1", Observer: "JD"},
		{Date: may1, Species: "American Robin", Individuals: 3, Site: "P1", Observer: "JD"},
	}
	p2 := []entities.Observation{
		{Date: may1, Species: "Blue Jay", Individuals: 2, Site: "P2", Observer: "AK"},
	}

	require.NoError(t, repo.SaveObservations(p1))
	require.NoError(t, repo.SaveObservations(p2))

	day, err := repo.GetObservationsByDate(may1)
	require.NoError(t, err)
	assert.Len(t, day, 3)

	// Re-importing one site replaces only that site
	require.NoError(t, repo.SaveObservations(p1))
	day, err = repo.GetObservationsByDate(may1)
	require.NoError(t, err)
	require.Len(t, day, 3)

	sites := map[string]int{}
	for _, o := range day {
		sites[o.Site]++
	}
	assert.Equal(t, map[string]int{"P1": 2, "P2": 1}, sites)

	// Same site, different observer, is a separate session
	require.NoError(t, repo.SaveObservations([]entities.Observation{
		{Date: may1, Species: "Song Sparrow", Individuals: 1, Site: "P1", Observer: "AK"},
	}))
	day, err = repo.GetObservationsByDate(may1)
	require.NoError(t, err)
	assert.Len(t, day, 4)
}

func TestSaveObservations_RejectsNegativeCounts(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.SaveObservations([]entities.Observation{{Date: may1, Species: "AMRO", Individuals: -1}})
	assert.Error(t, err)

	all, err := repo.GetObservations()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetLastSurveyDate_Empty(t *testing.T) {
	repo := newTestRepository(t)

	last, err := repo.GetLastSurveyDate()
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
