package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day1 = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC)
	day3 = time.Date(2020, time.January, 3, 0, 0, 0, 0, time.UTC)
)

func obs(date time.Time, species string, n int) entities.Observation {
	return entities.Observation{Date: date, Species: species, Individuals: n}
}

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := New(DefaultConfig())
	require.NoError(t, err)
	return c
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero surveys per day", Config{MaxSurveysPerDay: 0, TotalValidDays: 46, TotalDays: 50}},
		{"negative valid days", Config{MaxSurveysPerDay: 18, TotalValidDays: -1, TotalDays: 50}},
		{"zero total days", Config{MaxSurveysPerDay: 18, TotalValidDays: 46, TotalDays: 0}},
		{"valid days above total", Config{MaxSurveysPerDay: 18, TotalValidDays: 60, TotalDays: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestCompleteness(t *testing.T) {
	c := newCalculator(t)

	var data []entities.Observation
	for i := 0; i < 9; i++ {
		data = append(data, obs(day1, "AMRO", 1))
	}
	data = append(data, obs(day2, "AMRO", 1))

	assert.InDelta(t, 0.5, c.Completeness(data, day1), 1e-12)
	assert.InDelta(t, 1.0/18, c.Completeness(data, day2), 1e-12)
	assert.Zero(t, c.Completeness(data, day3))
}

func TestCompleteness_NotClamped(t *testing.T) {
	c := newCalculator(t)

	var data []entities.Observation
	for i := 0; i < 20; i++ {
		data = append(data, obs(day1, "AMRO", 1))
	}
	assert.InDelta(t, 20.0/18, c.Completeness(data, day1), 1e-12)
}

func TestCompleteness_MatchesIgnoringTimeOfDay(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1.Add(6*time.Hour), "AMRO", 1),
		obs(day1.Add(18*time.Hour), "AMRO", 1),
	}
	assert.InDelta(t, 2.0/18, c.Completeness(data, day1), 1e-12)
}

func TestCompleteness_CustomConfig(t *testing.T) {
	c, err := New(Config{MaxSurveysPerDay: 4, TotalValidDays: 10, TotalDays: 10})
	require.NoError(t, err)

	data := []entities.Observation{obs(day1, "AMRO", 3), obs(day1, "BLJA", 1)}
	assert.InDelta(t, 0.5, c.Completeness(data, day1), 1e-12)
}

func TestAbundanceDaysSeen_CountsDistinctDays(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "AMRO", 3),
		obs(day1, "AMRO", 2),
		obs(day2, "AMRO", 1),
		obs(day3, "BLJA", 4),
	}
	assert.Equal(t, 2, c.AbundanceDaysSeen(data, "AMRO"))
	assert.Equal(t, 1, c.AbundanceDaysSeen(data, "BLJA"))
	assert.Equal(t, 0, c.AbundanceDaysSeen(data, "NOCA"))
}

func TestAbundanceDaysSeen_Monotonic(t *testing.T) {
	c := newCalculator(t)

	var data []entities.Observation
	prev := 0
	for i := 0; i < 10; i++ {
		data = append(data, obs(day1.AddDate(0, 0, i/2), "AMRO", 1))
		got := c.AbundanceDaysSeen(data, "AMRO")
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, 5, prev)
}

func TestFrequency(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{obs(day1, "AMRO", 1), obs(day2, "AMRO", 1)}
	assert.InDelta(t, 2.0/46, c.FrequencyDaysSeen(data, "AMRO"), 1e-12)
	assert.InDelta(t, 2.0/50, c.FrequencyOverAllDays(data, "AMRO"), 1e-12)
}

func TestSimpson_TwoEvenSpecies(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 5),
		obs(day1, "SparrowB", 5),
	}
	d, err := c.Simpson(data, day1)
	require.NoError(t, err)
	assert.InDelta(t, 1-40.0/90, d, 1e-12)

	alpha, ok, err := c.Alpha(data, day1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1.8, alpha, 1e-12)
}

func TestSimpson_SumsDuplicateRows(t *testing.T) {
	c := newCalculator(t)

	split := []entities.Observation{
		obs(day1, "SparrowA", 2),
		obs(day1, "SparrowA", 3),
		obs(day1, "SparrowB", 5),
	}
	merged := []entities.Observation{
		obs(day1, "SparrowA", 5),
		obs(day1, "SparrowB", 5),
	}

	got, err := c.Simpson(split, day1)
	require.NoError(t, err)
	want, err := c.Simpson(merged, day1)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestSimpson_SingleSpecies(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{obs(day1, "SparrowA", 5)}
	d, err := c.Simpson(data, day1)
	require.NoError(t, err)
	assert.Zero(t, d)

	_, ok, err := c.Alpha(data, day1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSimpson_ApproachesHalfForTwoLargeEvenSpecies(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 10000),
		obs(day1, "SparrowB", 10000),
	}
	d, err := c.Simpson(data, day1)
	require.NoError(t, err)
	assert.Greater(t, d, 0.5)
	assert.InDelta(t, 0.5, d, 1e-4)
}

func TestSimpson_TooFewIndividuals(t *testing.T) {
	c := newCalculator(t)

	tests := []struct {
		name string
		data []entities.Observation
	}{
		{"no rows", nil},
		{"one individual", []entities.Observation{obs(day1, "SparrowA", 1)}},
		{"only zero counts", []entities.Observation{obs(day1, "SparrowA", 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Simpson(tt.data, day1)
			assert.ErrorIs(t, err, ErrZeroDivision)

			_, ok, err := c.Alpha(tt.data, day1)
			assert.ErrorIs(t, err, ErrZeroDivision)
			assert.False(t, ok)
		})
	}
}

func TestShannon(t *testing.T) {
	c := newCalculator(t)

	single := []entities.Observation{obs(day1, "SparrowA", 7)}
	h, err := c.Shannon(single, day1)
	require.NoError(t, err)
	assert.Zero(t, h)

	even := []entities.Observation{
		obs(day1, "SparrowA", 4),
		obs(day1, "SparrowB", 4),
	}
	h, err = c.Shannon(even, day1)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2), h, 1e-12)

	skewed := []entities.Observation{
		obs(day1, "SparrowA", 7),
		obs(day1, "SparrowB", 1),
	}
	hs, err := c.Shannon(skewed, day1)
	require.NoError(t, err)
	assert.Less(t, hs, h)
}

func TestShannon_IgnoresZeroCounts(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 3),
		obs(day1, "SparrowB", 3),
		obs(day1, "SparrowC", 0),
	}
	h, err := c.Shannon(data, day1)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(h))
	assert.InDelta(t, math.Log(2), h, 1e-12)
}

func TestShannon_EmptyDay(t *testing.T) {
	c := newCalculator(t)

	_, err := c.Shannon(nil, day1)
	assert.ErrorIs(t, err, ErrZeroDivision)
}

func TestBeta(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 4),
		obs(day1, "SparrowB", 2),
		obs(day2, "SparrowA", 1),
		obs(day2, "SparrowC", 3),
	}
	// numerator = min(4,1) + min(2,0) + min(0,3) = 1
	// denominator = 5 + 2 + 3 = 10
	b, err := c.Beta(data, day1, day2)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, b, 1e-12)

	reversed, err := c.Beta(data, day2, day1)
	require.NoError(t, err)
	assert.InDelta(t, b, reversed, 1e-12)
}

func TestBeta_SameDayIsOne(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 4),
		obs(day1, "SparrowA", 1),
		obs(day1, "SparrowB", 2),
	}
	b, err := c.Beta(data, day1, day1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, b, 1e-12)
}

func TestBeta_DisjointDays(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 4),
		obs(day2, "SparrowB", 2),
	}
	b, err := c.Beta(data, day1, day2)
	require.NoError(t, err)
	assert.Zero(t, b)
}

func TestBeta_BothDaysEmpty(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{obs(day3, "SparrowA", 4)}
	_, err := c.Beta(data, day1, day2)
	assert.ErrorIs(t, err, ErrZeroDivision)
}

func TestRichness(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 4),
		obs(day1, "SparrowB", 0),
		obs(day1, "SparrowC", 1),
		obs(day2, "SparrowD", 1),
	}
	assert.Equal(t, 2, c.Richness(data, day1))
	assert.Equal(t, 0, c.Richness(data, day3))
}

func TestDatesAndSpecies(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day2.Add(3*time.Hour), "BLJA", 1),
		obs(day1, "AMRO", 1),
		obs(day2, "AMRO", 1),
	}
	assert.Equal(t, []time.Time{day1, day2}, c.Dates(data))
	assert.Equal(t, []string{"AMRO", "BLJA"}, c.SpeciesList(data))
}

func TestDailyReport(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 5),
		obs(day1, "SparrowB", 5),
		obs(day2, "SparrowA", 1),
	}

	r := c.DailyReport(data, day1)
	assert.Equal(t, day1, r.Date)
	assert.Equal(t, 2, r.Surveys)
	assert.Equal(t, 10, r.Individuals)
	assert.Equal(t, 2, r.Richness)
	assert.InDelta(t, 2.0/18, r.Completeness, 1e-12)
	require.NotNil(t, r.Simpson)
	require.NotNil(t, r.Shannon)
	require.NotNil(t, r.Alpha)
	assert.InDelta(t, 1.8, *r.Alpha, 1e-12)

	sparse := c.DailyReport(data, day2)
	assert.Nil(t, sparse.Simpson)
	assert.Nil(t, sparse.Alpha)
	require.NotNil(t, sparse.Shannon)
	assert.Zero(t, *sparse.Shannon)
}

func TestCalculator_DoesNotMutateInput(t *testing.T) {
	c := newCalculator(t)

	data := []entities.Observation{
		obs(day1, "SparrowA", 2),
		obs(day1, "SparrowA", 3),
		obs(day2, "SparrowB", 1),
	}
	snapshot := append([]entities.Observation(nil), data...)

	_, _ = c.Simpson(data, day1)
	_, _ = c.Shannon(data, day1)
	_, _ = c.Beta(data, day1, day2)
	_ = c.DailyReport(data, day1)

	assert.Equal(t, snapshot, data)
}
