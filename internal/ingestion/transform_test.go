package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

func epoch(v int64) *models.EpochSeconds {
	e := models.EpochSeconds(v)
	return &e
}

func boolPtr(v bool) *bool { return &v }

func int64Ptr(v int64) *int64 { return &v }

func TestTransformSearches_Defaults(t *testing.T) {
	searches := []models.TrendingSearch{
		{Query: "no end", StartTimestamp: 1760000000},
		{Query: "zero end", StartTimestamp: 1760000000, EndTimestamp: epoch(0)},
		{Query: "ended", StartTimestamp: 1760000000, EndTimestamp: epoch(1760007200), Active: boolPtr(false)},
		{Query: "active", StartTimestamp: 1760000000, Active: boolPtr(true)},
	}

	records, skipped := transformSearches(searches)

	require.Len(t, records, 4)
	assert.Zero(t, skipped)

	assert.Nil(t, records[0].EndDate)
	assert.False(t, records[0].Active)
	assert.Nil(t, records[1].EndDate)

	require.NotNil(t, records[2].EndDate)
	assert.Equal(t, time.Unix(1760007200, 0).UTC(), *records[2].EndDate)
	assert.False(t, records[2].Active)

	assert.True(t, records[3].Active)

	for _, rec := range records {
		assert.Equal(t, time.Unix(1760000000, 0).UTC(), rec.StartDate)
		assert.Equal(t, "", rec.Categories)
		assert.Equal(t, "", rec.TrendBreakdown)
	}
}

func TestTransformSearches_JoinsListsAndKeepsNumbers(t *testing.T) {
	searches := []models.TrendingSearch{
		{
			Query:              "harambee stars",
			StartTimestamp:     1760000000,
			SearchVolume:       int64Ptr(20000),
			IncreasePercentage: int64Ptr(1000),
			Categories:         []models.Category{{ID: 17, Name: "Sports"}, {ID: 4, Name: "Entertainment"}},
			TrendBreakdown:     []string{"harambee stars", "afcon qualifiers"},
			GoogleTrendsLink:   "https://serpapi.com/trends",
			NewsLink:           "https://serpapi.com/news",
		},
	}

	records, _ := transformSearches(searches)

	require.Len(t, records, 1)
	assert.Equal(t, "Sports, Entertainment", records[0].Categories)
	assert.Equal(t, "harambee stars, afcon qualifiers", records[0].TrendBreakdown)
	assert.Equal(t, int64(20000), *records[0].SearchVolume)
	assert.Equal(t, int64(1000), *records[0].IncreasePercentage)
}

func TestTransformSearches_SkipsMissingQuery(t *testing.T) {
	records, skipped := transformSearches([]models.TrendingSearch{
		{Query: "", StartTimestamp: 1},
		{Query: "   ", StartTimestamp: 2},
		{Query: "kept", StartTimestamp: 3},
	})

	require.Len(t, records, 1)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, "kept", records[0].Query)
}

func TestDedupe(t *testing.T) {
	t1 := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	records := []models.TrendRecord{
		{Query: "a", StartDate: t2, Categories: "first"},
		{Query: "a", StartDate: t1},
		{Query: "b", StartDate: t2},
		{Query: "a", StartDate: t2, Categories: "second"},
		{Query: "b", StartDate: t2, Active: true},
	}

	unique, removed := dedupe(records)

	assert.Equal(t, 2, removed)
	require.Len(t, unique, 3)
	assert.Equal(t, "first", unique[0].Categories)
	assert.Equal(t, t1, unique[1].StartDate)
	assert.False(t, unique[2].Active)
}

func TestDedupe_KeyIsQueryAndStartDateOnly(t *testing.T) {
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	unique, removed := dedupe([]models.TrendRecord{
		{Query: "a", StartDate: start, Active: true},
		{Query: "a", StartDate: start, EndDate: &end, SearchVolume: int64Ptr(5), Categories: "x"},
		{Query: "A", StartDate: start},
	})

	assert.Equal(t, 1, removed)
	assert.Len(t, unique, 2)
}

func TestDedupe_Idempotent(t *testing.T) {
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	records := []models.TrendRecord{
		{Query: "a", StartDate: start},
		{Query: "a", StartDate: start},
		{Query: "b", StartDate: start},
		{Query: "a", StartDate: start.Add(time.Minute)},
	}

	once, _ := dedupe(records)
	twice, removed := dedupe(once)

	assert.Equal(t, once, twice)
	assert.Zero(t, removed)
}
