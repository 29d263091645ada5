package ingestion

import (
	"strings"

	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

const listSeparator = ", "

// transformSearches maps provider records to warehouse rows. Records without
// a query are dropped and counted in skipped.
func transformSearches(searches []models.TrendingSearch) (records []models.TrendRecord, skipped int) {
	records = make([]models.TrendRecord, 0, len(searches))

	for _, s := range searches {
		if strings.TrimSpace(s.Query) == "" {
			skipped++
			continue
		}
		records = append(records, toRecord(s))
	}

	return records, skipped
}

func toRecord(s models.TrendingSearch) models.TrendRecord {
	rec := models.TrendRecord{
		Query:              s.Query,
		StartDate:          s.StartTimestamp.Time(),
		SearchVolume:       s.SearchVolume,
		IncreasePercentage: s.IncreasePercentage,
		TrendBreakdown:     strings.Join(s.TrendBreakdown, listSeparator),
	}

	// A zero end timestamp means the trend has not ended
	if s.EndTimestamp != nil && *s.EndTimestamp != 0 {
		end := s.EndTimestamp.Time()
		rec.EndDate = &end
	}

	if s.Active != nil {
		rec.Active = *s.Active
	}

	names := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		names = append(names, c.Name)
	}
	rec.Categories = strings.Join(names, listSeparator)

	return rec
}

// dedupe keeps the first row of every (query, start_date) key, preserving order
func dedupe(records []models.TrendRecord) (unique []models.TrendRecord, removed int) {
	seen := make(map[models.RecordKey]struct{}, len(records))
	unique = make([]models.TrendRecord, 0, len(records))

	for _, rec := range records {
		key := rec.Key()
		if _, ok := seen[key]; ok {
			removed++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, rec)
	}

	return unique, removed
}
