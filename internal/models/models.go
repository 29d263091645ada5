package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EpochSeconds is a Unix timestamp that decodes from a JSON number or a
// numeric string
type EpochSeconds int64

// UnmarshalJSON accepts 1760000000, 1760000000.0 and "1760000000"
func (e *EpochSeconds) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid epoch seconds %s: %w", data, err)
	}
	if v, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*e = EpochSeconds(v)
		return nil
	}
	// Fractional seconds are truncated
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid epoch seconds %s: %w", data, err)
	}
	*e = EpochSeconds(int64(f))
	return nil
}

// Time returns the timestamp in UTC
func (e EpochSeconds) Time() time.Time {
	return time.Unix(int64(e), 0).UTC()
}

// Category is a provider-side trend category
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TrendingSearch represents one record of the provider's trending-now response
type TrendingSearch struct {
	Query              string        `json:"query"`
	StartTimestamp     EpochSeconds  `json:"start_timestamp"`
	EndTimestamp       *EpochSeconds `json:"end_timestamp,omitempty"`
	Active             *bool         `json:"active,omitempty"`
	SearchVolume       *int64        `json:"search_volume,omitempty"`
	IncreasePercentage *int64        `json:"increase_percentage,omitempty"`
	Categories         []Category    `json:"categories,omitempty"`
	TrendBreakdown     []string      `json:"trend_breakdown,omitempty"`
	GoogleTrendsLink   string        `json:"serpapi_google_trends_link,omitempty"`
	NewsLink           string        `json:"serpapi_news_link,omitempty"`
}

// TrendingNowResponse is the provider response envelope
type TrendingNowResponse struct {
	TrendingSearches []TrendingSearch `json:"trending_searches"`
	Error            string           `json:"error,omitempty"`
}

// TrendRecord is the flat warehouse row for one trending query
type TrendRecord struct {
	Query              string     `json:"query"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	Active             bool       `json:"active"`
	SearchVolume       *int64     `json:"search_volume"`
	IncreasePercentage *int64     `json:"increase_percentage"`
	Categories         string     `json:"categories"`
	TrendBreakdown     string     `json:"trend_breakdown"`
}

// RecordKey is the uniqueness key of a TrendRecord
type RecordKey struct {
	Query     string
	StartDate int64
}

// Key returns the (query, start_date) key of the record
func (r TrendRecord) Key() RecordKey {
	return RecordKey{Query: r.Query, StartDate: r.StartDate.UnixNano()}
}

// Ingestion run states
const (
	StatusRunning  = "running"
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusNeverRun = "never_run"
)

// IngestionStatus tracks the status of ingestion runs
type IngestionStatus struct {
	RunID             string    `json:"run_id" bson:"run_id"`
	LastSuccessfulRun time.Time `json:"last_successful_run" bson:"last_successful_run"`
	LastAttempt       time.Time `json:"last_attempt" bson:"last_attempt"`
	Status            string    `json:"status" bson:"status"`
	ErrorMessage      string    `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Table             string    `json:"table,omitempty" bson:"table,omitempty"`
	RecordsIngested   int       `json:"records_ingested" bson:"records_ingested"`
	DuplicatesRemoved int       `json:"duplicates_removed" bson:"duplicates_removed"`
}
