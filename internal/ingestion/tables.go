package ingestion

import (
	"fmt"
	"strings"
	"time"
)

// TableSuffix returns "<year>_<mon>" for t, e.g. "2026_oct"
func TableSuffix(t time.Time) string {
	return fmt.Sprintf("%d_%s", t.Year(), strings.ToLower(t.Month().String()[:3]))
}

// TableName returns the monthly table holding the trends observed in t's month
func TableName(prefix string, t time.Time) string {
	return prefix + "_" + TableSuffix(t)
}

// PreviousTableName returns the monthly table of the month before t
func PreviousTableName(prefix string, t time.Time) string {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return TableName(prefix, firstOfMonth.AddDate(0, 0, -1))
}
