package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		current  string
		previous string
	}{
		{
			name:     "mid month",
			now:      time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
			current:  "trending_now_2026_oct",
			previous: "trending_now_2026_sep",
		},
		{
			name:     "first of month",
			now:      time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC),
			current:  "trending_now_2026_mar",
			previous: "trending_now_2026_feb",
		},
		{
			name:     "january rolls back a year",
			now:      time.Date(2027, 1, 1, 6, 0, 0, 0, time.UTC),
			current:  "trending_now_2027_jan",
			previous: "trending_now_2026_dec",
		},
		{
			name:     "last day of a 31 day month",
			now:      time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC),
			current:  "trending_now_2026_mar",
			previous: "trending_now_2026_feb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.current, TableName("trending_now", tt.now))
			assert.Equal(t, tt.previous, PreviousTableName("trending_now", tt.now))
		})
	}
}

func TestTableSuffix(t *testing.T) {
	assert.Equal(t, "2026_may", TableSuffix(time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC)))
}
