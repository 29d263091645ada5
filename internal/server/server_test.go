package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/logger"
	"github.com/trendingnow/trends-ingestion-service/internal/metrics"
	"github.com/trendingnow/trends-ingestion-service/internal/models"
	"github.com/trendingnow/trends-ingestion-service/internal/storage"
)

// MockWarehouse is a mock implementation of the Warehouse interface
type MockWarehouse struct {
	mock.Mock
}

func (m *MockWarehouse) Load(ctx context.Context, table string, records []models.TrendRecord) (storage.LoadJob, error) {
	args := m.Called(ctx, table, records)
	job, _ := args.Get(0).(storage.LoadJob)
	return job, args.Error(1)
}

func (m *MockWarehouse) ReadTable(ctx context.Context, table string) ([]models.TrendRecord, error) {
	args := m.Called(ctx, table)
	records, _ := args.Get(0).([]models.TrendRecord)
	return records, args.Error(1)
}

func (m *MockWarehouse) DeleteTable(ctx context.Context, table string) error {
	return m.Called(ctx, table).Error(0)
}

func (m *MockWarehouse) CreateTable(ctx context.Context, table string) error {
	return m.Called(ctx, table).Error(0)
}

func (m *MockWarehouse) Close() error {
	return m.Called().Error(0)
}

func records(n int) []models.TrendRecord {
	start := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	out := make([]models.TrendRecord, n)
	for i := range out {
		out[i] = models.TrendRecord{Query: fmt.Sprintf("q%d", i), StartDate: start.Add(-time.Duration(i) * time.Hour)}
	}
	return out
}

func newTestServer(warehouse storage.Warehouse, status storage.StatusStore) *Server {
	currentTable := func() string { return "trending_now_2026_oct" }
	return NewServer(config.ServerConfig{Port: 0}, warehouse, status, currentTable, metrics.New().Handler(), logger.Nop())
}

func serve(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(new(MockWarehouse), storage.NewMemoryStatusStore())

	rec := serve(s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleStatus(t *testing.T) {
	status := storage.NewMemoryStatusStore()
	require.NoError(t, status.UpdateIngestionStatus(context.Background(), models.IngestionStatus{
		RunID:           "run-1",
		Status:          models.StatusSuccess,
		Table:           "trending_now_2026_oct",
		RecordsIngested: 42,
	}))
	s := newTestServer(new(MockWarehouse), status)

	rec := serve(s, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body models.IngestionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, 42, body.RecordsIngested)
}

func TestHandleTrends(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantCount  int
		wantLimit  int
		wantOffset int
		wantFirst  string
	}{
		{name: "defaults", target: "/trends", wantCount: 10, wantLimit: 10, wantOffset: 0, wantFirst: "q0"},
		{name: "paged", target: "/trends?limit=5&offset=20", wantCount: 5, wantLimit: 5, wantOffset: 20, wantFirst: "q20"},
		{name: "tail", target: "/trends?limit=10&offset=22", wantCount: 3, wantLimit: 10, wantOffset: 22, wantFirst: "q22"},
		{name: "past end", target: "/trends?offset=100", wantCount: 0, wantLimit: 10, wantOffset: 25},
		{name: "invalid values", target: "/trends?limit=abc&offset=-3", wantCount: 10, wantLimit: 10, wantOffset: 0, wantFirst: "q0"},
		{name: "capped limit", target: "/trends?limit=5000", wantCount: 25, wantLimit: 1000, wantOffset: 0, wantFirst: "q0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warehouse := new(MockWarehouse)
			warehouse.On("ReadTable", mock.Anything, "trending_now_2026_oct").Return(records(25), nil)
			s := newTestServer(warehouse, storage.NewMemoryStatusStore())

			rec := serve(s, tt.target)

			require.Equal(t, http.StatusOK, rec.Code)
			var body struct {
				Table  string               `json:"table"`
				Trends []models.TrendRecord `json:"trends"`
				Count  int                  `json:"count"`
				Total  int                  `json:"total"`
				Limit  int                  `json:"limit"`
				Offset int                  `json:"offset"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "trending_now_2026_oct", body.Table)
			assert.Equal(t, tt.wantCount, body.Count)
			assert.Len(t, body.Trends, tt.wantCount)
			assert.Equal(t, 25, body.Total)
			assert.Equal(t, tt.wantLimit, body.Limit)
			assert.Equal(t, tt.wantOffset, body.Offset)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, body.Trends[0].Query)
			}
		})
	}
}

func TestHandleTrends_TableNotFound(t *testing.T) {
	warehouse := new(MockWarehouse)
	warehouse.On("ReadTable", mock.Anything, "trending_now_2026_oct").
		Return(nil, fmt.Errorf("failed to query: %w", storage.ErrTableNotFound))
	s := newTestServer(warehouse, storage.NewMemoryStatusStore())

	rec := serve(s, "/trends")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "trending_now_2026_oct")
}

func TestHandleTrends_WarehouseError(t *testing.T) {
	warehouse := new(MockWarehouse)
	warehouse.On("ReadTable", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	s := newTestServer(warehouse, storage.NewMemoryStatusStore())

	rec := serve(s, "/trends")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(new(MockWarehouse), storage.NewMemoryStatusStore())

	rec := serve(s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trends_ingest_runs_total")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(s, "/posts")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
