package storage

import (
	"context"
	"sync"

	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

// MemoryStatusStore keeps the latest status in process memory
type MemoryStatusStore struct {
	mu     sync.RWMutex
	status *models.IngestionStatus
}

// NewMemoryStatusStore creates an empty in-process status store
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{}
}

// UpdateIngestionStatus replaces the stored status
func (m *MemoryStatusStore) UpdateIngestionStatus(_ context.Context, status models.IngestionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = &status
	return nil
}

// GetIngestionStatus returns a copy of the stored status, or never_run
func (m *MemoryStatusStore) GetIngestionStatus(_ context.Context) (*models.IngestionStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.status == nil {
		return &models.IngestionStatus{Status: models.StatusNeverRun}, nil
	}

	status := *m.status
	return &status, nil
}

// Close is a no-op
func (m *MemoryStatusStore) Close() error {
	return nil
}
