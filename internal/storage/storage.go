package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

// ErrTableNotFound is returned when a warehouse table does not exist
var ErrTableNotFound = errors.New("table not found")

// LoadJob is a submitted warehouse load
type LoadJob interface {
	ID() string
	// Poll reports whether the job finished; a finished job that failed
	// returns done=true and its error
	Poll(ctx context.Context) (done bool, err error)
}

// Warehouse is the contract for monthly trend tables
type Warehouse interface {
	// Load appends records to table, creating it with the trend schema if needed
	Load(ctx context.Context, table string, records []models.TrendRecord) (LoadJob, error)
	// ReadTable returns every row ordered by start_date descending
	ReadTable(ctx context.Context, table string) ([]models.TrendRecord, error)
	DeleteTable(ctx context.Context, table string) error
	CreateTable(ctx context.Context, table string) error
	Close() error
}

// StatusStore persists the outcome of the latest ingestion run
type StatusStore interface {
	UpdateIngestionStatus(ctx context.Context, status models.IngestionStatus) error
	GetIngestionStatus(ctx context.Context) (*models.IngestionStatus, error)
	Close() error
}

// NewWarehouse creates a new warehouse instance based on configuration
func NewWarehouse(ctx context.Context, cfg config.WarehouseConfig) (Warehouse, error) {
	switch cfg.Type {
	case "bigquery":
		return NewBigQueryWarehouse(ctx, cfg)
	case "postgresql":
		return NewPostgreSQLWarehouse(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported warehouse type: %s", cfg.Type)
	}
}

// NewStatusStore creates a new status store based on configuration
func NewStatusStore(ctx context.Context, cfg config.StatusConfig) (StatusStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStatusStore(), nil
	case "dynamodb":
		return NewDynamoDBStatusStore(ctx, cfg)
	case "mongodb":
		return NewMongoDBStatusStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported status store type: %s", cfg.Type)
	}
}

// completedJob is a LoadJob that finished synchronously
type completedJob struct {
	id  string
	err error
}

func (j completedJob) ID() string { return j.id }

func (j completedJob) Poll(context.Context) (bool, error) { return true, j.err }
