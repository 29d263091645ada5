package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/logger"
	"github.com/trendingnow/trends-ingestion-service/internal/metrics"
	"github.com/trendingnow/trends-ingestion-service/internal/models"
	"github.com/trendingnow/trends-ingestion-service/internal/storage"
)

// Fetcher retrieves trending searches from the trends provider
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.TrendingSearch, error)
}

// RunResult summarizes one ingestion run. Fetched counts provider records,
// including the Skipped ones that had no query.
type RunResult struct {
	RunID             string
	Table             string
	Fetched           int
	Skipped           int
	RolloverRows      int
	ReadBack          int
	DuplicatesRemoved int
	Loaded            int
}

// Service appends trending searches to the monthly table and rebuilds it
type Service struct {
	config    config.IngestionConfig
	fetcher   Fetcher
	warehouse storage.Warehouse
	status    storage.StatusStore
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a new ingestion service
func NewService(cfg config.IngestionConfig, fetcher Fetcher, warehouse storage.Warehouse,
	status storage.StatusStore, m *metrics.Metrics, log *logger.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Service{
		config:    cfg,
		fetcher:   fetcher,
		warehouse: warehouse,
		status:    status,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Start runs an ingestion immediately and then on every configured interval.
// Failed runs are logged and the loop keeps going until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	// Perform initial ingestion
	if _, err := s.Run(ctx); err != nil {
		s.log.WithError(err).Error("initial ingestion run failed")
	}

	// Set up periodic ingestion
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				// Log error but don't stop the service
				s.log.WithError(err).Error("ingestion run failed")
			}
		}
	}
}

// CurrentTable returns the name of this month's table
func (s *Service) CurrentTable() string {
	return TableName(s.config.TablePrefix, s.now().In(s.config.Location))
}

// Run performs one fetch, append, and table rebuild
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	started := s.now()
	local := started.In(s.config.Location)

	result := &RunResult{
		RunID: uuid.NewString(),
		Table: TableName(s.config.TablePrefix, local),
	}
	log := s.log.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"table":  result.Table,
	})

	status := models.IngestionStatus{
		RunID:       result.RunID,
		LastAttempt: started,
		Status:      models.StatusRunning,
		Table:       result.Table,
	}
	if prev, err := s.status.GetIngestionStatus(ctx); err == nil {
		status.LastSuccessfulRun = prev.LastSuccessfulRun
	}
	s.updateStatus(ctx, log, status)

	err := s.ingest(ctx, log, local, result)
	finished := s.now()

	status.RecordsIngested = result.Loaded
	status.DuplicatesRemoved = result.DuplicatesRemoved

	if err != nil {
		status.Status = models.StatusFailure
		status.ErrorMessage = err.Error()
		s.updateStatus(ctx, log, status)
		s.metrics.ObserveRun(metrics.OutcomeFailure, started, finished)
		return result, err
	}

	status.Status = models.StatusSuccess
	status.LastSuccessfulRun = finished
	s.updateStatus(ctx, log, status)
	s.metrics.ObserveRun(metrics.OutcomeSuccess, started, finished)

	log.WithFields(map[string]interface{}{
		"fetched":            result.Fetched,
		"rollover_rows":      result.RolloverRows,
		"read_back":          result.ReadBack,
		"duplicates_removed": result.DuplicatesRemoved,
		"loaded":             result.Loaded,
		"duration":           finished.Sub(started).String(),
	}).Info("trending now data retrieved, saved, and rebuilt")

	return result, nil
}

func (s *Service) ingest(ctx context.Context, log *logger.Logger, now time.Time, result *RunResult) error {
	searches, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch trending searches: %w", err)
	}
	result.Fetched = len(searches)
	s.metrics.RecordsFetched.Add(float64(len(searches)))

	records, skipped := transformSearches(searches)
	result.Skipped = skipped
	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("dropped trending searches without a query")
	}

	if now.Day() == 1 {
		rolled, err := s.rollover(ctx, log, now, result.Table, records)
		if err != nil {
			log.WithError(err).Error("error during 1st-of-month load")
		}
		result.RolloverRows = rolled
	} else {
		if err := s.appendRecords(ctx, log, result.Table, records); err != nil {
			return fmt.Errorf("failed to append to %s: %w", result.Table, err)
		}
		log.WithField("rows", len(records)).Info("normal load completed")
	}

	return s.rebuild(ctx, log, result)
}

// rollover prepends last month's rows to the batch before appending it
func (s *Service) rollover(ctx context.Context, log *logger.Logger, now time.Time, table string, records []models.TrendRecord) (int, error) {
	prevTable := PreviousTableName(s.config.TablePrefix, now)
	batch := records

	prev, err := s.warehouse.ReadTable(ctx, prevTable)
	switch {
	case errors.Is(err, storage.ErrTableNotFound):
		log.WithField("previous_table", prevTable).Info("no previous month table found, skipping append")
		prev = nil
	case err != nil:
		return 0, fmt.Errorf("failed to read previous month table %s: %w", prevTable, err)
	default:
		batch = make([]models.TrendRecord, 0, len(prev)+len(records))
		batch = append(batch, prev...)
		batch = append(batch, records...)
		log.WithFields(map[string]interface{}{
			"previous_table": prevTable,
			"rows":           len(prev),
		}).Info("appended rows from previous month table")
	}

	if err := s.appendRecords(ctx, log, table, batch); err != nil {
		return 0, fmt.Errorf("failed to append to %s: %w", table, err)
	}

	s.metrics.RolloverRows.Add(float64(len(prev)))
	log.WithField("rows", len(batch)).Info("all data loaded")

	return len(prev), nil
}

// rebuild reads the table back, drops it, and reloads it deduplicated under
// the fixed schema. Between delete and reload the table does not exist.
func (s *Service) rebuild(ctx context.Context, log *logger.Logger, result *RunResult) error {
	table := result.Table

	data, err := s.warehouse.ReadTable(ctx, table)
	switch {
	case errors.Is(err, storage.ErrTableNotFound):
		// Nothing was appended yet this month; create the table empty
		log.Info("table does not exist yet, nothing to rebuild")
		if err := s.warehouse.CreateTable(ctx, table); err != nil {
			log.WithError(err).Error("table creation failed")
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to read back %s: %w", table, err)
	}
	result.ReadBack = len(data)
	log.WithField("rows", len(data)).Info("read back table")

	if err := s.warehouse.DeleteTable(ctx, table); err != nil {
		return fmt.Errorf("failed to delete %s: %w", table, err)
	}
	log.Info("table deleted")

	unique, removed := dedupe(data)
	result.DuplicatesRemoved = removed
	s.metrics.DuplicatesRemoved.Add(float64(removed))
	log.WithField("duplicates", removed).Info("removed duplicate records")

	if err := s.warehouse.CreateTable(ctx, table); err != nil {
		log.WithError(err).Error("table creation failed")
	} else {
		log.Info("table created")
	}

	if len(unique) == 0 {
		log.Warn("no rows to reload")
		return nil
	}

	if err := s.load(ctx, table, unique); err != nil {
		return fmt.Errorf("failed to reload %s: %w", table, err)
	}
	result.Loaded = len(unique)
	s.metrics.RowsLoaded.Add(float64(len(unique)))

	return nil
}

func (s *Service) appendRecords(ctx context.Context, log *logger.Logger, table string, records []models.TrendRecord) error {
	if len(records) == 0 {
		log.Warn("no records to append")
		return nil
	}
	return s.load(ctx, table, records)
}

func (s *Service) load(ctx context.Context, table string, records []models.TrendRecord) error {
	job, err := s.warehouse.Load(ctx, table, records)
	if err != nil {
		return err
	}
	return s.waitForLoad(ctx, job)
}

func (s *Service) updateStatus(ctx context.Context, log *logger.Logger, status models.IngestionStatus) {
	if err := s.status.UpdateIngestionStatus(ctx, status); err != nil {
		log.WithError(err).Warn("failed to update ingestion status")
	}
}
