package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

// bigQueryTimestamp is the canonical TIMESTAMP text accepted by JSON loads
const bigQueryTimestamp = "2006-01-02 15:04:05.000000 UTC"

// BigQueryWarehouse implements Warehouse using Google BigQuery
type BigQueryWarehouse struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewBigQueryWarehouse creates a new BigQuery warehouse instance
func NewBigQueryWarehouse(ctx context.Context, cfg config.WarehouseConfig) (*BigQueryWarehouse, error) {
	var opts []option.ClientOption

	// For local testing with a BigQuery emulator
	if cfg.BigQueryEndpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.BigQueryEndpoint), option.WithoutAuthentication())
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}

	return &BigQueryWarehouse{
		client:  client,
		project: cfg.Project,
		dataset: cfg.Dataset,
	}, nil
}

// bigQueryRow mirrors the trend table; every column is nullable on read
type bigQueryRow struct {
	Query              bigquery.NullString    `bigquery:"query"`
	StartDate          bigquery.NullTimestamp `bigquery:"start_date"`
	EndDate            bigquery.NullTimestamp `bigquery:"end_date"`
	Active             bigquery.NullBool      `bigquery:"active"`
	SearchVolume       bigquery.NullInt64     `bigquery:"search_volume"`
	IncreasePercentage bigquery.NullInt64     `bigquery:"increase_percentage"`
	Categories         bigquery.NullString    `bigquery:"categories"`
	TrendBreakdown     bigquery.NullString    `bigquery:"trend_breakdown"`
}

func (r bigQueryRow) toRecord() models.TrendRecord {
	rec := models.TrendRecord{
		Query:          r.Query.StringVal,
		Active:         r.Active.Valid && r.Active.Bool,
		Categories:     r.Categories.StringVal,
		TrendBreakdown: r.TrendBreakdown.StringVal,
	}
	if r.StartDate.Valid {
		rec.StartDate = r.StartDate.Timestamp.UTC()
	}
	if r.EndDate.Valid {
		end := r.EndDate.Timestamp.UTC()
		rec.EndDate = &end
	}
	if r.SearchVolume.Valid {
		v := r.SearchVolume.Int64
		rec.SearchVolume = &v
	}
	if r.IncreasePercentage.Valid {
		v := r.IncreasePercentage.Int64
		rec.IncreasePercentage = &v
	}
	return rec
}

// loadRow is the newline-delimited JSON shape of a trend row
type loadRow struct {
	Query              string  `json:"query"`
	StartDate          string  `json:"start_date"`
	EndDate            *string `json:"end_date"`
	Active             bool    `json:"active"`
	SearchVolume       *int64  `json:"search_volume"`
	IncreasePercentage *int64  `json:"increase_percentage"`
	Categories         string  `json:"categories"`
	TrendBreakdown     string  `json:"trend_breakdown"`
}

func newLoadRow(rec models.TrendRecord) loadRow {
	row := loadRow{
		Query:              rec.Query,
		StartDate:          rec.StartDate.UTC().Format(bigQueryTimestamp),
		Active:             rec.Active,
		SearchVolume:       rec.SearchVolume,
		IncreasePercentage: rec.IncreasePercentage,
		Categories:         rec.Categories,
		TrendBreakdown:     rec.TrendBreakdown,
	}
	if rec.EndDate != nil {
		end := rec.EndDate.UTC().Format(bigQueryTimestamp)
		row.EndDate = &end
	}
	return row
}

func encodeNDJSON(w io.Writer, records []models.TrendRecord) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(newLoadRow(rec)); err != nil {
			return err
		}
	}
	return nil
}

// Load starts an append load job into table
func (b *BigQueryWarehouse) Load(ctx context.Context, table string, records []models.TrendRecord) (LoadJob, error) {
	var buf bytes.Buffer
	if err := encodeNDJSON(&buf, records); err != nil {
		return nil, fmt.Errorf("failed to encode rows for %s: %w", table, err)
	}

	source := bigquery.NewReaderSource(&buf)
	source.SourceFormat = bigquery.JSON
	source.Schema = TrendSchema()

	loader := b.client.Dataset(b.dataset).Table(table).LoaderFrom(source)
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteAppend

	job, err := loader.Run(ctx)
	if err != nil {
		return nil, b.wrapErr(table, "start load into", err)
	}

	return &bigQueryJob{job: job}, nil
}

// ReadTable queries every row of table
func (b *BigQueryWarehouse) ReadTable(ctx context.Context, table string) ([]models.TrendRecord, error) {
	q := b.client.Query(fmt.Sprintf("SELECT * FROM `%s` ORDER BY start_date DESC", b.tableID(table)))
	q.QueryConfig.UseLegacySQL = false

	it, err := q.Read(ctx)
	if err != nil {
		return nil, b.wrapErr(table, "query", err)
	}

	var records []models.TrendRecord
	for {
		var row bigQueryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, b.wrapErr(table, "read rows of", err)
		}
		records = append(records, row.toRecord())
	}

	return records, nil
}

// DeleteTable drops table
func (b *BigQueryWarehouse) DeleteTable(ctx context.Context, table string) error {
	if err := b.client.Dataset(b.dataset).Table(table).Delete(ctx); err != nil {
		return b.wrapErr(table, "delete", err)
	}
	return nil
}

// CreateTable creates table with the trend schema
func (b *BigQueryWarehouse) CreateTable(ctx context.Context, table string) error {
	meta := &bigquery.TableMetadata{Schema: TrendSchema()}
	if err := b.client.Dataset(b.dataset).Table(table).Create(ctx, meta); err != nil {
		return b.wrapErr(table, "create", err)
	}
	return nil
}

// Close closes the BigQuery client
func (b *BigQueryWarehouse) Close() error {
	return b.client.Close()
}

func (b *BigQueryWarehouse) tableID(table string) string {
	return fmt.Sprintf("%s.%s.%s", b.project, b.dataset, table)
}

func (b *BigQueryWarehouse) wrapErr(table, op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("failed to %s %s: %w: %w", op, b.tableID(table), ErrTableNotFound, err)
	}
	return fmt.Errorf("failed to %s %s: %w", op, b.tableID(table), err)
}

// isNotFound matches both the API's 404 and a job error with reason notFound
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return true
	}
	var jobErr *bigquery.Error
	return errors.As(err, &jobErr) && jobErr.Reason == "notFound"
}

// bigQueryJob adapts a BigQuery job to LoadJob
type bigQueryJob struct {
	job *bigquery.Job
}

func (j *bigQueryJob) ID() string {
	return j.job.ID()
}

func (j *bigQueryJob) Poll(ctx context.Context) (bool, error) {
	status, err := j.job.Status(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get status of job %s: %w", j.job.ID(), err)
	}
	if !status.Done() {
		return false, nil
	}
	return true, status.Err()
}
