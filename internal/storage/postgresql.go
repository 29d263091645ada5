package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

// undefinedTable is the PostgreSQL SQLSTATE for a missing relation
const undefinedTable = "42P01"

// PostgreSQLWarehouse implements Warehouse with one PostgreSQL schema per dataset
type PostgreSQLWarehouse struct {
	db     *sql.DB
	schema string
}

// NewPostgreSQLWarehouse creates a new PostgreSQL warehouse instance
func NewPostgreSQLWarehouse(ctx context.Context, cfg config.WarehouseConfig) (*PostgreSQLWarehouse, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	w := &PostgreSQLWarehouse{db: db, schema: cfg.Dataset}

	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(w.schema)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema %s: %w", w.schema, err)
	}

	return w, nil
}

// Load appends records to table inside one transaction using COPY
func (p *PostgreSQLWarehouse) Load(ctx context.Context, table string, records []models.TrendRecord) (LoadJob, error) {
	jobID := uuid.NewString()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, p.createTableSQL(table, true)); err != nil {
		return nil, fmt.Errorf("failed to ensure table %s: %w", p.tableID(table), err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(p.schema, table, columnNames()...))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare copy statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err = stmt.ExecContext(ctx, copyValues(rec)...); err != nil {
			return nil, fmt.Errorf("failed to add row to copy: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute copy into %s: %w", p.tableID(table), err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return completedJob{id: jobID}, nil
}

// ReadTable returns every row of table ordered by start_date descending
func (p *PostgreSQLWarehouse) ReadTable(ctx context.Context, table string) ([]models.TrendRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY start_date DESC",
		strings.Join(columnNames(), ", "), p.tableID(table))

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, p.wrapErr(table, "query", err)
	}
	defer rows.Close()

	var records []models.TrendRecord
	for rows.Next() {
		var row postgresRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", p.tableID(table), err)
		}
		records = append(records, row.toRecord())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows of %s: %w", p.tableID(table), err)
	}

	return records, nil
}

// DeleteTable drops table
func (p *PostgreSQLWarehouse) DeleteTable(ctx context.Context, table string) error {
	if _, err := p.db.ExecContext(ctx, "DROP TABLE "+p.tableID(table)); err != nil {
		return p.wrapErr(table, "delete", err)
	}
	return nil
}

// CreateTable creates table with the trend columns
func (p *PostgreSQLWarehouse) CreateTable(ctx context.Context, table string) error {
	if _, err := p.db.ExecContext(ctx, p.createTableSQL(table, false)); err != nil {
		return p.wrapErr(table, "create", err)
	}
	return nil
}

// Close closes the database connection pool
func (p *PostgreSQLWarehouse) Close() error {
	return p.db.Close()
}

func (p *PostgreSQLWarehouse) tableID(table string) string {
	return pq.QuoteIdentifier(p.schema) + "." + pq.QuoteIdentifier(table)
}

func (p *PostgreSQLWarehouse) createTableSQL(table string, ifNotExists bool) string {
	defs := make([]string, len(TrendColumns))
	for i, col := range TrendColumns {
		defs[i] = pq.QuoteIdentifier(col.Name) + " " + col.PostgresType
	}

	create := "CREATE TABLE "
	if ifNotExists {
		create += "IF NOT EXISTS "
	}
	return create + p.tableID(table) + " (" + strings.Join(defs, ", ") + ")"
}

func (p *PostgreSQLWarehouse) wrapErr(table, op string, err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("failed to %s %s: %w: %w", op, p.tableID(table), ErrTableNotFound, err)
	}
	return fmt.Errorf("failed to %s %s: %w", op, p.tableID(table), err)
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
}

// copyValues orders a record's fields as columnNames, with untyped nils for
// absent optional values
func copyValues(rec models.TrendRecord) []interface{} {
	var endDate, volume, increase interface{}
	if rec.EndDate != nil {
		endDate = rec.EndDate.UTC()
	}
	if rec.SearchVolume != nil {
		volume = *rec.SearchVolume
	}
	if rec.IncreasePercentage != nil {
		increase = *rec.IncreasePercentage
	}

	return []interface{}{
		rec.Query, rec.StartDate.UTC(), endDate, rec.Active,
		volume, increase, rec.Categories, rec.TrendBreakdown,
	}
}

// postgresRow holds one scanned trend row; optional columns may be NULL
type postgresRow struct {
	query      string
	startDate  time.Time
	endDate    sql.NullTime
	active     sql.NullBool
	volume     sql.NullInt64
	increase   sql.NullInt64
	categories sql.NullString
	breakdown  sql.NullString
}

func (r *postgresRow) dest() []interface{} {
	return []interface{}{
		&r.query, &r.startDate, &r.endDate, &r.active,
		&r.volume, &r.increase, &r.categories, &r.breakdown,
	}
}

func (r postgresRow) toRecord() models.TrendRecord {
	rec := models.TrendRecord{
		Query:          r.query,
		StartDate:      r.startDate.UTC(),
		Active:         r.active.Valid && r.active.Bool,
		Categories:     r.categories.String,
		TrendBreakdown: r.breakdown.String,
	}
	if r.endDate.Valid {
		end := r.endDate.Time.UTC()
		rec.EndDate = &end
	}
	if r.volume.Valid {
		v := r.volume.Int64
		rec.SearchVolume = &v
	}
	if r.increase.Valid {
		v := r.increase.Int64
		rec.IncreasePercentage = &v
	}
	return rec
}
