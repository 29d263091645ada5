package storage

import "cloud.google.com/go/bigquery"

// Column describes one column of the trend table
type Column struct {
	Name         string
	BigQueryType bigquery.FieldType
	PostgresType string
}

// TrendColumns is the fixed column layout of every monthly trend table
var TrendColumns = []Column{
	{Name: "query", BigQueryType: bigquery.StringFieldType, PostgresType: "TEXT"},
	{Name: "start_date", BigQueryType: bigquery.TimestampFieldType, PostgresType: "TIMESTAMPTZ"},
	{Name: "end_date", BigQueryType: bigquery.TimestampFieldType, PostgresType: "TIMESTAMPTZ"},
	{Name: "active", BigQueryType: bigquery.BooleanFieldType, PostgresType: "BOOLEAN"},
	{Name: "search_volume", BigQueryType: bigquery.IntegerFieldType, PostgresType: "BIGINT"},
	{Name: "increase_percentage", BigQueryType: bigquery.IntegerFieldType, PostgresType: "BIGINT"},
	{Name: "categories", BigQueryType: bigquery.StringFieldType, PostgresType: "TEXT"},
	{Name: "trend_breakdown", BigQueryType: bigquery.StringFieldType, PostgresType: "TEXT"},
}

// TrendSchema returns the BigQuery schema of the trend table
func TrendSchema() bigquery.Schema {
	schema := make(bigquery.Schema, len(TrendColumns))
	for i, col := range TrendColumns {
		schema[i] = &bigquery.FieldSchema{Name: col.Name, Type: col.BigQueryType}
	}
	return schema
}

func columnNames() []string {
	names := make([]string, len(TrendColumns))
	for i, col := range TrendColumns {
		names[i] = col.Name
	}
	return names
}
