package bigqueryblob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeContainerName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "already valid",
			input: "analytics-events",
			want:  "analytics-events",
		},
		{
			name:  "uppercase and underscores",
			input: "Analytics_Daily_Events",
			want:  "analytics-daily-events",
		},
		{
			name:  "run of invalid characters collapses",
			input: "events...2024__raw",
			want:  "events-2024-raw",
		},
		{
			name:  "leading and trailing junk trimmed",
			input: "__events__",
			want:  "events",
		},
		{
			name:  "truncates to 63 without trailing dash",
			input: strings.Repeat("a", 62) + "_b",
			want:  strings.Repeat("a", 62),
		},
		{
			name:    "sanitizes to nothing",
			input:   "_.!",
			wantErr: true,
		},
		{
			name:    "too short after sanitizing",
			input:   "ab",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeContainerName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTableNames(t *testing.T) {
	table := &Table{Dataset: "analytics", TableName: "page_views", Format: FileFormatParquet}

	require.Equal(t, "analytics.page_views", table.BigQueryTableID())
	require.Equal(t, "copy_analytics_page_views", table.ChildPipelineName())
	require.Equal(t, "bq_analytics_page_views", table.SourceDatasetName())
	require.Equal(t, "blob_analytics_page_views_json", table.SinkDatasetName(FileFormatJSON))
	require.Equal(t, "blob_analytics_page_views_parquet", table.SinkDatasetName(FileFormatParquet))

	container, err := table.ContainerName()
	require.NoError(t, err)
	require.Equal(t, "analytics-page-views", container)
}

func writeRegistry(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, strings.Join([]string{
		"dataset,table,format,description",
		"sales,orders,parquet,Order lines",
		"analytics,page_views,,Raw page views",
		"analytics,clicks,json,",
	}, "\n"))

	tables, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, tables, 3)

	// Sorted by dataset then table regardless of CSV row order.
	require.Equal(t, "analytics.clicks", tables[0].BigQueryTableID())
	require.Equal(t, "analytics.page_views", tables[1].BigQueryTableID())
	require.Equal(t, "sales.orders", tables[2].BigQueryTableID())

	require.Equal(t, FileFormatJSON, tables[0].Format)
	require.Equal(t, FileFormatJSON, tables[1].Format) // blank defaults to json
	require.Equal(t, FileFormatParquet, tables[2].Format)
	require.Equal(t, "Order lines", tables[2].Description)
}

func TestLoadRegistryColumnOrderAndBOM(t *testing.T) {
	// BOM-prefixed CRLF file with reordered columns, as Excel produces.
	path := writeRegistry(t, "\ufefftable,format,dataset\r\norders,json,sales\r\n")

	tables, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, "sales.orders", tables[0].BigQueryTableID())
}

func TestLoadRegistryErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			name:     "missing table column",
			contents: "dataset,format\nsales,json\n",
			wantErr:  "missing the table column",
		},
		{
			name:     "blank dataset cell",
			contents: "dataset,table\n,orders\n",
			wantErr:  "dataset and table must both be set",
		},
		{
			name:     "bad format",
			contents: "dataset,table,format\nsales,orders,avro\n",
			wantErr:  "unknown file format",
		},
		{
			name:     "duplicate table",
			contents: "dataset,table\nsales,orders\nsales,orders\n",
			wantErr:  "already declared",
		},
		{
			name:     "container collision",
			contents: "dataset,table\nsales,daily_orders\nsales,daily.orders\n",
			wantErr:  "both sanitize to container",
		},
		{
			name:     "header only",
			contents: "dataset,table\n",
			wantErr:  "no table rows",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry(writeRegistry(t, tt.contents))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
