package adfpipelines

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob"
	"github.com/bschooled/BigQuery-to-AzureBlob/datafactory"
)

func testInput() Input {
	return Input{
		Tables: []*bigqueryblob.Table{
			{Dataset: "analytics", TableName: "clicks", Format: bigqueryblob.FileFormatJSON},
			{Dataset: "sales", TableName: "orders", Format: bigqueryblob.FileFormatParquet},
		},
		BigQueryLinkedService: "bq_linked_service",
		BlobLinkedService:     "blob_linked_service",
	}
}

func TestGenerateDatasets(t *testing.T) {
	set, err := Generate(testInput())
	require.NoError(t, err)

	// Three datasets per table, in registry order.
	require.Len(t, set.Datasets, 6)
	require.Equal(t, "bq_analytics_clicks", set.Datasets[0].Name)
	require.Equal(t, "blob_analytics_clicks_json", set.Datasets[1].Name)
	require.Equal(t, "blob_analytics_clicks_parquet", set.Datasets[2].Name)

	source := set.Datasets[0]
	require.Equal(t, datafactory.DatasetTypeGoogleBigQueryObject, source.Properties.Type)
	require.Equal(t, "bq_linked_service", source.Properties.LinkedServiceName.ReferenceName)
	require.Equal(t, datafactory.GoogleBigQueryDatasetTypeProperties{
		Dataset: "analytics",
		Table:   "clicks",
	}, source.Properties.TypeProperties)

	jsonSink := set.Datasets[1]
	require.Equal(t, datafactory.DatasetTypeJSON, jsonSink.Properties.Type)
	require.Equal(t, "blob_linked_service", jsonSink.Properties.LinkedServiceName.ReferenceName)
	jsonProps := jsonSink.Properties.TypeProperties.(datafactory.JSONDatasetTypeProperties)
	require.Equal(t, "analytics-clicks", jsonProps.Location.Container)
	require.Equal(t, "clicks.json", jsonProps.Location.FileName)

	parquetSink := set.Datasets[2]
	parquetProps := parquetSink.Properties.TypeProperties.(datafactory.ParquetDatasetTypeProperties)
	require.Equal(t, "snappy", parquetProps.CompressionCodec)
	require.Equal(t, "clicks.parquet", parquetProps.Location.FileName)
}

func TestGenerateChildPipeline(t *testing.T) {
	set, err := Generate(testInput())
	require.NoError(t, err)

	require.Len(t, set.ChildPipelines, 2)
	child := set.ChildPipelines[1]
	require.Equal(t, "copy_sales_orders", child.Name)

	// The fileType parameter defaults to the table's registry format.
	require.Equal(t, "parquet", child.Properties.Parameters[FileTypeParameter].DefaultValue)

	require.Len(t, child.Properties.Activities, 1)
	branch := child.Properties.Activities[0]
	require.Equal(t, datafactory.ActivityTypeIfCondition, branch.Type)

	props := branch.TypeProperties.(datafactory.IfConditionTypeProperties)
	require.Equal(t, "@equals(toLower(pipeline().parameters.fileType), 'json')", props.Expression.Value)

	require.Len(t, props.IfTrueActivities, 1)
	jsonCopy := props.IfTrueActivities[0]
	require.Equal(t, datafactory.ActivityTypeCopy, jsonCopy.Type)
	require.Equal(t, "bq_sales_orders", jsonCopy.Inputs[0].ReferenceName)
	require.Equal(t, "blob_sales_orders_json", jsonCopy.Outputs[0].ReferenceName)
	require.Equal(t, datafactory.CopyTypeProperties{
		Source: datafactory.CopySource{Type: datafactory.CopySourceTypeGoogleBigQuery},
		Sink:   datafactory.CopySink{Type: datafactory.CopySinkTypeJSON},
	}, jsonCopy.TypeProperties)
	require.Equal(t, "0.00:30:00", jsonCopy.Policy.Timeout)
	require.Equal(t, 1, jsonCopy.Policy.Retry)
	require.Equal(t, 30, jsonCopy.Policy.RetryIntervalInSeconds)

	require.Len(t, props.IfFalseActivities, 1)
	parquetCopy := props.IfFalseActivities[0]
	require.Equal(t, "blob_sales_orders_parquet", parquetCopy.Outputs[0].ReferenceName)
}

func TestGenerateMasterPipeline(t *testing.T) {
	set, err := Generate(testInput())
	require.NoError(t, err)

	master := set.Master
	require.Equal(t, DefaultMasterPipelineName, master.Name)
	require.Equal(t, "json", master.Properties.Parameters[FileTypeParameter].DefaultValue)
	require.Len(t, master.Properties.Activities, 2)

	first := master.Properties.Activities[0]
	require.Equal(t, datafactory.ActivityTypeExecutePipeline, first.Type)
	require.Empty(t, first.DependsOn)
	firstProps := first.TypeProperties.(datafactory.ExecutePipelineTypeProperties)
	require.Equal(t, "copy_analytics_clicks", firstProps.Pipeline.ReferenceName)
	require.True(t, firstProps.WaitOnCompletion)
	require.Equal(t, "@pipeline().parameters.fileType", firstProps.Parameters[FileTypeParameter])

	// Activity N depends on activity N-1 with condition Succeeded.
	second := master.Properties.Activities[1]
	require.Equal(t, []datafactory.ActivityDependency{
		{
			Activity:             first.Name,
			DependencyConditions: []string{datafactory.DependencyConditionSucceeded},
		},
	}, second.DependsOn)
}

func TestGenerateEveryReferencedDatasetIsInTheSet(t *testing.T) {
	set, err := Generate(testInput())
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, dataset := range set.Datasets {
		names[dataset.Name] = true
	}
	for _, child := range set.ChildPipelines {
		props := child.Properties.Activities[0].TypeProperties.(datafactory.IfConditionTypeProperties)
		for _, copies := range [][]datafactory.Activity{props.IfTrueActivities, props.IfFalseActivities} {
			for _, copyActivity := range copies {
				for _, ref := range append(copyActivity.Inputs, copyActivity.Outputs...) {
					require.True(t, names[ref.ReferenceName], "dataset %s referenced by %s is not in the set", ref.ReferenceName, child.Name)
				}
			}
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := Generate(testInput())
	require.NoError(t, err)
	second, err := Generate(testInput())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGenerateValidation(t *testing.T) {
	input := testInput()
	input.Tables = nil
	_, err := Generate(input)
	require.Error(t, err)

	input = testInput()
	input.BlobLinkedService = ""
	_, err = Generate(input)
	require.Error(t, err)

	input = testInput()
	input.MasterPipelineName = "bad/name"
	_, err = Generate(input)
	require.Error(t, err)
	require.Contains(t, err.Error(), "contains a character")

	input = testInput()
	input.MasterPipelineName = strings.Repeat("m", 141)
	_, err = Generate(input)
	require.Error(t, err)
}

func TestWriteDefinitions(t *testing.T) {
	set, err := Generate(testInput())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteDefinitions(dir, set))

	contents, err := os.ReadFile(filepath.Join(dir, "pipelines", DefaultMasterPipelineName+".json"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(contents), "\n"))
	require.Contains(t, string(contents), `"referenceName": "copy_analytics_clicks"`)

	_, err = os.Stat(filepath.Join(dir, "datasets", "bq_sales_orders.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "pipelines", "copy_sales_orders.json"))
	require.NoError(t, err)
}
