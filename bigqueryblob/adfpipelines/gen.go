// Package adfpipelines generates the Data Factory definitions for the
// BigQuery-to-blob fan-out: per-table source and sink datasets, per-table
// child pipelines with the JSON/Parquet branch, and the master pipeline that
// invokes every child in sequence.
//
// Generation is pure: the same registry and linked-service names always
// produce byte-identical definitions, so the output can be exported and
// diffed in source control.
package adfpipelines

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob"
	"github.com/bschooled/BigQuery-to-AzureBlob/datafactory"
)

const (
	// DefaultMasterPipelineName names the parent pipeline unless the
	// operator overrides it.
	DefaultMasterPipelineName = "master_bigquery_to_blob"

	// FileTypeParameter is the pipeline parameter selecting json or parquet
	// output, declared on the master and forwarded to every child.
	FileTypeParameter = "fileType"

	// pipelineFolder groups the generated pipelines in the factory UI.
	pipelineFolder = "bigquery-to-blob"

	// fileTypeExpression routes the child pipeline's conditional branch.
	fileTypeExpression = "@equals(toLower(pipeline().parameters.fileType), 'json')"

	// Copy activity policy: 30 minute timeout, one retry after 30 seconds.
	copyTimeout       = "0.00:30:00"
	copyRetries       = 1
	copyRetryInterval = 30
)

type Input struct {
	Tables []*bigqueryblob.Table

	// BigQueryLinkedService and BlobLinkedService are the resolved linked
	// service names the datasets reference. Both must already exist in the
	// factory.
	BigQueryLinkedService string
	BlobLinkedService     string

	// MasterPipelineName overrides DefaultMasterPipelineName when set.
	MasterPipelineName string
}

// DeploymentSet is everything one deploy pushes, in dependency order:
// datasets first, then child pipelines, then the master.
type DeploymentSet struct {
	Datasets       []*datafactory.DatasetResource
	ChildPipelines []*datafactory.PipelineResource
	Master         *datafactory.PipelineResource
}

// Generate builds the full deployment set for the registry. Tables are
// processed in registry order, which LoadRegistry has already made
// deterministic.
func Generate(input Input) (*DeploymentSet, error) {
	if len(input.Tables) == 0 {
		return nil, oops.Errorf("no tables to generate pipelines for")
	}
	if input.BigQueryLinkedService == "" || input.BlobLinkedService == "" {
		return nil, oops.Errorf("BigQuery and blob linked service names must both be set")
	}

	masterName := input.MasterPipelineName
	if masterName == "" {
		masterName = DefaultMasterPipelineName
	}

	set := &DeploymentSet{}
	for _, table := range input.Tables {
		datasets, err := generateDatasets(table, input)
		if err != nil {
			return nil, oops.Wrapf(err, "table %s", table.BigQueryTableID())
		}
		set.Datasets = append(set.Datasets, datasets...)

		child, err := generateChildPipeline(table)
		if err != nil {
			return nil, oops.Wrapf(err, "table %s", table.BigQueryTableID())
		}
		set.ChildPipelines = append(set.ChildPipelines, child)
	}

	master, err := generateMasterPipeline(masterName, set.ChildPipelines)
	if err != nil {
		return nil, err
	}
	set.Master = master

	return set, nil
}

// generateDatasets builds the three datasets of one table: the BigQuery
// source and the JSON and Parquet blob sinks. Both sinks always exist
// because the child pipeline can be invoked with either file type at run
// time regardless of the registry default.
func generateDatasets(table *bigqueryblob.Table, input Input) ([]*datafactory.DatasetResource, error) {
	container, err := table.ContainerName()
	if err != nil {
		return nil, oops.Wrapf(err, "")
	}

	source := &datafactory.DatasetResource{
		Name: table.SourceDatasetName(),
		Properties: datafactory.Dataset{
			Type:              datafactory.DatasetTypeGoogleBigQueryObject,
			Description:       fmt.Sprintf("BigQuery table %s", table.BigQueryTableID()),
			LinkedServiceName: datafactory.NewLinkedServiceReference(input.BigQueryLinkedService),
			TypeProperties: datafactory.GoogleBigQueryDatasetTypeProperties{
				Dataset: table.Dataset,
				Table:   table.TableName,
			},
			Folder: &datafactory.Folder{Name: pipelineFolder},
		},
	}

	jsonSink := &datafactory.DatasetResource{
		Name: table.SinkDatasetName(bigqueryblob.FileFormatJSON),
		Properties: datafactory.Dataset{
			Type:              datafactory.DatasetTypeJSON,
			LinkedServiceName: datafactory.NewLinkedServiceReference(input.BlobLinkedService),
			TypeProperties: datafactory.JSONDatasetTypeProperties{
				Location: datafactory.NewAzureBlobStorageLocation(container, table.TableName+".json"),
			},
			Folder: &datafactory.Folder{Name: pipelineFolder},
		},
	}

	parquetSink := &datafactory.DatasetResource{
		Name: table.SinkDatasetName(bigqueryblob.FileFormatParquet),
		Properties: datafactory.Dataset{
			Type:              datafactory.DatasetTypeParquet,
			LinkedServiceName: datafactory.NewLinkedServiceReference(input.BlobLinkedService),
			TypeProperties: datafactory.ParquetDatasetTypeProperties{
				Location:         datafactory.NewAzureBlobStorageLocation(container, table.TableName+".parquet"),
				CompressionCodec: "snappy",
			},
			Folder: &datafactory.Folder{Name: pipelineFolder},
		},
	}

	datasets := []*datafactory.DatasetResource{source, jsonSink, parquetSink}
	for _, dataset := range datasets {
		if err := validateResourceName(dataset.Name); err != nil {
			return nil, oops.Wrapf(err, "dataset")
		}
	}
	return datasets, nil
}

// generateChildPipeline builds the per-table copy pipeline: one fileType
// parameter defaulting to the table's registry format, and one IfCondition
// activity branching between the JSON and Parquet copy activities.
func generateChildPipeline(table *bigqueryblob.Table) (*datafactory.PipelineResource, error) {
	name := table.ChildPipelineName()
	if err := validateResourceName(name); err != nil {
		return nil, oops.Wrapf(err, "child pipeline")
	}

	copyPolicy := &datafactory.ActivityPolicy{
		Timeout:                copyTimeout,
		Retry:                  copyRetries,
		RetryIntervalInSeconds: copyRetryInterval,
	}

	copyToJSON := datafactory.Activity{
		Name:   "copy_to_json",
		Type:   datafactory.ActivityTypeCopy,
		Policy: copyPolicy,
		TypeProperties: datafactory.CopyTypeProperties{
			Source: datafactory.CopySource{Type: datafactory.CopySourceTypeGoogleBigQuery},
			Sink:   datafactory.CopySink{Type: datafactory.CopySinkTypeJSON},
		},
		Inputs:  []datafactory.DatasetReference{datafactory.NewDatasetReference(table.SourceDatasetName())},
		Outputs: []datafactory.DatasetReference{datafactory.NewDatasetReference(table.SinkDatasetName(bigqueryblob.FileFormatJSON))},
	}

	copyToParquet := datafactory.Activity{
		Name:   "copy_to_parquet",
		Type:   datafactory.ActivityTypeCopy,
		Policy: copyPolicy,
		TypeProperties: datafactory.CopyTypeProperties{
			Source: datafactory.CopySource{Type: datafactory.CopySourceTypeGoogleBigQuery},
			Sink:   datafactory.CopySink{Type: datafactory.CopySinkTypeParquet},
		},
		Inputs:  []datafactory.DatasetReference{datafactory.NewDatasetReference(table.SourceDatasetName())},
		Outputs: []datafactory.DatasetReference{datafactory.NewDatasetReference(table.SinkDatasetName(bigqueryblob.FileFormatParquet))},
	}

	return &datafactory.PipelineResource{
		Name: name,
		Properties: datafactory.Pipeline{
			Description: fmt.Sprintf("Copy BigQuery table %s to blob storage", table.BigQueryTableID()),
			Parameters: map[string]datafactory.ParameterSpec{
				FileTypeParameter: {
					Type:         "string",
					DefaultValue: string(table.Format),
				},
			},
			Activities: []datafactory.Activity{
				{
					Name: "route_file_type",
					Type: datafactory.ActivityTypeIfCondition,
					TypeProperties: datafactory.IfConditionTypeProperties{
						Expression:        datafactory.NewExpression(fileTypeExpression),
						IfTrueActivities:  []datafactory.Activity{copyToJSON},
						IfFalseActivities: []datafactory.Activity{copyToParquet},
					},
				},
			},
			Folder: &datafactory.Folder{Name: pipelineFolder},
		},
	}, nil
}

// generateMasterPipeline builds the parent pipeline: one execute-pipeline
// activity per child, chained with Succeeded dependencies so the fan-out is
// strictly sequential and stops at the first failure.
func generateMasterPipeline(name string, children []*datafactory.PipelineResource) (*datafactory.PipelineResource, error) {
	if err := validateResourceName(name); err != nil {
		return nil, oops.Wrapf(err, "master pipeline")
	}

	var activities []datafactory.Activity
	for i, child := range children {
		activity := datafactory.Activity{
			Name: "run_" + child.Name,
			Type: datafactory.ActivityTypeExecutePipeline,
			TypeProperties: datafactory.ExecutePipelineTypeProperties{
				Pipeline: datafactory.NewPipelineReference(child.Name),
				Parameters: map[string]interface{}{
					FileTypeParameter: "@pipeline().parameters.fileType",
				},
				WaitOnCompletion: true,
			},
		}
		if i > 0 {
			activity.DependsOn = []datafactory.ActivityDependency{
				{
					Activity:             activities[i-1].Name,
					DependencyConditions: []string{datafactory.DependencyConditionSucceeded},
				},
			}
		}
		if err := validateResourceName(activity.Name); err != nil {
			return nil, oops.Wrapf(err, "master activity")
		}
		activities = append(activities, activity)
	}

	return &datafactory.PipelineResource{
		Name: name,
		Properties: datafactory.Pipeline{
			Description: "Sequentially copy every registered BigQuery table to blob storage",
			Parameters: map[string]datafactory.ParameterSpec{
				FileTypeParameter: {
					Type:         "string",
					DefaultValue: string(bigqueryblob.DefaultFileFormat),
				},
			},
			Activities: activities,
			Folder:     &datafactory.Folder{Name: pipelineFolder},
		},
	}, nil
}

// invalidResourceNameChars are rejected by the Data Factory control plane in
// pipeline, dataset and activity names.
const invalidResourceNameChars = `<>*#.%&:\+?/`

const maxResourceNameLength = 140

func validateResourceName(name string) error {
	if name == "" {
		return oops.Errorf("resource name is empty")
	}
	if len(name) > maxResourceNameLength {
		return oops.Errorf("resource name %q is longer than %d characters", name, maxResourceNameLength)
	}
	if strings.ContainsAny(name, invalidResourceNameChars) {
		return oops.Errorf("resource name %q contains a character from %q", name, invalidResourceNameChars)
	}
	return nil
}

// WriteDefinitions exports every definition in the set as pretty-printed
// JSON under dir, datasets/<name>.json and pipelines/<name>.json, for review
// or source control.
func WriteDefinitions(dir string, set *DeploymentSet) error {
	datasetDir := filepath.Join(dir, "datasets")
	pipelineDir := filepath.Join(dir, "pipelines")
	for _, d := range []string{datasetDir, pipelineDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return oops.Wrapf(err, "failed to create directories")
		}
	}

	for _, dataset := range set.Datasets {
		if err := writeDefinition(filepath.Join(datasetDir, dataset.Name+".json"), dataset); err != nil {
			return err
		}
	}
	pipelines := append([]*datafactory.PipelineResource{}, set.ChildPipelines...)
	pipelines = append(pipelines, set.Master)
	for _, pipeline := range pipelines {
		if err := writeDefinition(filepath.Join(pipelineDir, pipeline.Name+".json"), pipeline); err != nil {
			return err
		}
	}
	return nil
}

func writeDefinition(path string, definition interface{}) error {
	contents, err := json.MarshalIndent(definition, "", "  ")
	if err != nil {
		return oops.Wrapf(err, "marshal %s", path)
	}
	contents = append(contents, '\n')
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return oops.Wrapf(err, "write %s", path)
	}
	return nil
}
