package datafactory

import (
	"context"
	"net/http"

	"github.com/samsarahq/go/oops"
)

// Dataset types used by the generated copy activities.
const (
	DatasetTypeGoogleBigQueryObject = "GoogleBigQueryObject"
	DatasetTypeJSON                 = "Json"
	DatasetTypeParquet              = "Parquet"
)

// Dataset is the properties block of a dataset resource. TypeProperties is
// one of the *DatasetTypeProperties structs below, matching Type.
type Dataset struct {
	Type              string                 `json:"type"`
	Description       string                 `json:"description,omitempty"`
	LinkedServiceName LinkedServiceReference `json:"linkedServiceName"`
	TypeProperties    interface{}            `json:"typeProperties,omitempty"`
	Folder            *Folder                `json:"folder,omitempty"`
}

type DatasetResource struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Properties Dataset `json:"properties"`
}

// Folder places a resource in the factory UI tree.
type Folder struct {
	Name string `json:"name"`
}

// DatasetReference is how copy activities point at their input and output
// datasets.
type DatasetReference struct {
	ReferenceName string `json:"referenceName"`
	Type          string `json:"type"`
}

// NewDatasetReference builds a reference to a dataset by name.
func NewDatasetReference(name string) DatasetReference {
	return DatasetReference{
		ReferenceName: name,
		Type:          "DatasetReference",
	}
}

// GoogleBigQueryDatasetTypeProperties binds a source dataset to one BigQuery
// table.
type GoogleBigQueryDatasetTypeProperties struct {
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

// AzureBlobStorageLocation places a sink dataset at a container/path in blob
// storage.
type AzureBlobStorageLocation struct {
	Type       string `json:"type"`
	Container  string `json:"container"`
	FolderPath string `json:"folderPath,omitempty"`
	FileName   string `json:"fileName,omitempty"`
}

// NewAzureBlobStorageLocation builds a blob location for a container and file.
func NewAzureBlobStorageLocation(container, fileName string) AzureBlobStorageLocation {
	return AzureBlobStorageLocation{
		Type:      "AzureBlobStorageLocation",
		Container: container,
		FileName:  fileName,
	}
}

// JSONDatasetTypeProperties is the typeProperties of a Json sink dataset.
type JSONDatasetTypeProperties struct {
	Location AzureBlobStorageLocation `json:"location"`
}

// ParquetDatasetTypeProperties is the typeProperties of a Parquet sink
// dataset.
type ParquetDatasetTypeProperties struct {
	Location         AzureBlobStorageLocation `json:"location"`
	CompressionCodec string                   `json:"compressionCodec,omitempty"`
}

type GetDatasetInput struct {
	Name string
}

type GetDatasetOutput struct {
	DatasetResource
}

type CreateOrUpdateDatasetInput struct {
	Name    string
	Dataset Dataset
}

type CreateOrUpdateDatasetOutput struct {
	DatasetResource
}

type DeleteDatasetInput struct {
	Name string
}

type DeleteDatasetOutput struct {
}

type ListDatasetsInput struct {
}

type ListDatasetsOutput struct {
	Datasets []*DatasetResource
}

type DatasetsAPI interface {
	GetDataset(context.Context, *GetDatasetInput) (*GetDatasetOutput, error)
	CreateOrUpdateDataset(context.Context, *CreateOrUpdateDatasetInput) (*CreateOrUpdateDatasetOutput, error)
	DeleteDataset(context.Context, *DeleteDatasetInput) (*DeleteDatasetOutput, error)
	ListDatasets(context.Context, *ListDatasetsInput) (*ListDatasetsOutput, error)
}

func (c *Client) GetDataset(ctx context.Context, input *GetDatasetInput) (*GetDatasetOutput, error) {
	var output GetDatasetOutput
	if err := c.do(ctx, http.MethodGet, "datasets/"+input.Name, nil, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

// CreateOrUpdateDataset is an upsert: the control plane replaces the whole
// definition regardless of whether the dataset exists.
func (c *Client) CreateOrUpdateDataset(ctx context.Context, input *CreateOrUpdateDatasetInput) (*CreateOrUpdateDatasetOutput, error) {
	payload := DatasetResource{Properties: input.Dataset}
	var output CreateOrUpdateDatasetOutput
	if err := c.do(ctx, http.MethodPut, "datasets/"+input.Name, payload, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

func (c *Client) DeleteDataset(ctx context.Context, input *DeleteDatasetInput) (*DeleteDatasetOutput, error) {
	var output DeleteDatasetOutput
	if err := c.do(ctx, http.MethodDelete, "datasets/"+input.Name, nil, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

func (c *Client) ListDatasets(ctx context.Context, input *ListDatasetsInput) (*ListDatasetsOutput, error) {
	var output ListDatasetsOutput

	next := c.url("datasets")
	for next != "" {
		var page struct {
			Value    []*DatasetResource `json:"value"`
			NextLink string             `json:"nextLink"`
		}
		if err := c.doURL(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, oops.Wrapf(err, "")
		}
		output.Datasets = append(output.Datasets, page.Value...)
		next = page.NextLink
	}

	return &output, nil
}
