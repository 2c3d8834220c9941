package provision

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/hashicorp/go-multierror"
	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob"
	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

// ContainerCreator is the slice of azblob.Client the materializer needs.
type ContainerCreator interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
}

// ContainerReport lists the outcome of a materializer run in registry order.
type ContainerReport struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
}

// EnsureContainers creates one blob container per registry table. A
// container that already exists counts as success. Per-container failures
// are collected and the remaining tables still get their containers; the
// accumulated error is returned at the end alongside the partial report.
func EnsureContainers(ctx context.Context, client ContainerCreator, tables []*bigqueryblob.Table) (*ContainerReport, error) {
	report := &ContainerReport{}
	var collectedErrors *multierror.Error

	for _, table := range tables {
		name, err := table.ContainerName()
		if err != nil {
			collectedErrors = multierror.Append(collectedErrors, oops.Wrapf(err, ""))
			continue
		}

		_, err = client.CreateContainer(ctx, name, nil)
		if err != nil {
			var respErr *azcore.ResponseError
			if errors.As(err, &respErr) && respErr.ErrorCode == "ContainerAlreadyExists" {
				slog.Debugw(ctx, "container already exists", "container", name)
				report.Existing = append(report.Existing, name)
				continue
			}
			collectedErrors = multierror.Append(collectedErrors,
				oops.Wrapf(err, "error creating container %s for table %s", name, table.BigQueryTableID()))
			continue
		}

		slog.Infow(ctx, "created container", "container", name, "table", table.BigQueryTableID())
		report.Created = append(report.Created, name)
	}

	if err := collectedErrors.ErrorOrNil(); err != nil {
		return report, oops.Wrapf(err, "failed to create %d of %d containers",
			len(collectedErrors.Errors), len(tables))
	}
	return report, nil
}
