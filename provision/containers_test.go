package provision

import (
	"context"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/stretchr/testify/require"

	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob"
)

// fakeContainerCreator records create calls and returns canned errors by
// container name.
type fakeContainerCreator struct {
	calls []string
	errs  map[string]error
}

func (f *fakeContainerCreator) CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error) {
	f.calls = append(f.calls, containerName)
	return azblob.CreateContainerResponse{}, f.errs[containerName]
}

func containerTables(t *testing.T) []*bigqueryblob.Table {
	t.Helper()
	return []*bigqueryblob.Table{
		{Dataset: "analytics", TableName: "clicks"},
		{Dataset: "analytics", TableName: "page_views"},
		{Dataset: "sales", TableName: "orders"},
	}
}

func TestEnsureContainersCreatesAll(t *testing.T) {
	creator := &fakeContainerCreator{}

	report, err := EnsureContainers(context.Background(), creator, containerTables(t))
	require.NoError(t, err)
	require.Equal(t, []string{"analytics-clicks", "analytics-page-views", "sales-orders"}, creator.calls)
	require.Equal(t, creator.calls, report.Created)
	require.Empty(t, report.Existing)
}

func TestEnsureContainersIdempotent(t *testing.T) {
	creator := &fakeContainerCreator{
		errs: map[string]error{
			"analytics-clicks":     &azcore.ResponseError{ErrorCode: "ContainerAlreadyExists", StatusCode: 409},
			"analytics-page-views": &azcore.ResponseError{ErrorCode: "ContainerAlreadyExists", StatusCode: 409},
			"sales-orders":         &azcore.ResponseError{ErrorCode: "ContainerAlreadyExists", StatusCode: 409},
		},
	}

	report, err := EnsureContainers(context.Background(), creator, containerTables(t))
	require.NoError(t, err)
	require.Empty(t, report.Created)
	require.Equal(t, []string{"analytics-clicks", "analytics-page-views", "sales-orders"}, report.Existing)
}

func TestEnsureContainersContinuesPastFailures(t *testing.T) {
	creator := &fakeContainerCreator{
		errs: map[string]error{
			"analytics-page-views": &azcore.ResponseError{ErrorCode: "AuthorizationFailure", StatusCode: 403},
		},
	}

	report, err := EnsureContainers(context.Background(), creator, containerTables(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to create 1 of 3 containers")

	// The failure did not stop the remaining tables.
	require.Equal(t, []string{"analytics-clicks", "analytics-page-views", "sales-orders"}, creator.calls)
	require.Equal(t, []string{"analytics-clicks", "sales-orders"}, report.Created)
}
