package azure

import (
	"context"
	"fmt"

	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob"
	"github.com/bschooled/BigQuery-to-AzureBlob/provision"
	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

// =============================================================================
// Containers Operation
// =============================================================================

// ContainersResult is the typed result returned by ContainersOp.Execute().
// Use type assertion to access: result.(*azure.ContainersResult)
type ContainersResult struct {
	// Created lists the containers created by this run, in registry order.
	Created []string `json:"created"`

	// Existing lists the containers that already existed.
	Existing []string `json:"existing"`
}

// ContainersOp creates one blob container per registry table.
type ContainersOp struct {
	// Input fields
	StorageAccount string
	RegistryPath   string

	// Internal state (populated during Validate/Plan)
	client provision.ContainerCreator
	tables []*bigqueryblob.Table
}

// Name implements adfops.Operation.
func (o *ContainersOp) Name() string {
	return "containers"
}

// Description implements adfops.Operation.
func (o *ContainersOp) Description() string {
	return "Create one blob container per registry table"
}

// Validate implements adfops.Operation.
func (o *ContainersOp) Validate(ctx context.Context) error {
	if !storageAccountNameRe.MatchString(o.StorageAccount) {
		return oops.Errorf("--storage-account %q must be 3-24 lowercase letters and digits", o.StorageAccount)
	}
	if o.RegistryPath == "" {
		return oops.Errorf("--registry is required")
	}

	tables, err := bigqueryblob.LoadRegistry(o.RegistryPath)
	if err != nil {
		return oops.Wrapf(err, "failed to load table registry")
	}
	o.tables = tables

	credential, err := newCredential()
	if err != nil {
		return oops.Wrapf(err, "")
	}
	o.client, err = newBlobClient(o.StorageAccount, credential)
	if err != nil {
		return oops.Wrapf(err, "")
	}

	return nil
}

// Plan implements adfops.Operation.
func (o *ContainersOp) Plan(ctx context.Context) error {
	fmt.Println()
	fmt.Println("📋 Container Plan")
	fmt.Println("───────────────────────────────────────")
	fmt.Printf("   Storage Account: %s\n", o.StorageAccount)
	fmt.Printf("   Registry:        %s (%d tables)\n", o.RegistryPath, len(o.tables))
	fmt.Println()
	for _, table := range o.tables {
		container, err := table.ContainerName()
		if err != nil {
			return oops.Wrapf(err, "")
		}
		fmt.Printf("     %-40s → %s\n", table.BigQueryTableID(), container)
	}
	fmt.Println()
	fmt.Println("   Existing containers are left untouched.")
	fmt.Println()

	return nil
}

// Execute implements adfops.Operation.
// Returns *ContainersResult.
func (o *ContainersOp) Execute(ctx context.Context) (any, error) {
	report, err := provision.EnsureContainers(ctx, o.client, o.tables)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create containers")
	}

	fmt.Println()
	fmt.Println("✅ Containers ready!")
	fmt.Printf("   Created:  %d\n", len(report.Created))
	fmt.Printf("   Existing: %d\n", len(report.Existing))

	slog.Infow(ctx, "containers completed",
		"storageAccount", o.StorageAccount,
		"created", len(report.Created),
		"existing", len(report.Existing),
	)

	return &ContainersResult{
		Created:  report.Created,
		Existing: report.Existing,
	}, nil
}
