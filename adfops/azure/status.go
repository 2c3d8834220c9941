package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/datafactory"
)

// =============================================================================
// Status Operation
// =============================================================================

// StatusLinkedService is one linked service in a status report.
type StatusLinkedService struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// StatusResult is the typed result returned by StatusOp.Execute().
// Use type assertion to access: result.(*azure.StatusResult)
type StatusResult struct {
	FactoryExists   bool   `json:"factoryExists"`
	FactoryLocation string `json:"factoryLocation,omitempty"`

	// FactoryPrincipalID is the managed identity principal, when the
	// factory has one.
	FactoryPrincipalID string `json:"factoryPrincipalId,omitempty"`

	LinkedServices []StatusLinkedService `json:"linkedServices,omitempty"`
	Pipelines      []string              `json:"pipelines,omitempty"`

	// Containers lists the blob containers of the storage account. Only
	// populated when --storage-account is passed.
	Containers []string `json:"containers,omitempty"`
}

// StatusOp reports the current state of the factory and, optionally, the
// storage account. It is read-only: Execute never creates or mutates
// anything.
type StatusOp struct {
	// Input fields
	SubscriptionID string
	ResourceGroup  string
	FactoryName    string

	// StorageAccount additionally lists that account's blob containers.
	StorageAccount string

	// Internal state (populated during Validate/Plan)
	df   datafactory.API
	blob *azblob.Client
}

// Name implements adfops.Operation.
func (o *StatusOp) Name() string {
	return "status"
}

// Description implements adfops.Operation.
func (o *StatusOp) Description() string {
	return "Report the current state of the factory and storage account"
}

// Validate implements adfops.Operation.
func (o *StatusOp) Validate(ctx context.Context) error {
	if o.ResourceGroup == "" {
		return oops.Errorf("--resource-group is required")
	}
	if o.FactoryName == "" {
		return oops.Errorf("--factory is required")
	}
	if o.StorageAccount != "" && !storageAccountNameRe.MatchString(o.StorageAccount) {
		return oops.Errorf("--storage-account %q must be 3-24 lowercase letters and digits", o.StorageAccount)
	}

	subscriptionID, err := resolveSubscriptionID(o.SubscriptionID)
	if err != nil {
		return oops.Wrapf(err, "")
	}
	o.SubscriptionID = subscriptionID

	credential, err := newCredential()
	if err != nil {
		return oops.Wrapf(err, "")
	}
	o.df, err = datafactory.New(o.SubscriptionID, o.ResourceGroup, o.FactoryName, credential)
	if err != nil {
		return oops.Wrapf(err, "failed to create data factory client")
	}
	if o.StorageAccount != "" {
		o.blob, err = newBlobClient(o.StorageAccount, credential)
		if err != nil {
			return oops.Wrapf(err, "")
		}
	}

	return nil
}

// Plan implements adfops.Operation.
func (o *StatusOp) Plan(ctx context.Context) error {
	fmt.Println()
	fmt.Println("📋 Status Plan")
	fmt.Println("───────────────────────────────────────")
	fmt.Printf("   Factory: %s (resource group %s)\n", o.FactoryName, o.ResourceGroup)
	if o.StorageAccount != "" {
		fmt.Printf("   Storage Account: %s\n", o.StorageAccount)
	}
	fmt.Println()
	fmt.Println("   Read-only: nothing is created or changed.")
	fmt.Println()

	return nil
}

// Execute implements adfops.Operation.
// Returns *StatusResult.
func (o *StatusOp) Execute(ctx context.Context) (any, error) {
	result := &StatusResult{}

	factory, err := o.df.GetFactory(ctx, &datafactory.GetFactoryInput{})
	switch {
	case datafactory.IsNotFound(err):
		fmt.Println()
		fmt.Printf("❌ Factory %s does not exist in resource group %s.\n", o.FactoryName, o.ResourceGroup)
		fmt.Println()
		fmt.Println("Provision it:")
		fmt.Printf("   adfops azure provision --resource-group=%s --factory=%s\n", o.ResourceGroup, o.FactoryName)
		return result, nil
	case err != nil:
		return nil, oops.Wrapf(err, "failed to get factory %s", o.FactoryName)
	}

	result.FactoryExists = true
	result.FactoryLocation = factory.Location
	if factory.Identity != nil {
		result.FactoryPrincipalID = factory.Identity.PrincipalID
	}

	linkedServices, err := o.df.ListLinkedServices(ctx, &datafactory.ListLinkedServicesInput{})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to list linked services")
	}
	for _, ls := range linkedServices.LinkedServices {
		result.LinkedServices = append(result.LinkedServices, StatusLinkedService{
			Name: ls.Name,
			Type: ls.Properties.Type,
		})
	}

	pipelines, err := o.df.ListPipelines(ctx, &datafactory.ListPipelinesInput{})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to list pipelines")
	}
	for _, pipeline := range pipelines.Pipelines {
		result.Pipelines = append(result.Pipelines, pipeline.Name)
	}

	if o.blob != nil {
		containers, err := o.listContainers(ctx)
		if err != nil {
			return nil, oops.Wrapf(err, "failed to list containers in %s", o.StorageAccount)
		}
		result.Containers = containers
	}

	o.print(result)
	return result, nil
}

func (o *StatusOp) listContainers(ctx context.Context) ([]string, error) {
	var containers []string
	pager := o.blob.NewListContainersPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, oops.Wrapf(err, "")
		}
		for _, item := range page.ContainerItems {
			if item.Name != nil {
				containers = append(containers, *item.Name)
			}
		}
	}
	return containers, nil
}

func (o *StatusOp) print(result *StatusResult) {
	fmt.Println()
	fmt.Printf("✅ Factory %s\n", o.FactoryName)
	fmt.Printf("   Location:        %s\n", result.FactoryLocation)
	if result.FactoryPrincipalID != "" {
		fmt.Printf("   Identity:        SystemAssigned (%s)\n", result.FactoryPrincipalID)
	} else {
		fmt.Println("   Identity:        none")
	}

	fmt.Printf("   Linked services: %d\n", len(result.LinkedServices))
	for _, ls := range result.LinkedServices {
		fmt.Printf("     %-40s %s\n", ls.Name, ls.Type)
	}

	fmt.Printf("   Pipelines:       %d\n", len(result.Pipelines))
	for _, name := range result.Pipelines {
		fmt.Printf("     %s\n", name)
	}

	if o.StorageAccount != "" {
		fmt.Printf("   Containers in %s: %d\n", o.StorageAccount, len(result.Containers))
		for _, name := range result.Containers {
			fmt.Printf("     %s\n", name)
		}
	}
	fmt.Println()
}
