package azure

import (
	"context"
	"fmt"
	"regexp"

	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/datafactory"
	"github.com/bschooled/BigQuery-to-AzureBlob/provision"
	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

// =============================================================================
// Provision Operation
// =============================================================================

// storageAccountNameRe is the Azure storage account naming rule.
var storageAccountNameRe = regexp.MustCompile(`^[a-z0-9]{3,24}$`)

// ProvisionResult is the typed result returned by ProvisionOp.Execute().
// Use type assertion to access: result.(*azure.ProvisionResult)
type ProvisionResult struct {
	// ResourceGroupCreated reports whether the resource group was created
	// (false means it already existed).
	ResourceGroupCreated bool `json:"resourceGroupCreated"`

	// StorageAccountCreated reports whether the storage account was created.
	StorageAccountCreated bool `json:"storageAccountCreated"`

	// FactoryCreated reports whether the Data Factory was created.
	FactoryCreated bool `json:"factoryCreated"`

	// FactoryPrincipalID is the object ID of the factory's system-assigned
	// managed identity.
	FactoryPrincipalID string `json:"factoryPrincipalId"`
}

// ProvisionOp ensures the resource group, storage account and Data Factory
// exist, and grants the factory's managed identity blob access on the
// account. Everything is create-or-skip: re-running against existing
// infrastructure performs no writes beyond the tolerated role-assignment PUT.
type ProvisionOp struct {
	// Input fields
	SubscriptionID  string
	ResourceGroup   string
	Location        string
	StorageAccount  string
	FactoryName     string
	AllowedIPRanges []string

	// Internal state (populated during Validate/Plan)
	provisioner     *provision.Provisioner
	df              datafactory.API
	rgExists        bool
	saExists        bool
	existingFactory *datafactory.FactoryResource
}

// Name implements adfops.Operation.
func (o *ProvisionOp) Name() string {
	return "provision"
}

// Description implements adfops.Operation.
func (o *ProvisionOp) Description() string {
	return "Ensure the resource group, storage account and Data Factory exist"
}

// Validate implements adfops.Operation.
func (o *ProvisionOp) Validate(ctx context.Context) error {
	if o.ResourceGroup == "" {
		return oops.Errorf("--resource-group is required")
	}
	if o.Location == "" {
		return oops.Errorf("--location is required")
	}
	if o.FactoryName == "" {
		return oops.Errorf("--factory is required")
	}
	if !storageAccountNameRe.MatchString(o.StorageAccount) {
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

	o.provisioner, err = provision.NewProvisioner(o.SubscriptionID, credential)
	if err != nil {
		return oops.Wrapf(err, "failed to create provisioner")
	}

	o.df, err = datafactory.New(o.SubscriptionID, o.ResourceGroup, o.FactoryName, credential)
	if err != nil {
		return oops.Wrapf(err, "failed to create data factory client")
	}

	return nil
}

// Plan implements adfops.Operation.
func (o *ProvisionOp) Plan(ctx context.Context) error {
	var err error
	o.rgExists, err = o.provisioner.ResourceGroupExists(ctx, o.ResourceGroup)
	if err != nil {
		return oops.Wrapf(err, "failed to check resource group")
	}

	if o.rgExists {
		_, o.saExists, err = o.provisioner.GetStorageAccount(ctx, o.ResourceGroup, o.StorageAccount)
		if err != nil {
			return oops.Wrapf(err, "failed to check storage account")
		}

		factory, err := o.df.GetFactory(ctx, &datafactory.GetFactoryInput{})
		if err != nil && !datafactory.IsNotFound(err) {
			return oops.Wrapf(err, "failed to check data factory")
		}
		if err == nil {
			o.existingFactory = &factory.FactoryResource
		}
	}

	action := func(exists bool) string {
		if exists {
			return "exists, skip"
		}
		return "create"
	}

	fmt.Println()
	fmt.Println("📋 Provision Plan")
	fmt.Println("───────────────────────────────────────")
	fmt.Printf("   Subscription:    %s\n", o.SubscriptionID)
	fmt.Printf("   Location:        %s\n", o.Location)
	fmt.Printf("   Resource Group:  %s (%s)\n", o.ResourceGroup, action(o.rgExists))
	fmt.Printf("   Storage Account: %s (%s)\n", o.StorageAccount, action(o.saExists))
	fmt.Printf("   Data Factory:    %s (%s)\n", o.FactoryName, action(o.existingFactory != nil))
	if len(o.AllowedIPRanges) > 0 {
		fmt.Printf("   Network ACLs:    deny by default, %d allowed IP range(s)\n", len(o.AllowedIPRanges))
	}
	fmt.Println()
	fmt.Println("   The factory's managed identity will be granted Storage Blob")
	fmt.Println("   Data Contributor on the storage account.")
	fmt.Println()

	return nil
}

// Execute implements adfops.Operation.
// Returns *ProvisionResult.
func (o *ProvisionOp) Execute(ctx context.Context) (any, error) {
	result := &ProvisionResult{}

	var err error
	result.ResourceGroupCreated, err = o.provisioner.EnsureResourceGroup(ctx, o.ResourceGroup, o.Location)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to ensure resource group")
	}

	result.StorageAccountCreated, err = o.provisioner.EnsureStorageAccount(ctx, provision.StorageAccountSpec{
		ResourceGroup:   o.ResourceGroup,
		Name:            o.StorageAccount,
		Location:        o.Location,
		AllowedIPRanges: o.AllowedIPRanges,
	})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to ensure storage account")
	}

	factory := o.existingFactory
	if factory == nil {
		slog.Infow(ctx, "creating data factory", "factory", o.FactoryName, "location", o.Location)
		created, err := o.df.CreateOrUpdateFactory(ctx, &datafactory.CreateOrUpdateFactoryInput{
			Location: o.Location,
			Identity: &datafactory.FactoryIdentity{Type: datafactory.IdentityTypeSystemAssigned},
		})
		if err != nil {
			return nil, oops.Wrapf(err, "failed to create data factory %s", o.FactoryName)
		}
		factory = &created.FactoryResource
		result.FactoryCreated = true
	} else {
		slog.Infow(ctx, "data factory already exists, skipping", "factory", o.FactoryName)
	}

	if factory.Identity == nil || factory.Identity.PrincipalID == "" {
		slog.Warnw(ctx, "factory has no managed identity principal, skipping role assignment",
			"factory", o.FactoryName)
	} else {
		result.FactoryPrincipalID = factory.Identity.PrincipalID
		accountID := o.provisioner.StorageAccountID(o.ResourceGroup, o.StorageAccount)
		if err := o.provisioner.EnsureBlobDataContributor(ctx, accountID, factory.Identity.PrincipalID); err != nil {
			return nil, oops.Wrapf(err, "failed to assign blob access to the factory identity")
		}
	}

	fmt.Println()
	fmt.Println("✅ Provisioning complete!")
	fmt.Printf("   Resource Group:  %s\n", o.ResourceGroup)
	fmt.Printf("   Storage Account: %s\n", o.StorageAccount)
	fmt.Printf("   Data Factory:    %s\n", o.FactoryName)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("   adfops azure containers --storage-account=%s --registry=tables.csv\n", o.StorageAccount)

	slog.Infow(ctx, "provision completed",
		"resourceGroup", o.ResourceGroup,
		"resourceGroupCreated", result.ResourceGroupCreated,
		"storageAccount", o.StorageAccount,
		"storageAccountCreated", result.StorageAccountCreated,
		"factory", o.FactoryName,
		"factoryCreated", result.FactoryCreated,
	)

	return result, nil
}
