// Package provision ensures the Azure infrastructure under the pipelines
// exists: resource group, storage account, blob containers, and the role
// assignment that lets the factory's managed identity write to storage.
// Every operation is create-or-skip so re-running converges without writes.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/google/uuid"
	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

// storageBlobDataContributorRoleID is the built-in role granting blob
// read/write, assigned to the factory's managed identity so copy sinks can
// authenticate without account keys.
const storageBlobDataContributorRoleID = "ba92f5b4-2d11-453d-a403-e96b0029c9fe"

// Provisioner wraps the resource-manager clients used by the provision
// operation.
type Provisioner struct {
	subscriptionID  string
	resourceGroups  *armresources.ResourceGroupsClient
	storageAccounts *armstorage.AccountsClient
	roleAssignments *armauthorization.RoleAssignmentsClient
}

// StorageAccountSpec describes the storage account the provisioner ensures.
type StorageAccountSpec struct {
	ResourceGroup string
	Name          string
	Location      string

	// AllowedIPRanges restricts the account's network ACLs when non-empty:
	// default action Deny with one IP rule per range, Azure services
	// bypassed so the factory can still reach the account.
	AllowedIPRanges []string
}

func NewProvisioner(subscriptionID string, credential azcore.TokenCredential) (*Provisioner, error) {
	if subscriptionID == "" {
		return nil, oops.Errorf("subscription ID must be set")
	}

	resourceGroups, err := armresources.NewResourceGroupsClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "error creating resource groups client")
	}
	storageAccounts, err := armstorage.NewAccountsClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "error creating storage accounts client")
	}
	roleAssignments, err := armauthorization.NewRoleAssignmentsClient(subscriptionID, credential, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "error creating role assignments client")
	}

	return &Provisioner{
		subscriptionID:  subscriptionID,
		resourceGroups:  resourceGroups,
		storageAccounts: storageAccounts,
		roleAssignments: roleAssignments,
	}, nil
}

// ResourceGroupExists probes the resource group without side effects.
func (p *Provisioner) ResourceGroupExists(ctx context.Context, name string) (bool, error) {
	_, err := p.resourceGroups.Get(ctx, name, nil)
	if err != nil {
		if isResponseErrorStatus(err, 404) {
			return false, nil
		}
		return false, oops.Wrapf(err, "error checking resource group %s", name)
	}
	return true, nil
}

// EnsureResourceGroup creates the resource group when it does not exist.
// Returns whether a create happened.
func (p *Provisioner) EnsureResourceGroup(ctx context.Context, name, location string) (bool, error) {
	exists, err := p.ResourceGroupExists(ctx, name)
	if err != nil {
		return false, oops.Wrapf(err, "")
	}
	if exists {
		slog.Infow(ctx, "resource group already exists, skipping", "resourceGroup", name)
		return false, nil
	}

	slog.Infow(ctx, "creating resource group", "resourceGroup", name, "location", location)
	_, err = p.resourceGroups.CreateOrUpdate(ctx, name, armresources.ResourceGroup{
		Location: to.Ptr(location),
	}, nil)
	if err != nil {
		return false, oops.Wrapf(err, "error creating resource group %s", name)
	}
	return true, nil
}

// GetStorageAccount probes the storage account. The bool reports existence.
func (p *Provisioner) GetStorageAccount(ctx context.Context, resourceGroup, name string) (*armstorage.Account, bool, error) {
	resp, err := p.storageAccounts.GetProperties(ctx, resourceGroup, name, nil)
	if err != nil {
		if isResponseErrorStatus(err, 404) {
			return nil, false, nil
		}
		return nil, false, oops.Wrapf(err, "error checking storage account %s", name)
	}
	return &resp.Account, true, nil
}

// EnsureStorageAccount creates the storage account when it does not exist:
// StorageV2, Standard_LRS, Hot tier, HTTPS only, TLS 1.2 minimum, public
// blob access disabled. An existing account is left untouched even when its
// settings have drifted; the status operation surfaces them for review.
// Returns whether a create happened.
func (p *Provisioner) EnsureStorageAccount(ctx context.Context, spec StorageAccountSpec) (bool, error) {
	_, exists, err := p.GetStorageAccount(ctx, spec.ResourceGroup, spec.Name)
	if err != nil {
		return false, oops.Wrapf(err, "")
	}
	if exists {
		slog.Infow(ctx, "storage account already exists, skipping", "storageAccount", spec.Name)
		return false, nil
	}

	parameters := armstorage.AccountCreateParameters{
		SKU: &armstorage.SKU{
			Name: to.Ptr(armstorage.SKUNameStandardLRS),
		},
		Kind:     to.Ptr(armstorage.KindStorageV2),
		Location: to.Ptr(spec.Location),
		Properties: &armstorage.AccountPropertiesCreateParameters{
			AccessTier:             to.Ptr(armstorage.AccessTierHot),
			EnableHTTPSTrafficOnly: to.Ptr(true),
			MinimumTLSVersion:      to.Ptr(armstorage.MinimumTLSVersionTLS12),
			AllowBlobPublicAccess:  to.Ptr(false),
			NetworkRuleSet:         networkRuleSet(spec.AllowedIPRanges),
		},
	}

	slog.Infow(ctx, "creating storage account", "storageAccount", spec.Name,
		"location", spec.Location, "allowedIPRanges", len(spec.AllowedIPRanges))
	poller, err := p.storageAccounts.BeginCreate(ctx, spec.ResourceGroup, spec.Name, parameters, nil)
	if err != nil {
		return false, oops.Wrapf(err, "error creating storage account %s", spec.Name)
	}

	// The account is not usable until the poller completes.
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return false, oops.Wrapf(err, "error waiting for storage account %s creation", spec.Name)
	}

	return true, nil
}

// networkRuleSet maps allowed IP ranges onto the account's network ACLs.
// With no ranges the account stays open (default action Allow).
func networkRuleSet(allowedIPRanges []string) *armstorage.NetworkRuleSet {
	if len(allowedIPRanges) == 0 {
		return &armstorage.NetworkRuleSet{
			DefaultAction: to.Ptr(armstorage.DefaultActionAllow),
		}
	}

	ruleSet := &armstorage.NetworkRuleSet{
		DefaultAction: to.Ptr(armstorage.DefaultActionDeny),
		Bypass:        to.Ptr(armstorage.BypassAzureServices),
	}
	for _, ipRange := range allowedIPRanges {
		ruleSet.IPRules = append(ruleSet.IPRules, &armstorage.IPRule{
			IPAddressOrRange: to.Ptr(ipRange),
			Action:           to.Ptr("Allow"),
		})
	}
	return ruleSet
}

// StorageAccountID returns the ARM resource ID of the storage account, the
// scope for the managed identity's role assignment.
func (p *Provisioner) StorageAccountID(resourceGroup, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Storage/storageAccounts/%s",
		p.subscriptionID, resourceGroup, name)
}

// EnsureBlobDataContributor grants the principal Storage Blob Data
// Contributor on the storage account. A 409 means the assignment already
// exists and is success; 401/403 mean the operator cannot write role
// assignments, which is logged and tolerated so provisioning can proceed.
func (p *Provisioner) EnsureBlobDataContributor(ctx context.Context, accountID, principalID string) error {
	roleDefinitionID := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s",
		p.subscriptionID, storageBlobDataContributorRoleID)

	_, err := p.roleAssignments.Create(ctx, accountID, uuid.NewString(), armauthorization.RoleAssignmentCreateParameters{
		Properties: &armauthorization.RoleAssignmentProperties{
			RoleDefinitionID: to.Ptr(roleDefinitionID),
			PrincipalID:      to.Ptr(principalID),
		},
	}, nil)
	if err != nil {
		if isResponseErrorStatus(err, 409) {
			slog.Infow(ctx, "blob data contributor role already assigned", "principalID", principalID)
			return nil
		}
		if isResponseErrorStatus(err, 401, 403) {
			slog.Warnw(ctx, "no permission to assign the blob data contributor role, assign it manually",
				"principalID", principalID, "scope", accountID, "error", err)
			return nil
		}
		return oops.Wrapf(err, "error assigning blob data contributor role to %s", principalID)
	}

	slog.Infow(ctx, "assigned blob data contributor role", "principalID", principalID, "scope", accountID)
	return nil
}

func isResponseErrorStatus(err error, statusCodes ...int) bool {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	for _, code := range statusCodes {
		if respErr.StatusCode == code {
			return true
		}
	}
	return false
}
