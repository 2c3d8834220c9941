package azure

import (
	"github.com/spf13/cobra"

	"github.com/bschooled/BigQuery-to-AzureBlob/adfops/azure"
	"github.com/bschooled/BigQuery-to-AzureBlob/cmd/adfops/internal/runner"
)

func provisionCmd() *cobra.Command {
	var (
		subscriptionID  string
		resourceGroup   string
		location        string
		storageAccount  string
		factoryName     string
		allowedIPRanges []string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the resource group, storage account and data factory",
		Long: `Create the Azure infrastructure the copy pipelines land on.

This command will:
  1. Create the resource group if it does not exist
  2. Create the storage account (StorageV2, HTTPS-only, no public blob access)
  3. Create the data factory with a system-assigned managed identity
  4. Grant the factory identity Storage Blob Data Contributor on the account

Everything is idempotent: existing resources are left as they are.`,
		Example: `  # Dry run
  adfops azure provision --resource-group=analytics-rg --location=westus2 --storage-account=analyticsblob --factory=analytics-adf --dry-run

  # Execute, restricting storage network access
  adfops azure provision --resource-group=analytics-rg --location=westus2 --storage-account=analyticsblob --factory=analytics-adf --allowed-ip-range=203.0.113.0/24 --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			skipConfirm, _ := cmd.Flags().GetBool("yes")

			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyDefault(&subscriptionID, config.SubscriptionID)
			applyDefault(&resourceGroup, config.ResourceGroup)
			applyDefault(&location, config.Location)
			applyDefault(&storageAccount, config.StorageAccount)
			applyDefault(&factoryName, config.Factory)

			op := &azure.ProvisionOp{
				SubscriptionID:  subscriptionID,
				ResourceGroup:   resourceGroup,
				Location:        location,
				StorageAccount:  storageAccount,
				FactoryName:     factoryName,
				AllowedIPRanges: allowedIPRanges,
			}
			return runner.Run(ctx, op, runner.Options{
				DryRun:      dryRun,
				SkipConfirm: skipConfirm,
			})
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "Azure subscription ID (default $AZURE_SUBSCRIPTION_ID, $ARM_SUBSCRIPTION_ID)")
	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group name (required)")
	cmd.Flags().StringVar(&location, "location", "", "Azure region, e.g. westus2 (required)")
	cmd.Flags().StringVar(&storageAccount, "storage-account", "", "Storage account name, 3-24 lowercase letters and digits (required)")
	cmd.Flags().StringVar(&factoryName, "factory", "", "Data factory name (required)")
	cmd.Flags().StringSliceVar(&allowedIPRanges, "allowed-ip-range", nil, "CIDR range allowed through the storage firewall (repeatable; default open)")

	return cmd
}
