package azure

import (
	"github.com/spf13/cobra"

	"github.com/bschooled/BigQuery-to-AzureBlob/adfops/azure"
	"github.com/bschooled/BigQuery-to-AzureBlob/cmd/adfops/internal/runner"
)

func statusCmd() *cobra.Command {
	var (
		subscriptionID string
		resourceGroup  string
		factoryName    string
		storageAccount string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the current state of the factory",
		Long: `Report the factory's existence, location, managed identity, linked
services and pipelines. With --storage-account, also list that
account's blob containers.

This command is read-only and never changes anything, so confirmation
is skipped.`,
		Example: `  # Factory state
  adfops azure status --resource-group=analytics-rg --factory=analytics-adf

  # Include the container listing
  adfops azure status --resource-group=analytics-rg --factory=analytics-adf --storage-account=analyticsblob`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyDefault(&subscriptionID, config.SubscriptionID)
			applyDefault(&resourceGroup, config.ResourceGroup)
			applyDefault(&factoryName, config.Factory)
			applyDefault(&storageAccount, config.StorageAccount)

			op := &azure.StatusOp{
				SubscriptionID: subscriptionID,
				ResourceGroup:  resourceGroup,
				FactoryName:    factoryName,
				StorageAccount: storageAccount,
			}
			// Read-only: no confirmation needed.
			return runner.Run(ctx, op, runner.Options{
				DryRun:      dryRun,
				SkipConfirm: true,
			})
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "Azure subscription ID (default $AZURE_SUBSCRIPTION_ID, $ARM_SUBSCRIPTION_ID)")
	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group name (required)")
	cmd.Flags().StringVar(&factoryName, "factory", "", "Data factory name (required)")
	cmd.Flags().StringVar(&storageAccount, "storage-account", "", "Also list this storage account's containers")

	return cmd
}
