// Package azure provides Azure-related CLI commands for adfops.
package azure

import (
	"github.com/spf13/cobra"

	"github.com/bschooled/BigQuery-to-AzureBlob/cliconfig"
)

// Command returns the azure parent command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "azure",
		Short: "Azure operations",
		Long: `Commands for the BigQuery-to-blob Azure infrastructure.

Available operations:
  • provision  - Create the resource group, storage account and data factory
  • containers - Create one blob container per registry table
  • deploy     - Generate and deploy the copy pipelines
  • run        - Trigger the master pipeline, optionally waiting
  • status     - Report the current state of the factory`,
		Example: `  # Provision everything
  adfops azure provision --resource-group=analytics-rg --location=westus2 --storage-account=analyticsblob --factory=analytics-adf

  # Create the containers
  adfops azure containers --storage-account=analyticsblob --registry=tables.csv

  # Deploy the pipelines
  adfops azure deploy --resource-group=analytics-rg --factory=analytics-adf --registry=tables.csv

  # Run and wait
  adfops azure run --resource-group=analytics-rg --factory=analytics-adf --wait

  # Inspect
  adfops azure status --resource-group=analytics-rg --factory=analytics-adf --storage-account=analyticsblob`,
	}

	// Register subcommands
	cmd.AddCommand(provisionCmd())
	cmd.AddCommand(containersCmd())
	cmd.AddCommand(deployCmd())
	cmd.AddCommand(runCmd())
	cmd.AddCommand(statusCmd())

	return cmd
}

// loadConfig reads the optional config file named by the persistent --config
// flag.
func loadConfig(cmd *cobra.Command) (*cliconfig.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return cliconfig.Load(path)
}

// applyDefault fills value from the config file when the flag was left unset.
// Flags always win.
func applyDefault(value *string, configured string) {
	if *value == "" {
		*value = configured
	}
}
