package azure

import (
	"github.com/spf13/cobra"

	"github.com/bschooled/BigQuery-to-AzureBlob/adfops/azure"
	"github.com/bschooled/BigQuery-to-AzureBlob/cmd/adfops/internal/runner"
)

func containersCmd() *cobra.Command {
	var (
		storageAccount string
		registryPath   string
	)

	cmd := &cobra.Command{
		Use:   "containers",
		Short: "Create one blob container per registry table",
		Long: `Create the blob containers the copy pipelines write into, one per
table in the registry CSV. Container names are derived from the
dataset and table names. Existing containers are left untouched.`,
		Example: `  # Dry run showing the table-to-container mapping
  adfops azure containers --storage-account=analyticsblob --registry=tables.csv --dry-run

  # Execute
  adfops azure containers --storage-account=analyticsblob --registry=tables.csv --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			skipConfirm, _ := cmd.Flags().GetBool("yes")

			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyDefault(&storageAccount, config.StorageAccount)
			applyDefault(&registryPath, config.Registry)

			op := &azure.ContainersOp{
				StorageAccount: storageAccount,
				RegistryPath:   registryPath,
			}
			return runner.Run(ctx, op, runner.Options{
				DryRun:      dryRun,
				SkipConfirm: skipConfirm,
			})
		},
	}

	cmd.Flags().StringVar(&storageAccount, "storage-account", "", "Storage account name (required)")
	cmd.Flags().StringVar(&registryPath, "registry", "", "Path to the table registry CSV (required)")

	return cmd
}
