package azure

import (
	"github.com/spf13/cobra"

	"github.com/bschooled/BigQuery-to-AzureBlob/adfops/azure"
	"github.com/bschooled/BigQuery-to-AzureBlob/cmd/adfops/internal/confirm"
	"github.com/bschooled/BigQuery-to-AzureBlob/cmd/adfops/internal/runner"
)

// cliPrompter backs the deploy operation's interactive linked-service
// resolution with the confirm prompts.
type cliPrompter struct{}

func (cliPrompter) Select(message string, options []string) (int, error) {
	return confirm.Select(message, options)
}

func (cliPrompter) Input(message string) (string, error) {
	return confirm.Input(message)
}

func deployCmd() *cobra.Command {
	var (
		subscriptionID        string
		resourceGroup         string
		factoryName           string
		registryPath          string
		bigQueryLinkedService string
		blobLinkedService     string
		masterPipelineName    string
		exportDir             string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Generate and deploy the copy pipelines",
		Long: `Generate the Data Factory datasets and pipelines from the registry
and push them to the factory, update-or-create.

This command will:
  1. Load the table registry CSV
  2. Resolve the BigQuery source and blob sink linked services by type
  3. Generate per-table datasets, per-table copy pipelines and the master
  4. Deploy in dependency order: datasets, child pipelines, master

The linked services must exist in the factory already; credentials stay
in Data Factory and this tool never reads or writes them.`,
		Example: `  # Dry run
  adfops azure deploy --resource-group=analytics-rg --factory=analytics-adf --registry=tables.csv --dry-run

  # Execute, exporting the generated JSON for review
  adfops azure deploy --resource-group=analytics-rg --factory=analytics-adf --registry=tables.csv --export-dir=./definitions --yes

  # Pin the linked services when discovery is ambiguous
  adfops azure deploy --resource-group=analytics-rg --factory=analytics-adf --registry=tables.csv --bigquery-linked-service=bq-prod --blob-linked-service=blob-sink --yes`,
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
			applyDefault(&factoryName, config.Factory)
			applyDefault(&registryPath, config.Registry)
			applyDefault(&bigQueryLinkedService, config.BigQueryLinkedService)
			applyDefault(&blobLinkedService, config.BlobLinkedService)
			applyDefault(&masterPipelineName, config.MasterPipeline)

			op := &azure.DeployOp{
				SubscriptionID:        subscriptionID,
				ResourceGroup:         resourceGroup,
				FactoryName:           factoryName,
				RegistryPath:          registryPath,
				BigQueryLinkedService: bigQueryLinkedService,
				BlobLinkedService:     blobLinkedService,
				MasterPipelineName:    masterPipelineName,
				ExportDir:             exportDir,
			}
			// Interactive prompts only make sense when the run will stop
			// for confirmation anyway.
			if !dryRun && !skipConfirm {
				op.Prompter = cliPrompter{}
			}
			return runner.Run(ctx, op, runner.Options{
				DryRun:      dryRun,
				SkipConfirm: skipConfirm,
			})
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "Azure subscription ID (default $AZURE_SUBSCRIPTION_ID, $ARM_SUBSCRIPTION_ID)")
	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group name (required)")
	cmd.Flags().StringVar(&factoryName, "factory", "", "Data factory name (required)")
	cmd.Flags().StringVar(&registryPath, "registry", "", "Path to the table registry CSV (required)")
	cmd.Flags().StringVar(&bigQueryLinkedService, "bigquery-linked-service", "", "BigQuery source linked service name (default discovered by type)")
	cmd.Flags().StringVar(&blobLinkedService, "blob-linked-service", "", "Blob sink linked service name (default discovered by type)")
	cmd.Flags().StringVar(&masterPipelineName, "master-pipeline", "", "Master pipeline name (default master_bigquery_to_blob)")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "Also write the generated definitions to this directory")

	return cmd
}
