package azure

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bschooled/BigQuery-to-AzureBlob/adfops/azure"
	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob/adfpipelines"
	"github.com/bschooled/BigQuery-to-AzureBlob/cmd/adfops/internal/runner"
)

func runCmd() *cobra.Command {
	var (
		subscriptionID string
		resourceGroup  string
		factoryName    string
		pipelineName   string
		fileType       string
		wait           bool
		pollInterval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger the master pipeline",
		Long: `Trigger the master pipeline, which copies every registry table to
its blob container in sequence.

The fileType parameter selects the output format of every copy in the
run: json (newline-delimited) or parquet (snappy-compressed).

With --wait the command polls the run status until it finishes and
reports failed activities; without it the command returns the run ID
immediately.`,
		Example: `  # Trigger and return
  adfops azure run --resource-group=analytics-rg --factory=analytics-adf --yes

  # Trigger a parquet run and wait for it
  adfops azure run --resource-group=analytics-rg --factory=analytics-adf --file-type=parquet --wait --yes`,
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
			applyDefault(&pipelineName, config.MasterPipeline)

			op := &azure.RunOp{
				SubscriptionID: subscriptionID,
				ResourceGroup:  resourceGroup,
				FactoryName:    factoryName,
				PipelineName:   pipelineName,
				FileType:       fileType,
				Wait:           wait,
				PollInterval:   pollInterval,
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
	cmd.Flags().StringVar(&pipelineName, "pipeline", adfpipelines.DefaultMasterPipelineName, "Pipeline to trigger")
	cmd.Flags().StringVar(&fileType, "file-type", "json", "Output format for every copy in the run: json or parquet")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll the run status until it finishes")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 15*time.Second, "How often to poll the run status with --wait")

	return cmd
}
