package azure

import (
	"context"
	"fmt"

	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob"
	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob/adfpipelines"
	"github.com/bschooled/BigQuery-to-AzureBlob/datafactory"
	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

// =============================================================================
// Deploy Operation
// =============================================================================

// DeployResult is the typed result returned by DeployOp.Execute().
// Use type assertion to access: result.(*azure.DeployResult)
type DeployResult struct {
	DatasetsCreated  int `json:"datasetsCreated"`
	DatasetsUpdated  int `json:"datasetsUpdated"`
	PipelinesCreated int `json:"pipelinesCreated"`
	PipelinesUpdated int `json:"pipelinesUpdated"`

	// MasterPipeline is the name of the deployed parent pipeline.
	MasterPipeline string `json:"masterPipeline"`
}

// DeployOp generates the per-table pipelines and datasets from the registry
// and pushes them to the factory, update-or-create, in dependency order:
// datasets, then child pipelines, then the master. A failure aborts the
// deploy at that resource; the ordering guarantees nothing already deployed
// references a resource that failed, and re-running converges.
type DeployOp struct {
	// Input fields
	SubscriptionID        string
	ResourceGroup         string
	FactoryName           string
	RegistryPath          string
	BigQueryLinkedService string
	BlobLinkedService     string
	MasterPipelineName    string

	// ExportDir additionally writes the generated definitions locally
	// before deploying, for review or source control.
	ExportDir string

	// Prompter enables the interactive linked-service prompts. Leave nil
	// in non-interactive modes (--yes, --dry-run).
	Prompter Prompter

	// Internal state (populated during Validate/Plan)
	df     datafactory.API
	tables []*bigqueryblob.Table
	set    *adfpipelines.DeploymentSet
}

// Name implements adfops.Operation.
func (o *DeployOp) Name() string {
	return "deploy"
}

// Description implements adfops.Operation.
func (o *DeployOp) Description() string {
	return "Generate and deploy the BigQuery-to-blob pipelines"
}

// Validate implements adfops.Operation.
func (o *DeployOp) Validate(ctx context.Context) error {
	if o.ResourceGroup == "" {
		return oops.Errorf("--resource-group is required")
	}
	if o.FactoryName == "" {
		return oops.Errorf("--factory is required")
	}
	if o.RegistryPath == "" {
		return oops.Errorf("--registry is required")
	}

	tables, err := bigqueryblob.LoadRegistry(o.RegistryPath)
	if err != nil {
		return oops.Wrapf(err, "failed to load table registry")
	}
	o.tables = tables

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

	return nil
}

// Plan implements adfops.Operation.
func (o *DeployOp) Plan(ctx context.Context) error {
	selection, err := resolveLinkedServices(ctx, o.df, o.BigQueryLinkedService, o.BlobLinkedService, o.Prompter)
	if err != nil {
		return oops.Wrapf(err, "failed to resolve linked services")
	}

	o.set, err = adfpipelines.Generate(adfpipelines.Input{
		Tables:                o.tables,
		BigQueryLinkedService: selection.BigQuery,
		BlobLinkedService:     selection.Blob,
		MasterPipelineName:    o.MasterPipelineName,
	})
	if err != nil {
		return oops.Wrapf(err, "failed to generate pipeline definitions")
	}

	fmt.Println()
	fmt.Println("📋 Deploy Plan")
	fmt.Println("───────────────────────────────────────")
	fmt.Printf("   Factory:           %s (resource group %s)\n", o.FactoryName, o.ResourceGroup)
	fmt.Printf("   Registry:          %s (%d tables)\n", o.RegistryPath, len(o.tables))
	fmt.Printf("   BigQuery source:   %s\n", selection.BigQuery)
	fmt.Printf("   Blob sink:         %s\n", selection.Blob)
	fmt.Printf("   Datasets:          %d\n", len(o.set.Datasets))
	fmt.Printf("   Child pipelines:   %d\n", len(o.set.ChildPipelines))
	fmt.Printf("   Master pipeline:   %s\n", o.set.Master.Name)
	if o.ExportDir != "" {
		fmt.Printf("   Export directory:  %s\n", o.ExportDir)
	}
	fmt.Println()
	fmt.Println("   Deploy order: datasets → child pipelines → master pipeline.")
	fmt.Println("   Existing definitions are replaced (update-or-create).")
	fmt.Println()

	return nil
}

// Execute implements adfops.Operation.
// Returns *DeployResult.
func (o *DeployOp) Execute(ctx context.Context) (any, error) {
	if o.set == nil {
		return nil, oops.Errorf("Plan() must be called before Execute()")
	}

	if o.ExportDir != "" {
		if err := adfpipelines.WriteDefinitions(o.ExportDir, o.set); err != nil {
			return nil, oops.Wrapf(err, "failed to export definitions to %s", o.ExportDir)
		}
		slog.Infow(ctx, "exported definitions", "dir", o.ExportDir)
	}

	result := &DeployResult{MasterPipeline: o.set.Master.Name}

	for _, dataset := range o.set.Datasets {
		created, err := o.deployDataset(ctx, dataset)
		if err != nil {
			return nil, oops.Wrapf(err, "failed to deploy dataset %s", dataset.Name)
		}
		if created {
			result.DatasetsCreated++
		} else {
			result.DatasetsUpdated++
		}
	}

	pipelines := append([]*datafactory.PipelineResource{}, o.set.ChildPipelines...)
	pipelines = append(pipelines, o.set.Master)
	for _, pipeline := range pipelines {
		created, err := o.deployPipeline(ctx, pipeline)
		if err != nil {
			return nil, oops.Wrapf(err, "failed to deploy pipeline %s", pipeline.Name)
		}
		if created {
			result.PipelinesCreated++
		} else {
			result.PipelinesUpdated++
		}
	}

	fmt.Println()
	fmt.Println("✅ Deploy complete!")
	fmt.Printf("   Datasets:  %d created, %d updated\n", result.DatasetsCreated, result.DatasetsUpdated)
	fmt.Printf("   Pipelines: %d created, %d updated\n", result.PipelinesCreated, result.PipelinesUpdated)
	fmt.Println()
	fmt.Println("Run the master pipeline:")
	fmt.Printf("   adfops azure run --resource-group=%s --factory=%s --pipeline=%s --wait\n", o.ResourceGroup, o.FactoryName, result.MasterPipeline)

	slog.Infow(ctx, "deploy completed",
		"factory", o.FactoryName,
		"datasetsCreated", result.DatasetsCreated,
		"datasetsUpdated", result.DatasetsUpdated,
		"pipelinesCreated", result.PipelinesCreated,
		"pipelinesUpdated", result.PipelinesUpdated,
		"masterPipeline", result.MasterPipeline,
	)

	return result, nil
}

// deployDataset upserts one dataset. The pre-fetch only classifies the write
// as create or update for reporting; the PUT replaces the definition either
// way.
func (o *DeployOp) deployDataset(ctx context.Context, dataset *datafactory.DatasetResource) (created bool, err error) {
	_, err = o.df.GetDataset(ctx, &datafactory.GetDatasetInput{Name: dataset.Name})
	switch {
	case datafactory.IsNotFound(err):
		created = true
	case err != nil:
		return false, oops.Wrapf(err, "failed to check dataset")
	}

	slog.Infow(ctx, "deploying dataset", "dataset", dataset.Name, "create", created)
	_, err = o.df.CreateOrUpdateDataset(ctx, &datafactory.CreateOrUpdateDatasetInput{
		Name:    dataset.Name,
		Dataset: dataset.Properties,
	})
	if err != nil {
		return false, oops.Wrapf(err, "")
	}
	return created, nil
}

func (o *DeployOp) deployPipeline(ctx context.Context, pipeline *datafactory.PipelineResource) (created bool, err error) {
	_, err = o.df.GetPipeline(ctx, &datafactory.GetPipelineInput{Name: pipeline.Name})
	switch {
	case datafactory.IsNotFound(err):
		created = true
	case err != nil:
		return false, oops.Wrapf(err, "failed to check pipeline")
	}

	slog.Infow(ctx, "deploying pipeline", "pipeline", pipeline.Name, "create", created)
	_, err = o.df.CreateOrUpdatePipeline(ctx, &datafactory.CreateOrUpdatePipelineInput{
		Name:     pipeline.Name,
		Pipeline: pipeline.Properties,
	})
	if err != nil {
		return false, oops.Wrapf(err, "")
	}
	return created, nil
}
