package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samsarahq/go/oops"
	datadog "github.com/zorkian/go-datadog-api"

	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob"
	"github.com/bschooled/BigQuery-to-AzureBlob/datafactory"
	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

// =============================================================================
// Run Operation
// =============================================================================

// defaultPollInterval is how often a waiting run operation polls the run
// status.
const defaultPollInterval = 15 * time.Second

// runAPI is the slice of the data factory client the run operation needs.
type runAPI interface {
	GetPipeline(context.Context, *datafactory.GetPipelineInput) (*datafactory.GetPipelineOutput, error)
	CreatePipelineRun(context.Context, *datafactory.CreatePipelineRunInput) (*datafactory.CreatePipelineRunOutput, error)
	GetPipelineRun(context.Context, *datafactory.GetPipelineRunInput) (*datafactory.GetPipelineRunOutput, error)
	QueryActivityRuns(context.Context, *datafactory.QueryActivityRunsInput) (*datafactory.QueryActivityRunsOutput, error)
}

// RunResult is the typed result returned by RunOp.Execute().
// Use type assertion to access: result.(*azure.RunResult)
type RunResult struct {
	// RunID identifies the pipeline run inside the factory.
	RunID string `json:"runId"`

	// Status is the run status at return time. Without --wait this is the
	// status right after triggering; with --wait it is terminal.
	Status string `json:"status"`

	// DurationMs is the observed wait duration. Zero without --wait.
	DurationMs int64 `json:"durationMs"`
}

// RunOp triggers the master pipeline and optionally waits for it to finish.
// The run itself executes inside the Data Factory service; waiting is pure
// status polling.
type RunOp struct {
	// Input fields
	SubscriptionID string
	ResourceGroup  string
	FactoryName    string
	PipelineName   string
	FileType       string
	Wait           bool
	PollInterval   time.Duration

	// Internal state (populated during Validate/Plan)
	df       runAPI
	clock    clock.Clock
	datadog  *datadog.Client
	fileType bigqueryblob.FileFormat
}

// Name implements adfops.Operation.
func (o *RunOp) Name() string {
	return "run"
}

// Description implements adfops.Operation.
func (o *RunOp) Description() string {
	return "Trigger the master pipeline and optionally wait for completion"
}

// Validate implements adfops.Operation.
func (o *RunOp) Validate(ctx context.Context) error {
	if o.ResourceGroup == "" {
		return oops.Errorf("--resource-group is required")
	}
	if o.FactoryName == "" {
		return oops.Errorf("--factory is required")
	}
	if o.PipelineName == "" {
		return oops.Errorf("--pipeline is required")
	}

	fileType, err := bigqueryblob.ParseFileFormat(o.FileType)
	if err != nil {
		return oops.Wrapf(err, "--file-type")
	}
	o.fileType = fileType

	if o.PollInterval == 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.datadog == nil {
		o.datadog = newDatadogClient()
	}

	if o.df == nil {
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
	}

	return nil
}

// Plan implements adfops.Operation.
func (o *RunOp) Plan(ctx context.Context) error {
	if _, err := o.df.GetPipeline(ctx, &datafactory.GetPipelineInput{Name: o.PipelineName}); err != nil {
		if datafactory.IsNotFound(err) {
			return oops.Errorf("pipeline %s does not exist in factory %s, deploy first", o.PipelineName, o.FactoryName)
		}
		return oops.Wrapf(err, "failed to check pipeline %s", o.PipelineName)
	}

	fmt.Println()
	fmt.Println("📋 Run Plan")
	fmt.Println("───────────────────────────────────────")
	fmt.Printf("   Factory:   %s (resource group %s)\n", o.FactoryName, o.ResourceGroup)
	fmt.Printf("   Pipeline:  %s\n", o.PipelineName)
	fmt.Printf("   File type: %s\n", o.fileType)
	if o.Wait {
		fmt.Printf("   Wait:      yes, polling every %s\n", o.PollInterval)
	} else {
		fmt.Println("   Wait:      no, returns after triggering")
	}
	fmt.Println()

	return nil
}

// Execute implements adfops.Operation.
// Returns *RunResult.
func (o *RunOp) Execute(ctx context.Context) (any, error) {
	created, err := o.df.CreatePipelineRun(ctx, &datafactory.CreatePipelineRunInput{
		PipelineName: o.PipelineName,
		Parameters: map[string]interface{}{
			"fileType": string(o.fileType),
		},
	})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to trigger pipeline %s", o.PipelineName)
	}

	slog.Infow(ctx, "triggered pipeline run", "pipeline", o.PipelineName, "runId", created.RunID)

	if !o.Wait {
		fmt.Println()
		fmt.Println("🚀 Run triggered!")
		fmt.Printf("   Run ID: %s\n", created.RunID)
		fmt.Println()
		fmt.Println("Check progress:")
		fmt.Printf("   adfops azure run --resource-group=%s --factory=%s --pipeline=%s --wait\n", o.ResourceGroup, o.FactoryName, o.PipelineName)
		return &RunResult{RunID: created.RunID, Status: string(datafactory.PipelineRunStatusInProgress)}, nil
	}

	run, err := o.waitForRun(ctx, created.RunID)
	if err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return run, nil
}

// waitForRun polls the run until its status is terminal.
func (o *RunOp) waitForRun(ctx context.Context, runID string) (*RunResult, error) {
	start := o.clock.Now()
	ticker := o.clock.Ticker(o.PollInterval)
	defer ticker.Stop()

	var lastStatus datafactory.PipelineRunStatus
	for {
		run, err := o.df.GetPipelineRun(ctx, &datafactory.GetPipelineRunInput{RunID: runID})
		if err != nil {
			return nil, oops.Wrapf(err, "failed to get run %s", runID)
		}

		if run.Status != lastStatus {
			slog.Infow(ctx, "pipeline run status", "runId", runID, "status", run.Status)
			lastStatus = run.Status
		}

		if run.Status.IsTerminal() {
			duration := o.clock.Now().Sub(start)

			if run.Status == datafactory.PipelineRunStatusFailed {
				o.logFailedActivities(ctx, runID, start)
			}
			o.postRunMetrics(ctx, run.Status, duration)

			fmt.Println()
			if run.Status == datafactory.PipelineRunStatusSucceeded {
				fmt.Println("✅ Run finished!")
			} else {
				fmt.Printf("❌ Run finished with status %s\n", run.Status)
			}
			fmt.Printf("   Run ID:   %s\n", runID)
			fmt.Printf("   Status:   %s\n", run.Status)
			fmt.Printf("   Duration: %s\n", duration)
			if run.Message != "" {
				fmt.Printf("   Message:  %s\n", run.Message)
			}

			return &RunResult{
				RunID:      runID,
				Status:     string(run.Status),
				DurationMs: duration.Milliseconds(),
			}, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, oops.Wrapf(ctx.Err(), "canceled waiting for run %s", runID)
		}
	}
}

// logFailedActivities queries the run's activity runs and logs each failed
// one with its error, so the operator does not have to open the portal.
func (o *RunOp) logFailedActivities(ctx context.Context, runID string, start time.Time) {
	output, err := o.df.QueryActivityRuns(ctx, &datafactory.QueryActivityRunsInput{
		RunID:             runID,
		LastUpdatedAfter:  start.Add(-time.Minute),
		LastUpdatedBefore: o.clock.Now().Add(time.Minute),
	})
	if err != nil {
		slog.Warnw(ctx, "failed to query activity runs", "runId", runID, "error", err)
		return
	}

	for _, activity := range output.ActivityRuns {
		if activity.Status != string(datafactory.PipelineRunStatusFailed) {
			continue
		}
		message := ""
		if activity.Error != nil {
			message = activity.Error.Message
		}
		slog.Warnw(ctx, "activity failed",
			"runId", runID,
			"pipeline", activity.PipelineName,
			"activity", activity.ActivityName,
			"activityType", activity.ActivityType,
			"error", message,
		)
	}
}

// postRunMetrics posts gauge metrics about the finished run to Datadog.
// Posting failures are warnings, never operation failures.
func (o *RunOp) postRunMetrics(ctx context.Context, status datafactory.PipelineRunStatus, duration time.Duration) {
	if o.datadog == nil {
		return
	}

	now := float64(o.clock.Now().Unix())
	tags := []string{
		"pipeline:" + o.PipelineName,
		"factory:" + o.FactoryName,
	}
	metrics := []datadog.Metric{
		{
			Metric: datadog.String("adfops.pipelinerun.duration"),
			Points: []datadog.DataPoint{{datadog.Float64(now), datadog.Float64(duration.Seconds())}},
			Type:   datadog.String("gauge"),
			Tags:   tags,
		},
		{
			Metric: datadog.String("adfops.pipelinerun.finish"),
			Points: []datadog.DataPoint{{datadog.Float64(now), datadog.Float64(1)}},
			Type:   datadog.String("gauge"),
			Tags:   append([]string{"status:" + string(status)}, tags...),
		},
	}

	if err := o.datadog.PostMetrics(metrics); err != nil {
		slog.Warnw(ctx, "failed to post run metrics to datadog", "error", err)
	}
}
