package azure

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/bschooled/BigQuery-to-AzureBlob/bigqueryblob"
	"github.com/bschooled/BigQuery-to-AzureBlob/datafactory"
)

// fakeRunAPI serves a scripted sequence of run statuses. The last status
// repeats once the script is exhausted.
type fakeRunAPI struct {
	statuses []datafactory.PipelineRunStatus

	createdParams map[string]interface{}
	statusCalls   int
	queriedRuns   bool
	activityRuns  []*datafactory.ActivityRun
}

func (f *fakeRunAPI) GetPipeline(ctx context.Context, input *datafactory.GetPipelineInput) (*datafactory.GetPipelineOutput, error) {
	return &datafactory.GetPipelineOutput{}, nil
}

func (f *fakeRunAPI) CreatePipelineRun(ctx context.Context, input *datafactory.CreatePipelineRunInput) (*datafactory.CreatePipelineRunOutput, error) {
	f.createdParams = input.Parameters
	return &datafactory.CreatePipelineRunOutput{RunID: "run-1"}, nil
}

func (f *fakeRunAPI) GetPipelineRun(ctx context.Context, input *datafactory.GetPipelineRunInput) (*datafactory.GetPipelineRunOutput, error) {
	i := f.statusCalls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.statusCalls++
	return &datafactory.GetPipelineRunOutput{PipelineRun: datafactory.PipelineRun{
		RunID:  input.RunID,
		Status: f.statuses[i],
	}}, nil
}

func (f *fakeRunAPI) QueryActivityRuns(ctx context.Context, input *datafactory.QueryActivityRunsInput) (*datafactory.QueryActivityRunsOutput, error) {
	f.queriedRuns = true
	return &datafactory.QueryActivityRunsOutput{ActivityRuns: f.activityRuns}, nil
}

func newTestRunOp(df *fakeRunAPI, clk clock.Clock, wait bool) *RunOp {
	return &RunOp{
		ResourceGroup: "rg",
		FactoryName:   "factory",
		PipelineName:  "master_bigquery_to_blob",
		FileType:      "json",
		Wait:          wait,
		PollInterval:  15 * time.Second,
		df:            df,
		clock:         clk,
		fileType:      bigqueryblob.FileFormatJSON,
	}
}

func TestRunOpTriggerWithoutWait(t *testing.T) {
	df := &fakeRunAPI{}
	op := newTestRunOp(df, clock.NewMock(), false)

	result, err := op.Execute(context.Background())
	require.NoError(t, err)

	runResult := result.(*RunResult)
	require.Equal(t, "run-1", runResult.RunID)
	require.Equal(t, string(datafactory.PipelineRunStatusInProgress), runResult.Status)
	require.Equal(t, map[string]interface{}{"fileType": "json"}, df.createdParams)
	require.Zero(t, df.statusCalls)
}

func TestRunOpWaitSucceeded(t *testing.T) {
	df := &fakeRunAPI{statuses: []datafactory.PipelineRunStatus{
		datafactory.PipelineRunStatusSucceeded,
	}}
	op := newTestRunOp(df, clock.NewMock(), true)

	result, err := op.Execute(context.Background())
	require.NoError(t, err)

	runResult := result.(*RunResult)
	require.Equal(t, "run-1", runResult.RunID)
	require.Equal(t, string(datafactory.PipelineRunStatusSucceeded), runResult.Status)
	require.Equal(t, 1, df.statusCalls)
	require.False(t, df.queriedRuns)
}

func TestRunOpWaitPollsUntilTerminal(t *testing.T) {
	df := &fakeRunAPI{statuses: []datafactory.PipelineRunStatus{
		datafactory.PipelineRunStatusQueued,
		datafactory.PipelineRunStatusInProgress,
		datafactory.PipelineRunStatusInProgress,
		datafactory.PipelineRunStatusSucceeded,
	}}
	clk := clock.NewMock()
	op := newTestRunOp(df, clk, true)

	done := make(chan struct{})
	var result any
	var err error
	go func() {
		defer close(done)
		result, err = op.Execute(context.Background())
	}()

	// Drive the mock clock until the poll loop observes the terminal status.
	for {
		select {
		case <-done:
			require.NoError(t, err)
			runResult := result.(*RunResult)
			require.Equal(t, string(datafactory.PipelineRunStatusSucceeded), runResult.Status)
			require.Equal(t, 4, df.statusCalls)
			return
		case <-time.After(10 * time.Millisecond):
			clk.Add(op.PollInterval)
		}
	}
}

func TestRunOpWaitFailedQueriesActivityRuns(t *testing.T) {
	df := &fakeRunAPI{
		statuses: []datafactory.PipelineRunStatus{
			datafactory.PipelineRunStatusInProgress,
			datafactory.PipelineRunStatusFailed,
		},
		activityRuns: []*datafactory.ActivityRun{
			{
				ActivityName: "copy_json",
				ActivityType: "Copy",
				PipelineName: "copy_analytics_events",
				Status:       "Failed",
				Error:        &datafactory.ActivityRunError{ErrorCode: "2200", Message: "source unreachable"},
			},
		},
	}
	clk := clock.NewMock()
	op := newTestRunOp(df, clk, true)

	done := make(chan struct{})
	var result any
	var err error
	go func() {
		defer close(done)
		result, err = op.Execute(context.Background())
	}()

	for {
		select {
		case <-done:
			require.NoError(t, err)
			runResult := result.(*RunResult)
			require.Equal(t, string(datafactory.PipelineRunStatusFailed), runResult.Status)
			require.True(t, df.queriedRuns)
			return
		case <-time.After(10 * time.Millisecond):
			clk.Add(op.PollInterval)
		}
	}
}

func TestRunOpValidateFileType(t *testing.T) {
	op := &RunOp{
		ResourceGroup: "rg",
		FactoryName:   "factory",
		PipelineName:  "master_bigquery_to_blob",
		FileType:      "avro",
		df:            &fakeRunAPI{},
	}
	err := op.Validate(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "avro")
}
