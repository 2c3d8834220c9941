package datafactory

import (
	"context"
	"net/http"
	"time"

	"github.com/samsarahq/go/oops"
)

type PipelineRunStatus string

// https://learn.microsoft.com/en-us/rest/api/datafactory/pipeline-runs/get
const (
	PipelineRunStatusQueued     = PipelineRunStatus("Queued")
	PipelineRunStatusInProgress = PipelineRunStatus("InProgress")
	PipelineRunStatusSucceeded  = PipelineRunStatus("Succeeded")
	PipelineRunStatusFailed     = PipelineRunStatus("Failed")
	PipelineRunStatusCanceling  = PipelineRunStatus("Canceling")
	PipelineRunStatusCancelled  = PipelineRunStatus("Cancelled")
)

// IsTerminal reports whether the run has finished and the status will no
// longer change.
func (s PipelineRunStatus) IsTerminal() bool {
	switch s {
	case PipelineRunStatusSucceeded, PipelineRunStatusFailed, PipelineRunStatusCancelled:
		return true
	}
	return false
}

type PipelineRun struct {
	RunID        string            `json:"runId"`
	PipelineName string            `json:"pipelineName"`
	Status       PipelineRunStatus `json:"status"`
	Message      string            `json:"message"`
	RunStart     *time.Time        `json:"runStart"`
	RunEnd       *time.Time        `json:"runEnd"`
	DurationInMs int64             `json:"durationInMs"`
}

type ActivityRunError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type ActivityRun struct {
	ActivityName    string            `json:"activityName"`
	ActivityType    string            `json:"activityType"`
	PipelineName    string            `json:"pipelineName"`
	Status          string            `json:"status"`
	ActivityRunID   string            `json:"activityRunId"`
	Error           *ActivityRunError `json:"error"`
	ActivityRunEnd  *time.Time        `json:"activityRunEnd"`
	DurationInMs    int64             `json:"durationInMs"`
	PipelineRunID   string            `json:"pipelineRunId"`
	LinkedServiceID string            `json:"linkedServiceName"`
}

type CreatePipelineRunInput struct {
	PipelineName string
	Parameters   map[string]interface{}
}

type CreatePipelineRunOutput struct {
	RunID string `json:"runId"`
}

type GetPipelineRunInput struct {
	RunID string
}

type GetPipelineRunOutput struct {
	PipelineRun
}

type CancelPipelineRunInput struct {
	RunID string
}

type CancelPipelineRunOutput struct {
}

type QueryActivityRunsInput struct {
	RunID             string
	LastUpdatedAfter  time.Time
	LastUpdatedBefore time.Time
}

type QueryActivityRunsOutput struct {
	ActivityRuns []*ActivityRun `json:"value"`
}

type PipelineRunsAPI interface {
	CreatePipelineRun(context.Context, *CreatePipelineRunInput) (*CreatePipelineRunOutput, error)
	GetPipelineRun(context.Context, *GetPipelineRunInput) (*GetPipelineRunOutput, error)
	CancelPipelineRun(context.Context, *CancelPipelineRunInput) (*CancelPipelineRunOutput, error)
	QueryActivityRuns(context.Context, *QueryActivityRunsInput) (*QueryActivityRunsOutput, error)
}

// CreatePipelineRun starts a run of the named pipeline. The run itself
// executes inside the Data Factory service; the returned run ID is the only
// handle on it.
func (c *Client) CreatePipelineRun(ctx context.Context, input *CreatePipelineRunInput) (*CreatePipelineRunOutput, error) {
	var payload interface{}
	if len(input.Parameters) != 0 {
		payload = input.Parameters
	}
	var output CreatePipelineRunOutput
	if err := c.do(ctx, http.MethodPost, "pipelines/"+input.PipelineName+"/createRun", payload, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

func (c *Client) GetPipelineRun(ctx context.Context, input *GetPipelineRunInput) (*GetPipelineRunOutput, error) {
	var output GetPipelineRunOutput
	if err := c.do(ctx, http.MethodGet, "pipelineruns/"+input.RunID, nil, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

func (c *Client) CancelPipelineRun(ctx context.Context, input *CancelPipelineRunInput) (*CancelPipelineRunOutput, error) {
	var output CancelPipelineRunOutput
	if err := c.do(ctx, http.MethodPost, "pipelineruns/"+input.RunID+"/cancel", nil, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

// QueryActivityRuns lists the activity runs of a pipeline run inside the
// given update window, for diagnosing failed runs.
func (c *Client) QueryActivityRuns(ctx context.Context, input *QueryActivityRunsInput) (*QueryActivityRunsOutput, error) {
	payload := struct {
		LastUpdatedAfter  time.Time `json:"lastUpdatedAfter"`
		LastUpdatedBefore time.Time `json:"lastUpdatedBefore"`
	}{
		LastUpdatedAfter:  input.LastUpdatedAfter,
		LastUpdatedBefore: input.LastUpdatedBefore,
	}
	var output QueryActivityRunsOutput
	if err := c.do(ctx, http.MethodPost, "pipelineruns/"+input.RunID+"/queryActivityRuns", payload, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}
