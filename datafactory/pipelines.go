package datafactory

import (
	"context"
	"net/http"

	"github.com/samsarahq/go/oops"
)

// Activity types used by the generated pipelines.
const (
	ActivityTypeCopy            = "Copy"
	ActivityTypeIfCondition     = "IfCondition"
	ActivityTypeExecutePipeline = "ExecutePipeline"
)

// Copy source and sink types.
const (
	CopySourceTypeGoogleBigQuery = "GoogleBigQuerySource"
	CopySinkTypeJSON             = "JsonSink"
	CopySinkTypeParquet          = "ParquetSink"
)

// DependencyConditionSucceeded chains activities so each one runs only after
// the previous one succeeded.
const DependencyConditionSucceeded = "Succeeded"

// Pipeline is the properties block of a pipeline resource.
type Pipeline struct {
	Description string                   `json:"description,omitempty"`
	Activities  []Activity               `json:"activities"`
	Parameters  map[string]ParameterSpec `json:"parameters,omitempty"`
	Folder      *Folder                  `json:"folder,omitempty"`
}

type PipelineResource struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Properties Pipeline `json:"properties"`
}

// ParameterSpec declares a pipeline parameter.
type ParameterSpec struct {
	Type         string      `json:"type"`
	DefaultValue interface{} `json:"defaultValue,omitempty"`
}

// Activity is one step of a pipeline. TypeProperties is one of the
// *TypeProperties structs below, matching Type.
type Activity struct {
	Name           string               `json:"name"`
	Type           string               `json:"type"`
	Description    string               `json:"description,omitempty"`
	DependsOn      []ActivityDependency `json:"dependsOn,omitempty"`
	Policy         *ActivityPolicy      `json:"policy,omitempty"`
	TypeProperties interface{}          `json:"typeProperties"`
	Inputs         []DatasetReference   `json:"inputs,omitempty"`
	Outputs        []DatasetReference   `json:"outputs,omitempty"`
}

type ActivityDependency struct {
	Activity             string   `json:"activity"`
	DependencyConditions []string `json:"dependencyConditions"`
}

// ActivityPolicy carries the execution policy of a copy activity. Timeout is
// an ISO-style d.hh:mm:ss duration string, e.g. "0.00:30:00".
type ActivityPolicy struct {
	Timeout                string `json:"timeout,omitempty"`
	Retry                  int    `json:"retry"`
	RetryIntervalInSeconds int    `json:"retryIntervalInSeconds,omitempty"`
}

// Expression is an ADF expression-language value.
type Expression struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// NewExpression wraps an expression string in the required envelope.
func NewExpression(value string) Expression {
	return Expression{Type: "Expression", Value: value}
}

// IfConditionTypeProperties is the typeProperties of an IfCondition activity.
type IfConditionTypeProperties struct {
	Expression        Expression `json:"expression"`
	IfTrueActivities  []Activity `json:"ifTrueActivities,omitempty"`
	IfFalseActivities []Activity `json:"ifFalseActivities,omitempty"`
}

// CopyTypeProperties is the typeProperties of a Copy activity.
type CopyTypeProperties struct {
	Source CopySource `json:"source"`
	Sink   CopySink   `json:"sink"`
}

type CopySource struct {
	Type string `json:"type"`
}

type CopySink struct {
	Type string `json:"type"`
}

// ExecutePipelineTypeProperties is the typeProperties of an ExecutePipeline
// activity.
type ExecutePipelineTypeProperties struct {
	Pipeline         PipelineReference      `json:"pipeline"`
	Parameters       map[string]interface{} `json:"parameters,omitempty"`
	WaitOnCompletion bool                   `json:"waitOnCompletion"`
}

// PipelineReference is how execute-pipeline activities point at their child.
type PipelineReference struct {
	ReferenceName string `json:"referenceName"`
	Type          string `json:"type"`
}

// NewPipelineReference builds a reference to a pipeline by name.
func NewPipelineReference(name string) PipelineReference {
	return PipelineReference{
		ReferenceName: name,
		Type:          "PipelineReference",
	}
}

type GetPipelineInput struct {
	Name string
}

type GetPipelineOutput struct {
	PipelineResource
}

type CreateOrUpdatePipelineInput struct {
	Name     string
	Pipeline Pipeline
}

type CreateOrUpdatePipelineOutput struct {
	PipelineResource
}

type DeletePipelineInput struct {
	Name string
}

type DeletePipelineOutput struct {
}

type ListPipelinesInput struct {
}

type ListPipelinesOutput struct {
	Pipelines []*PipelineResource
}

type PipelinesAPI interface {
	GetPipeline(context.Context, *GetPipelineInput) (*GetPipelineOutput, error)
	CreateOrUpdatePipeline(context.Context, *CreateOrUpdatePipelineInput) (*CreateOrUpdatePipelineOutput, error)
	DeletePipeline(context.Context, *DeletePipelineInput) (*DeletePipelineOutput, error)
	ListPipelines(context.Context, *ListPipelinesInput) (*ListPipelinesOutput, error)
}

func (c *Client) GetPipeline(ctx context.Context, input *GetPipelineInput) (*GetPipelineOutput, error) {
	var output GetPipelineOutput
	if err := c.do(ctx, http.MethodGet, "pipelines/"+input.Name, nil, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

// CreateOrUpdatePipeline is an upsert: the control plane replaces the whole
// definition regardless of whether the pipeline exists.
func (c *Client) CreateOrUpdatePipeline(ctx context.Context, input *CreateOrUpdatePipelineInput) (*CreateOrUpdatePipelineOutput, error) {
	payload := PipelineResource{Properties: input.Pipeline}
	var output CreateOrUpdatePipelineOutput
	if err := c.do(ctx, http.MethodPut, "pipelines/"+input.Name, payload, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

func (c *Client) DeletePipeline(ctx context.Context, input *DeletePipelineInput) (*DeletePipelineOutput, error) {
	var output DeletePipelineOutput
	if err := c.do(ctx, http.MethodDelete, "pipelines/"+input.Name, nil, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

func (c *Client) ListPipelines(ctx context.Context, input *ListPipelinesInput) (*ListPipelinesOutput, error) {
	var output ListPipelinesOutput

	next := c.url("pipelines")
	for next != "" {
		var page struct {
			Value    []*PipelineResource `json:"value"`
			NextLink string              `json:"nextLink"`
		}
		if err := c.doURL(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, oops.Wrapf(err, "")
		}
		output.Pipelines = append(output.Pipelines, page.Value...)
		next = page.NextLink
	}

	return &output, nil
}
