package datafactory

import (
	"context"
	"net/http"

	"github.com/samsarahq/go/oops"
)

// Linked service types referenced by the generated pipelines.
// https://learn.microsoft.com/en-us/azure/data-factory/connector-overview
const (
	LinkedServiceTypeGoogleBigQuery   = "GoogleBigQuery"
	LinkedServiceTypeAzureBlobStorage = "AzureBlobStorage"
)

// LinkedService is the properties block of a linked service resource. The
// type-specific connection settings are opaque to this repo; only the type
// discriminator matters for resolution.
type LinkedService struct {
	Type           string                 `json:"type"`
	Description    string                 `json:"description,omitempty"`
	TypeProperties map[string]interface{} `json:"typeProperties,omitempty"`
}

type LinkedServiceResource struct {
	ID         string        `json:"id,omitempty"`
	Name       string        `json:"name,omitempty"`
	Properties LinkedService `json:"properties"`
}

// LinkedServiceReference is how datasets point at a linked service.
type LinkedServiceReference struct {
	ReferenceName string `json:"referenceName"`
	Type          string `json:"type"`
}

// NewLinkedServiceReference builds a reference to a linked service by name.
func NewLinkedServiceReference(name string) LinkedServiceReference {
	return LinkedServiceReference{
		ReferenceName: name,
		Type:          "LinkedServiceReference",
	}
}

type GetLinkedServiceInput struct {
	Name string
}

type GetLinkedServiceOutput struct {
	LinkedServiceResource
}

type ListLinkedServicesInput struct {
}

type ListLinkedServicesOutput struct {
	LinkedServices []*LinkedServiceResource
}

type LinkedServicesAPI interface {
	GetLinkedService(context.Context, *GetLinkedServiceInput) (*GetLinkedServiceOutput, error)
	ListLinkedServices(context.Context, *ListLinkedServicesInput) (*ListLinkedServicesOutput, error)
}

func (c *Client) GetLinkedService(ctx context.Context, input *GetLinkedServiceInput) (*GetLinkedServiceOutput, error) {
	var output GetLinkedServiceOutput
	if err := c.do(ctx, http.MethodGet, "linkedservices/"+input.Name, nil, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

// ListLinkedServices returns every linked service in the factory, following
// nextLink pagination.
func (c *Client) ListLinkedServices(ctx context.Context, input *ListLinkedServicesInput) (*ListLinkedServicesOutput, error) {
	var output ListLinkedServicesOutput

	next := c.url("linkedservices")
	for next != "" {
		var page struct {
			Value    []*LinkedServiceResource `json:"value"`
			NextLink string                   `json:"nextLink"`
		}
		if err := c.doURL(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, oops.Wrapf(err, "")
		}
		output.LinkedServices = append(output.LinkedServices, page.Value...)
		next = page.NextLink
	}

	return &output, nil
}
