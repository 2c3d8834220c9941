package datafactory

import (
	"context"
	"net/http"
	"time"

	"github.com/samsarahq/go/oops"
)

// IdentityTypeSystemAssigned is the managed identity type the provisioner
// requests on factory creation so the factory can authenticate to storage
// without keys.
const IdentityTypeSystemAssigned = "SystemAssigned"

// FactoryIdentity is the managed identity block on a factory resource.
type FactoryIdentity struct {
	Type        string `json:"type"`
	PrincipalID string `json:"principalId,omitempty"`
	TenantID    string `json:"tenantId,omitempty"`
}

type FactoryProperties struct {
	ProvisioningState string     `json:"provisioningState,omitempty"`
	CreateTime        *time.Time `json:"createTime,omitempty"`
	Version           string     `json:"version,omitempty"`
}

type FactoryResource struct {
	ID         string             `json:"id,omitempty"`
	Name       string             `json:"name,omitempty"`
	Location   string             `json:"location,omitempty"`
	Identity   *FactoryIdentity   `json:"identity,omitempty"`
	Properties *FactoryProperties `json:"properties,omitempty"`
}

type GetFactoryInput struct {
}

type GetFactoryOutput struct {
	FactoryResource
}

type CreateOrUpdateFactoryInput struct {
	Location string
	Identity *FactoryIdentity
}

type CreateOrUpdateFactoryOutput struct {
	FactoryResource
}

type FactoriesAPI interface {
	GetFactory(context.Context, *GetFactoryInput) (*GetFactoryOutput, error)
	CreateOrUpdateFactory(context.Context, *CreateOrUpdateFactoryInput) (*CreateOrUpdateFactoryOutput, error)
}

// GetFactory fetches the factory this client is scoped to. Use IsNotFound on
// the returned error for existence checks.
func (c *Client) GetFactory(ctx context.Context, input *GetFactoryInput) (*GetFactoryOutput, error) {
	var output GetFactoryOutput
	if err := c.do(ctx, http.MethodGet, "", nil, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}

func (c *Client) CreateOrUpdateFactory(ctx context.Context, input *CreateOrUpdateFactoryInput) (*CreateOrUpdateFactoryOutput, error) {
	payload := FactoryResource{
		Location: input.Location,
		Identity: input.Identity,
	}
	var output CreateOrUpdateFactoryOutput
	if err := c.do(ctx, http.MethodPut, "", payload, &output); err != nil {
		return nil, oops.Wrapf(err, "")
	}
	return &output, nil
}
