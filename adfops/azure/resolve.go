package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/samsarahq/go/oops"

	"github.com/bschooled/BigQuery-to-AzureBlob/datafactory"
	"github.com/bschooled/BigQuery-to-AzureBlob/slog"
)

// =============================================================================
// Linked-Service Resolver
// =============================================================================

// Prompter is the interactive surface the resolver uses when discovery is
// ambiguous. The CLI wires its confirm prompts in; a nil Prompter means
// non-interactive mode (--yes or --dry-run), where ambiguity is an error.
type Prompter interface {
	// Select asks the user to choose one of options, returning its index.
	Select(message string, options []string) (int, error)

	// Input asks the user for a free-text value.
	Input(message string) (string, error)
}

// linkedServiceSelection is the resolved pair of linked services the
// generated datasets reference.
type linkedServiceSelection struct {
	BigQuery string
	Blob     string
}

// resolveLinkedServices discovers the BigQuery source and blob sink linked
// services by type, honoring explicit names when given. The resolver never
// creates or mutates linked services; every resolved name exists in the
// factory at resolution time.
func resolveLinkedServices(ctx context.Context, df datafactory.LinkedServicesAPI, explicitBigQuery, explicitBlob string, prompter Prompter) (*linkedServiceSelection, error) {
	output, err := df.ListLinkedServices(ctx, &datafactory.ListLinkedServicesInput{})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to list linked services")
	}

	bigQuery, err := resolveOne(ctx, output.LinkedServices, resolveSpec{
		role:     "BigQuery source",
		wantType: datafactory.LinkedServiceTypeGoogleBigQuery,
		explicit: explicitBigQuery,
		flag:     "--bigquery-linked-service",
	}, prompter)
	if err != nil {
		return nil, oops.Wrapf(err, "")
	}

	blob, err := resolveOne(ctx, output.LinkedServices, resolveSpec{
		role:     "blob storage sink",
		wantType: datafactory.LinkedServiceTypeAzureBlobStorage,
		explicit: explicitBlob,
		flag:     "--blob-linked-service",
	}, prompter)
	if err != nil {
		return nil, oops.Wrapf(err, "")
	}

	return &linkedServiceSelection{BigQuery: bigQuery, Blob: blob}, nil
}

type resolveSpec struct {
	role     string
	wantType string
	explicit string
	flag     string
}

func resolveOne(ctx context.Context, all []*datafactory.LinkedServiceResource, spec resolveSpec, prompter Prompter) (string, error) {
	byName := make(map[string]*datafactory.LinkedServiceResource, len(all))
	for _, ls := range all {
		byName[ls.Name] = ls
	}

	verify := func(name string) error {
		ls, ok := byName[name]
		if !ok {
			return oops.Errorf("linked service %q does not exist in the factory", name)
		}
		if ls.Properties.Type != spec.wantType {
			return oops.Errorf("linked service %q has type %s, expected %s for the %s", name, ls.Properties.Type, spec.wantType, spec.role)
		}
		return nil
	}

	// An explicit flag or config value bypasses discovery but is still
	// verified against the factory.
	if spec.explicit != "" {
		if err := verify(spec.explicit); err != nil {
			return "", oops.Wrapf(err, "")
		}
		return spec.explicit, nil
	}

	var candidates []string
	for _, ls := range all {
		if ls.Properties.Type == spec.wantType {
			candidates = append(candidates, ls.Name)
		}
	}

	switch len(candidates) {
	case 1:
		slog.Infow(ctx, "resolved linked service", "role", spec.role, "linkedService", candidates[0])
		return candidates[0], nil

	case 0:
		if prompter == nil {
			return "", oops.Errorf("no %s linked service of type %s exists in the factory: create one, or pass %s", spec.role, spec.wantType, spec.flag)
		}
		name, err := prompter.Input(fmt.Sprintf("No %s linked service of type %s found. Enter the linked service name to use", spec.role, spec.wantType))
		if err != nil {
			return "", oops.Wrapf(err, "")
		}
		if err := verify(name); err != nil {
			return "", oops.Wrapf(err, "")
		}
		return name, nil

	default:
		if prompter == nil {
			return "", oops.Errorf("multiple %s candidates exist (%s): pass %s to choose one", spec.role, strings.Join(candidates, ", "), spec.flag)
		}
		i, err := prompter.Select(fmt.Sprintf("Multiple %s linked services found. Choose one", spec.role), candidates)
		if err != nil {
			return "", oops.Wrapf(err, "")
		}
		return candidates[i], nil
	}
}
