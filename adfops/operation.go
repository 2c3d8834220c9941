// Package adfops provides reusable operational automation for the
// BigQuery-to-blob Data Factory estate.
package adfops

import "context"

// Operation defines the contract that all adfops operations must implement.
//
// The framework automatically calls methods in order: Validate -> Plan -> Execute.
// Developers only implement business logic; the framework handles:
//   - Calling Validate() first to check inputs
//   - Calling Plan() to show what will happen (dry-run)
//   - Prompting for confirmation (unless --yes flag)
//   - Calling Execute() to perform the action
//
// Each operation defines its own result struct. Callers use type assertion:
//
//	result, err := adfops.Run(ctx, op)
//	provisionResult := result.(*azure.ProvisionResult)
type Operation interface {
	// Name returns the operation identifier (e.g., "provision").
	Name() string

	// Description returns a short description of what this operation does.
	Description() string

	// Validate checks that all required inputs are provided and valid.
	// Called first before any other method.
	Validate(ctx context.Context) error

	// Plan shows what would happen without making changes (dry-run).
	// Should print the planned actions to console.
	// Called after Validate(), before Execute().
	Plan(ctx context.Context) error

	// Execute performs the actual operation.
	// Returns the operation's typed result struct (use type assertion to access).
	// Only called after Plan() and user confirmation.
	Execute(ctx context.Context) (any, error)
}

// Run executes an operation with the standard flow: Validate -> Plan -> Execute.
// This is for programmatic use from other tools (no confirmation prompts).
// For dry-run, call Validate() and Plan() directly without Execute().
//
// The returned value is the operation's typed result struct. Use type assertion:
//
//	result, err := adfops.Run(ctx, op)
//	deployResult := result.(*azure.DeployResult)
func Run(ctx context.Context, op Operation) (any, error) {
	if err := op.Validate(ctx); err != nil {
		return nil, err
	}
	if err := op.Plan(ctx); err != nil {
		return nil, err
	}
	return op.Execute(ctx)
}
