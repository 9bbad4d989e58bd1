// Package policy provides policy storage, resolution, and loading.
package policy

import (
	"context"
	"errors"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// ErrPolicyNotFound is returned when a policy key does not exist
var ErrPolicyNotFound = errors.New("policy not found")

// Store defines the policy read contract the engine depends on, plus
// the administrative operations used by loaders and tests. Records are
// returned raw; applicability filtering and ordering belong to the
// Resolver.
type Store interface {
	// FindApplicablePolicies returns global policies plus, when
	// tenantKey is non-empty, policies scoped to that tenant.
	FindApplicablePolicies(ctx context.Context, resourceType, action, tenantKey string) ([]*types.Policy, error)

	// Get retrieves a policy by key
	Get(ctx context.Context, policyKey string) (*types.Policy, error)

	// GetAll retrieves all policies
	GetAll(ctx context.Context) ([]*types.Policy, error)

	// Add inserts or replaces a policy
	Add(ctx context.Context, p *types.Policy) error

	// Remove deletes a policy by key
	Remove(ctx context.Context, policyKey string) error

	// Count returns the number of stored policies
	Count(ctx context.Context) (int, error)
}
