package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// MemoryStore implements an in-memory policy store. Policies are
// compiled (condition/rule payloads parsed) when added, so evaluation
// never re-parses them.
type MemoryStore struct {
	policies map[string]*types.Policy
	byTenant map[string][]*types.Policy
	global   []*types.Policy
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory policy store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]*types.Policy),
		byTenant: make(map[string][]*types.Policy),
	}
}

// FindApplicablePolicies returns global policies plus tenant-scoped
// policies when tenantKey is set.
func (s *MemoryStore) FindApplicablePolicies(ctx context.Context, resourceType, action, tenantKey string) ([]*types.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*types.Policy, 0, len(s.global))
	result = append(result, s.global...)
	if tenantKey != "" {
		result = append(result, s.byTenant[tenantKey]...)
	}
	return result, nil
}

// Get retrieves a policy by key
func (s *MemoryStore) Get(ctx context.Context, policyKey string) (*types.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[policyKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, policyKey)
	}
	return p, nil
}

// GetAll retrieves all policies
func (s *MemoryStore) GetAll(ctx context.Context) ([]*types.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policies := make([]*types.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		policies = append(policies, p)
	}
	return policies, nil
}

// Add inserts or replaces a policy and compiles its payloads
func (s *MemoryStore) Add(ctx context.Context, p *types.Policy) error {
	if p == nil || p.PolicyKey == "" {
		return fmt.Errorf("policy key is required")
	}

	p.Compile()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.policies[p.PolicyKey]; exists {
		s.removeLocked(p.PolicyKey)
	}

	s.policies[p.PolicyKey] = p
	if p.Global || p.TenantKey == "" {
		s.global = append(s.global, p)
	} else {
		s.byTenant[p.TenantKey] = append(s.byTenant[p.TenantKey], p)
	}
	return nil
}

// Remove deletes a policy by key
func (s *MemoryStore) Remove(ctx context.Context, policyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[policyKey]; !ok {
		return fmt.Errorf("%w: %s", ErrPolicyNotFound, policyKey)
	}
	s.removeLocked(policyKey)
	return nil
}

// Count returns the number of stored policies
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.policies), nil
}

// Clear removes all policies
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies = make(map[string]*types.Policy)
	s.byTenant = make(map[string][]*types.Policy)
	s.global = nil
}

func (s *MemoryStore) removeLocked(policyKey string) {
	p := s.policies[policyKey]
	delete(s.policies, policyKey)

	s.global = removeFromSlice(s.global, policyKey)
	if p != nil && p.TenantKey != "" {
		s.byTenant[p.TenantKey] = removeFromSlice(s.byTenant[p.TenantKey], policyKey)
		if len(s.byTenant[p.TenantKey]) == 0 {
			delete(s.byTenant, p.TenantKey)
		}
	}
}

func removeFromSlice(policies []*types.Policy, policyKey string) []*types.Policy {
	for i, p := range policies {
		if p.PolicyKey == policyKey {
			return append(policies[:i], policies[i+1:]...)
		}
	}
	return policies
}
