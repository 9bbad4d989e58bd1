package policy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/cache"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// ResolverConfig configures the policy resolver
type ResolverConfig struct {
	// ListTTL is how long applicable-policy lists stay cached
	ListTTL time.Duration
	// ListCacheSize is the maximum number of cached lists
	ListCacheSize int
}

// DefaultResolverConfig returns the default resolver configuration
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		ListTTL:       5 * time.Minute,
		ListCacheSize: 10000,
	}
}

// Resolver produces the ordered list of candidate policies for a
// request: fetched from the store, filtered to applicable ones, sorted
// by priority descending with createdAt descending as the tie-break.
type Resolver struct {
	store  Store
	lists  *cache.LRU
	config ResolverConfig
	logger *zap.Logger
	clock  func() time.Time
}

// NewResolver creates a policy resolver
func NewResolver(store Store, config ResolverConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ListTTL <= 0 {
		config.ListTTL = DefaultResolverConfig().ListTTL
	}
	if config.ListCacheSize <= 0 {
		config.ListCacheSize = DefaultResolverConfig().ListCacheSize
	}
	return &Resolver{
		store:  store,
		lists:  cache.NewLRU(config.ListCacheSize),
		config: config,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the resolver's clock, used by tests
func (r *Resolver) WithClock(clock func() time.Time) *Resolver {
	r.clock = clock
	return r
}

// Resolve returns the ordered applicable policies for the request
// parameters. Lists are cached per resourceType:action:scope; the scope
// suffix keeps tenant lists separate while still falling under the
// resourceType:action eviction prefix.
func (r *Resolver) Resolve(ctx context.Context, resourceType, action, tenantKey string) ([]*types.Policy, error) {
	key := listKey(resourceType, action, tenantKey)
	if v, ok := r.lists.Get(key); ok {
		if policies, ok := v.([]*types.Policy); ok {
			return policies, nil
		}
	}

	raw, err := r.store.FindApplicablePolicies(ctx, resourceType, action, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("policy store lookup failed: %w", err)
	}

	now := r.clock()
	applicable := make([]*types.Policy, 0, len(raw))
	for _, p := range raw {
		if p != nil && p.IsApplicableAt(now) {
			applicable = append(applicable, p)
		}
	}

	// Higher priority first; most recently created wins ties. Stable so
	// identical inputs always resolve to the same order.
	sort.SliceStable(applicable, func(i, j int) bool {
		if applicable[i].Priority != applicable[j].Priority {
			return applicable[i].Priority > applicable[j].Priority
		}
		return applicable[i].CreatedAt.After(applicable[j].CreatedAt)
	})

	r.lists.Set(key, applicable, r.config.ListTTL)

	r.logger.Debug("resolved applicable policies",
		zap.String("resourceType", resourceType),
		zap.String("action", action),
		zap.String("tenantKey", tenantKey),
		zap.Int("candidates", len(raw)),
		zap.Int("applicable", len(applicable)),
	)

	return applicable, nil
}

// Invalidate evicts cached lists for a resourceType and action across
// all tenant scopes.
func (r *Resolver) Invalidate(resourceType, action string) int {
	return r.lists.DeleteByPrefix(resourceType + ":" + action + ":")
}

// InvalidateAll evicts every cached list
func (r *Resolver) InvalidateAll() {
	r.lists.Clear()
}

// CacheStats returns statistics for the list cache
func (r *Resolver) CacheStats() cache.Stats {
	return r.lists.Stats()
}

func listKey(resourceType, action, tenantKey string) string {
	scope := tenantKey
	if scope == "" {
		scope = types.GlobalScope
	}
	return resourceType + ":" + action + ":" + scope
}
