package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/cache"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/condition"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/policy"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

func newTestEngine(t *testing.T, store policy.Store, cacheEnabled bool) *Engine {
	t.Helper()

	cfg := DefaultConfig()
	cfg.CacheEnabled = cacheEnabled

	var c cache.ResultCache
	if cacheEnabled {
		c = cache.NewLocal(100)
	}
	return New(cfg, store, c, nil)
}

func addPolicy(t *testing.T, store policy.Store, p *types.Policy) {
	t.Helper()
	if err := store.Add(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func denyDeletePolicy() *types.Policy {
	return &types.Policy{
		PolicyKey:  "deny-prod-delete",
		PolicyName: "Deny production deletes",
		Enabled:    true,
		Status:     types.PolicyStatusActive,
		Global:     true,
		Priority:   100,
		Actions:    []string{"notify-security"},
		ConditionsJSON: `{"environmentCondition":{"allowedEnvironments":["prod"]}}`,
		RulesJSON:      `{"rules":[{"ruleId":"r1","condition":"user.role != \"admin\"","action":"DENY","enabled":true}]}`,
	}
}

func TestEvaluate_DenyMatch(t *testing.T) {
	store := policy.NewMemoryStore()
	addPolicy(t, store, denyDeletePolicy())

	eng := newTestEngine(t, store, false)

	req := &types.EvaluationRequest{
		ResourceType: "vm",
		Action:       "delete",
		UserID:       "u1",
		Context: map[string]interface{}{
			condition.ContextKeyUserRole:    "viewer",
			condition.ContextKeyEnvironment: "prod",
		},
	}

	res, err := eng.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate returned an error: %v", err)
	}

	if !res.IsDenied() {
		t.Fatalf("got %v, want DENY", res.Decision)
	}
	if res.PolicyKey != "deny-prod-delete" {
		t.Errorf("decision not attributed to the matching policy: %q", res.PolicyKey)
	}
	if len(res.Actions) != 1 || res.Actions[0] != "notify-security" {
		t.Errorf("DENY should surface the policy's actions, got %v", res.Actions)
	}
	if res.EvaluationID == "" {
		t.Error("result should carry an evaluation id")
	}
}

func TestEvaluate_DefaultAllowWhenNothingMatches(t *testing.T) {
	store := policy.NewMemoryStore()
	addPolicy(t, store, denyDeletePolicy())

	eng := newTestEngine(t, store, false)

	// staging request, the prod-only condition set does not apply
	req := &types.EvaluationRequest{
		ResourceType: "vm",
		Action:       "delete",
		UserID:       "u1",
		Context: map[string]interface{}{
			condition.ContextKeyUserRole:    "viewer",
			condition.ContextKeyEnvironment: "staging",
		},
	}

	res, _ := eng.Evaluate(context.Background(), req)
	if !res.IsAllowed() {
		t.Fatalf("got %v, want ALLOW", res.Decision)
	}
	if res.Reason != "no applicable policy; default allow" {
		t.Errorf("got reason %q", res.Reason)
	}
	if res.PolicyKey != "" {
		t.Error("fallback decision must not carry a policy attribution")
	}
}

func TestEvaluate_PriorityOrderPicksFirstConclusive(t *testing.T) {
	store := policy.NewMemoryStore()

	addPolicy(t, store, &types.Policy{
		PolicyKey: "low-allow",
		Enabled:   true,
		Status:    types.PolicyStatusActive,
		Global:    true,
		Priority:  1,
		RulesJSON: `{"rules":[{"ruleId":"r1","action":"ALLOW","enabled":true}]}`,
	})
	addPolicy(t, store, &types.Policy{
		PolicyKey: "high-deny",
		Enabled:   true,
		Status:    types.PolicyStatusActive,
		Global:    true,
		Priority:  10,
		RulesJSON: `{"rules":[{"ruleId":"r1","action":"DENY","enabled":true}]}`,
	})

	eng := newTestEngine(t, store, false)

	req := &types.EvaluationRequest{ResourceType: "vm", Action: "read", UserID: "u1"}
	res, _ := eng.Evaluate(context.Background(), req)

	if !res.IsDenied() || res.PolicyKey != "high-deny" {
		t.Errorf("got %v from %q, want DENY from high-deny", res.Decision, res.PolicyKey)
	}
}

func TestEvaluate_InconclusivePolicyDefersToNext(t *testing.T) {
	store := policy.NewMemoryStore()

	// higher priority but its only rule cannot match
	addPolicy(t, store, &types.Policy{
		PolicyKey: "high-inconclusive",
		Enabled:   true,
		Status:    types.PolicyStatusActive,
		Global:    true,
		Priority:  10,
		RulesJSON: `{"rules":[{"ruleId":"r1","condition":"user.role == \"auditor\"","action":"DENY","enabled":true}]}`,
	})
	addPolicy(t, store, &types.Policy{
		PolicyKey: "low-allow",
		Enabled:   true,
		Status:    types.PolicyStatusActive,
		Global:    true,
		Priority:  1,
		RulesJSON: `{"rules":[{"ruleId":"r1","action":"ALLOW","enabled":true}]}`,
	})

	eng := newTestEngine(t, store, false)

	req := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1",
		Context: map[string]interface{}{condition.ContextKeyUserRole: "viewer"},
	}
	res, _ := eng.Evaluate(context.Background(), req)

	if !res.IsAllowed() || res.PolicyKey != "low-allow" {
		t.Errorf("got %v from %q, want ALLOW from low-allow", res.Decision, res.PolicyKey)
	}
}

func TestEvaluate_ValidationFailureDenies(t *testing.T) {
	eng := newTestEngine(t, policy.NewMemoryStore(), false)

	res, err := eng.Evaluate(context.Background(), &types.EvaluationRequest{Action: "read"})
	if err != nil {
		t.Fatalf("validation failures must not surface as errors: %v", err)
	}
	if !res.IsDenied() {
		t.Errorf("got %v, want DENY", res.Decision)
	}
}

func TestEvaluate_ExpiredRequestDenies(t *testing.T) {
	eng := newTestEngine(t, policy.NewMemoryStore(), false)

	past := time.Now().Add(-time.Minute)
	req := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1",
		ExpiresAt: &past,
	}

	res, _ := eng.Evaluate(context.Background(), req)
	if !res.IsDenied() {
		t.Errorf("got %v, want DENY for an expired request", res.Decision)
	}
}

type erroringStore struct {
	policy.MemoryStore
}

func (e *erroringStore) FindApplicablePolicies(ctx context.Context, resourceType, action, tenantKey string) ([]*types.Policy, error) {
	return nil, errors.New("connection refused")
}

func TestEvaluate_StoreErrorDenies(t *testing.T) {
	eng := newTestEngine(t, &erroringStore{}, false)

	req := &types.EvaluationRequest{ResourceType: "vm", Action: "read", UserID: "u1"}
	res, err := eng.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("store failures must not surface as errors: %v", err)
	}
	if !res.IsDenied() || res.Reason != "policy evaluation error" {
		t.Errorf("got %v (%q), want DENY with the evaluation error reason", res.Decision, res.Reason)
	}
}

func TestEvaluate_CacheHit(t *testing.T) {
	store := policy.NewMemoryStore()
	addPolicy(t, store, denyDeletePolicy())

	eng := newTestEngine(t, store, true)
	ctx := context.Background()

	req := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{
			condition.ContextKeyUserRole:    "viewer",
			condition.ContextKeyEnvironment: "prod",
		},
	}

	first, _ := eng.Evaluate(ctx, req)
	if first.CacheHit {
		t.Fatal("first evaluation must not be a cache hit")
	}

	second, _ := eng.Evaluate(ctx, req)
	if !second.CacheHit {
		t.Fatal("second identical evaluation should hit the cache")
	}
	if second.Decision != first.Decision || second.PolicyKey != first.PolicyKey {
		t.Error("cached result should carry the original decision")
	}
}

func TestEvaluate_EvictionForcesReevaluation(t *testing.T) {
	store := policy.NewMemoryStore()
	addPolicy(t, store, denyDeletePolicy())

	eng := newTestEngine(t, store, true)
	ctx := context.Background()

	req := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{
			condition.ContextKeyUserRole:    "viewer",
			condition.ContextKeyEnvironment: "prod",
		},
	}

	eng.Evaluate(ctx, req)

	// drop the deny policy and evict; the next evaluation must see the change
	if err := store.Remove(ctx, "deny-prod-delete"); err != nil {
		t.Fatal(err)
	}
	eng.EvictPolicyCache(ctx, "vm", "delete")

	res, _ := eng.Evaluate(ctx, req)
	if !res.IsAllowed() {
		t.Errorf("got %v, want ALLOW after the deny policy was removed", res.Decision)
	}
	if res.CacheHit {
		t.Error("post-eviction evaluation must not be a cache hit")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	store := policy.NewMemoryStore()
	addPolicy(t, store, denyDeletePolicy())

	eng := newTestEngine(t, store, false)
	ctx := context.Background()

	req := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{
			condition.ContextKeyUserRole:    "viewer",
			condition.ContextKeyEnvironment: "prod",
		},
	}

	first, _ := eng.Evaluate(ctx, req)
	for i := 0; i < 10; i++ {
		res, _ := eng.Evaluate(ctx, req)
		if res.Decision != first.Decision || res.PolicyKey != first.PolicyKey {
			t.Fatalf("iteration %d: decision changed to %v/%q", i, res.Decision, res.PolicyKey)
		}
	}
}

func TestEvaluate_TenantScopedPolicy(t *testing.T) {
	store := policy.NewMemoryStore()

	addPolicy(t, store, &types.Policy{
		PolicyKey: "tenant-a-deny",
		Enabled:   true,
		Status:    types.PolicyStatusActive,
		TenantKey: "tenant-a",
		Priority:  5,
		RulesJSON: `{"rules":[{"ruleId":"r1","action":"DENY","enabled":true}]}`,
	})

	eng := newTestEngine(t, store, false)
	ctx := context.Background()

	denied, _ := eng.Evaluate(ctx, &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1", TenantKey: "tenant-a",
	})
	if !denied.IsDenied() {
		t.Errorf("tenant-a: got %v, want DENY", denied.Decision)
	}

	allowed, _ := eng.Evaluate(ctx, &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1", TenantKey: "tenant-b",
	})
	if !allowed.IsAllowed() {
		t.Errorf("tenant-b: got %v, want the default ALLOW", allowed.Decision)
	}
}

func TestEvaluate_ConcurrentSameFingerprint(t *testing.T) {
	store := policy.NewMemoryStore()
	addPolicy(t, store, denyDeletePolicy())

	eng := newTestEngine(t, store, true)
	ctx := context.Background()

	newReq := func() *types.EvaluationRequest {
		return &types.EvaluationRequest{
			ResourceType: "vm", Action: "delete", UserID: "u1",
			Context: map[string]interface{}{
				condition.ContextKeyUserRole:    "viewer",
				condition.ContextKeyEnvironment: "prod",
			},
		}
	}

	// Warm the cache so every goroutine below reads the same entry.
	if _, err := eng.Evaluate(ctx, newReq()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				res, err := eng.Evaluate(ctx, newReq())
				if err != nil {
					t.Errorf("Evaluate returned an error: %v", err)
					return
				}
				if !res.IsDenied() {
					t.Errorf("got %v, want DENY", res.Decision)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestEvaluate_CacheHitResultIsACopy(t *testing.T) {
	store := policy.NewMemoryStore()
	addPolicy(t, store, denyDeletePolicy())

	eng := newTestEngine(t, store, true)
	ctx := context.Background()

	req := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{
			condition.ContextKeyUserRole:    "viewer",
			condition.ContextKeyEnvironment: "prod",
		},
	}

	eng.Evaluate(ctx, req)
	hit, _ := eng.Evaluate(ctx, req)
	if !hit.CacheHit {
		t.Fatal("second identical evaluation should hit the cache")
	}

	// Mutating the returned result must not leak into the cached entry.
	hit.Reason = "mutated by caller"
	again, _ := eng.Evaluate(ctx, req)
	if again.Reason == "mutated by caller" {
		t.Error("cached entry was mutated through a returned result")
	}
}

func TestEvaluate_StaleResultExpiryDropsEntry(t *testing.T) {
	store := policy.NewMemoryStore()
	addPolicy(t, store, denyDeletePolicy())

	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cfg := DefaultConfig()
	cfg.CacheEnabled = true
	eng := New(cfg, store, cache.NewLocal(100), nil, WithClock(clock))
	ctx := context.Background()

	req := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{
			condition.ContextKeyUserRole:    "viewer",
			condition.ContextKeyEnvironment: "prod",
		},
	}

	first, _ := eng.Evaluate(ctx, req)
	if first.CacheHit {
		t.Fatal("first evaluation must not be a cache hit")
	}

	// The local entry is still live under wall-clock TTL, but the
	// result's own expiresAt has passed on the engine's clock.
	now = first.ExpiresAt.Add(time.Second)

	second, _ := eng.Evaluate(ctx, req)
	if second.CacheHit {
		t.Error("a result past its own expiresAt must not be served from cache")
	}
	if !second.IsDenied() {
		t.Errorf("re-evaluation should reach the same DENY, got %v", second.Decision)
	}
}
