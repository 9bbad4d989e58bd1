// Package engine provides the core decision engine for policy evaluation
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/audit"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/cache"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/condition"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/metrics"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/policy"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/rule"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// Engine is the core policy evaluation engine. It resolves applicable
// policies, evaluates their conditions and rules in priority order, and
// caches the resulting decision.
type Engine struct {
	store      policy.Store
	resolver   *policy.Resolver
	conditions *condition.Evaluator
	rules      *rule.Evaluator
	cache      cache.ResultCache
	metrics    metrics.Metrics
	audit      *audit.Logger
	logger     *zap.Logger
	clock      func() time.Time
	config     Config
}

// Config configures the decision engine
type Config struct {
	// CacheEnabled enables caching of evaluation results
	CacheEnabled bool
	// CacheTTL is the time-to-live for cached results
	CacheTTL time.Duration
	// Resolver configures the applicable-policy list cache
	Resolver policy.ResolverConfig
}

// DefaultConfig returns a default engine configuration
func DefaultConfig() Config {
	return Config{
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
		Resolver:     policy.DefaultResolverConfig(),
	}
}

// Option customizes engine construction
type Option func(*Engine)

// WithMetrics attaches a metrics recorder
func WithMetrics(m metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithAuditLogger attaches a decision log
func WithAuditLogger(l *audit.Logger) Option {
	return func(e *Engine) { e.audit = l }
}

// WithClock overrides the engine's clock, used by tests
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New creates a new decision engine
func New(cfg Config, store policy.Store, resultCache cache.ResultCache, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}

	e := &Engine{
		store:      store,
		resolver:   policy.NewResolver(store, cfg.Resolver, logger),
		conditions: condition.NewEvaluator(logger),
		rules:      rule.NewEvaluator(logger),
		cache:      resultCache,
		metrics:    metrics.NewNoOpMetrics(),
		logger:     logger,
		clock:      time.Now,
		config:     cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver.WithClock(e.clock)
	e.conditions.WithClock(e.clock)
	return e
}

// Evaluate decides an access request. Failures never surface as errors:
// validation problems and store failures come back as DENY results, and
// the returned error is always nil so callers have a single path.
func (e *Engine) Evaluate(ctx context.Context, req *types.EvaluationRequest) (result *types.EvaluationResult, err error) {
	start := e.clock()
	e.metrics.IncActiveEvaluations()
	defer e.metrics.DecActiveEvaluations()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during policy evaluation",
				zap.Any("panic", r),
				zap.String("resourceType", req.ResourceType),
				zap.String("action", req.Action))
			e.metrics.RecordEvaluationError("panic")
			result = e.finish(req, start, false, &types.EvaluationResult{
				Decision: types.DecisionDeny,
				Reason:   "policy evaluation error",
			})
			err = nil
		}
	}()

	if verr := req.Validate(); verr != nil {
		e.metrics.RecordEvaluationError("validation")
		return e.finish(req, start, false, &types.EvaluationResult{
			Decision: types.DecisionDeny,
			Reason:   "invalid evaluation request: " + verr.Error(),
		}), nil
	}

	if req.IsExpired(start) {
		return e.finish(req, start, false, &types.EvaluationResult{
			Decision: types.DecisionDeny,
			Reason:   "evaluation request expired",
		}), nil
	}

	if req.Timestamp.IsZero() {
		req.Timestamp = start
	}

	if cached := e.cacheLookup(ctx, req); cached != nil {
		e.metrics.RecordCacheHit()
		e.metrics.RecordEvaluation(string(cached.Decision), e.clock().Sub(start))
		return cached, nil
	}
	e.metrics.RecordCacheMiss()

	policies, rerr := e.resolver.Resolve(ctx, req.ResourceType, req.Action, req.TenantKey)
	if rerr != nil {
		e.logger.Error("policy resolution failed", zap.Error(rerr))
		e.metrics.RecordEvaluationError("store")
		return e.finish(req, start, false, &types.EvaluationResult{
			Decision: types.DecisionDeny,
			Reason:   "policy evaluation error",
		}), nil
	}
	e.metrics.RecordPoliciesEvaluated(len(policies))

	result = e.decide(req, policies)
	return e.finish(req, start, true, result), nil
}

// EvictPolicyCache removes cached decisions and resolved policy lists for
// one resourceType/action pair across every user and tenant scope.
func (e *Engine) EvictPolicyCache(ctx context.Context, resourceType, action string) int {
	evicted := e.resolver.Invalidate(resourceType, action)
	if e.cache != nil {
		evicted += e.cache.DeleteByPrefix(ctx, resourceType+":"+action+":")
	}
	e.logger.Info("evicted policy cache",
		zap.String("resourceType", resourceType),
		zap.String("action", action),
		zap.Int("entries", evicted))
	return evicted
}

// EvictAllPolicyCache clears every cached decision and policy list
func (e *Engine) EvictAllPolicyCache(ctx context.Context) {
	e.resolver.InvalidateAll()
	if e.cache != nil {
		e.cache.DeleteAll(ctx)
	}
	e.logger.Info("evicted all policy caches")
}

// CacheStats returns result-cache statistics, or zeros when caching is off
func (e *Engine) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}

// decide walks the resolved policies in order and returns the first
// conclusive decision. A policy whose conditions do not hold, or whose
// rules come back INCONCLUSIVE, defers to the next one.
func (e *Engine) decide(req *types.EvaluationRequest, policies []*types.Policy) *types.EvaluationResult {
	for _, p := range policies {
		if p.Conditions != nil && !p.Conditions.IsEmpty() {
			if !e.conditions.Evaluate(p.Conditions, req) {
				continue
			}
		}

		decision := e.rules.Evaluate(p.Rules, req)
		if decision == types.DecisionInconclusive {
			continue
		}

		result := &types.EvaluationResult{
			Decision:       decision,
			PolicyKey:      p.PolicyKey,
			PolicyName:     p.PolicyName,
			PolicyPriority: p.Priority,
			Reason:         "matched policy " + p.PolicyKey,
		}
		if decision == types.DecisionDeny {
			result.Actions = p.Actions
		}
		return result
	}

	// No policy produced a decision. Access defaults to open.
	return &types.EvaluationResult{
		Decision: types.DecisionAllow,
		Reason:   "no applicable policy; default allow",
	}
}

// cacheLookup returns a cached result, dropping entries that expired
// between being stored and being read.
func (e *Engine) cacheLookup(ctx context.Context, req *types.EvaluationRequest) *types.EvaluationResult {
	if !e.config.CacheEnabled || e.cache == nil {
		return nil
	}
	cached, ok := e.cache.Get(ctx, req.Fingerprint())
	if !ok {
		return nil
	}
	if cached.IsExpired(e.clock()) {
		return nil
	}
	// Copy before marking so the shared cached entry stays immutable.
	res := *cached
	res.CacheHit = true
	return &res
}

// finish stamps identity, timing and expiry onto the result, stores it
// in the cache when cacheable, and records it in the decision log.
// Error-path results are never cached.
func (e *Engine) finish(req *types.EvaluationRequest, start time.Time, cacheable bool, result *types.EvaluationResult) *types.EvaluationResult {
	now := e.clock()
	result.EvaluationID = uuid.NewString()
	result.EvaluatedAt = now
	result.ExpiresAt = now.Add(e.config.CacheTTL)
	result.EvaluationTimeMs = now.Sub(start).Milliseconds()

	e.metrics.RecordEvaluation(string(result.Decision), now.Sub(start))

	if cacheable && e.config.CacheEnabled && e.cache != nil {
		e.cache.Set(context.Background(), req.Fingerprint(), result, e.config.CacheTTL)
	}
	if e.audit != nil {
		e.audit.Record(req, result)
	}
	return result
}
