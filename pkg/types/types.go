// Package types provides shared types for the policy evaluation engine
package types

import (
	"fmt"
	"strings"
	"time"
)

// Decision represents the outcome of a policy evaluation
type Decision string

const (
	DecisionAllow        Decision = "ALLOW"
	DecisionDeny         Decision = "DENY"
	DecisionInconclusive Decision = "INCONCLUSIVE"
)

// GlobalScope is the tenant scope used when a request carries no tenant key
const GlobalScope = "global"

// EvaluationRequest represents a request to evaluate access to a resource
type EvaluationRequest struct {
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	Action       string                 `json:"action"`
	UserID       string                 `json:"userId"`
	TenantKey    string                 `json:"tenantKey,omitempty"`
	ClientIP     string                 `json:"clientIp,omitempty"`
	UserAgent    string                 `json:"userAgent,omitempty"`
	Context      map[string]interface{} `json:"context,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	ExpiresAt    *time.Time             `json:"expiresAt,omitempty"`
}

// Validate checks that the required request fields are present
func (r *EvaluationRequest) Validate() error {
	if strings.TrimSpace(r.ResourceType) == "" {
		return fmt.Errorf("resourceType is required")
	}
	if strings.TrimSpace(r.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("userId is required")
	}
	return nil
}

// IsExpired reports whether the request itself has expired
func (r *EvaluationRequest) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// TenantScope returns the tenant key, or "global" when absent
func (r *EvaluationRequest) TenantScope() string {
	if r.TenantKey == "" {
		return GlobalScope
	}
	return r.TenantKey
}

// Fingerprint generates the cache key for this request.
// The key stays structured (not hashed) so cached results can be
// evicted by resourceType:action prefix.
func (r *EvaluationRequest) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%s:%s", r.ResourceType, r.Action, r.UserID, r.TenantScope())
}

// ContextString returns a context value rendered as a string, or ""
// when the key is absent.
func (r *EvaluationRequest) ContextString(key string) string {
	if r.Context == nil {
		return ""
	}
	v, ok := r.Context[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// ContextValue returns a raw context value, or nil when absent
func (r *EvaluationRequest) ContextValue(key string) interface{} {
	if r.Context == nil {
		return nil
	}
	return r.Context[key]
}

// EvaluationResult contains the decision for an evaluation request
type EvaluationResult struct {
	EvaluationID     string    `json:"evaluationId,omitempty"`
	Decision         Decision  `json:"decision"`
	PolicyKey        string    `json:"policyKey,omitempty"`
	PolicyName       string    `json:"policyName,omitempty"`
	PolicyPriority   int       `json:"policyPriority,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	EvaluatedAt      time.Time `json:"evaluatedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	EvaluationTimeMs int64     `json:"evaluationTimeMs"`
	Warnings         []string  `json:"warnings,omitempty"`
	Errors           []string  `json:"errors,omitempty"`
	Actions          []string  `json:"actions,omitempty"`
	CacheHit         bool      `json:"cacheHit,omitempty"`
}

// IsAllowed returns true if the decision is ALLOW
func (r *EvaluationResult) IsAllowed() bool {
	return r.Decision == DecisionAllow
}

// IsDenied returns true if the decision is DENY
func (r *EvaluationResult) IsDenied() bool {
	return r.Decision == DecisionDeny
}

// IsInconclusive returns true if the decision is INCONCLUSIVE
func (r *EvaluationResult) IsInconclusive() bool {
	return r.Decision == DecisionInconclusive
}

// IsExpired reports whether the result's own expiry has passed
func (r *EvaluationResult) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}
