// Package condition evaluates policy condition sets against evaluation
// requests. Every group applies the same precedence: a deny-list match
// fails immediately, an allow-list (when present) requires membership,
// and an absent allow-list is open by default.
package condition

import (
	"time"

	"go.uber.org/zap"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// Context keys the evaluator reads request attributes from
const (
	ContextKeyUserRole        = "userRole"
	ContextKeyUserGroups      = "userGroups"
	ContextKeyUserPermissions = "userPermissions"
	ContextKeyCountry         = "country"
	ContextKeyRegion          = "region"
	ContextKeyProtocol        = "protocol"
	ContextKeyPort            = "port"
	ContextKeyEnvironment     = "environment"
)

// Evaluator evaluates condition sets
type Evaluator struct {
	logger *zap.Logger
	clock  func() time.Time
}

// NewEvaluator creates a condition evaluator
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the evaluator's clock. Used by tests and by the
// engine to keep an evaluation pinned to a single instant.
func (e *Evaluator) WithClock(clock func() time.Time) *Evaluator {
	e.clock = clock
	return e
}

// Evaluate reports whether the request satisfies the condition set.
// An empty set has no conditions and matches everything.
func (e *Evaluator) Evaluate(cs *types.ConditionSet, req *types.EvaluationRequest) bool {
	if cs == nil || cs.IsEmpty() {
		return true
	}

	now := e.clock()

	type groupResult struct {
		present bool
		matched bool
	}

	groups := []groupResult{
		{cs.Time != nil, cs.Time == nil || e.evaluateTime(cs.Time, now)},
		{cs.IP != nil, cs.IP == nil || e.evaluateIP(cs.IP, req)},
		{cs.User != nil, cs.User == nil || e.evaluateUser(cs.User, req)},
		{cs.Resource != nil, cs.Resource == nil || e.evaluateResource(cs.Resource, req)},
		{cs.Network != nil, cs.Network == nil || e.evaluateNetwork(cs.Network, req)},
		{cs.Environment != nil, cs.Environment == nil || e.evaluateEnvironment(cs.Environment, req)},
	}

	if cs.EvaluationMode == types.EvaluationModeAny {
		// OR over the groups that are actually present
		anyPresent := false
		for _, g := range groups {
			if !g.present {
				continue
			}
			anyPresent = true
			if g.matched {
				return true
			}
		}
		return !anyPresent
	}

	// ALL mode: absent groups count as true
	for _, g := range groups {
		if !g.matched {
			return false
		}
	}
	return true
}

// listAllowed applies the shared deny-then-allow precedence to a single
// value: deny-list match fails, an allow-list requires membership, no
// allow-list defaults to true.
func listAllowed(value string, allowed, denied []string) bool {
	for _, d := range denied {
		if d == value {
			return false
		}
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

// multiListAllowed applies the same precedence to a multi-valued
// attribute (groups, permissions): any denied member fails, and when an
// allow-list is present at least one member must be in it.
func multiListAllowed(values []string, allowed, denied []string) bool {
	for _, v := range values {
		for _, d := range denied {
			if d == v {
				return false
			}
		}
	}
	if len(allowed) == 0 {
		return true
	}
	for _, v := range values {
		for _, a := range allowed {
			if a == v {
				return true
			}
		}
	}
	return false
}
