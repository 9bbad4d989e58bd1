// Package rule evaluates policy rule sets against evaluation requests
// and produces a Decision.
package rule

import (
	"sort"

	"go.uber.org/zap"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/condition"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// Evaluator evaluates rule sets
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates a rule evaluator
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

// Evaluate applies the rule set's evaluation strategy to the enabled
// rules and returns the resulting decision. An empty rule list yields
// the default action when set, INCONCLUSIVE otherwise.
func (e *Evaluator) Evaluate(rs *types.RuleSet, req *types.EvaluationRequest) types.Decision {
	if rs == nil || len(rs.Rules) == 0 {
		return defaultDecision(rs)
	}

	enabled := make([]*types.Rule, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		if r != nil && r.Enabled {
			enabled = append(enabled, r)
		}
	}
	if len(enabled) == 0 {
		return defaultDecision(rs)
	}

	lookup := fieldLookup(req)

	switch rs.EvaluationMode {
	case types.EvaluationModeAny:
		for _, r := range enabled {
			if ruleMatches(r, lookup) {
				return r.Action
			}
		}
		return types.DecisionInconclusive

	case types.EvaluationModeFirst:
		ordered := make([]*types.Rule, len(enabled))
		copy(ordered, enabled)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Priority > ordered[j].Priority
		})
		for _, r := range ordered {
			if ruleMatches(r, lookup) {
				return r.Action
			}
		}
		return types.DecisionInconclusive

	default:
		// ALL: every rule must match; the action of the last matching
		// rule carries the decision.
		var last types.Decision
		for _, r := range enabled {
			if !ruleMatches(r, lookup) {
				return types.DecisionInconclusive
			}
			last = r.Action
		}
		return last
	}
}

func defaultDecision(rs *types.RuleSet) types.Decision {
	if rs != nil && rs.DefaultAction != "" {
		return rs.DefaultAction
	}
	return types.DecisionInconclusive
}

// ruleMatches evaluates a rule's parsed condition expression. Rules
// loaded without compilation fall back to parsing on the spot.
func ruleMatches(r *types.Rule, lookup func(string) string) bool {
	expr := r.Expr
	if r.Condition != "" && expr.Kind == types.ExprAlways && expr.Field == "" {
		expr = types.ParseExpression(r.Condition)
	}
	return expr.Matches(lookup)
}

// fieldLookup resolves the three recognized expression fields from the
// request: user.role from the context map, resource.type and action
// from the request itself.
func fieldLookup(req *types.EvaluationRequest) func(string) string {
	return func(field string) string {
		switch field {
		case types.ExprFieldUserRole:
			return req.ContextString(condition.ContextKeyUserRole)
		case types.ExprFieldResourceType:
			return req.ResourceType
		case types.ExprFieldAction:
			return req.Action
		default:
			return ""
		}
	}
}
