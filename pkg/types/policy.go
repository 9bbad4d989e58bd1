package types

import (
	"encoding/json"
	"time"
)

// PolicyStatus represents the lifecycle status of a policy
type PolicyStatus string

const (
	PolicyStatusActive   PolicyStatus = "ACTIVE"
	PolicyStatusInactive PolicyStatus = "INACTIVE"
	PolicyStatusDraft    PolicyStatus = "DRAFT"
	PolicyStatusArchived PolicyStatus = "ARCHIVED"
)

// Policy represents a stored security policy. The engine treats policies
// as read-only; administration happens elsewhere.
type Policy struct {
	PolicyKey      string       `json:"policyKey" yaml:"policyKey"`
	PolicyName     string       `json:"policyName" yaml:"policyName"`
	Status         PolicyStatus `json:"status" yaml:"status"`
	Priority       int          `json:"priority" yaml:"priority"`
	Enabled        bool         `json:"enabled" yaml:"enabled"`
	Global         bool         `json:"global,omitempty" yaml:"global,omitempty"`
	System         bool         `json:"system,omitempty" yaml:"system,omitempty"`
	TenantKey      string       `json:"tenantKey,omitempty" yaml:"tenantKey,omitempty"`
	EffectiveFrom  *time.Time   `json:"effectiveFrom,omitempty" yaml:"effectiveFrom,omitempty"`
	EffectiveUntil *time.Time   `json:"effectiveUntil,omitempty" yaml:"effectiveUntil,omitempty"`

	// ConditionsJSON and RulesJSON hold the serialized payloads as read
	// from the policy store. Compile parses them into Conditions/Rules.
	ConditionsJSON string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	RulesJSON      string `json:"rules,omitempty" yaml:"rules,omitempty"`

	// Parsed forms, populated by Compile. A malformed payload yields an
	// empty set rather than an error.
	Conditions *ConditionSet `json:"-" yaml:"-"`
	Rules      *RuleSet      `json:"-" yaml:"-"`

	Actions   []string  `json:"actions,omitempty" yaml:"actions,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Compile parses the serialized condition and rule payloads, and parses
// rule condition expressions into their AST form. It is called once when
// a policy is loaded from the store; malformed payloads degrade to empty
// sets so a single bad policy cannot take down evaluation.
func (p *Policy) Compile() {
	p.Conditions = ParseConditionSet(p.ConditionsJSON)
	p.Rules = ParseRuleSet(p.RulesJSON)
}

// IsEffectiveAt reports whether t falls within the policy's effective
// window. Absent bounds are unbounded.
func (p *Policy) IsEffectiveAt(t time.Time) bool {
	if p.EffectiveFrom != nil && t.Before(*p.EffectiveFrom) {
		return false
	}
	if p.EffectiveUntil != nil && t.After(*p.EffectiveUntil) {
		return false
	}
	return true
}

// IsApplicableAt reports whether the policy is a candidate for
// evaluation at time t: enabled, ACTIVE, and inside its effective window.
func (p *Policy) IsApplicableAt(t time.Time) bool {
	return p.Enabled && p.Status == PolicyStatusActive && p.IsEffectiveAt(t)
}

// ParseConditionSet parses a serialized condition set. An empty or
// malformed payload yields an empty set, which evaluates as "no
// conditions" (permissive).
func ParseConditionSet(raw string) *ConditionSet {
	cs := &ConditionSet{EvaluationMode: EvaluationModeAll}
	if raw == "" {
		return cs
	}
	if err := json.Unmarshal([]byte(raw), cs); err != nil {
		return &ConditionSet{EvaluationMode: EvaluationModeAll}
	}
	if cs.EvaluationMode == "" {
		cs.EvaluationMode = EvaluationModeAll
	}
	return cs
}

// ParseRuleSet parses a serialized rule set and compiles each rule's
// condition expression. An empty or malformed payload yields an empty
// set, which evaluates to INCONCLUSIVE.
func ParseRuleSet(raw string) *RuleSet {
	rs := &RuleSet{EvaluationMode: EvaluationModeAll}
	if raw == "" {
		return rs
	}
	if err := json.Unmarshal([]byte(raw), rs); err != nil {
		return &RuleSet{EvaluationMode: EvaluationModeAll}
	}
	if rs.EvaluationMode == "" {
		rs.EvaluationMode = EvaluationModeAll
	}
	for _, r := range rs.Rules {
		r.Expr = ParseExpression(r.Condition)
	}
	return rs
}
