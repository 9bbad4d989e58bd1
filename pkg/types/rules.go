package types

import "strings"

// RuleSet holds an ordered list of rules plus the strategy used to
// combine them.
type RuleSet struct {
	DefaultAction  Decision       `json:"defaultAction,omitempty"`
	Rules          []*Rule        `json:"rules,omitempty"`
	EvaluationMode EvaluationMode `json:"evaluationMode,omitempty"`
}

// Rule is a single evaluation rule. Condition holds the raw expression
// text; Expr is its parsed form, populated when the policy is compiled.
type Rule struct {
	RuleID     string                 `json:"ruleId"`
	Condition  string                 `json:"condition,omitempty"`
	Action     Decision               `json:"action"`
	Priority   int                    `json:"priority,omitempty"`
	Enabled    bool                   `json:"enabled"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`

	Expr Expression `json:"-"`
}

// ExpressionKind tags the variants of the restricted rule-condition
// language.
type ExpressionKind int

const (
	// ExprAlways matches every request (empty condition)
	ExprAlways ExpressionKind = iota
	// ExprNever matches no request (unrecognized expression form)
	ExprNever
	// ExprFieldEquals matches when the field equals the literal
	ExprFieldEquals
	// ExprFieldNotEquals matches when the field differs from the literal
	ExprFieldNotEquals
)

// Expression is the parsed form of a rule condition. The language is
// deliberately restricted: exactly three fields (user.role,
// resource.type, action) compared with == or != against a quoted
// literal. Anything else parses to ExprNever.
type Expression struct {
	Kind  ExpressionKind
	Field string
	Value string
}

// recognized field names of the rule-condition language
const (
	ExprFieldUserRole     = "user.role"
	ExprFieldResourceType = "resource.type"
	ExprFieldAction       = "action"
)

// ParseExpression parses a rule condition string once, at policy load
// time. An empty condition always matches; an unrecognized form never
// matches.
func ParseExpression(s string) Expression {
	s = strings.TrimSpace(s)
	if s == "" {
		return Expression{Kind: ExprAlways}
	}

	var field, rest string
	var kind ExpressionKind
	switch {
	case strings.Contains(s, "!="):
		parts := strings.SplitN(s, "!=", 2)
		field, rest = parts[0], parts[1]
		kind = ExprFieldNotEquals
	case strings.Contains(s, "=="):
		parts := strings.SplitN(s, "==", 2)
		field, rest = parts[0], parts[1]
		kind = ExprFieldEquals
	default:
		return Expression{Kind: ExprNever}
	}

	field = strings.TrimSpace(field)
	switch field {
	case ExprFieldUserRole, ExprFieldResourceType, ExprFieldAction:
	default:
		return Expression{Kind: ExprNever}
	}

	value, ok := unquote(strings.TrimSpace(rest))
	if !ok {
		return Expression{Kind: ExprNever}
	}

	return Expression{Kind: kind, Field: field, Value: value}
}

// Matches evaluates the expression against field values supplied by the
// lookup function.
func (e Expression) Matches(lookup func(field string) string) bool {
	switch e.Kind {
	case ExprAlways:
		return true
	case ExprFieldEquals:
		return lookup(e.Field) == e.Value
	case ExprFieldNotEquals:
		return lookup(e.Field) != e.Value
	default:
		return false
	}
}

// unquote strips matching single or double quotes from a literal
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
		return s[1 : len(s)-1], true
	}
	return "", false
}
