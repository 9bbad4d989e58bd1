package types

// EvaluationMode controls how a set of condition groups or rules is combined
type EvaluationMode string

const (
	EvaluationModeAll   EvaluationMode = "ALL"
	EvaluationModeAny   EvaluationMode = "ANY"
	EvaluationModeFirst EvaluationMode = "FIRST"
)

// ConditionSet holds up to six optional condition groups. Absent groups
// count as true under ALL mode.
type ConditionSet struct {
	Time           *TimeCondition        `json:"timeCondition,omitempty"`
	IP             *IPCondition          `json:"ipCondition,omitempty"`
	User           *UserCondition        `json:"userCondition,omitempty"`
	Resource       *ResourceCondition    `json:"resourceCondition,omitempty"`
	Network        *NetworkCondition     `json:"networkCondition,omitempty"`
	Environment    *EnvironmentCondition `json:"environmentCondition,omitempty"`
	EvaluationMode EvaluationMode        `json:"evaluationMode,omitempty"`
}

// IsEmpty reports whether no condition groups are set
func (cs *ConditionSet) IsEmpty() bool {
	return cs.Time == nil && cs.IP == nil && cs.User == nil &&
		cs.Resource == nil && cs.Network == nil && cs.Environment == nil
}

// TimeRange is a time-of-day window in "HH:MM" form. A range where start
// equals end is invalid and is skipped. Start > end means the range wraps
// midnight.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeCondition restricts evaluation to time-of-day windows and days of week
type TimeCondition struct {
	AllowedTimeRanges []TimeRange `json:"allowedTimeRanges,omitempty"`
	DeniedTimeRanges  []TimeRange `json:"deniedTimeRanges,omitempty"`
	AllowedDaysOfWeek []string    `json:"allowedDaysOfWeek,omitempty"`
	DeniedDaysOfWeek  []string    `json:"deniedDaysOfWeek,omitempty"`
}

// IPCondition matches the client address against exact IPs, IPv4 CIDR
// blocks, and geo lookups. IPv6 CIDR matching is not supported.
type IPCondition struct {
	AllowedIPs       []string `json:"allowedIps,omitempty"`
	DeniedIPs        []string `json:"deniedIps,omitempty"`
	AllowedCIDRs     []string `json:"allowedCidrs,omitempty"`
	DeniedCIDRs      []string `json:"deniedCidrs,omitempty"`
	AllowedCountries []string `json:"allowedCountries,omitempty"`
	DeniedCountries  []string `json:"deniedCountries,omitempty"`
	AllowedRegions   []string `json:"allowedRegions,omitempty"`
	DeniedRegions    []string `json:"deniedRegions,omitempty"`
}

// UserCondition matches the requesting user, their role, groups, and
// permissions, plus generic attribute conditions.
type UserCondition struct {
	AllowedUserIDs      []string             `json:"allowedUserIds,omitempty"`
	DeniedUserIDs       []string             `json:"deniedUserIds,omitempty"`
	AllowedRoles        []string             `json:"allowedRoles,omitempty"`
	DeniedRoles         []string             `json:"deniedRoles,omitempty"`
	AllowedGroups       []string             `json:"allowedGroups,omitempty"`
	DeniedGroups        []string             `json:"deniedGroups,omitempty"`
	AllowedPermissions  []string             `json:"allowedPermissions,omitempty"`
	DeniedPermissions   []string             `json:"deniedPermissions,omitempty"`
	AttributeConditions []AttributeCondition `json:"attributeConditions,omitempty"`
}

// ResourceCondition matches the target resource type and id, plus generic
// attribute conditions.
type ResourceCondition struct {
	AllowedResourceTypes []string             `json:"allowedResourceTypes,omitempty"`
	DeniedResourceTypes  []string             `json:"deniedResourceTypes,omitempty"`
	AllowedResourceIDs   []string             `json:"allowedResourceIds,omitempty"`
	DeniedResourceIDs    []string             `json:"deniedResourceIds,omitempty"`
	AttributeConditions  []AttributeCondition `json:"attributeConditions,omitempty"`
}

// NetworkCondition matches protocol and port from the request context
type NetworkCondition struct {
	AllowedProtocols    []string             `json:"allowedProtocols,omitempty"`
	DeniedProtocols     []string             `json:"deniedProtocols,omitempty"`
	AllowedPorts        []string             `json:"allowedPorts,omitempty"`
	DeniedPorts         []string             `json:"deniedPorts,omitempty"`
	AttributeConditions []AttributeCondition `json:"attributeConditions,omitempty"`
}

// EnvironmentCondition matches deployment environment, region, and tenant
type EnvironmentCondition struct {
	AllowedEnvironments []string             `json:"allowedEnvironments,omitempty"`
	DeniedEnvironments  []string             `json:"deniedEnvironments,omitempty"`
	AllowedRegions      []string             `json:"allowedRegions,omitempty"`
	DeniedRegions       []string             `json:"deniedRegions,omitempty"`
	AllowedTenants      []string             `json:"allowedTenants,omitempty"`
	DeniedTenants       []string             `json:"deniedTenants,omitempty"`
	AttributeConditions []AttributeCondition `json:"attributeConditions,omitempty"`
}

// Operator is a comparison operator for attribute conditions
type Operator string

const (
	OpEQ         Operator = "EQ"
	OpNE         Operator = "NE"
	OpContains   Operator = "CONTAINS"
	OpNotContain Operator = "NOT_CONTAINS"
	OpStartsWith Operator = "STARTS_WITH"
	OpEndsWith   Operator = "ENDS_WITH"
	OpRegex      Operator = "REGEX"
	OpIn         Operator = "IN"
	OpNotIn      Operator = "NOT_IN"
	OpGT         Operator = "GT"
	OpLT         Operator = "LT"
	OpGTE        Operator = "GTE"
	OpLTE        Operator = "LTE"
	OpIsNull     Operator = "IS_NULL"
	OpIsNotNull  Operator = "IS_NOT_NULL"
	OpIsEmpty    Operator = "IS_EMPTY"
	OpIsNotEmpty Operator = "IS_NOT_EMPTY"
)

// AttributeCondition is a generic comparison against a named request
// attribute, shared by the user, resource, network, and environment
// condition groups.
type AttributeCondition struct {
	AttributeName string      `json:"attributeName"`
	Operator      Operator    `json:"operator"`
	Value         interface{} `json:"value,omitempty"`
}
