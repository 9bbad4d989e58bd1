package condition

import (
	"fmt"
	"strings"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// evaluateUser checks the user condition group: user id, role, groups,
// permissions, and generic attribute conditions resolved from the
// request context.
func (e *Evaluator) evaluateUser(uc *types.UserCondition, req *types.EvaluationRequest) bool {
	if !listAllowed(req.UserID, uc.AllowedUserIDs, uc.DeniedUserIDs) {
		return false
	}
	if !listAllowed(req.ContextString(ContextKeyUserRole), uc.AllowedRoles, uc.DeniedRoles) {
		return false
	}
	if !multiListAllowed(contextValues(req, ContextKeyUserGroups), uc.AllowedGroups, uc.DeniedGroups) {
		return false
	}
	if !multiListAllowed(contextValues(req, ContextKeyUserPermissions), uc.AllowedPermissions, uc.DeniedPermissions) {
		return false
	}
	return e.evaluateAttributes(uc.AttributeConditions, req.ContextValue)
}

// evaluateResource checks resource type and id lists plus attribute
// conditions.
func (e *Evaluator) evaluateResource(rc *types.ResourceCondition, req *types.EvaluationRequest) bool {
	if !listAllowed(req.ResourceType, rc.AllowedResourceTypes, rc.DeniedResourceTypes) {
		return false
	}
	if !listAllowed(req.ResourceID, rc.AllowedResourceIDs, rc.DeniedResourceIDs) {
		return false
	}
	return e.evaluateAttributes(rc.AttributeConditions, req.ContextValue)
}

// evaluateNetwork checks protocol and port from the request context
func (e *Evaluator) evaluateNetwork(nc *types.NetworkCondition, req *types.EvaluationRequest) bool {
	if !listAllowed(req.ContextString(ContextKeyProtocol), nc.AllowedProtocols, nc.DeniedProtocols) {
		return false
	}
	if !listAllowed(req.ContextString(ContextKeyPort), nc.AllowedPorts, nc.DeniedPorts) {
		return false
	}
	return e.evaluateAttributes(nc.AttributeConditions, req.ContextValue)
}

// evaluateEnvironment checks environment, region, and tenant scope
func (e *Evaluator) evaluateEnvironment(ec *types.EnvironmentCondition, req *types.EvaluationRequest) bool {
	if !listAllowed(req.ContextString(ContextKeyEnvironment), ec.AllowedEnvironments, ec.DeniedEnvironments) {
		return false
	}
	if !listAllowed(req.ContextString(ContextKeyRegion), ec.AllowedRegions, ec.DeniedRegions) {
		return false
	}
	if !listAllowed(req.TenantKey, ec.AllowedTenants, ec.DeniedTenants) {
		return false
	}
	return e.evaluateAttributes(ec.AttributeConditions, req.ContextValue)
}

// evaluateAttributes requires every attribute condition in the list to
// hold. The lookup function decides where attribute values come from,
// which is the only thing that differs between condition groups.
func (e *Evaluator) evaluateAttributes(conds []types.AttributeCondition, lookup func(name string) interface{}) bool {
	for _, c := range conds {
		if !evaluateAttribute(lookup(c.AttributeName), c.Operator, c.Value) {
			return false
		}
	}
	return true
}

// contextValues reads a context entry that may be a collection, an
// array, or a comma-separated string, and normalizes it to a string
// slice.
func contextValues(req *types.EvaluationRequest, key string) []string {
	v := req.ContextValue(key)
	if v == nil {
		return nil
	}
	return stringList(v)
}

// stringList renders a collection-ish value as a slice of trimmed strings
func stringList(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		if vv == "" {
			return nil
		}
		parts := strings.Split(vv, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", vv)}
	}
}
