package condition

import (
	"testing"
	"time"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

func TestEvaluate_EmptySetMatchesEverything(t *testing.T) {
	e := NewEvaluator(nil)

	req := &types.EvaluationRequest{ResourceType: "vm", Action: "delete", UserID: "u1"}

	if !e.Evaluate(nil, req) {
		t.Error("nil condition set should match")
	}
	if !e.Evaluate(&types.ConditionSet{}, req) {
		t.Error("empty condition set should match")
	}
}

func TestEvaluate_AllMode(t *testing.T) {
	e := NewEvaluator(nil).WithClock(func() time.Time {
		return time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC) // Monday noon
	})

	cs := &types.ConditionSet{
		Time: &types.TimeCondition{
			AllowedTimeRanges: []types.TimeRange{{Start: "09:00", End: "18:00"}},
		},
		User: &types.UserCondition{
			AllowedRoles: []string{"admin"},
		},
	}

	admin := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{ContextKeyUserRole: "admin"},
	}
	if !e.Evaluate(cs, admin) {
		t.Error("both groups hold, ALL mode should match")
	}

	viewer := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{ContextKeyUserRole: "viewer"},
	}
	if e.Evaluate(cs, viewer) {
		t.Error("failing user group should fail ALL mode")
	}
}

func TestEvaluate_AnyMode(t *testing.T) {
	e := NewEvaluator(nil).WithClock(func() time.Time {
		return time.Date(2026, 1, 5, 23, 0, 0, 0, time.UTC) // outside hours
	})

	cs := &types.ConditionSet{
		EvaluationMode: types.EvaluationModeAny,
		Time: &types.TimeCondition{
			AllowedTimeRanges: []types.TimeRange{{Start: "09:00", End: "18:00"}},
		},
		User: &types.UserCondition{
			AllowedRoles: []string{"admin"},
		},
	}

	admin := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{ContextKeyUserRole: "admin"},
	}
	if !e.Evaluate(cs, admin) {
		t.Error("one satisfied group should match in ANY mode")
	}

	viewer := &types.EvaluationRequest{
		ResourceType: "vm", Action: "delete", UserID: "u1",
		Context: map[string]interface{}{ContextKeyUserRole: "viewer"},
	}
	if e.Evaluate(cs, viewer) {
		t.Error("no satisfied group should fail ANY mode")
	}
}

func TestEvaluate_UserGroupsFromContext(t *testing.T) {
	e := NewEvaluator(nil)

	cs := &types.ConditionSet{
		User: &types.UserCondition{
			AllowedGroups: []string{"platform"},
			DeniedGroups:  []string{"contractors"},
		},
	}

	member := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1",
		Context: map[string]interface{}{ContextKeyUserGroups: []interface{}{"platform", "oncall"}},
	}
	if !e.Evaluate(cs, member) {
		t.Error("membership in an allowed group should pass")
	}

	denied := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1",
		Context: map[string]interface{}{ContextKeyUserGroups: "platform, contractors"},
	}
	if e.Evaluate(cs, denied) {
		t.Error("any denied group membership should fail even with an allowed one")
	}
}

func TestEvaluate_ResourceAndEnvironment(t *testing.T) {
	e := NewEvaluator(nil)

	cs := &types.ConditionSet{
		Resource: &types.ResourceCondition{
			AllowedResourceTypes: []string{"vm", "volume"},
		},
		Environment: &types.EnvironmentCondition{
			DeniedEnvironments: []string{"prod"},
			AllowedTenants:     []string{"tenant-a"},
		},
	}

	ok := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1", TenantKey: "tenant-a",
		Context: map[string]interface{}{ContextKeyEnvironment: "staging"},
	}
	if !e.Evaluate(cs, ok) {
		t.Error("staging request for tenant-a should pass")
	}

	prod := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1", TenantKey: "tenant-a",
		Context: map[string]interface{}{ContextKeyEnvironment: "prod"},
	}
	if e.Evaluate(cs, prod) {
		t.Error("denied environment should fail")
	}

	wrongTenant := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1", TenantKey: "tenant-b",
		Context: map[string]interface{}{ContextKeyEnvironment: "staging"},
	}
	if e.Evaluate(cs, wrongTenant) {
		t.Error("tenant outside the allow list should fail")
	}
}

func TestEvaluate_AttributeConditions(t *testing.T) {
	e := NewEvaluator(nil)

	cs := &types.ConditionSet{
		User: &types.UserCondition{
			AttributeConditions: []types.AttributeCondition{
				{AttributeName: "clearance", Operator: types.OpGTE, Value: 3},
			},
		},
	}

	cleared := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1",
		Context: map[string]interface{}{"clearance": 4},
	}
	if !e.Evaluate(cs, cleared) {
		t.Error("clearance 4 >= 3 should pass")
	}

	uncleared := &types.EvaluationRequest{
		ResourceType: "vm", Action: "read", UserID: "u1",
		Context: map[string]interface{}{"clearance": 2},
	}
	if e.Evaluate(cs, uncleared) {
		t.Error("clearance 2 should fail")
	}
}
