package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

func writePolicyFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_SinglePolicyFile(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "deny-delete.yaml", `
policyKey: deny-prod-delete
policyName: Deny production deletes
status: ACTIVE
enabled: true
global: true
priority: 100
rules: '{"rules":[{"ruleId":"r1","condition":"action == \"delete\"","action":"DENY","enabled":true}]}'
`)

	loader := NewLoader(nil)
	policies, err := loader.LoadFromDirectory(dir)
	if err != nil {
		t.Fatalf("LoadFromDirectory failed: %v", err)
	}

	if len(policies) != 1 {
		t.Fatalf("got %d policies, want 1", len(policies))
	}
	p := policies[0]
	if p.PolicyKey != "deny-prod-delete" || !p.Global || p.Priority != 100 {
		t.Errorf("policy fields not parsed: %+v", p)
	}
	if p.Rules == nil || len(p.Rules.Rules) != 1 {
		t.Fatal("rule payload should be compiled on load")
	}
	if p.Rules.Rules[0].Expr.Kind != types.ExprFieldEquals {
		t.Error("rule condition should be parsed to its expression form")
	}
}

func TestLoader_MultiPolicyFile(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "bundle.yaml", `
policies:
  - policyKey: p1
    enabled: true
    status: ACTIVE
  - policyKey: p2
    enabled: true
    status: ACTIVE
    tenantKey: tenant-a
`)

	loader := NewLoader(nil)
	policies, err := loader.LoadFromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(policies) != 2 {
		t.Fatalf("got %d policies, want 2", len(policies))
	}
}

func TestLoader_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "good.yaml", "policyKey: good\nenabled: true\nstatus: ACTIVE\n")
	writePolicyFile(t, dir, "bad.yaml", ":\nnot yaml at all {{{")
	writePolicyFile(t, dir, "nokey.yaml", "policyName: key is missing\n")
	writePolicyFile(t, dir, "notes.txt", "ignored entirely")

	loader := NewLoader(nil)
	policies, err := loader.LoadFromDirectory(dir)
	if err != nil {
		t.Fatalf("bad files should be skipped, not fatal: %v", err)
	}
	if len(policies) != 1 || policies[0].PolicyKey != "good" {
		t.Errorf("got %d policies, want only the good one", len(policies))
	}
}

func TestLoader_LoadIntoStore(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "p.yaml", "policyKey: stored\nenabled: true\nstatus: ACTIVE\nglobal: true\n")

	store := NewMemoryStore()
	loader := NewLoader(nil)

	count, err := loader.LoadIntoStore(context.Background(), dir, store)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if _, err := store.Get(context.Background(), "stored"); err != nil {
		t.Errorf("loaded policy missing from store: %v", err)
	}
}
