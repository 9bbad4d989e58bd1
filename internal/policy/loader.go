package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// Loader loads policy files from disk. Files hold one or more policies;
// condition and rule payloads stay serialized JSON strings, matching
// the store read contract.
type Loader struct {
	logger *zap.Logger
}

// policyDocument is the YAML shape of a policy file: either a single
// policy at the top level or a list under "policies".
type policyDocument struct {
	types.Policy `yaml:",inline"`
	Policies     []*types.Policy `yaml:"policies,omitempty"`
}

// NewLoader creates a new policy loader
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadFromDirectory loads all policy files from a directory. Files that
// fail to parse are logged and skipped.
func (l *Loader) LoadFromDirectory(path string) ([]*types.Policy, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var policies []*types.Policy
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		filePath := filepath.Join(path, entry.Name())
		loaded, err := l.LoadFromFile(filePath)
		if err != nil {
			l.logger.Warn("failed to load policy file",
				zap.String("file", filePath),
				zap.Error(err),
			)
			continue
		}
		policies = append(policies, loaded...)
	}

	return policies, nil
}

// LoadFromFile loads one policy file. YAML is used for parsing; JSON
// files parse as a YAML subset.
func (l *Loader) LoadFromFile(filePath string) ([]*types.Policy, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc := &policyDocument{}
	if err := yaml.Unmarshal(content, doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	var policies []*types.Policy
	if len(doc.Policies) > 0 {
		policies = doc.Policies
	} else {
		p := doc.Policy
		policies = []*types.Policy{&p}
	}

	for _, p := range policies {
		if p.PolicyKey == "" {
			return nil, fmt.Errorf("policy in %s is missing policyKey", filePath)
		}
		p.Compile()
	}

	return policies, nil
}

// LoadIntoStore loads a directory of policy files into a store
func (l *Loader) LoadIntoStore(ctx context.Context, path string, store Store) (int, error) {
	policies, err := l.LoadFromDirectory(path)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range policies {
		if err := store.Add(ctx, p); err != nil {
			l.logger.Warn("failed to add policy to store",
				zap.String("policyKey", p.PolicyKey),
				zap.Error(err),
			)
			continue
		}
		count++
	}

	l.logger.Info("policies loaded",
		zap.String("path", path),
		zap.Int("count", count),
	)
	return count, nil
}
