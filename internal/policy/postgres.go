package policy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// PostgresStore implements the Store interface backed by PostgreSQL.
// Rows are compiled (payloads parsed) as they are scanned.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL policy store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const policyColumns = `
	policy_key, policy_name, status, priority, enabled, is_global, is_system,
	tenant_key, effective_from, effective_until, conditions, rules, actions,
	created_at, updated_at`

// FindApplicablePolicies returns global policies plus tenant-scoped
// policies when tenantKey is set.
func (s *PostgresStore) FindApplicablePolicies(ctx context.Context, resourceType, action, tenantKey string) ([]*types.Policy, error) {
	query := `SELECT` + policyColumns + `
		FROM policies
		WHERE is_global = TRUE OR ($1 <> '' AND tenant_key = $1)
		ORDER BY priority DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	return scanPolicies(rows)
}

// Get retrieves a policy by key
func (s *PostgresStore) Get(ctx context.Context, policyKey string) (*types.Policy, error) {
	query := `SELECT` + policyColumns + ` FROM policies WHERE policy_key = $1`

	row := s.db.QueryRowContext(ctx, query, policyKey)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, policyKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

// GetAll retrieves all policies
func (s *PostgresStore) GetAll(ctx context.Context) ([]*types.Policy, error) {
	query := `SELECT` + policyColumns + ` FROM policies ORDER BY priority DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	return scanPolicies(rows)
}

// Add inserts or replaces a policy
func (s *PostgresStore) Add(ctx context.Context, p *types.Policy) error {
	if p == nil || p.PolicyKey == "" {
		return fmt.Errorf("policy key is required")
	}

	query := `
		INSERT INTO policies (
			policy_key, policy_name, status, priority, enabled, is_global,
			is_system, tenant_key, effective_from, effective_until,
			conditions, rules, actions, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (policy_key) DO UPDATE SET
			policy_name = EXCLUDED.policy_name,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			enabled = EXCLUDED.enabled,
			is_global = EXCLUDED.is_global,
			is_system = EXCLUDED.is_system,
			tenant_key = EXCLUDED.tenant_key,
			effective_from = EXCLUDED.effective_from,
			effective_until = EXCLUDED.effective_until,
			conditions = EXCLUDED.conditions,
			rules = EXCLUDED.rules,
			actions = EXCLUDED.actions,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		p.PolicyKey,
		p.PolicyName,
		string(p.Status),
		p.Priority,
		p.Enabled,
		p.Global,
		p.System,
		nullString(p.TenantKey),
		nullTime(p.EffectiveFrom),
		nullTime(p.EffectiveUntil),
		p.ConditionsJSON,
		p.RulesJSON,
		pq.Array(p.Actions),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert policy: %w", err)
	}
	return nil
}

// Remove deletes a policy by key
func (s *PostgresStore) Remove(ctx context.Context, policyKey string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE policy_key = $1`, policyKey)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrPolicyNotFound, policyKey)
	}
	return nil
}

// Count returns the number of stored policies
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM policies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count policies: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPolicy(row rowScanner) (*types.Policy, error) {
	var (
		p              types.Policy
		status         string
		tenantKey      sql.NullString
		effectiveFrom  sql.NullTime
		effectiveUntil sql.NullTime
		actions        pq.StringArray
	)

	err := row.Scan(
		&p.PolicyKey,
		&p.PolicyName,
		&status,
		&p.Priority,
		&p.Enabled,
		&p.Global,
		&p.System,
		&tenantKey,
		&effectiveFrom,
		&effectiveUntil,
		&p.ConditionsJSON,
		&p.RulesJSON,
		&actions,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = types.PolicyStatus(status)
	if tenantKey.Valid {
		p.TenantKey = tenantKey.String
	}
	if effectiveFrom.Valid {
		t := effectiveFrom.Time
		p.EffectiveFrom = &t
	}
	if effectiveUntil.Valid {
		t := effectiveUntil.Time
		p.EffectiveUntil = &t
	}
	p.Actions = actions
	p.Compile()
	return &p, nil
}

func scanPolicies(rows *sql.Rows) ([]*types.Policy, error) {
	var policies []*types.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read policies: %w", err)
	}
	return policies, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
