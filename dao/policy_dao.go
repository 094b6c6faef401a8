// dao/policy_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	aegis_errors "github.com/workforcehq/aegis/errors"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
	aegis_neo4j "github.com/workforcehq/aegis/model/neo4j"
)

// PolicyDAO is the durable policy store. Administrative writes do not touch
// the policy cache themselves; the service layer invalidates the cache after
// each durable write.
type PolicyDAO struct {
	Driver neo4j.Driver
}

func NewPolicyDAO(driver neo4j.Driver) *PolicyDAO {
	dao := &PolicyDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Policy ID
func (dao *PolicyDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_policy_id IF NOT EXISTS
        FOR (p:` + aegis_neo4j.LabelPolicy + `) REQUIRE p.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on Policy ID", zap.Error(err))
		return err
	}

	return nil
}

// FindActivePolicies returns active policies for one resource type, ordered
// by priority descending. Name breaks priority ties so the relative order is
// stable across reloads.
func (dao *PolicyDAO) FindActivePolicies(ctx context.Context, resourceType string) ([]*model.Policy, error) {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {resource: $resource, isActive: true})
        RETURN p
        ORDER BY p.priority DESC, p.name ASC
        `
		records, err := tx.Run(query, map[string]interface{}{"resource": resourceType})
		if err != nil {
			return nil, err
		}

		var policies []*model.Policy
		for records.Next() {
			node := records.Record().Values[0].(neo4j.Node)
			policy, err := mapNodeToPolicy(node)
			if err != nil {
				return nil, err
			}
			policies = append(policies, policy)
		}
		return policies, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve active policies",
			zap.Error(err),
			zap.String("resource", resourceType),
			zap.Duration("duration", duration))
		return nil, fmt.Errorf("%w: %v", aegis_errors.ErrDatabaseOperation, err)
	}

	policies := result.([]*model.Policy)
	logger.Debug("Retrieved active policies",
		zap.String("resource", resourceType),
		zap.Int("policyCount", len(policies)),
		zap.Duration("duration", duration))

	return policies, nil
}

// CreatePolicy creates a new policy node in Neo4j
func (dao *PolicyDAO) CreatePolicy(ctx context.Context, policy model.Policy, userID string) (string, error) {
	start := time.Now()
	logger.Info("Creating new policy", zap.String("policyName", policy.Name))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	if policy.Version == 0 {
		policy.Version = 1
	}
	now := time.Now()
	policy.CreatedAt = now
	policy.UpdatedAt = now
	policy.CreatedBy = userID

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + `)
        WHERE p.id = $id OR p.name = $name
        RETURN p.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{
			"id":   policy.ID,
			"name": policy.Name,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, aegis_errors.ErrPolicyConflict
		}

		params, err := policyToParams(policy)
		if err != nil {
			return nil, err
		}

		createQuery := `
        CREATE (p:` + aegis_neo4j.LabelPolicy + `)
        SET p = $props
        WITH p
        MERGE (u:` + aegis_neo4j.LabelUser + ` {id: $createdBy})
        CREATE (p)-[:` + aegis_neo4j.RelCreatedBy + `]->(u)
        RETURN p.id
        `
		_, err = transaction.Run(createQuery, map[string]interface{}{
			"props":     params,
			"createdBy": userID,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		return policy.ID, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create policy",
			zap.Error(err),
			zap.String("policyName", policy.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	logger.Info("Policy created successfully",
		zap.String("policyID", policy.ID),
		zap.Duration("duration", duration))
	return policy.ID, nil
}

// UpdatePolicy replaces the mutable fields of an existing policy and bumps
// its version.
func (dao *PolicyDAO) UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	start := time.Now()
	logger.Info("Updating policy", zap.String("policyID", policy.ID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		existing, err := fetchPolicyInTx(transaction, policy.ID)
		if err != nil {
			return nil, err
		}

		policy.Version = existing.Version + 1
		policy.CreatedAt = existing.CreatedAt
		policy.CreatedBy = existing.CreatedBy
		policy.UpdatedAt = time.Now()

		params, err := policyToParams(policy)
		if err != nil {
			return nil, err
		}

		updateQuery := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})
        SET p = $props
        RETURN p
        `
		records, err := transaction.Run(updateQuery, map[string]interface{}{
			"id":    policy.ID,
			"props": params,
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if !records.Next() {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		return mapNodeToPolicy(records.Record().Values[0].(neo4j.Node))
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to update policy",
			zap.Error(err),
			zap.String("policyID", policy.ID),
			zap.Duration("duration", duration))
		return nil, err
	}

	updated := result.(*model.Policy)
	logger.Info("Policy updated successfully",
		zap.String("policyID", updated.ID),
		zap.Int("version", updated.Version),
		zap.Duration("duration", duration))
	return updated, nil
}

// SetPolicyActive flips the isActive flag of one policy and returns the
// updated record.
func (dao *PolicyDAO) SetPolicyActive(ctx context.Context, policyID string, isActive bool) (*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})
        SET p.isActive = $isActive, p.updatedAt = $updatedAt
        RETURN p
        `
		records, err := transaction.Run(query, map[string]interface{}{
			"id":        policyID,
			"isActive":  isActive,
			"updatedAt": time.Now().Format(time.RFC3339),
		})
		if err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		if !records.Next() {
			return nil, aegis_errors.ErrPolicyNotFound
		}
		return mapNodeToPolicy(records.Record().Values[0].(neo4j.Node))
	})
	if err != nil {
		logger.Error("Failed to set policy active flag",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.Bool("isActive", isActive))
		return nil, err
	}

	return result.(*model.Policy), nil
}

// DeletePolicy removes a policy node and returns the deleted record so the
// caller can invalidate the right resource type.
func (dao *PolicyDAO) DeletePolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		existing, err := fetchPolicyInTx(transaction, policyID)
		if err != nil {
			return nil, err
		}

		query := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})
        DETACH DELETE p
        `
		if _, err := transaction.Run(query, map[string]interface{}{"id": policyID}); err != nil {
			return nil, aegis_errors.ErrDatabaseOperation
		}
		return existing, nil
	})
	if err != nil {
		logger.Error("Failed to delete policy",
			zap.Error(err),
			zap.String("policyID", policyID))
		return nil, err
	}

	deleted := result.(*model.Policy)
	logger.Info("Policy deleted successfully", zap.String("policyID", deleted.ID))
	return deleted, nil
}

// GetPolicy fetches one policy by ID.
func (dao *PolicyDAO) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		return fetchPolicyInTx(tx, policyID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Policy), nil
}

// ListPolicies returns policies ordered by resource, then priority
// descending, with pagination.
func (dao *PolicyDAO) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:` + aegis_neo4j.LabelPolicy + `)
        RETURN p
        ORDER BY p.resource ASC, p.priority DESC
        SKIP $offset LIMIT $limit
        `
		records, err := tx.Run(query, map[string]interface{}{
			"limit":  limit,
			"offset": offset,
		})
		if err != nil {
			return nil, err
		}

		var policies []*model.Policy
		for records.Next() {
			policy, err := mapNodeToPolicy(records.Record().Values[0].(neo4j.Node))
			if err != nil {
				return nil, err
			}
			policies = append(policies, policy)
		}
		return policies, nil
	})
	if err != nil {
		logger.Error("Failed to list policies", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", aegis_errors.ErrDatabaseOperation, err)
	}

	return result.([]*model.Policy), nil
}

func fetchPolicyInTx(tx neo4j.Transaction, policyID string) (*model.Policy, error) {
	query := `
    MATCH (p:` + aegis_neo4j.LabelPolicy + ` {id: $id})
    RETURN p
    `
	records, err := tx.Run(query, map[string]interface{}{"id": policyID})
	if err != nil {
		return nil, aegis_errors.ErrDatabaseOperation
	}
	if !records.Next() {
		return nil, aegis_errors.ErrPolicyNotFound
	}
	return mapNodeToPolicy(records.Record().Values[0].(neo4j.Node))
}

// policyToParams flattens a policy into node properties. Structured fields
// are stored as JSON strings, timestamps as RFC3339.
func policyToParams(policy model.Policy) (map[string]interface{}, error) {
	subjectJSON, err := json.Marshal(policy.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy subject: %w", err)
	}
	actionsJSON, err := json.Marshal(policy.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy actions: %w", err)
	}
	conditionsJSON, err := json.Marshal(policy.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy conditions: %w", err)
	}

	params := map[string]interface{}{
		"id":          policy.ID,
		"name":        policy.Name,
		"description": policy.Description,
		"effect":      policy.Effect,
		"priority":    policy.Priority,
		"subject":     string(subjectJSON),
		"resource":    policy.Resource,
		"actions":     string(actionsJSON),
		"conditions":  string(conditionsJSON),
		"isActive":    policy.IsActive,
		"version":     policy.Version,
		"createdBy":   policy.CreatedBy,
		"createdAt":   policy.CreatedAt.Format(time.RFC3339),
		"updatedAt":   policy.UpdatedAt.Format(time.RFC3339),
		"validFrom":   formatNullableTime(policy.ValidFrom),
		"validUntil":  formatNullableTime(policy.ValidUntil),
	}
	return params, nil
}

// mapNodeToPolicy converts a Neo4j node into a Policy struct
func mapNodeToPolicy(node neo4j.Node) (*model.Policy, error) {
	props := node.Props
	policy := &model.Policy{}

	if id, ok := props["id"].(string); ok {
		policy.ID = id
	} else {
		return nil, fmt.Errorf("failed to assert type for policy ID: %v", props["id"])
	}

	if name, ok := props["name"].(string); ok {
		policy.Name = name
	} else {
		return nil, fmt.Errorf("failed to assert type for policy name: %v", props["name"])
	}

	if description, ok := props["description"].(string); ok {
		policy.Description = description
	}

	if effect, ok := props["effect"].(string); ok {
		if effect == model.EffectAllow || effect == model.EffectDeny {
			policy.Effect = effect
		} else {
			return nil, fmt.Errorf("invalid policy effect: %v", effect)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy effect: %v", props["effect"])
	}

	if priority, ok := props["priority"].(int64); ok {
		policy.Priority = int(priority)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy priority: %v", props["priority"])
	}

	if version, ok := props["version"].(int64); ok {
		policy.Version = int(version)
	} else {
		return nil, fmt.Errorf("failed to assert type for policy version: %v", props["version"])
	}

	if resource, ok := props["resource"].(string); ok {
		policy.Resource = resource
	} else {
		return nil, fmt.Errorf("failed to assert type for policy resource: %v", props["resource"])
	}

	if isActive, ok := props["isActive"].(bool); ok {
		policy.IsActive = isActive
	} else {
		return nil, fmt.Errorf("failed to assert type for policy isActive: %v", props["isActive"])
	}

	if createdBy, ok := props["createdBy"].(string); ok {
		policy.CreatedBy = createdBy
	}

	if createdAt, ok := props["createdAt"].(string); ok {
		policy.CreatedAt, _ = parseTime(createdAt)
	}
	if updatedAt, ok := props["updatedAt"].(string); ok {
		policy.UpdatedAt, _ = parseTime(updatedAt)
	}

	policy.ValidFrom = parseNullableTime(props["validFrom"])
	policy.ValidUntil = parseNullableTime(props["validUntil"])

	if subjectJSON, ok := props["subject"].(string); ok {
		if err := json.Unmarshal([]byte(subjectJSON), &policy.Subject); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy subject: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy subject: %v", props["subject"])
	}

	if actionsJSON, ok := props["actions"].(string); ok {
		if err := json.Unmarshal([]byte(actionsJSON), &policy.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy actions: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy actions: %v", props["actions"])
	}

	if conditionsJSON, ok := props["conditions"].(string); ok {
		if err := json.Unmarshal([]byte(conditionsJSON), &policy.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy conditions: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to assert type for policy conditions: %v", props["conditions"])
	}

	return policy, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseNullableTime(v interface{}) *time.Time {
	switch value := v.(type) {
	case time.Time:
		return &value
	case string:
		if value == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil
		}
		return &t
	default:
		return nil
	}
}

func formatNullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
