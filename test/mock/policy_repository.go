// test/mock/policy_repository.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/workforcehq/aegis/model"
)

// MockPolicyRepository is a mock implementation of service.PolicyRepository
type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) CreatePolicy(ctx context.Context, policy model.Policy, userID string) (string, error) {
	args := m.Called(ctx, policy, userID)
	return args.String(0), args.Error(1)
}

func (m *MockPolicyRepository) UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	args := m.Called(ctx, policy, userID)
	updated, _ := args.Get(0).(*model.Policy)
	return updated, args.Error(1)
}

func (m *MockPolicyRepository) SetPolicyActive(ctx context.Context, policyID string, isActive bool) (*model.Policy, error) {
	args := m.Called(ctx, policyID, isActive)
	updated, _ := args.Get(0).(*model.Policy)
	return updated, args.Error(1)
}

func (m *MockPolicyRepository) DeletePolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	args := m.Called(ctx, policyID)
	deleted, _ := args.Get(0).(*model.Policy)
	return deleted, args.Error(1)
}

func (m *MockPolicyRepository) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	args := m.Called(ctx, policyID)
	policy, _ := args.Get(0).(*model.Policy)
	return policy, args.Error(1)
}

func (m *MockPolicyRepository) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	args := m.Called(ctx, limit, offset)
	policies, _ := args.Get(0).([]*model.Policy)
	return policies, args.Error(1)
}

// NoopLocker always grants the lock. Use it where lock contention is not
// under test.
type NoopLocker struct{}

func (NoopLocker) Lock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (NoopLocker) Unlock(ctx context.Context, resource string) error {
	return nil
}

// DenyingLocker never grants the lock.
type DenyingLocker struct{}

func (DenyingLocker) Lock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	return false, nil
}

func (DenyingLocker) Unlock(ctx context.Context, resource string) error {
	return nil
}

// RecordingInvalidator captures cache invalidations in call order.
type RecordingInvalidator struct {
	Resources  []string
	ClearedAll bool
}

func (r *RecordingInvalidator) Invalidate(resourceType string) {
	r.Resources = append(r.Resources, resourceType)
}

func (r *RecordingInvalidator) InvalidateAll() {
	r.ClearedAll = true
}
