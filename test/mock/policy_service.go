// test/mock/policy_service.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/workforcehq/aegis/model"
)

// MockPolicyService is a mock implementation of service.IPolicyService
type MockPolicyService struct {
	mock.Mock
}

func (m *MockPolicyService) CreatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	args := m.Called(ctx, policy, userID)
	created, _ := args.Get(0).(*model.Policy)
	return created, args.Error(1)
}

func (m *MockPolicyService) UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	args := m.Called(ctx, policy, userID)
	updated, _ := args.Get(0).(*model.Policy)
	return updated, args.Error(1)
}

func (m *MockPolicyService) SetPolicyActive(ctx context.Context, policyID string, isActive bool) (*model.Policy, error) {
	args := m.Called(ctx, policyID, isActive)
	updated, _ := args.Get(0).(*model.Policy)
	return updated, args.Error(1)
}

func (m *MockPolicyService) DeletePolicy(ctx context.Context, policyID string, userID string) error {
	args := m.Called(ctx, policyID, userID)
	return args.Error(0)
}

func (m *MockPolicyService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	args := m.Called(ctx, policyID)
	policy, _ := args.Get(0).(*model.Policy)
	return policy, args.Error(1)
}

func (m *MockPolicyService) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	args := m.Called(ctx, limit, offset)
	policies, _ := args.Get(0).([]*model.Policy)
	return policies, args.Error(1)
}

func (m *MockPolicyService) BulkCreatePolicies(ctx context.Context, policies []model.Policy, userID string) ([]string, error) {
	args := m.Called(ctx, policies, userID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}
