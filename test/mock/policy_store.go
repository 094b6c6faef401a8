// test/mock/policy_store.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/workforcehq/aegis/model"
)

// MockPolicyStore is a mock implementation of engine.PolicyStore
type MockPolicyStore struct {
	mock.Mock
}

func (m *MockPolicyStore) FindActivePolicies(ctx context.Context, resourceType string) ([]*model.Policy, error) {
	args := m.Called(ctx, resourceType)
	policies, _ := args.Get(0).([]*model.Policy)
	return policies, args.Error(1)
}
