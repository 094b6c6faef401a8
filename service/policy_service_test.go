// service/policy_service_test.go
package service_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	aegis_errors "github.com/workforcehq/aegis/errors"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
	"github.com/workforcehq/aegis/service"
	mock_dao "github.com/workforcehq/aegis/test/mock"
	"github.com/workforcehq/aegis/util"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func newService(repo service.PolicyRepository, cache service.CacheInvalidator, locker service.ResourceLocker) *service.PolicyService {
	return service.NewPolicyService(
		repo,
		util.NewValidationUtil(),
		cache,
		locker,
		util.NewNotificationService(),
		util.NewEventBus(),
	)
}

func leavePolicy() model.Policy {
	return model.Policy{
		ID:       "p1",
		Name:     "leave-read",
		Effect:   model.EffectAllow,
		Priority: 100,
		Resource: "leave_request",
		Actions:  []string{"read"},
	}
}

func TestCreatePolicy_InvalidatesCacheAfterWrite(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	created := leavePolicy()
	repo.On("CreatePolicy", tmock.Anything, tmock.Anything, "admin-1").
		Run(func(args tmock.Arguments) {
			// The durable write must land before any invalidation
			assert.Empty(t, cache.Resources)
		}).
		Return("p1", nil)
	repo.On("GetPolicy", tmock.Anything, "p1").Return(&created, nil)

	got, err := svc.CreatePolicy(context.Background(), leavePolicy(), "admin-1")
	assert.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, []string{"leave_request"}, cache.Resources)
}

func TestCreatePolicy_RejectsInvalidPolicy(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	invalid := leavePolicy()
	invalid.Effect = "permit"

	_, err := svc.CreatePolicy(context.Background(), invalid, "admin-1")
	assert.ErrorIs(t, err, aegis_errors.ErrInvalidPolicyData)
	repo.AssertNotCalled(t, "CreatePolicy")
	assert.Empty(t, cache.Resources)
}

func TestUpdatePolicy_InvalidatesBothResourceTypesOnMove(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	previous := leavePolicy()
	moved := leavePolicy()
	moved.Resource = "expense_report"
	moved.Version = 2

	repo.On("GetPolicy", tmock.Anything, "p1").Return(&previous, nil)
	repo.On("UpdatePolicy", tmock.Anything, tmock.Anything, "admin-1").Return(&moved, nil)

	updated, err := svc.UpdatePolicy(context.Background(), moved, "admin-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.ElementsMatch(t, []string{"expense_report", "leave_request"}, cache.Resources)
}

func TestUpdatePolicy_SingleInvalidationWhenResourceUnchanged(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	existing := leavePolicy()
	updated := leavePolicy()
	updated.Version = 2

	repo.On("GetPolicy", tmock.Anything, "p1").Return(&existing, nil)
	repo.On("UpdatePolicy", tmock.Anything, tmock.Anything, "admin-1").Return(&updated, nil)

	_, err := svc.UpdatePolicy(context.Background(), leavePolicy(), "admin-1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"leave_request"}, cache.Resources)
}

func TestUpdatePolicy_FailsWhenLockHeld(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.DenyingLocker{})

	_, err := svc.UpdatePolicy(context.Background(), leavePolicy(), "admin-1")
	assert.ErrorIs(t, err, aegis_errors.ErrPolicyConflict)
	repo.AssertNotCalled(t, "UpdatePolicy")
	assert.Empty(t, cache.Resources)
}

func TestUpdatePolicy_NoInvalidationOnStoreFailure(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	existing := leavePolicy()
	repo.On("GetPolicy", tmock.Anything, "p1").Return(&existing, nil)
	repo.On("UpdatePolicy", tmock.Anything, tmock.Anything, "admin-1").
		Return(nil, errors.New("write failed"))

	_, err := svc.UpdatePolicy(context.Background(), leavePolicy(), "admin-1")
	assert.Error(t, err)
	assert.Empty(t, cache.Resources)
}

func TestSetPolicyActive_InvalidatesResource(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	deactivated := leavePolicy()
	deactivated.IsActive = false
	repo.On("SetPolicyActive", tmock.Anything, "p1", false).Return(&deactivated, nil)

	got, err := svc.SetPolicyActive(context.Background(), "p1", false)
	assert.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, []string{"leave_request"}, cache.Resources)
}

func TestDeletePolicy_InvalidatesResource(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	deleted := leavePolicy()
	repo.On("DeletePolicy", tmock.Anything, "p1").Return(&deleted, nil)

	err := svc.DeletePolicy(context.Background(), "p1", "admin-1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"leave_request"}, cache.Resources)
}

func TestBulkCreatePolicies_InvalidatesEveryAffectedResource(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	first := leavePolicy()
	second := leavePolicy()
	second.ID = "p2"
	second.Name = "expense-read"
	second.Resource = "expense_report"

	repo.On("CreatePolicy", tmock.Anything, tmock.Anything, "admin-1").Return("id", nil)

	ids, err := svc.BulkCreatePolicies(context.Background(), []model.Policy{first, second}, "admin-1")
	assert.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.ElementsMatch(t, []string{"leave_request", "expense_report"}, cache.Resources)
}

func TestBulkCreatePolicies_PartialFailureStillInvalidates(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	cache := &mock_dao.RecordingInvalidator{}
	svc := newService(repo, cache, mock_dao.NoopLocker{})

	first := leavePolicy()
	second := leavePolicy()
	second.ID = "p2"
	second.Name = "leave-write"

	repo.On("CreatePolicy", tmock.Anything, tmock.Anything, "admin-1").Return("", aegis_errors.ErrPolicyConflict)

	_, err := svc.BulkCreatePolicies(context.Background(), []model.Policy{first, second}, "admin-1")
	assert.ErrorIs(t, err, aegis_errors.ErrPolicyConflict)
	// Some creates may have landed before the failure; their lists are stale
	assert.Contains(t, cache.Resources, "leave_request")
}

func TestListPolicies_RejectsInvalidPagination(t *testing.T) {
	repo := new(mock_dao.MockPolicyRepository)
	svc := newService(repo, &mock_dao.RecordingInvalidator{}, mock_dao.NoopLocker{})

	_, err := svc.ListPolicies(context.Background(), 0, 0)
	assert.ErrorIs(t, err, aegis_errors.ErrInvalidPagination)

	_, err = svc.ListPolicies(context.Background(), 10, -1)
	assert.ErrorIs(t, err, aegis_errors.ErrInvalidPagination)
	repo.AssertNotCalled(t, "ListPolicies")
}
