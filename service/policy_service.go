package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	aegis_errors "github.com/workforcehq/aegis/errors"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
	"github.com/workforcehq/aegis/util"
)

// policyLockTTL bounds how long a crashed writer can hold a policy lock.
const policyLockTTL = 10 * time.Second

// CacheInvalidator is the slice of the policy cache the service needs:
// dropping entries after durable writes.
type CacheInvalidator interface {
	Invalidate(resourceType string)
	InvalidateAll()
}

// PolicyRepository is the durable store the service writes through.
// *dao.PolicyDAO is the production implementation.
type PolicyRepository interface {
	CreatePolicy(ctx context.Context, policy model.Policy, userID string) (string, error)
	UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error)
	SetPolicyActive(ctx context.Context, policyID string, isActive bool) (*model.Policy, error)
	DeletePolicy(ctx context.Context, policyID string) (*model.Policy, error)
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error)
}

// ResourceLocker serializes writers on one named resource. db.RedisLocker is
// the production implementation.
type ResourceLocker interface {
	Lock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, resource string) error
}

// IPolicyService defines the administrative policy operations
type IPolicyService interface {
	CreatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error)
	UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error)
	SetPolicyActive(ctx context.Context, policyID string, isActive bool) (*model.Policy, error)
	DeletePolicy(ctx context.Context, policyID string, userID string) error
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error)
	BulkCreatePolicies(ctx context.Context, policies []model.Policy, userID string) ([]string, error)
}

// PolicyService handles business logic for policy administration. Every
// durable write invalidates the evaluation cache for the affected resource
// type, strictly after the write, so a concurrent reload cannot re-read
// stale data.
type PolicyService struct {
	policyDAO       PolicyRepository
	validationUtil  *util.ValidationUtil
	policyCache     CacheInvalidator
	locker          ResourceLocker
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(policyDAO PolicyRepository, validationUtil *util.ValidationUtil, policyCache CacheInvalidator, locker ResourceLocker, notificationSvc *util.NotificationService, eventBus *util.EventBus) *PolicyService {
	service := &PolicyService{
		policyDAO:       policyDAO,
		validationUtil:  validationUtil,
		policyCache:     policyCache,
		locker:          locker,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("policy.created", service.handlePolicyChanged)
	eventBus.Subscribe("policy.updated", service.handlePolicyChanged)
	eventBus.Subscribe("policy.deleted", service.handlePolicyChanged)

	return service
}

func (s *PolicyService) handlePolicyChanged(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.Policy)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	changeType := event.Type[len("policy."):]
	if err := s.notificationSvc.NotifyPolicyChange(ctx, changeType, policy); err != nil {
		logger.Warn("Failed to send policy change notification",
			zap.Error(err),
			zap.String("policyID", policy.ID))
	}
	return nil
}

func (s *PolicyService) CreatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, fmt.Errorf("%w: %v", aegis_errors.ErrInvalidPolicyData, err)
	}

	policyID, err := s.policyDAO.CreatePolicy(ctx, policy, userID)
	if err != nil {
		return nil, err
	}

	created, err := s.policyDAO.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	// Invalidate only after the write is durable
	s.policyCache.Invalidate(created.Resource)

	s.eventBus.Publish(ctx, "policy.created", *created)
	logger.Info("Policy created",
		zap.String("policyID", created.ID),
		zap.String("policyName", created.Name),
		zap.String("createdBy", userID))
	return created, nil
}

func (s *PolicyService) UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, fmt.Errorf("%w: %v", aegis_errors.ErrInvalidPolicyData, err)
	}

	unlock, err := s.lockPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	previous, err := s.policyDAO.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.policyDAO.UpdatePolicy(ctx, policy, userID)
	if err != nil {
		return nil, err
	}

	s.policyCache.Invalidate(updated.Resource)
	if previous.Resource != updated.Resource {
		// The policy moved between resource types; both cached lists are stale
		s.policyCache.Invalidate(previous.Resource)
	}

	s.eventBus.Publish(ctx, "policy.updated", *updated)
	logger.Info("Policy updated",
		zap.String("policyID", updated.ID),
		zap.Int("version", updated.Version),
		zap.String("updatedBy", userID))
	return updated, nil
}

func (s *PolicyService) SetPolicyActive(ctx context.Context, policyID string, isActive bool) (*model.Policy, error) {
	updated, err := s.policyDAO.SetPolicyActive(ctx, policyID, isActive)
	if err != nil {
		return nil, err
	}

	s.policyCache.Invalidate(updated.Resource)

	s.eventBus.Publish(ctx, "policy.updated", *updated)
	logger.Info("Policy active flag changed",
		zap.String("policyID", updated.ID),
		zap.Bool("isActive", isActive))
	return updated, nil
}

func (s *PolicyService) DeletePolicy(ctx context.Context, policyID string, userID string) error {
	unlock, err := s.lockPolicy(ctx, policyID)
	if err != nil {
		return err
	}
	defer unlock()

	deleted, err := s.policyDAO.DeletePolicy(ctx, policyID)
	if err != nil {
		return err
	}

	s.policyCache.Invalidate(deleted.Resource)

	s.eventBus.Publish(ctx, "policy.deleted", *deleted)
	logger.Info("Policy deleted",
		zap.String("policyID", policyID),
		zap.String("deletedBy", userID))
	return nil
}

// lockPolicy serializes writers touching one policy via a Redis lock. The
// returned unlock releases it; callers must defer it.
func (s *PolicyService) lockPolicy(ctx context.Context, policyID string) (func(), error) {
	resource := "policy:" + policyID
	locked, err := s.locker.Lock(ctx, resource, policyLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aegis_errors.ErrDatabaseOperation, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: policy %s is being modified", aegis_errors.ErrPolicyConflict, policyID)
	}
	return func() {
		if err := s.locker.Unlock(ctx, resource); err != nil {
			logger.Warn("Failed to release policy lock",
				zap.Error(err),
				zap.String("policyID", policyID))
		}
	}, nil
}

func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	return s.policyDAO.GetPolicy(ctx, policyID)
}

func (s *PolicyService) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	if limit <= 0 || offset < 0 {
		return nil, aegis_errors.ErrInvalidPagination
	}
	return s.policyDAO.ListPolicies(ctx, limit, offset)
}

// BulkCreatePolicies creates policies concurrently and invalidates every
// affected resource type once at the end.
func (s *PolicyService) BulkCreatePolicies(ctx context.Context, policies []model.Policy, userID string) ([]string, error) {
	for _, policy := range policies {
		if err := s.validationUtil.ValidatePolicy(policy); err != nil {
			return nil, fmt.Errorf("%w: %v", aegis_errors.ErrInvalidPolicyData, err)
		}
	}

	ids := make([]string, len(policies))
	resources := make(map[string]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range policies {
		i := i
		resources[policies[i].Resource] = struct{}{}
		g.Go(func() error {
			id, err := s.policyDAO.CreatePolicy(gctx, policies[i], userID)
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Some policies may already be durable; drop their cached lists too
		for resource := range resources {
			s.policyCache.Invalidate(resource)
		}
		if notifyErr := s.notificationSvc.NotifyAdmins(ctx, fmt.Sprintf("bulk policy creation aborted: %v", err)); notifyErr != nil {
			logger.Warn("Failed to notify admins", zap.Error(notifyErr))
		}
		return nil, err
	}

	for resource := range resources {
		s.policyCache.Invalidate(resource)
	}

	logger.Info("Bulk policy creation finished",
		zap.Int("count", len(ids)),
		zap.String("createdBy", userID))
	return ids, nil
}

var _ IPolicyService = (*PolicyService)(nil)
