// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
)

type NotificationService struct {
	// You might want to add dependencies here, such as a message queue client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyPolicyChange(ctx context.Context, changeType string, policy model.Policy) error {
	switch changeType {
	case "created":
		logger.Info("NOTIFICATION: New policy created",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name))
	case "updated":
		logger.Info("NOTIFICATION: Policy updated",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name))
	case "deleted":
		logger.Info("NOTIFICATION: Policy deleted",
			zap.String("policyID", policy.ID))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	return nil
}

func (n *NotificationService) NotifyAdmins(ctx context.Context, message string) error {
	logger.Info("Notifying admins", zap.String("message", message))
	return nil
}
