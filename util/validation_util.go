// util/validation_util.go

package util

import (
	"fmt"

	"github.com/workforcehq/aegis/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidatePolicy(policy model.Policy) error {
	if policy.Name == "" {
		return fmt.Errorf("policy name cannot be empty")
	}
	if policy.Effect != model.EffectAllow && policy.Effect != model.EffectDeny {
		return fmt.Errorf("policy effect must be either 'allow' or 'deny'")
	}
	if policy.Priority < 0 {
		return fmt.Errorf("policy priority cannot be negative")
	}
	if policy.Resource == "" {
		return fmt.Errorf("policy must name a resource type")
	}
	if len(policy.Actions) == 0 {
		return fmt.Errorf("policy must have at least one action")
	}
	if policy.ValidFrom != nil && policy.ValidUntil != nil && policy.ValidUntil.Before(*policy.ValidFrom) {
		return fmt.Errorf("policy validUntil cannot precede validFrom")
	}
	for i, condition := range policy.Conditions {
		if err := v.ValidateCondition(condition); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateCondition(condition model.Condition) error {
	switch condition.Type {
	case model.ConditionOwnership:
		if condition.Field == "" || condition.ValueSource == "" {
			return fmt.Errorf("ownership condition requires field and value_source")
		}
	case model.ConditionDepartmentMatch:
		if condition.SubjectField == "" || condition.ResourceField == "" {
			return fmt.Errorf("department_match condition requires subject_field and resource_field")
		}
	case model.ConditionThreshold:
		if condition.Field == "" {
			return fmt.Errorf("threshold condition requires a field")
		}
	case model.ConditionProbationCheck:
		if condition.Field == "" {
			return fmt.Errorf("probation_check condition requires a field")
		}
	case model.ConditionTimeWindow, model.ConditionDateRange:
		// Bounds are optional; an empty value is vacuously true
	case "":
		return fmt.Errorf("condition type cannot be empty")
	default:
		// Custom types are validated by their registered handler
	}
	return nil
}
