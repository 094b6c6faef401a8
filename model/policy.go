// model/policy.go
package model

import (
	"time"
)

// Policy effects
const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

// ActionWildcard matches any action (or any role) when present in the
// corresponding policy list.
const ActionWildcard = "*"

// Condition types shipped with the engine. Additional types can be
// registered on the ConditionEvaluator at runtime.
const (
	ConditionOwnership       = "ownership"
	ConditionDepartmentMatch = "department_match"
	ConditionThreshold       = "threshold"
	ConditionTimeWindow      = "time_window"
	ConditionProbationCheck  = "probation_check"
	ConditionDateRange       = "date_range"
)

// Comparison operators understood by the condition evaluator
const (
	OpEquals             = "equals"
	OpNotEquals          = "not_equals"
	OpLessThan           = "less_than"
	OpGreaterThan        = "greater_than"
	OpLessThanOrEqual    = "less_than_or_equal"
	OpGreaterThanOrEqual = "greater_than_or_equal"
	OpIn                 = "in"
	OpNotIn              = "not_in"
)

type Policy struct {
	ID          string        `json:"id"`
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	Effect      string        `json:"effect" binding:"required"` // "allow" or "deny"
	Priority    int           `json:"priority"`
	Subject     PolicySubject `json:"subject"`
	Resource    string        `json:"resource" binding:"required"`
	Actions     []string      `json:"actions" binding:"required"`
	Conditions  []Condition   `json:"conditions"`
	IsActive    bool          `json:"is_active"`
	Version     int           `json:"version"`
	ValidFrom   *time.Time    `json:"valid_from,omitempty"`
	ValidUntil  *time.Time    `json:"valid_until,omitempty"`
	CreatedBy   string        `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PolicySubject filters which principals a policy applies to. Empty lists
// impose no constraint.
type PolicySubject struct {
	Roles       []string `json:"roles"`
	Departments []string `json:"departments,omitempty"`
}

// Condition is a predicate attached to a policy. All conditions on a policy
// are combined with AND; an empty list is always satisfied.
type Condition struct {
	Type          string      `json:"type"`
	Field         string      `json:"field,omitempty"`
	Operator      string      `json:"operator,omitempty"`
	Value         interface{} `json:"value,omitempty"`
	ValueSource   string      `json:"value_source,omitempty"`
	SubjectField  string      `json:"subject_field,omitempty"`
	ResourceField string      `json:"resource_field,omitempty"`
}

// ValidWindowContains reports whether t falls inside the policy's
// [ValidFrom, ValidUntil] window. An absent bound is unbounded on that side.
func (p *Policy) ValidWindowContains(t time.Time) bool {
	if p.ValidFrom != nil && t.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && t.After(*p.ValidUntil) {
		return false
	}
	return true
}
