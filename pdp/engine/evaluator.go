package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/workforcehq/aegis/audit"
	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
	pdp_model "github.com/workforcehq/aegis/pdp/model"
)

// DefaultDenyReason is returned when no active, time-valid policy matches.
const DefaultDenyReason = "No matching policy found - default deny"

// AuditSink receives decision records. Record must be non-blocking;
// persistence failures never reach the decision path.
type AuditSink interface {
	Record(entry audit.Entry)
}

// PolicyEvaluator decides whether a subject may perform an action on a
// resource. Policies are walked in priority-descending order and the first
// policy whose subject, action and conditions all match determines the
// outcome, regardless of effect. With no match the decision is a default
// deny.
type PolicyEvaluator struct {
	cache      *PolicyCache
	conditions *ConditionEvaluator
	audit      AuditSink
}

func NewPolicyEvaluator(cache *PolicyCache, conditions *ConditionEvaluator, auditSink AuditSink) *PolicyEvaluator {
	return &PolicyEvaluator{
		cache:      cache,
		conditions: conditions,
		audit:      auditSink,
	}
}

// Evaluate runs the decision pipeline. A policy load failure is returned as
// an error rather than mapped to a deny: with no policy data there is no
// safe decision, and callers must treat the failure as a system error, not
// as a denial.
func (pe *PolicyEvaluator) Evaluate(ctx context.Context, subject pdp_model.Subject, resource, action string, evalCtx *pdp_model.EvaluationContext) (*pdp_model.Decision, error) {
	if evalCtx == nil {
		evalCtx = &pdp_model.EvaluationContext{}
	}

	policies, err := pe.cache.GetPolicies(ctx, resource)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, policy := range policies {
		if !policy.ValidWindowContains(now) {
			continue
		}
		if !matchesSubject(policy, subject) {
			continue
		}
		if !matchesAction(policy.Actions, action) {
			continue
		}
		if !pe.conditionsHold(ctx, policy.Conditions, subject, evalCtx) {
			continue
		}

		// First matching policy wins, no further policies are consulted.
		allowed := policy.Effect == model.EffectAllow
		reason := fmt.Sprintf("Denied by policy: %s", policy.Name)
		if allowed {
			reason = fmt.Sprintf("Allowed by policy: %s", policy.Name)
		}

		pe.recordDecision(subject, resource, action, policy.Effect, policy, evalCtx)

		logger.Debug("Policy decision",
			zap.String("effect", policy.Effect),
			zap.String("policy", policy.Name),
			zap.String("subject", subject.UserID),
			zap.String("resource", resource),
			zap.String("action", action))

		return &pdp_model.Decision{
			Allowed: allowed,
			Policy:  policy,
			Reason:  reason,
		}, nil
	}

	pe.recordDecision(subject, resource, action, model.EffectDeny, nil, evalCtx)

	logger.Debug("Policy decision: default deny",
		zap.String("subject", subject.UserID),
		zap.String("resource", resource),
		zap.String("action", action))

	return &pdp_model.Decision{
		Allowed: false,
		Policy:  nil,
		Reason:  DefaultDenyReason,
	}, nil
}

// RegisterCondition exposes handler registration without handing out the
// condition evaluator itself.
func (pe *PolicyEvaluator) RegisterCondition(conditionType string, handler ConditionHandler) {
	pe.conditions.Register(conditionType, handler)
}

// conditionsHold applies AND semantics with short-circuit on the first
// failing condition. Conditions are evaluated sequentially, never
// concurrently.
func (pe *PolicyEvaluator) conditionsHold(ctx context.Context, conditions []model.Condition, subject pdp_model.Subject, evalCtx *pdp_model.EvaluationContext) bool {
	for _, condition := range conditions {
		if !pe.conditions.Evaluate(ctx, condition, subject, evalCtx) {
			return false
		}
	}
	return true
}

func matchesSubject(policy *model.Policy, subject pdp_model.Subject) bool {
	if roles := policy.Subject.Roles; len(roles) > 0 {
		if !containsString(roles, subject.Role) && !containsString(roles, model.ActionWildcard) {
			return false
		}
	}
	if departments := policy.Subject.Departments; len(departments) > 0 {
		if !containsString(departments, subject.Department) {
			return false
		}
	}
	return true
}

func matchesAction(actions []string, action string) bool {
	return containsString(actions, action) || containsString(actions, model.ActionWildcard)
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func (pe *PolicyEvaluator) recordDecision(subject pdp_model.Subject, resource, action, decision string, policy *model.Policy, evalCtx *pdp_model.EvaluationContext) {
	entry := audit.Entry{
		SubjectID:   subject.UserID,
		SubjectRole: subject.Role,
		Resource:    resource,
		Action:      action,
		Decision:    decision,
		PolicyName:  audit.DefaultDenyPolicyName,
		Context:     map[string]interface{}{"resourceId": evalCtx.ResourceID},
		IPAddress:   evalCtx.IPAddress,
		UserAgent:   evalCtx.UserAgent,
		Timestamp:   time.Now(),
	}
	if policy != nil {
		entry.PolicyID = policy.ID
		entry.PolicyName = policy.Name
	}
	pe.audit.Record(entry)
}
