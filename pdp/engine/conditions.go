package engine

import (
	"context"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	logger "github.com/workforcehq/aegis/logging"
	"github.com/workforcehq/aegis/model"
	pdp_model "github.com/workforcehq/aegis/pdp/model"
)

// ConditionHandler evaluates one condition against the subject and the
// runtime context. Returning an error is treated as "condition not
// satisfied" by the evaluator.
type ConditionHandler func(ctx context.Context, condition model.Condition, subject pdp_model.Subject, evalCtx *pdp_model.EvaluationContext) (bool, error)

// ConditionEvaluator dispatches conditions to registered handlers by type.
// Unknown types and handler failures resolve to false, never to an error on
// the decision path.
type ConditionEvaluator struct {
	mu       sync.RWMutex
	handlers map[string]ConditionHandler
}

func NewConditionEvaluator() *ConditionEvaluator {
	ce := &ConditionEvaluator{
		handlers: make(map[string]ConditionHandler),
	}
	ce.registerBuiltins()
	return ce
}

// Register adds or replaces the handler for a condition type.
func (ce *ConditionEvaluator) Register(conditionType string, handler ConditionHandler) {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	ce.handlers[conditionType] = handler
}

// Evaluate resolves a single condition to a boolean. Fail-closed: any
// handler error or unknown condition type yields false.
func (ce *ConditionEvaluator) Evaluate(ctx context.Context, condition model.Condition, subject pdp_model.Subject, evalCtx *pdp_model.EvaluationContext) bool {
	ce.mu.RLock()
	handler, ok := ce.handlers[condition.Type]
	ce.mu.RUnlock()

	if !ok {
		logger.Warn("Unknown condition type, failing closed", zap.String("type", condition.Type))
		return false
	}

	result, err := handler(ctx, condition, subject, evalCtx)
	if err != nil {
		logger.Error("Condition handler failed, failing closed",
			zap.Error(err),
			zap.String("type", condition.Type))
		return false
	}
	return result
}

func (ce *ConditionEvaluator) registerBuiltins() {
	// Ownership: a resource field must match a subject field
	ce.handlers[model.ConditionOwnership] = func(_ context.Context, c model.Condition, subject pdp_model.Subject, evalCtx *pdp_model.EvaluationContext) (bool, error) {
		resourceValue, ok := resolvePath(c.Field, evalCtx.ResourceData)
		if !ok {
			return false, nil
		}
		subjectValue, ok := resolvePath(c.ValueSource, map[string]interface{}{"subject": subject.AsMap()})
		if !ok {
			return false, nil
		}
		return compare(resourceValue, subjectValue, operatorOrDefault(c.Operator, model.OpEquals)), nil
	}

	// Department match: subject and resource fields refer to the same department
	ce.handlers[model.ConditionDepartmentMatch] = func(_ context.Context, c model.Condition, subject pdp_model.Subject, evalCtx *pdp_model.EvaluationContext) (bool, error) {
		subjectDept, ok := resolvePath(c.SubjectField, map[string]interface{}{"subject": subject.AsMap()})
		if !ok {
			return false, nil
		}
		resourceDept, ok := resolvePath(c.ResourceField, map[string]interface{}{"resource": evalCtx.ResourceData})
		if !ok {
			return false, nil
		}
		return compare(subjectDept, resourceDept, operatorOrDefault(c.Operator, model.OpEquals)), nil
	}

	// Threshold: numeric comparison on a resource field. A missing field or
	// non-numeric value fails the condition.
	ce.handlers[model.ConditionThreshold] = func(_ context.Context, c model.Condition, _ pdp_model.Subject, evalCtx *pdp_model.EvaluationContext) (bool, error) {
		fieldValue, ok := resolvePath(c.Field, map[string]interface{}{"resource": evalCtx.ResourceData})
		if !ok {
			return false, nil
		}
		return compare(toNumber(fieldValue), toNumber(c.Value), operatorOrDefault(c.Operator, model.OpLessThan)), nil
	}

	// Time window: current wall-clock hour within [startHour, endHour).
	// Vacuously true when either bound is absent.
	ce.handlers[model.ConditionTimeWindow] = func(_ context.Context, c model.Condition, _ pdp_model.Subject, _ *pdp_model.EvaluationContext) (bool, error) {
		bounds, ok := c.Value.(map[string]interface{})
		if !ok {
			return true, nil
		}
		start, hasStart := bounds["startHour"]
		end, hasEnd := bounds["endHour"]
		if !hasStart || !hasEnd {
			return true, nil
		}
		hour := float64(time.Now().Hour())
		return hour >= toNumber(start) && hour < toNumber(end), nil
	}

	// Probation check: true once the probation period is over. A missing or
	// unparseable joining date skips the check rather than blocking.
	ce.handlers[model.ConditionProbationCheck] = func(_ context.Context, c model.Condition, subject pdp_model.Subject, _ *pdp_model.EvaluationContext) (bool, error) {
		raw, ok := resolvePath(c.Field, map[string]interface{}{"subject": subject.AsMap()})
		if !ok {
			return true, nil
		}
		joining, ok := parseDate(raw)
		if !ok {
			return true, nil
		}
		months := 6
		if n := toNumber(c.Value); !math.IsNaN(n) && n > 0 {
			months = int(n)
		}
		probationEnd := joining.AddDate(0, months, 0)
		return time.Now().After(probationEnd), nil
	}

	// Date range: true unless now falls outside an optional [from, until]
	// window on the condition value.
	ce.handlers[model.ConditionDateRange] = func(_ context.Context, c model.Condition, _ pdp_model.Subject, _ *pdp_model.EvaluationContext) (bool, error) {
		bounds, ok := c.Value.(map[string]interface{})
		if !ok {
			return true, nil
		}
		now := time.Now()
		if from, ok := parseDate(bounds["from"]); ok && now.Before(from) {
			return false, nil
		}
		if until, ok := parseDate(bounds["until"]); ok && now.After(until) {
			return false, nil
		}
		return true, nil
	}
}

func operatorOrDefault(op, fallback string) string {
	if op == "" {
		return fallback
	}
	return op
}

// resolvePath navigates a dot-separated path through nested maps. A missing
// intermediate key yields absent, never an error.
func resolvePath(path string, data map[string]interface{}) (interface{}, bool) {
	if path == "" || data == nil {
		return nil, false
	}
	var current interface{} = data
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// toNumber coerces a value to float64, yielding NaN when it is nil or
// cannot be parsed. NaN fails every numeric comparison.
func toNumber(v interface{}) float64 {
	if v == nil {
		return math.NaN()
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN()
	}
	return n
}

// parseDate accepts time.Time values and common date string layouts.
func parseDate(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// compare applies a coercing comparison operator. String operators compare
// string representations; numeric operators compare float64 coercions; an
// unrecognized operator falls back to equality of the raw values.
func compare(a, b interface{}, operator string) bool {
	switch operator {
	case model.OpEquals:
		return cast.ToString(a) == cast.ToString(b)
	case model.OpNotEquals:
		return cast.ToString(a) != cast.ToString(b)
	case model.OpLessThan:
		return numericCompare(a, b, func(x, y float64) bool { return x < y })
	case model.OpGreaterThan:
		return numericCompare(a, b, func(x, y float64) bool { return x > y })
	case model.OpLessThanOrEqual:
		return numericCompare(a, b, func(x, y float64) bool { return x <= y })
	case model.OpGreaterThanOrEqual:
		return numericCompare(a, b, func(x, y float64) bool { return x >= y })
	case model.OpIn:
		return contains(b, a)
	case model.OpNotIn:
		return isSequence(b) && !contains(b, a)
	default:
		return reflect.DeepEqual(a, b)
	}
}

func numericCompare(a, b interface{}, cmp func(x, y float64) bool) bool {
	x, y := toNumber(a), toNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	return cmp(x, y)
}

func isSequence(v interface{}) bool {
	if v == nil {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// contains reports strict membership: elements match the needle only when
// they are deeply equal, so 1 and "1" are distinct.
func contains(seq, needle interface{}) bool {
	if !isSequence(seq) {
		return false
	}
	items := reflect.ValueOf(seq)
	for i := 0; i < items.Len(); i++ {
		if reflect.DeepEqual(items.Index(i).Interface(), needle) {
			return true
		}
	}
	return false
}
