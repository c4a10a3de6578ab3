package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grcplane/grcplane-core/internal/models"
)

// EvaluateCondition applies one rule condition to a single field value. It is
// pure: the reference time comes in as an argument so evaluation is
// reproducible. Unknown conditions evaluate to false, never to an error, so a
// malformed rule can only fail to fire.
func EvaluateCondition(fieldValue interface{}, condition models.RuleCondition, conditionValue string, now time.Time) bool {
	switch condition {
	case models.ConditionEquals:
		return valuesEqual(fieldValue, conditionValue)

	case models.ConditionNotEquals:
		return !valuesEqual(fieldValue, conditionValue)

	case models.ConditionGreaterThan:
		fv, ok1 := toFloat(fieldValue)
		cv, ok2 := parseFloat(conditionValue)
		return ok1 && ok2 && fv > cv

	case models.ConditionLessThan:
		fv, ok1 := toFloat(fieldValue)
		cv, ok2 := parseFloat(conditionValue)
		return ok1 && ok2 && fv < cv

	case models.ConditionContains:
		return fieldValue != nil && strings.Contains(stringify(fieldValue), conditionValue)

	case models.ConditionNotContains:
		return fieldValue == nil || !strings.Contains(stringify(fieldValue), conditionValue)

	case models.ConditionIsNull:
		return isNull(fieldValue)

	case models.ConditionIsNotNull:
		return !isNull(fieldValue)

	case models.ConditionDaysOverdue:
		t, ok := toTime(fieldValue)
		if !ok {
			return false
		}
		threshold, ok := parseFloat(conditionValue)
		if !ok {
			return false
		}
		overdue := now.Sub(t).Hours() / 24
		return overdue > threshold

	case models.ConditionStatusEquals:
		return fieldValue != nil && strings.EqualFold(stringify(fieldValue), conditionValue)

	default:
		return false
	}
}

// valuesEqual compares numerically when both sides parse as numbers, so
// 30 == "30.0"; otherwise it falls back to string comparison.
func valuesEqual(fieldValue interface{}, conditionValue string) bool {
	if fieldValue == nil {
		return conditionValue == ""
	}
	fv, ok1 := toFloat(fieldValue)
	cv, ok2 := parseFloat(conditionValue)
	if ok1 && ok2 {
		return fv == cv
	}
	return stringify(fieldValue) == conditionValue
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return parseFloat(n)
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// toTime accepts the shapes a date field can arrive in: a time.Time when the
// caller built the entity map in Go, or a string from a JSON payload
// (RFC 3339 or bare date).
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
