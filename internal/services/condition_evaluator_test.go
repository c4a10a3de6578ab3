package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grcplane/grcplane-core/internal/models"
)

var evalNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestEvaluateCondition_Equals(t *testing.T) {
	tests := []struct {
		name       string
		fieldValue interface{}
		condValue  string
		want       bool
	}{
		{"string match", "approved", "approved", true},
		{"string mismatch", "draft", "approved", false},
		{"numeric match across types", 30, "30.0", true},
		{"numeric string match", "42", "42", true},
		{"nil vs empty", nil, "", true},
		{"nil vs value", nil, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateCondition(tt.fieldValue, models.ConditionEquals, tt.condValue, evalNow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateCondition_Ordering(t *testing.T) {
	assert.True(t, EvaluateCondition(7.5, models.ConditionGreaterThan, "5", evalNow))
	assert.False(t, EvaluateCondition(3, models.ConditionGreaterThan, "5", evalNow))
	assert.True(t, EvaluateCondition(3, models.ConditionLessThan, "5", evalNow))
	assert.False(t, EvaluateCondition("not-a-number", models.ConditionGreaterThan, "5", evalNow))
	assert.False(t, EvaluateCondition(5, models.ConditionGreaterThan, "oops", evalNow))
}

func TestEvaluateCondition_Contains(t *testing.T) {
	assert.True(t, EvaluateCondition("quarterly access review", models.ConditionContains, "access", evalNow))
	assert.False(t, EvaluateCondition("quarterly access review", models.ConditionContains, "vendor", evalNow))
	assert.True(t, EvaluateCondition("quarterly access review", models.ConditionNotContains, "vendor", evalNow))
	assert.True(t, EvaluateCondition(nil, models.ConditionNotContains, "anything", evalNow))
	assert.False(t, EvaluateCondition(nil, models.ConditionContains, "anything", evalNow))
}

func TestEvaluateCondition_Nullness(t *testing.T) {
	assert.True(t, EvaluateCondition(nil, models.ConditionIsNull, "", evalNow))
	assert.True(t, EvaluateCondition("", models.ConditionIsNull, "", evalNow))
	assert.False(t, EvaluateCondition("x", models.ConditionIsNull, "", evalNow))
	assert.True(t, EvaluateCondition(0, models.ConditionIsNotNull, "", evalNow))
	assert.False(t, EvaluateCondition(nil, models.ConditionIsNotNull, "", evalNow))
}

func TestEvaluateCondition_DaysOverdue(t *testing.T) {
	fiveDaysAgo := evalNow.Add(-5 * 24 * time.Hour)
	sixDaysAgo := evalNow.Add(-6 * 24 * time.Hour)

	// The standalone condition is strict: exactly at the threshold does not
	// fire, past it does.
	assert.False(t, EvaluateCondition(fiveDaysAgo, models.ConditionDaysOverdue, "5", evalNow))
	assert.True(t, EvaluateCondition(sixDaysAgo, models.ConditionDaysOverdue, "5", evalNow))

	// String timestamps from JSON payloads.
	assert.True(t, EvaluateCondition(fiveDaysAgo.Format(time.RFC3339), models.ConditionDaysOverdue, "3", evalNow))
	assert.True(t, EvaluateCondition("2025-06-01", models.ConditionDaysOverdue, "10", evalNow))

	// Unparseable dates never fire.
	assert.False(t, EvaluateCondition("someday", models.ConditionDaysOverdue, "1", evalNow))
	assert.False(t, EvaluateCondition(nil, models.ConditionDaysOverdue, "1", evalNow))
}

func TestEvaluateCondition_StatusEquals(t *testing.T) {
	assert.True(t, EvaluateCondition("OVERDUE", models.ConditionStatusEquals, "overdue", evalNow))
	assert.True(t, EvaluateCondition("overdue", models.ConditionStatusEquals, "OVERDUE", evalNow))
	assert.False(t, EvaluateCondition("active", models.ConditionStatusEquals, "overdue", evalNow))
	assert.False(t, EvaluateCondition(nil, models.ConditionStatusEquals, "overdue", evalNow))
}

func TestEvaluateCondition_UnknownConditionIsFalse(t *testing.T) {
	assert.False(t, EvaluateCondition("x", models.RuleCondition("regex_match"), "x", evalNow))
}
