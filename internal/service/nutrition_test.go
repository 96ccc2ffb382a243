package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigil-scan-server/internal/domain"
)

func rawJSON(s string) json.RawMessage {
	return json.RawMessage(s)
}

func TestNutritionAggregator_Aggregate_NumericString(t *testing.T) {
	agg := NewNutritionAggregator(testLogger())

	summary := agg.Aggregate(&domain.RawNutritionFacts{
		Calories: rawJSON(`"250"`),
		Protein:  rawJSON(`12`),
		Carbs:    rawJSON(`36.4`),
		Sugar:    rawJSON(`3`),
		Fat:      rawJSON(`9.6`),
		Sodium:   rawJSON(`480`),
	})

	assert.Equal(t, 250, summary.Calories)
	assert.Equal(t, 12, summary.Protein)
	assert.Equal(t, 36, summary.Carbs)
	assert.Equal(t, 3, summary.Sugar)
	assert.Equal(t, 10, summary.Fat)
	assert.Equal(t, 480, summary.Sodium)
	assert.Equal(t, domain.SourceAI, summary.Source)
}

func TestNutritionAggregator_Aggregate_NonNumericFallsBack(t *testing.T) {
	agg := NewNutritionAggregator(testLogger())

	summary := agg.Aggregate(&domain.RawNutritionFacts{
		Calories: rawJSON(`"abc"`),
		Protein:  rawJSON(`12`),
		Carbs:    rawJSON(`36`),
		Sugar:    rawJSON(`3`),
		Fat:      rawJSON(`10`),
		Sodium:   rawJSON(`480`),
	})

	assert.GreaterOrEqual(t, summary.Calories, 100)
	assert.Less(t, summary.Calories, 600)
	assert.Equal(t, 12, summary.Protein)
	assert.Equal(t, domain.SourceHeuristic, summary.Source, "one fallback taints the whole summary")
}

func TestNutritionAggregator_Aggregate_NullFieldFallsBack(t *testing.T) {
	agg := NewNutritionAggregator(testLogger())

	summary := agg.Aggregate(&domain.RawNutritionFacts{
		Calories: rawJSON(`null`),
		Protein:  rawJSON(`12`),
		Carbs:    rawJSON(`36`),
		Sugar:    rawJSON(`3`),
		Fat:      rawJSON(`10`),
		Sodium:   rawJSON(`480`),
	})

	// A null field is absent data, not the number zero; it takes the
	// bounded fallback and taints the source.
	assert.GreaterOrEqual(t, summary.Calories, 100)
	assert.Less(t, summary.Calories, 600)
	assert.Equal(t, domain.SourceHeuristic, summary.Source)
}

func TestNutritionAggregator_Aggregate_NilRecord(t *testing.T) {
	agg := NewNutritionAggregator(testLogger())

	summary := agg.Aggregate(nil)

	assert.Equal(t, domain.SourceHeuristic, summary.Source)
	assert.GreaterOrEqual(t, summary.Calories, 100)
	assert.Less(t, summary.Calories, 600)
	assert.GreaterOrEqual(t, summary.Protein, 1)
	assert.Less(t, summary.Protein, 21)
	assert.GreaterOrEqual(t, summary.Carbs, 5)
	assert.Less(t, summary.Carbs, 65)
	assert.GreaterOrEqual(t, summary.Sugar, 1)
	assert.Less(t, summary.Sugar, 31)
	assert.GreaterOrEqual(t, summary.Fat, 1)
	assert.Less(t, summary.Fat, 26)
	assert.GreaterOrEqual(t, summary.Sodium, 50)
	assert.Less(t, summary.Sodium, 850)
}

func TestNutritionAggregator_Aggregate_MissingFieldFallsBack(t *testing.T) {
	agg := NewNutritionAggregator(testLogger())
	agg.randFn = func(n int) int { return 0 } // deterministic: every fallback is the range minimum

	summary := agg.Aggregate(&domain.RawNutritionFacts{
		Calories: rawJSON(`250`),
	})

	assert.Equal(t, 250, summary.Calories)
	assert.Equal(t, 1, summary.Protein)
	assert.Equal(t, 5, summary.Carbs)
	assert.Equal(t, 1, summary.Sugar)
	assert.Equal(t, 1, summary.Fat)
	assert.Equal(t, 50, summary.Sodium)
	assert.Equal(t, domain.SourceHeuristic, summary.Source)
}

func TestNutritionAggregator_SumTable(t *testing.T) {
	agg := NewNutritionAggregator(testLogger())

	summary := agg.SumTable([]string{"Apple", "PIZZA", "unknown thing"})

	// apple (95 kcal) + pizza (285 kcal); the unknown name contributes
	// nothing.
	assert.Equal(t, 380, summary.Calories)
	assert.Equal(t, 13, summary.Protein) // 0.5 + 12, rounded
	assert.Equal(t, 61, summary.Carbs)
	assert.Equal(t, 22, summary.Sugar)
	assert.Equal(t, 10, summary.Fat)
}

func TestNutritionAggregator_SumTable_NoMatches(t *testing.T) {
	agg := NewNutritionAggregator(testLogger())

	summary := agg.SumTable([]string{"nothing", "known"})
	assert.Equal(t, 0, summary.Calories)
}

func TestNutritionAggregator_ThresholdInsights(t *testing.T) {
	agg := NewNutritionAggregator(testLogger())

	tests := []struct {
		name     string
		summary  domain.NutritionSummary
		expected []string
	}{
		{
			name:    "high sugar",
			summary: domain.NutritionSummary{Calories: 250, Sugar: 25, Protein: 5},
			expected: []string{
				"High sugar content - May cause energy crash later",
			},
		},
		{
			name:    "high protein light meal",
			summary: domain.NutritionSummary{Calories: 180, Protein: 20},
			expected: []string{
				"Good protein source for muscle maintenance",
				"Light meal - Good for weight management",
			},
		},
		{
			name:    "high calorie meal",
			summary: domain.NutritionSummary{Calories: 500},
			expected: []string{
				"High-calorie meal - Consider smaller portions",
			},
		},
		{
			name:    "weekly projection above maintenance",
			summary: domain.NutritionSummary{Calories: 2550},
			expected: []string{
				"High-calorie meal - Consider smaller portions",
				"If eaten daily: Potential weight gain of ~0.5 kg per week",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, agg.ThresholdInsights(tt.summary))
		})
	}
}
