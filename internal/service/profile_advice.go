package service

import (
	"fmt"
	"strings"

	"github.com/vigil-scan-server/internal/domain"
)

// ProfileAdviceEngine derives rule-based dietary advice for a single
// ingredient from the user's medical profile and the ingredient's NOVA
// tier. The output feeds the advice composer as a secondary source.
type ProfileAdviceEngine struct{}

// NewProfileAdviceEngine creates a profile advice engine.
func NewProfileAdviceEngine() *ProfileAdviceEngine {
	return &ProfileAdviceEngine{}
}

// AdviseAll generates advice for every detected item, concatenated in item
// order. The composer deduplicates afterwards.
func (e *ProfileAdviceEngine) AdviseAll(profile *domain.UserProfile, items []domain.FoodItem) []string {
	var advice []string
	for _, item := range items {
		advice = append(advice, e.GeneralAdvice(item.Name, item.NovaCategory)...)
		advice = append(advice, e.PersonalizedAdvice(profile, item.Name, item.NovaCategory)...)
	}
	return advice
}

// GeneralAdvice returns profile-independent advice for an ingredient.
func (e *ProfileAdviceEngine) GeneralAdvice(ingredient string, category domain.NovaCategory) []string {
	var advice []string
	lower := strings.ToLower(ingredient)

	switch category {
	case domain.NOVA1:
		advice = append(advice, "Unprocessed foods are the healthiest choice for most people")
	case domain.NOVA2:
		advice = append(advice, "Processed culinary ingredients can enhance flavor while maintaining nutritional value")
	case domain.NOVA3:
		advice = append(advice, "Processed foods should be consumed in moderation")
	case domain.NOVA4:
		advice = append(advice,
			"Ultra-processed foods are associated with increased risk of chronic diseases",
			"Consider replacing with less processed alternatives when possible")
	}

	if strings.Contains(lower, "sugar") || strings.Contains(lower, "syrup") {
		advice = append(advice,
			"High sugar intake may worsen diabetes and contribute to weight gain",
			"Excessive sugar consumption is linked to tooth decay")
	}
	if strings.Contains(lower, "salt") {
		advice = append(advice,
			"High sodium intake may increase blood pressure",
			"People with hypertension should limit salt intake")
	}
	if strings.Contains(lower, "oil") || strings.Contains(lower, "fat") {
		advice = append(advice,
			"Saturated and trans fats may increase risk of heart disease",
			"Choose unsaturated fats like olive oil when possible")
	}
	if strings.Contains(lower, "preservative") || strings.Contains(lower, "additive") {
		advice = append(advice, "Some food additives may cause allergic reactions in sensitive individuals")
	}
	if strings.Contains(lower, "flour") || strings.Contains(lower, "bread") {
		advice = append(advice,
			"Refined flour can cause blood sugar spikes",
			"Consider whole grain alternatives for better nutrition")
	}

	return advice
}

// PersonalizedAdvice returns advice specific to the user's conditions,
// restrictions, age and BMI. Allergen handling lives in the allergen
// matcher and composer, not here; this only covers condition restrictions
// and demographic heuristics.
func (e *ProfileAdviceEngine) PersonalizedAdvice(profile *domain.UserProfile, ingredient string, category domain.NovaCategory) []string {
	if profile == nil {
		return nil
	}

	var advice []string
	lower := strings.ToLower(ingredient)

	for _, condition := range profile.MedicalConditions {
		for _, restriction := range condition.DietaryRestrictions {
			if strings.Contains(lower, strings.ToLower(restriction)) {
				advice = append(advice, fmt.Sprintf("CAUTION: %s restriction - %s may worsen your condition", condition.Name, restriction))
			}
		}
	}

	if profile.Age > 50 {
		if strings.Contains(lower, "salt") {
			advice = append(advice, "As an older adult, you should be especially careful with sodium intake")
		}
		if strings.Contains(lower, "sugar") {
			advice = append(advice, "Older adults should monitor sugar intake to maintain stable blood sugar")
		}
	}

	if bmi := profile.BMI(); bmi > 25 && category >= domain.NOVA3 {
		advice = append(advice, "As someone with elevated BMI, consider limiting processed foods")
	}

	return advice
}
