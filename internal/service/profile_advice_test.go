package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigil-scan-server/internal/domain"
)

func TestProfileAdviceEngine_GeneralAdvice(t *testing.T) {
	engine := NewProfileAdviceEngine()

	t.Run("tier advice", func(t *testing.T) {
		advice := engine.GeneralAdvice("banana", domain.NOVA1)
		assert.Contains(t, advice, "Unprocessed foods are the healthiest choice for most people")
	})

	t.Run("ultra-processed gets two tier lines", func(t *testing.T) {
		advice := engine.GeneralAdvice("instant noodles", domain.NOVA4)
		assert.Contains(t, advice, "Ultra-processed foods are associated with increased risk of chronic diseases")
		assert.Contains(t, advice, "Consider replacing with less processed alternatives when possible")
	})

	t.Run("sugar keyword", func(t *testing.T) {
		advice := engine.GeneralAdvice("high fructose corn syrup", domain.NOVA4)
		assert.Contains(t, advice, "High sugar intake may worsen diabetes and contribute to weight gain")
	})

	t.Run("salt keyword", func(t *testing.T) {
		advice := engine.GeneralAdvice("sea salt", domain.NOVA2)
		assert.Contains(t, advice, "People with hypertension should limit salt intake")
	})

	t.Run("flour keyword", func(t *testing.T) {
		advice := engine.GeneralAdvice("wheat flour", domain.NOVA3)
		assert.Contains(t, advice, "Refined flour can cause blood sugar spikes")
	})
}

func TestProfileAdviceEngine_PersonalizedAdvice(t *testing.T) {
	engine := NewProfileAdviceEngine()

	t.Run("nil profile", func(t *testing.T) {
		assert.Nil(t, engine.PersonalizedAdvice(nil, "sugar", domain.NOVA3))
	})

	t.Run("condition restriction", func(t *testing.T) {
		profile := &domain.UserProfile{
			MedicalConditions: []domain.MedicalCondition{
				{Name: "Diabetes", DietaryRestrictions: []string{"sugar", "refined carbs"}},
			},
		}
		advice := engine.PersonalizedAdvice(profile, "cane sugar", domain.NOVA3)
		assert.Contains(t, advice, "CAUTION: Diabetes restriction - sugar may worsen your condition")
	})

	t.Run("older adult salt", func(t *testing.T) {
		profile := &domain.UserProfile{Age: 62}
		advice := engine.PersonalizedAdvice(profile, "salted peanuts", domain.NOVA3)
		assert.Contains(t, advice, "As an older adult, you should be especially careful with sodium intake")
	})

	t.Run("elevated BMI with processed food", func(t *testing.T) {
		profile := &domain.UserProfile{HeightCm: 170, WeightKg: 85} // BMI ~29.4
		advice := engine.PersonalizedAdvice(profile, "cookie", domain.NOVA4)
		assert.Contains(t, advice, "As someone with elevated BMI, consider limiting processed foods")
	})

	t.Run("elevated BMI ignored for unprocessed food", func(t *testing.T) {
		profile := &domain.UserProfile{HeightCm: 170, WeightKg: 85}
		advice := engine.PersonalizedAdvice(profile, "apple", domain.NOVA1)
		assert.Empty(t, advice)
	})
}

func TestUserProfile_BMI(t *testing.T) {
	profile := &domain.UserProfile{HeightCm: 180, WeightKg: 81}
	assert.InDelta(t, 25.0, profile.BMI(), 0.01)

	unset := &domain.UserProfile{}
	assert.Zero(t, unset.BMI())
}

func TestUserProfile_Summary(t *testing.T) {
	profile := &domain.UserProfile{
		MedicalConditions: []domain.MedicalCondition{{Name: "Hypertension"}},
		Medications:       []string{"lisinopril"},
	}

	summary := profile.Summary()
	assert.Contains(t, summary, "- Conditions: Hypertension")
	assert.Contains(t, summary, "- Medications: lisinopril")
	assert.Contains(t, summary, "- Allergies: none specified")
}
