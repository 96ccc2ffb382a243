// Package service implements the ingredient-risk reasoning pipeline:
// NOVA classification, nutrition aggregation, allergen matching, advice
// composition and final result assembly.
package service

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
)

// NovaClassifier maps an ingredient name to a NOVA processing tier using
// ordered keyword matching. Tier 4 keywords are checked first, then 3, 2
// and 1, so an ingredient matching several tiers is always assigned the
// most processed one. Unmatched input (including the empty string)
// defaults to tier 4.
type NovaClassifier struct {
	logger *logrus.Logger
	tiers  []novaTier
}

type novaTier struct {
	category domain.NovaCategory
	keywords []string
}

// NewNovaClassifier creates a classifier with the standard keyword lists.
func NewNovaClassifier(logger *logrus.Logger) *NovaClassifier {
	return &NovaClassifier{
		logger: logger,
		// Most restrictive tier first; order is part of the contract.
		tiers: []novaTier{
			{domain.NOVA4, []string{
				"preservative", "emulsifier", "artificial", "coloring", "flavoring",
				"sweetener", "hydrogenated", "high fructose", "msg", "additive",
				"soda", "cookie", "cracker", "chip", "candy", "chocolate",
				"processed meat", "hot dog", "sausage", "bacon", "deli meat",
				"instant", "frozen meal", "fast food", "energy drink",
			}},
			{domain.NOVA3, []string{
				"bread", "cheese", "yogurt", "canned", "pickled", "smoked",
				"roasted", "salted", "sugar", "flour", "pasta", "cereal",
			}},
			{domain.NOVA2, []string{
				"salt", "pepper", "vinegar", "oil", "olive oil", "coconut oil",
				"butter", "honey", "maple syrup", "yeast", "baking powder",
				"cinnamon", "basil", "oregano", "thyme", "rosemary",
			}},
			{domain.NOVA1, []string{
				"apple", "banana", "orange", "grape", "strawberry", "blueberry",
				"broccoli", "carrot", "spinach", "kale", "lettuce", "cucumber",
				"tomato", "onion", "garlic", "ginger", "potato", "sweet potato",
				"chicken", "beef", "pork", "fish", "salmon", "tuna", "egg",
				"milk", "water", "rice", "quinoa", "oat", "barley",
			}},
		},
	}
}

// Classify returns the NOVA tier for an ingredient name. Total over any
// string input; there is no error path.
func (c *NovaClassifier) Classify(ingredientName string) domain.NovaCategory {
	lower := strings.ToLower(ingredientName)

	for _, tier := range c.tiers {
		for _, keyword := range tier.keywords {
			if strings.Contains(lower, keyword) {
				return tier.category
			}
		}
	}

	// Unknown ingredients are assumed ultra-processed.
	return domain.NOVA4
}

// ClassifyAll classifies a list of ingredient names in order.
func (c *NovaClassifier) ClassifyAll(names []string) []domain.FoodItem {
	items := make([]domain.FoodItem, 0, len(names))
	for i, name := range names {
		items = append(items, domain.FoodItem{
			Name:           name,
			ConfidenceRate: detectionConfidence(i),
			NovaCategory:   c.Classify(name),
		})
	}

	c.logger.WithFields(logrus.Fields{
		"ingredient_count": len(items),
	}).Debug("Classified ingredient list")

	return items
}

// OverallCategory computes the scan-level tier as the rounded average of
// the item tiers, clamped to [1,4]. Returns tier 4 for an empty list, the
// same conservative default as an unknown ingredient.
func (c *NovaClassifier) OverallCategory(items []domain.FoodItem) domain.NovaCategory {
	if len(items) == 0 {
		return domain.NOVA4
	}

	var sum int
	for _, item := range items {
		sum += int(item.NovaCategory)
	}

	avg := math.Round(float64(sum) / float64(len(items)))
	return domain.NovaCategory(avg).Clamp()
}

// detectionConfidence decays by list position: the first detected
// ingredient is the most confident match.
func detectionConfidence(index int) float64 {
	conf := 0.95 - float64(index)*0.05
	if conf < 0.05 {
		conf = 0.05
	}
	return conf
}
