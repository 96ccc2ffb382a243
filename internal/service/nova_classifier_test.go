package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/vigil-scan-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestNovaClassifier_Classify(t *testing.T) {
	classifier := NewNovaClassifier(testLogger())

	tests := []struct {
		name       string
		ingredient string
		expected   domain.NovaCategory
	}{
		{"unprocessed fruit", "apple", domain.NOVA1},
		{"culinary ingredient", "salt", domain.NOVA2},
		{"processed food", "bread", domain.NOVA3},
		{"ultra-processed", "instant noodles", domain.NOVA4},
		{"substring match", "smoked sausage", domain.NOVA4},
		{"case insensitive", "APPLE", domain.NOVA1},
		{"unknown defaults to 4", "xyzzy", domain.NOVA4},
		{"empty string defaults to 4", "", domain.NOVA4},
		{"artificial flavoring", "artificial flavoring", domain.NOVA4},
		{"modified corn starch unknown", "modified corn starch", domain.NOVA4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.Classify(tt.ingredient))
		})
	}
}

func TestNovaClassifier_Classify_TieBreak(t *testing.T) {
	classifier := NewNovaClassifier(testLogger())

	// Contains both a tier-1 keyword (apple) and a tier-4 keyword
	// (candy); the most processed tier wins.
	assert.Equal(t, domain.NOVA4, classifier.Classify("apple candy"))
	// Tier 3 (sugar) vs tier 2 (salt): tier 3 checked first.
	assert.Equal(t, domain.NOVA3, classifier.Classify("sugar salt blend"))
}

func TestNovaClassifier_ClassifyAll_ConfidenceDecay(t *testing.T) {
	classifier := NewNovaClassifier(testLogger())

	items := classifier.ClassifyAll([]string{"apple", "salt", "bread"})

	assert.Len(t, items, 3)
	assert.InDelta(t, 0.95, items[0].ConfidenceRate, 1e-9)
	assert.InDelta(t, 0.90, items[1].ConfidenceRate, 1e-9)
	assert.InDelta(t, 0.85, items[2].ConfidenceRate, 1e-9)
	assert.Equal(t, domain.NOVA1, items[0].NovaCategory)
	assert.Equal(t, domain.NOVA2, items[1].NovaCategory)
	assert.Equal(t, domain.NOVA3, items[2].NovaCategory)
}

func TestNovaClassifier_ClassifyAll_ConfidenceFloor(t *testing.T) {
	classifier := NewNovaClassifier(testLogger())

	names := make([]string, 25)
	for i := range names {
		names[i] = "apple"
	}

	items := classifier.ClassifyAll(names)
	assert.InDelta(t, 0.05, items[24].ConfidenceRate, 1e-9)
}

func TestNovaClassifier_OverallCategory(t *testing.T) {
	classifier := NewNovaClassifier(testLogger())

	tests := []struct {
		name     string
		tiers    []domain.NovaCategory
		expected domain.NovaCategory
	}{
		{"empty list defaults to 4", nil, domain.NOVA4},
		{"single item", []domain.NovaCategory{domain.NOVA2}, domain.NOVA2},
		{"rounds average up", []domain.NovaCategory{domain.NOVA2, domain.NOVA3}, domain.NOVA3},
		{"mixed tiers", []domain.NovaCategory{domain.NOVA1, domain.NOVA4, domain.NOVA4}, domain.NOVA3},
		{"all ultra-processed", []domain.NovaCategory{domain.NOVA4, domain.NOVA4}, domain.NOVA4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]domain.FoodItem, len(tt.tiers))
			for i, tier := range tt.tiers {
				items[i] = domain.FoodItem{Name: "x", NovaCategory: tier}
			}
			assert.Equal(t, tt.expected, classifier.OverallCategory(items))
		})
	}
}
