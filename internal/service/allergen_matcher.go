package service

import (
	"strings"
)

// AllergenMatcher scans free text and serialized advisory content for the
// user's declared allergens. Matching is deterministic, case-insensitive
// substring search; original allergen casing is preserved in the result.
type AllergenMatcher struct{}

// NewAllergenMatcher creates an allergen matcher.
func NewAllergenMatcher() *AllergenMatcher {
	return &AllergenMatcher{}
}

// FindMatches returns the declared allergens whose lower-cased form occurs
// in any of the search spaces, in declared order. Empty declarations or no
// hits return an empty slice. Pure function, no side effects.
func (m *AllergenMatcher) FindMatches(declaredAllergens []string, searchSpaces []string) []string {
	if len(declaredAllergens) == 0 {
		return nil
	}

	lowered := make([]string, len(searchSpaces))
	for i, space := range searchSpaces {
		lowered[i] = strings.ToLower(space)
	}

	var matches []string
	for _, allergen := range declaredAllergens {
		needle := strings.ToLower(strings.TrimSpace(allergen))
		if needle == "" {
			continue
		}
		for _, space := range lowered {
			if strings.Contains(space, needle) {
				matches = append(matches, allergen)
				break
			}
		}
	}

	return matches
}
