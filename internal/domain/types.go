// Package domain contains core business entities and types for food-label
// scan analysis: NOVA processing-level classification, nutrition estimation
// and personalized dietary advisories derived from a user's medical profile.
//
// Reference: Monteiro et al. (2019) Ultra-processed foods: what they are and
// how to identify them. Public Health Nutr. 22(5):936-941.
package domain

import (
	"errors"
	"fmt"
)

// NovaCategory represents the NOVA food processing classification tier.
// Tier 1 is unprocessed or minimally processed food; tier 4 is
// ultra-processed. Unknown ingredients default to tier 4 as a
// conservative-safety choice.
type NovaCategory int

const (
	NOVA1 NovaCategory = 1 // Unprocessed or minimally processed foods
	NOVA2 NovaCategory = 2 // Processed culinary ingredients
	NOVA3 NovaCategory = 3 // Processed foods
	NOVA4 NovaCategory = 4 // Ultra-processed foods
)

// Verdict represents the overall advisory recommendation surfaced to the
// user for a scanned product given their medical profile.
type Verdict string

const (
	SAFE    Verdict = "safe"
	CAUTION Verdict = "caution"
	AVOID   Verdict = "avoid"
)

// Severity represents the severity of an individual advisory issue.
type Severity string

const (
	HIGH   Severity = "high"
	MEDIUM Severity = "medium"
	LOW    Severity = "low"
)

// NutritionSource labels where a nutrition summary's numbers came from.
// Heuristic values are bounded random placeholders, never a claim of
// accuracy; the label lets the UI make that clear.
type NutritionSource string

const (
	SourceAI        NutritionSource = "AI"
	SourceHeuristic NutritionSource = "heuristic"
)

// Validation errors for analysis data integrity
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidCategory = errors.New("invalid NOVA category")
	ErrEmptySession    = errors.New("session ID is required")
)

// IsValid reports whether the category is one of the four NOVA tiers.
// Classification must never emit 0 or anything above 4.
func (c NovaCategory) IsValid() bool {
	return c >= NOVA1 && c <= NOVA4
}

// Describe returns the human-readable tier name used in results and advice.
func (c NovaCategory) Describe() string {
	switch c {
	case NOVA1:
		return "Unprocessed or minimally processed foods"
	case NOVA2:
		return "Processed culinary ingredients"
	case NOVA3:
		return "Processed foods"
	case NOVA4:
		return "Ultra-processed foods"
	default:
		return "Unknown category"
	}
}

// Clamp forces the category into the valid [1,4] range. Used when an
// overall category is computed from an average of item categories.
func (c NovaCategory) Clamp() NovaCategory {
	if c < NOVA1 {
		return NOVA1
	}
	if c > NOVA4 {
		return NOVA4
	}
	return c
}

// Validate ensures the category can be safely stored or displayed.
func (c NovaCategory) Validate() error {
	if !c.IsValid() {
		return fmt.Errorf("nova category validation: %w (got %d)", ErrInvalidCategory, int(c))
	}
	return nil
}

// IsValid validates the advisory verdict.
func (v Verdict) IsValid() bool {
	switch v {
	case SAFE, CAUTION, AVOID:
		return true
	default:
		return false
	}
}

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}

// DisplayText returns the user-facing banner text for the verdict.
func (v Verdict) DisplayText() string {
	switch v {
	case SAFE:
		return "SAFE TO EAT"
	case CAUTION:
		return "CAUTION ADVISED"
	case AVOID:
		return "DO NOT EAT"
	default:
		return "UNKNOWN"
	}
}

// LogFields returns structured logging fields for verdict audit trails.
func (v Verdict) LogFields() map[string]any {
	return map[string]any{
		"verdict":      string(v),
		"display_text": v.DisplayText(),
		"is_valid":     v.IsValid(),
	}
}

// IsValid validates the issue severity.
func (s Severity) IsValid() bool {
	switch s {
	case HIGH, MEDIUM, LOW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid validates the nutrition source tag.
func (ns NutritionSource) IsValid() bool {
	switch ns {
	case SourceAI, SourceHeuristic:
		return true
	default:
		return false
	}
}
