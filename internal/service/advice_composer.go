package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
)

// Fixed informational insight strings present in every result.
const (
	insightExtractedText   = "Analysis based on extracted label text"
	insightPersonalized    = "Personalized recommendations provided based on your medical profile"
	insightStructuredItems = "Ingredient insights provided by AI analysis"
	insightNovaLocal       = "NOVA classification applied to identified ingredients"
	insightNovaAI          = "NOVA classification provided by AI analysis"
)

// ComposedAdvice is the output of advice composition: the final verdict
// with the allergy override applied, the issue list with synthesized
// allergy issues prepended, and the ordered, deduplicated recommendation
// and insight lists.
type ComposedAdvice struct {
	Verdict         domain.Verdict
	Issues          []domain.AdvisoryIssue
	Notes           string
	Recommendations []string
	Insights        []string
}

// AdviceComposerInput carries the advisory sources to merge. Order of the
// composition steps matters; later steps may override earlier ones.
type AdviceComposerInput struct {
	AllergenMatches    []string
	Advisory           domain.AdvisoryReport
	ProfileAdvice      []string
	StructuredRecs     []string
	HasStructuredItems bool
	NovaSource         string // "AI" or "heuristic"
}

// AdviceComposer merges rule-based advice, profile heuristics and external
// advisory output into one ordered, deduplicated set of user-facing
// recommendations, applying the allergy override last so it always wins.
type AdviceComposer struct {
	logger *logrus.Logger
}

// NewAdviceComposer creates an advice composer.
func NewAdviceComposer(logger *logrus.Logger) *AdviceComposer {
	return &AdviceComposer{logger: logger}
}

// Compose runs the four composition steps in order: issue-derived
// recommendations, merge with secondary sources, allergy override, final
// insight assembly.
func (ac *AdviceComposer) Compose(in AdviceComposerInput) ComposedAdvice {
	out := ComposedAdvice{
		Verdict: in.Advisory.Verdict,
		Issues:  append([]domain.AdvisoryIssue(nil), in.Advisory.Issues...),
		Notes:   in.Advisory.Notes,
	}
	if !out.Verdict.IsValid() {
		out.Verdict = domain.CAUTION
	}

	// Step 1: recommendation strings from advisory issues, then the
	// verdict's free-text notes.
	var recs []string
	for _, issue := range out.Issues {
		if line := formatIssue(issue); line != "" {
			recs = append(recs, line)
		}
	}
	if out.Notes != "" {
		recs = append(recs, out.Notes)
	}

	// Step 2: merge secondary sources, first-seen order wins.
	recs = append(recs, in.ProfileAdvice...)
	recs = append(recs, in.StructuredRecs...)
	recs = dedupeStrings(recs)

	// Step 3: allergy override. A matched allergen forces the verdict to
	// avoid regardless of what the advisory model said.
	if len(in.AllergenMatches) > 0 {
		recs = ac.applyAllergyOverride(&out, in.AllergenMatches, recs)
	}
	out.Recommendations = recs

	// Step 4: final insights list.
	insights := []string{insightExtractedText, insightPersonalized}
	if in.HasStructuredItems {
		insights = append(insights, insightStructuredItems)
	}
	insights = append(insights, recs...)
	if in.NovaSource == "AI" {
		insights = append(insights, insightNovaAI)
	} else {
		insights = append(insights, insightNovaLocal)
	}
	out.Insights = dedupeStrings(insights)

	fields := logrus.Fields(out.Verdict.LogFields())
	fields["issue_count"] = len(out.Issues)
	fields["recommendations"] = len(out.Recommendations)
	fields["allergen_hits"] = len(in.AllergenMatches)
	ac.logger.WithFields(fields).Info("Composed advisory output")

	return out
}

// applyAllergyOverride forces the avoid verdict, synthesizes a
// high-severity issue per allergen not already referenced by an existing
// issue, and prepends the user-facing warning to the recommendations.
func (ac *AdviceComposer) applyAllergyOverride(out *ComposedAdvice, matches []string, recs []string) []string {
	out.Verdict = domain.AVOID

	var synthesized []domain.AdvisoryIssue
	for _, allergen := range matches {
		if issueReferences(out.Issues, allergen) {
			continue
		}
		synthesized = append(synthesized, domain.AdvisoryIssue{
			Severity:   domain.HIGH,
			Ingredient: allergen,
			Related:    "Allergy",
			Mechanism:  "Declared allergen detected in the scanned label content",
			Advice:     fmt.Sprintf("You have a declared allergy to %s. Avoid this product.", allergen),
		})
	}
	out.Issues = append(synthesized, out.Issues...)

	alert := fmt.Sprintf("Allergy alert: contains %s. %s.", strings.Join(matches, ", "), domain.AVOID.DisplayText())
	if out.Notes == "" {
		out.Notes = alert
	} else {
		out.Notes = out.Notes + " " + alert
	}

	warnings := make([]string, 0, len(synthesized))
	for _, issue := range synthesized {
		warnings = append(warnings, formatIssue(issue))
	}
	if len(warnings) == 0 {
		warnings = []string{alert}
	}

	return dedupeStrings(append(warnings, recs...))
}

// formatIssue renders one advisory issue as "{SEVERITY}: {ingredient} -
// {advice}". The ingredient segment is omitted when empty; issues with no
// advice render to nothing.
func formatIssue(issue domain.AdvisoryIssue) string {
	if issue.Advice == "" {
		return ""
	}
	severity := strings.ToUpper(issue.Severity.String())
	if issue.Ingredient == "" {
		return fmt.Sprintf("%s: %s", severity, issue.Advice)
	}
	return fmt.Sprintf("%s: %s - %s", severity, issue.Ingredient, issue.Advice)
}

// issueReferences reports whether any existing issue's ingredient field
// already mentions the allergen, case-insensitively.
func issueReferences(issues []domain.AdvisoryIssue, allergen string) bool {
	needle := strings.ToLower(allergen)
	for _, issue := range issues {
		if strings.Contains(strings.ToLower(issue.Ingredient), needle) {
			return true
		}
	}
	return false
}

// dedupeStrings removes duplicates and empty entries, preserving
// first-seen order.
func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
