package service

import (
	"encoding/json"
	"strings"

	"github.com/vigil-scan-server/internal/domain"
)

// ResponseParser turns raw model text into the structured call shapes.
// Models routinely wrap JSON in code fences or surround it with
// commentary, so parsing strips fences and takes the first-to-last
// balanced brace substring before unmarshaling. Parsing never produces an
// error for the caller: each shape has a documented safe default that is
// substituted when the text is unusable.
type ResponseParser struct{}

// NewResponseParser creates a response parser.
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

// DefaultAdvisory is the neutral advisory substituted when the model's
// response cannot be parsed. Caution is the safe verdict when structured
// reasoning is unavailable.
func DefaultAdvisory() domain.AdvisoryReport {
	return domain.AdvisoryReport{
		Verdict: domain.CAUTION,
		Issues:  []domain.AdvisoryIssue{},
		Notes:   "Analysis based on extracted label text",
	}
}

// ParseAdvisory parses the advisory call shape. The second return value
// reports whether the model output itself was usable.
func (p *ResponseParser) ParseAdvisory(raw string) (domain.AdvisoryReport, bool) {
	payload, ok := extractJSONObject(raw)
	if !ok {
		return DefaultAdvisory(), false
	}

	var report domain.AdvisoryReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return DefaultAdvisory(), false
	}
	if !report.Verdict.IsValid() {
		report.Verdict = domain.CAUTION
	}
	if report.Issues == nil {
		report.Issues = []domain.AdvisoryIssue{}
	}
	for i, issue := range report.Issues {
		if !issue.Severity.IsValid() {
			report.Issues[i].Severity = domain.LOW
		}
	}
	return report, true
}

// ParseExtraction parses the ingredient/nutrition extraction call shape.
// Failure yields an empty report, not an error.
func (p *ResponseParser) ParseExtraction(raw string) (domain.ExtractionReport, bool) {
	payload, ok := extractJSONObject(raw)
	if !ok {
		return domain.ExtractionReport{}, false
	}

	var report domain.ExtractionReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return domain.ExtractionReport{}, false
	}
	return report, true
}

// ParseNova parses the NOVA classification call shape. Out-of-range
// categories are clamped into [1,4]; zero-valued items are dropped.
func (p *ResponseParser) ParseNova(raw string) (domain.NovaReport, bool) {
	payload, ok := extractJSONObject(raw)
	if !ok {
		return domain.NovaReport{}, false
	}

	var report domain.NovaReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return domain.NovaReport{}, false
	}

	items := report.Items[:0]
	for _, item := range report.Items {
		if item.Name == "" {
			continue
		}
		if err := item.Category.Validate(); err != nil {
			item.Category = domain.NOVA4
		}
		items = append(items, item)
	}
	report.Items = items

	if report.Overall != 0 {
		report.Overall = report.Overall.Clamp()
	}
	return report, true
}

// extractJSONObject strips code fences and returns the first-to-last
// balanced brace substring, or false when no object is present.
func extractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Drop Markdown code fences, with or without a language tag.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
