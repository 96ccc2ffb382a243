package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-scan-server/internal/domain"
)

func TestResponseParser_ParseAdvisory(t *testing.T) {
	parser := NewResponseParser()

	t.Run("plain JSON", func(t *testing.T) {
		report, ok := parser.ParseAdvisory(`{"overall_recommendation":"avoid","issues":[{"severity":"high","ingredient":"msg","advice":"Avoid"}],"notes":"n"}`)
		assert.True(t, ok)
		assert.Equal(t, domain.AVOID, report.Verdict)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, domain.HIGH, report.Issues[0].Severity)
	})

	t.Run("fenced JSON with language tag", func(t *testing.T) {
		raw := "```json\n{\"overall_recommendation\":\"safe\",\"issues\":[],\"notes\":\"fine\"}\n```"
		report, ok := parser.ParseAdvisory(raw)
		assert.True(t, ok)
		assert.Equal(t, domain.SAFE, report.Verdict)
	})

	t.Run("leading commentary stripped", func(t *testing.T) {
		raw := "Here is the analysis you requested:\n{\"overall_recommendation\":\"caution\",\"issues\":[],\"notes\":\"n\"}\nLet me know if you need more."
		report, ok := parser.ParseAdvisory(raw)
		assert.True(t, ok)
		assert.Equal(t, domain.CAUTION, report.Verdict)
	})

	t.Run("unparseable yields neutral default", func(t *testing.T) {
		report, ok := parser.ParseAdvisory("the model refused to answer")
		assert.False(t, ok)
		assert.Equal(t, domain.CAUTION, report.Verdict)
		assert.Empty(t, report.Issues)
		assert.Equal(t, "Analysis based on extracted label text", report.Notes)
	})

	t.Run("empty input yields neutral default", func(t *testing.T) {
		report, ok := parser.ParseAdvisory("")
		assert.False(t, ok)
		assert.Equal(t, domain.CAUTION, report.Verdict)
	})

	t.Run("invalid verdict coerced to caution", func(t *testing.T) {
		report, ok := parser.ParseAdvisory(`{"overall_recommendation":"maybe","issues":[],"notes":""}`)
		assert.True(t, ok)
		assert.Equal(t, domain.CAUTION, report.Verdict)
	})

	t.Run("invalid severity coerced to low", func(t *testing.T) {
		report, ok := parser.ParseAdvisory(`{"overall_recommendation":"safe","issues":[{"severity":"critical","advice":"x"}],"notes":""}`)
		assert.True(t, ok)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, domain.LOW, report.Issues[0].Severity)
	})
}

func TestResponseParser_ParseExtraction(t *testing.T) {
	parser := NewResponseParser()

	report, ok := parser.ParseExtraction("```\n{\"ingredients\":[\"sugar\",\"salt\"],\"nutrition\":{\"calories_kcal\":\"250\"},\"personalized_recommendations\":[\"Drink water\"],\"notes\":\"n\"}\n```")
	require.True(t, ok)
	assert.Equal(t, []string{"sugar", "salt"}, report.Ingredients)
	require.NotNil(t, report.Nutrition)
	assert.Equal(t, []string{"Drink water"}, report.Recommendations)

	_, ok = parser.ParseExtraction("no json here")
	assert.False(t, ok)
}

func TestResponseParser_ParseNova(t *testing.T) {
	parser := NewResponseParser()

	t.Run("valid report", func(t *testing.T) {
		report, ok := parser.ParseNova(`{"items":[{"name":"sugar","nova_category":3,"confidence":0.9,"reason":"refined"}],"overall_nova":3,"notes":"n"}`)
		require.True(t, ok)
		require.Len(t, report.Items, 1)
		assert.Equal(t, domain.NOVA3, report.Items[0].Category)
		assert.Equal(t, domain.NOVA3, report.Overall)
	})

	t.Run("out-of-range values normalized", func(t *testing.T) {
		report, ok := parser.ParseNova(`{"items":[{"name":"mystery","nova_category":9},{"name":""}],"overall_nova":7}`)
		require.True(t, ok)
		require.Len(t, report.Items, 1, "nameless item dropped")
		assert.Equal(t, domain.NOVA4, report.Items[0].Category)
		assert.Equal(t, domain.NOVA4, report.Overall)
	})
}
