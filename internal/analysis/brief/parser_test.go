package brief

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInlineBrief(t *testing.T) {
	fields := Parse("industry=bakery, audience=local families, budget=$500/mo")
	assert.Equal(t, map[string]string{
		"industry": "bakery",
		"audience": "local families",
		"budget":   "$500/mo",
	}, fields)
}

func TestParseAliasesAndColons(t *testing.T) {
	fields := Parse("Total Budget: $10k; Business-Goals: more leads\nsector = SaaS")
	assert.Equal(t, "$10k", fields["total_budget"])
	assert.Equal(t, "more leads", fields["goals"])
	assert.Equal(t, "SaaS", fields["industry"])
}

func TestParseLooseTextBecomesDescription(t *testing.T) {
	fields := Parse("we run paid social, then retarget, site=https://example.com")
	assert.Equal(t, "we run paid social, then retarget", fields["description"])
	assert.Equal(t, "https://example.com", fields["website"])
}

func TestParseUnknownKeyIsNormalized(t *testing.T) {
	fields := Parse("Launch_Date=May")
	assert.Equal(t, "May", fields["launch_date"])
}

func TestMissing(t *testing.T) {
	fields := Parse("industry=bakery, audience=")
	assert.Equal(t, []string{"budget"}, Missing(fields, []string{"industry", "budget"}))
	assert.Equal(t, []string{"audience"}, Missing(fields, []string{"industry", "audience"}))
	assert.NotContains(t, fields, "description")
}

func TestParseBareURLIsNotAPair(t *testing.T) {
	fields := Parse("https://example.com")
	assert.Equal(t, map[string]string{"description": "https://example.com"}, fields)
}

func TestParseKeepsCommasInsideValues(t *testing.T) {
	fields := Parse("total_budget=$10,000, goals=more leads, industry=bakery")
	assert.Equal(t, map[string]string{
		"total_budget": "$10,000",
		"goals":        "more leads",
		"industry":     "bakery",
	}, fields)

	fields = Parse("audience=parents, teachers; budget=$500")
	assert.Equal(t, "parents, teachers", fields["audience"])
	assert.Equal(t, "$500", fields["budget"])
}

func TestParseSentenceWithColonStaysDescription(t *testing.T) {
	fields := Parse("We sell cakes on Instagram. Goal: 20% growth; Budget: $2k per month")
	assert.Equal(t, map[string]string{
		"description": "We sell cakes on Instagram. Goal: 20% growth",
		"budget":      "$2k per month",
	}, fields)
}

func TestParseRejectsNonIdentifierKeys(t *testing.T) {
	assert.Equal(t, map[string]string{"description": "Launch Date=May"}, Parse("Launch Date=May"))
	assert.Equal(t, map[string]string{"description": "meet at 10:30"}, Parse("meet at 10:30"))
}

func TestExplicit(t *testing.T) {
	assert.True(t, Explicit("industry=bakery", "industry", "audience"))
	assert.True(t, Explicit("Total Budget: $10k", "total_budget"))
	assert.False(t, Explicit("is tight, what now?", "total_budget", "goals", "industry"))
	assert.False(t, Explicit("my industry is bakery", "industry"))
	assert.False(t, Explicit("", "description"))
}
