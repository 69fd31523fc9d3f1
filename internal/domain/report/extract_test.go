package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDomain(t *testing.T) {
	t.Run("well formed block is stripped", func(t *testing.T) {
		raw := "DOMAIN_START{\"domain\":\"acme.com\"}DOMAIN_END\n### Company Overview\nAcme makes things.\n"

		got := ExtractDomain(raw)

		require.NoError(t, got.Err)
		assert.Equal(t, "acme.com", got.Domain)
		assert.NotContains(t, got.Content, "DOMAIN_START")
		assert.NotContains(t, got.Content, "DOMAIN_END")
		assert.True(t, len(got.Content) > 0 && got.Content[:3] == "###", "content should start with the first heading: %q", got.Content)
	})

	t.Run("spaces inside the markers", func(t *testing.T) {
		got := ExtractDomain(`DOMAIN_START { "domain": "https://www.Elbit.com/about" } DOMAIN_END body`)

		require.NoError(t, got.Err)
		assert.Equal(t, "elbit.com", got.Domain)
		assert.Equal(t, "body", got.Content)
	})

	t.Run("no block leaves content alone", func(t *testing.T) {
		raw := "### Overview\ntext"
		got := ExtractDomain(raw)

		assert.NoError(t, got.Err)
		assert.Empty(t, got.Domain)
		assert.Equal(t, raw, got.Content)
	})

	t.Run("invalid json is non fatal", func(t *testing.T) {
		raw := "DOMAIN_START{domain: acme.com}DOMAIN_END\n### Overview"
		got := ExtractDomain(raw)

		assert.ErrorIs(t, got.Err, ErrMalformedDomainBlock)
		assert.Empty(t, got.Domain)
		assert.Equal(t, raw, got.Content)
	})

	t.Run("unterminated block is non fatal", func(t *testing.T) {
		raw := "DOMAIN_START{\"domain\":\"acme.com\"\n### Overview"
		got := ExtractDomain(raw)

		assert.ErrorIs(t, got.Err, ErrMalformedDomainBlock)
		assert.Empty(t, got.Domain)
		assert.Equal(t, raw, got.Content)
	})

	t.Run("non string domain", func(t *testing.T) {
		raw := `DOMAIN_START{"domain": 42}DOMAIN_END`
		got := ExtractDomain(raw)

		assert.ErrorIs(t, got.Err, ErrMalformedDomainBlock)
		assert.Equal(t, raw, got.Content)
	})
}

func TestLogoURL(t *testing.T) {
	assert.Equal(t, "", LogoURL(""))
	assert.Contains(t, LogoURL("acme.com"), "acme.com")
}

func TestFilterSources(t *testing.T) {
	chunks := []Chunk{
		{Web: &WebRef{URI: "a"}},
		{Web: &WebRef{URI: ""}},
		{},
		{Web: &WebRef{URI: "b", Title: "B"}},
	}

	got := FilterSources(chunks)

	assert.Equal(t, []GroundingSource{{URI: "a"}, {URI: "b", Title: "B"}}, got)
}

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{"": LanguageZH, "zh": LanguageZH, "EN": LanguageEN, " en ": LanguageEN}
	for in, want := range cases {
		got, err := ParseLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLanguage("fr")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestCloneDoesNotShareHistory(t *testing.T) {
	r := &IntelligenceReport{ID: "1", ChatHistory: []ChatMessage{{Role: RoleUser, Text: "q"}}}
	c := r.Clone()
	c.AppendTurn(ChatMessage{Role: RoleModel, Text: "a"})
	c.ChatHistory[0].Text = "changed"

	assert.Len(t, r.ChatHistory, 1)
	assert.Equal(t, "q", r.ChatHistory[0].Text)
}
