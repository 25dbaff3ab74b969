package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleplayPrompt_InterpolatesPersona(t *testing.T) {
	p := Persona{
		Name: "Ada", Age: 34, Gender: "female", Nationality: "british",
		Language: "english", Education: "phd", Leaning: "left",
		Interests: []string{"science", "music"},
		Openness:  0.9, Extraversion: 0.1,
	}
	got := RoleplayPrompt(p)

	assert.Contains(t, got, "Ada")
	assert.Contains(t, got, "34 year old")
	assert.Contains(t, got, "science, music")
	assert.Contains(t, got, "high openness")
	assert.Contains(t, got, "low extraversion")
	assert.Contains(t, got, "never mention that you are an AI")
}

func TestTraitWord_Bands(t *testing.T) {
	assert.Equal(t, "low", traitWord(0.0))
	assert.Equal(t, "moderate", traitWord(0.5))
	assert.Equal(t, "high", traitWord(0.9))
}

func TestParseReaction(t *testing.T) {
	assert.Equal(t, "dislike", ParseReaction("I DISLIKE this strongly"))
	assert.Equal(t, "like", ParseReaction("LIKE"))
	// lenient default
	assert.Equal(t, "like", ParseReaction("hard to say"))
}

func TestParseChoice(t *testing.T) {
	options := []string{"left", "right", "none"}
	assert.Equal(t, "left", ParseChoice("Definitely LEFT.", options))
	assert.Equal(t, "", ParseChoice("undecided", options))
}

func TestParseEmotions_FiltersToVocabulary(t *testing.T) {
	vocab := []string{"joy", "anger", "fear"}
	got := ParseEmotions("Mostly JOY with a hint of fear, maybe nostalgia", vocab)
	assert.Equal(t, []string{"joy", "fear"}, got)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "hello world", CleanText(`"hello world"`))
	assert.Equal(t, "hello", CleanText("Post: hello"))
	assert.Equal(t, "a comment", CleanText("  Comment: \"a comment\"  "))
}

func TestMockClient_Deterministic(t *testing.T) {
	m := &MockClient{
		Responses: map[string]string{"weather": "sunny", "music": "jazz"},
		Order:     []string{"weather", "music"},
		Default:   "fallback",
	}
	ctx := context.Background()

	got, err := m.Chat(ctx, "s", "what about the weather and music?")
	require.NoError(t, err)
	assert.Equal(t, "sunny", got)

	got, err = m.Chat(ctx, "s", "tell me about music")
	require.NoError(t, err)
	assert.Equal(t, "jazz", got)

	got, err = m.Chat(ctx, "s", "anything else")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
	assert.Equal(t, int64(3), m.Calls())
}

func TestPrompts_MentionAndHashtagGuidance(t *testing.T) {
	// post prompt advertises the markers downstream extraction relies on
	got := PostPrompt([]string{"sports"})
	assert.True(t, strings.Contains(got, "#") && strings.Contains(got, "@"))
	assert.Contains(t, got, "sports")
}
