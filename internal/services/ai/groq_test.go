package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractThoughtsNoBlocks(t *testing.T) {
	main, thoughts := ExtractThoughts("  just an answer  ")
	assert.Equal(t, "just an answer", main)
	assert.Empty(t, thoughts)
}

func TestExtractThoughtsSingleBlock(t *testing.T) {
	main, thoughts := ExtractThoughts("<think>step one\nstep two</think>\nThe answer is 4.")
	assert.Equal(t, "The answer is 4.", main)
	assert.Equal(t, "step one\nstep two", thoughts)
}

func TestExtractThoughtsMultipleBlocks(t *testing.T) {
	raw := "<think>first</think>part A<think>second</think> part B"
	main, thoughts := ExtractThoughts(raw)
	assert.Equal(t, "part A part B", main)
	assert.Equal(t, "first\n---\nsecond", thoughts)
}

func TestExtractThoughtsEmptyBlockIgnored(t *testing.T) {
	main, thoughts := ExtractThoughts("<think>   </think>answer")
	assert.Equal(t, "answer", main)
	assert.Empty(t, thoughts)
}

func TestExtractThoughtsUnclosedTagLeftAlone(t *testing.T) {
	main, thoughts := ExtractThoughts("<think>never closed... answer")
	assert.Equal(t, "<think>never closed... answer", main)
	assert.Empty(t, thoughts)
}

func TestIsProviderError(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantTag  string
		wantOK   bool
	}{
		{"api error", "GROQ_API_ERROR: rate limited", ErrPrefixAPI, true},
		{"unexpected error", "UNEXPECTED_GROQ_ERROR: eof", ErrPrefixUnexpected, true},
		{"normal answer", "GROQ is a hardware company, actually", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, _, ok := CompletionResult{MainResponse: tt.response}.IsProviderError()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTag, tag)
		})
	}
}

func TestModelCatalog(t *testing.T) {
	assert.True(t, KnownModel(DefaultModel))
	assert.True(t, KnownModel(WelcomeModel))
	assert.False(t, KnownModel("gpt-4o"))
	assert.Equal(t, "Llama 3 70B", ModelDisplayName("llama3-70b-8192"))
	assert.Equal(t, "retired-model", ModelDisplayName("retired-model"))
}
