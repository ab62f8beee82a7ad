package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTelegramHTMLBasicFormatting(t *testing.T) {
	out := ToTelegramHTML("**bold** and *italic* and `code`")
	assert.Contains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "<i>italic</i>")
	assert.Contains(t, out, "<code>code</code>")
}

func TestToTelegramHTMLStripsUnsupportedTags(t *testing.T) {
	out := ToTelegramHTML("# Heading\n\nbody")
	assert.NotContains(t, out, "<h1>")
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "body")
}

func TestToTelegramHTMLLists(t *testing.T) {
	out := ToTelegramHTML("- one\n- two")
	assert.Contains(t, out, "• one")
	assert.Contains(t, out, "• two")
	assert.NotContains(t, out, "<li>")
}

func TestToTelegramHTMLEmpty(t *testing.T) {
	assert.Equal(t, "", ToTelegramHTML(""))
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", EscapeHTML("a <b> & c"))
}

func TestChunkShortTextUntouched(t *testing.T) {
	chunks := Chunk("short", 4000)
	assert.Equal(t, []string{"short"}, chunks)
}

func TestChunkSplitsAtNewlines(t *testing.T) {
	text := strings.Repeat("0123456789\n", 100) // 1100 runes
	chunks := Chunk(text, 500)

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 500)
	}
	// Lines survive intact: each chunk ends on a full line.
	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c, "0123456789"))
	}
}

func TestChunkHardSplitWithoutBreakpoints(t *testing.T) {
	text := strings.Repeat("x", 1200)
	chunks := Chunk(text, 500)

	assert.Len(t, chunks, 3)
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	assert.Equal(t, 1200, total)
}

func TestChunkMultibyteSafe(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 100)
	for _, c := range Chunk(text, 100) {
		assert.LessOrEqual(t, len([]rune(c)), 100)
		assert.True(t, strings.ContainsRune(c, 'ö') || strings.ContainsRune(c, 'é'))
	}
}
