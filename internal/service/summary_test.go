package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", Summarize("", 200))
	assert.Equal(t, "Hello there, see you soon", Summarize("Hello\r\nthere,\n\n  see you   soon ", 200))

	words := strings.Repeat("word ", 60)
	got := Summarize(words, 200)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "word", strings.Fields(strings.TrimSuffix(got, "..."))[39])
	assert.LessOrEqual(t, len(got), 203)

	// No space late enough: hard cut.
	long := strings.Repeat("a", 250)
	assert.Equal(t, strings.Repeat("a", 200)+"...", Summarize(long, 200))
}

func TestFallbackSummary(t *testing.T) {
	assert.Equal(t, "Subject only", FallbackSummary("Subject only", ""))
	assert.Equal(t, "short body", FallbackSummary("subject", "short body"))

	body := strings.Repeat("abcdefghi ", 20)
	got := FallbackSummary("s", body)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), AISummaryLength)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "..."), " "))

	solid := strings.Repeat("x", 200)
	assert.Equal(t, strings.Repeat("x", 147)+"...", FallbackSummary("s", solid))
}

func TestValidationError(t *testing.T) {
	err := invalid("invalid rule", "unknown function \"foo\"")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "invalid rule: unknown function \"foo\"", err.Error())
	assert.Equal(t, "name and color are required", invalid("name and color are required", "").Error())
}
