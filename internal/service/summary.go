package service

import "strings"

const (
	// SummaryLength bounds the plain summary cut from the message body.
	SummaryLength = 200
	// AISummaryLength bounds summaries shown on board cards.
	AISummaryLength = 150
)

// Summarize collapses whitespace and cuts text to maxLength runes. When the
// last word boundary lies in the final fifth the cut happens there.
func Summarize(text string, maxLength int) string {
	clean := strings.Join(strings.Fields(text), " ")
	runes := []rune(clean)
	if len(runes) <= maxLength {
		return clean
	}

	truncated := string(runes[:maxLength])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > 0 && len([]rune(truncated[:lastSpace])) > maxLength*4/5 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}

// FallbackSummary is used when the AI summary cannot be produced.
func FallbackSummary(subject, body string) string {
	text := body
	if text == "" {
		text = subject
	}
	runes := []rune(text)
	if len(runes) <= AISummaryLength {
		return text
	}

	truncated := string(runes[:AISummaryLength-3])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > 0 && len([]rune(truncated[:lastSpace])) > 120 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}
