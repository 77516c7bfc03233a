package answer

import (
	"strings"
)

// The deterministic fallback policy. Every backend failure path lands here,
// so each function must always return a usable value.

// commonWords is the fill pool used when no lexical cue applies.
var commonWords = []string{
	"the", "and", "a", "is", "are", "was", "were",
	"have", "has", "it", "they", "their", "this",
}

// FallbackChoice picks an option without the backend: always the first
// remaining candidate.
func FallbackChoice(options []string) int {
	return 0
}

// FallbackClozeWord derives a single-word fill from lexical cues in the
// surrounding context, falling back to a word from the common pool chosen by
// context length so repeated calls with the same context agree.
func FallbackClozeWord(contextText string) string {
	lower := strings.ToLower(contextText)

	switch {
	case strings.Contains(lower, "plural") || strings.Contains(lower, "many"):
		return "are"
	case strings.Contains(lower, "singular") || strings.Contains(lower, "one"):
		return "is"
	case strings.Contains(lower, "past") || strings.Contains(lower, "yesterday") || strings.Contains(lower, "ago"):
		return "was"
	case strings.Contains(lower, "future") || strings.Contains(lower, "will"):
		return "will"
	}

	return commonWords[len(contextText)%len(commonWords)]
}

// FallbackShortAnswer produces a templated free-text answer keyed by the
// question's interrogative word.
func FallbackShortAnswer(question string) string {
	lower := strings.ToLower(question)

	switch {
	case strings.Contains(lower, "what") && strings.Contains(lower, "main idea"):
		return "The main idea is the central point or key message that the author wants to convey."
	case strings.Contains(lower, "why"):
		return "This happened because of the events and circumstances described in the text."
	case strings.Contains(lower, "how"):
		return "This occurred through a series of steps and actions outlined in the reading."
	case strings.Contains(lower, "when"):
		return "This took place at the time mentioned in the text."
	case strings.Contains(lower, "where"):
		return "This happened at the location described in the passage."
	case strings.Contains(lower, "who"):
		return "The person or character mentioned in the text."
	}

	return "Based on the reading, this is an important concept that helps us understand the main ideas of the text."
}
