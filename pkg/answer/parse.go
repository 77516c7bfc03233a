package answer

import (
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// ExtractChoice maps a backend reply onto an option index. It first looks for
// an ordinal number in the reply ("2", "2.", "(2)"), then for an option whose
// text appears in the reply. The second return value is false when neither
// matches.
func ExtractChoice(content string, options []string) (int, bool) {
	fields := strings.Fields(content)
	for i := range options {
		want := strconv.Itoa(i + 1)
		for _, field := range fields {
			if strings.Trim(field, ".,:;)(!?\"'") == want {
				return i, true
			}
		}
	}

	lower := strings.ToLower(content)
	for i, opt := range options {
		trimmed := strings.ToLower(strings.TrimSpace(opt))
		if trimmed != "" && strings.Contains(lower, trimmed) {
			return i, true
		}
	}

	return 0, false
}

// FirstWord returns the first whitespace-separated word of s, stripped of
// surrounding punctuation. Used to reduce a backend reply to a cloze token.
func FirstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,:;)(!?\"'")
}

// truncate caps text to the client's context-token budget using the cl100k
// encoding. On any tokenizer error the text passes through unchanged; the
// budget is an optimization, not a correctness requirement.
func (c *Client) truncate(text string) string {
	if c.maxContextTokens <= 0 {
		return text
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= c.maxContextTokens {
		return text
	}
	return enc.Decode(tokens[:c.maxContextTokens])
}
