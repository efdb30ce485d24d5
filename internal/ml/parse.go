package ml

import (
	"fmt"
	"strings"
)

// StripCodeFence removes a surrounding ``` or ```json fence if present.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ExtractArray returns the substring between the first '[' and the last ']'.
func ExtractArray(text string) (string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// structuredPayload validates that a provider reply looks like JSON.
func structuredPayload(text string) ([]byte, error) {
	text = StripCodeFence(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}
	if c := text[0]; c != '{' && c != '[' {
		return nil, fmt.Errorf("%w: response is not JSON", ErrMalformedOutput)
	}
	return []byte(text), nil
}

func addressPrompt(input string) string {
	return fmt.Sprintf(`You normalize postal addresses.
Input: "%s"
If the input is a real place or address, reply with only the full canonical address
(street, house number, city) and nothing else.
If it is not an address or the place cannot be found, reply with exactly NULL.`, input)
}

// parseAddress interprets a normalization reply. Empty or NULL means not found.
func parseAddress(text string) (string, error) {
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if text == "" || strings.EqualFold(text, "NULL") {
		return "", ErrNotFound
	}
	return text, nil
}
