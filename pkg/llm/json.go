package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the outermost JSON object embedded in text, tolerating
// markdown code fences and surrounding prose.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// DecodeJSON extracts the embedded JSON object from text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	raw, ok := ExtractJSON(text)
	if !ok {
		return fmt.Errorf("%w: no JSON object in response", ErrNoContent)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode JSON response: %w", err)
	}
	return nil
}
