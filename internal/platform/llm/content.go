package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes <think>…</think> blocks some reasoning models emit
// before their answer.
func StripThinking(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}

// ErrNoJSON is returned when a completion holds no JSON object.
var ErrNoJSON = errors.New("llm: no JSON object in response")

// ExtractJSON returns the outermost JSON object in s, tolerating code fences
// and leading prose.
func ExtractJSON(s string) (string, error) {
	s = StripThinking(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

// DecodeJSON extracts the JSON object from a completion and decodes it into v.
func DecodeJSON(s string, v any) error {
	raw, err := ExtractJSON(s)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("llm: decode JSON response: %w", err)
	}
	return nil
}
