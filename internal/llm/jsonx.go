package llm

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// RecoverJSON extracts a JSON object from completion output. Models wrap
// JSON in prose or fenced code blocks often enough that this runs on every
// response: a clean object passes through, otherwise the fenced block or
// the outermost brace span is tried before giving up.
func RecoverJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if jsonValid(text) {
		return text, nil
	}

	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate := strings.TrimSpace(rest[:end])
			if jsonValid(candidate) {
				return candidate, nil
			}
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		candidate := text[start : end+1]
		if jsonValid(candidate) {
			return candidate, nil
		}
		// report the real decode error, not just "no JSON found"
		var v any
		if err := sonic.UnmarshalString(candidate, &v); err != nil {
			return "", fmt.Errorf("recover json: %w", err)
		}
	}
	return "", fmt.Errorf("no valid JSON object in response")
}

// DecodeLoose unmarshals completion output into v, recovering an embedded
// JSON object first when the text does not decode as-is.
func DecodeLoose(text string, v any) error {
	if err := sonic.UnmarshalString(text, v); err == nil {
		return nil
	}
	recovered, err := RecoverJSON(text)
	if err != nil {
		return err
	}
	return sonic.UnmarshalString(recovered, v)
}

func jsonValid(s string) bool {
	var v any
	return sonic.UnmarshalString(s, &v) == nil
}
