package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("no JSON found in oracle output")

// Client sends a prompt plus a JSON-serializable payload to a language model
// and returns its raw text answer. Callers own parsing and validation.
type Client interface {
	Invoke(ctx context.Context, prompt string, payload any) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string, payload any) (string, error)

func (f ClientFunc) Invoke(ctx context.Context, prompt string, payload any) (string, error) {
	return f(ctx, prompt, payload)
}

// Decode extracts the first JSON document in raw and unmarshals it into v.
func Decode(raw string, v any) error {
	doc := ExtractJSON(raw)
	if doc == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return fmt.Errorf("decode oracle output: %w", err)
	}
	return nil
}

// ExtractJSON finds the first balanced JSON object or array in s.
// It strips common markdown fences first.
func ExtractJSON(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, r := range []string{"```json", "```yaml", "```text", "```"} {
		s = strings.ReplaceAll(s, r, "")
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	open := s[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

// renderMessage joins the prompt and its payload into one user message.
func renderMessage(prompt string, payload any) (string, error) {
	switch p := payload.(type) {
	case nil:
		return prompt, nil
	case string:
		return prompt + "\n\n" + p, nil
	default:
		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal oracle payload: %w", err)
		}
		return prompt + "\n\nDATA:\n" + string(b), nil
	}
}
