package oracle

import (
	"context"
	"strings"
	"sync"
)

// Rule answers Reply whenever the prompt contains Match.
type Rule struct {
	Match string
	Reply string
}

// Mock is a deterministic Client for USE_MOCK_LLM and tests. Rules are
// checked in order; Default answers everything else.
type Mock struct {
	Rules   []Rule
	Default string
	Err     error

	mu    sync.Mutex
	calls []string
}

func (m *Mock) Invoke(ctx context.Context, prompt string, _ any) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	for _, r := range m.Rules {
		if strings.Contains(prompt, r.Match) {
			return r.Reply, nil
		}
	}
	return m.Default, nil
}

// Calls returns how many times Invoke ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
