package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"call-insights-go/internal/logger"
)

type GatewayConfig struct {
	URL    string
	APIKey string
	Model  string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// MaxRetry is the total retry budget. Zero means one attempt.
	MaxRetry time.Duration
}

// Gateway talks to an OpenAI-compatible chat completions endpoint.
type Gateway struct {
	cfg  GatewayConfig
	http *http.Client
	log  *logger.Logger
}

func NewGateway(cfg GatewayConfig, log *logger.Logger) (*Gateway, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, errors.New("llm gateway not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	return &Gateway{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With(map[string]any{"component": "oracle"}),
	}, nil
}

// WithRetry returns a copy of g using a different retry budget.
func (g *Gateway) WithRetry(maxRetry time.Duration) *Gateway {
	cp := *g
	cp.cfg.MaxRetry = maxRetry
	return &cp
}

func (g *Gateway) Invoke(ctx context.Context, prompt string, payload any) (string, error) {
	content, err := renderMessage(prompt, payload)
	if err != nil {
		return "", err
	}
	reqBody := map[string]any{
		"model": g.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": content},
		},
		"temperature": 0.0,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal llm request: %w", err)
	}
	g.log.WithField("payload_len", len(data)).Debug("llm request")

	var answer string
	op := func() error {
		out, err := g.call(ctx, data)
		if err != nil {
			return err
		}
		answer = out
		return nil
	}

	if g.cfg.MaxRetry <= 0 {
		if err := op(); err != nil {
			return "", unwrapPermanent(err)
		}
		return answer, nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = g.cfg.MaxRetry
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("llm invoke failed: %w", unwrapPermanent(err))
	}
	return answer, nil
}

func (g *Gateway) call(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		g.log.WithError(err).Warn("llm request failed")
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	g.log.WithField("http_status", resp.StatusCode).Debug("llm raw:\n" + string(body))

	if resp.StatusCode >= 400 {
		statusErr := fmt.Errorf("llm gateway returned %d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", backoff.Permanent(statusErr)
		}
		return "", statusErr
	}

	if content, ok := contentFromChoices(body); ok {
		return content, nil
	}
	// not chat-completions shaped: hand back the body and let the caller parse it
	return string(body), nil
}

// contentFromChoices reads openai-style choices[0].message.content.
func contentFromChoices(body []byte) (string, bool) {
	var obj struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &obj); err != nil || len(obj.Choices) == 0 {
		return "", false
	}
	return obj.Choices[0].Message.Content, true
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
