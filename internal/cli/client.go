package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin HTTP client for the call insights API.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimSuffix(strings.TrimSpace(base), "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, ", ") + ")"
	}
	return msg
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.base + "/" + strings.Join(escaped, "/")
}

// do sends body as JSON and decodes a 2xx answer into out when out is set.
func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	resp, err := c.send(ctx, method, target, rd)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	var parsed struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		apiErr.Message, apiErr.Details = parsed.Error, parsed.Details
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return nil, apiErr
}

func (c *Client) CreateCampaign(ctx context.Context, in map[string]string, out any) error {
	return c.do(ctx, http.MethodPost, c.endpoint("campaigns"), in, out)
}

func (c *Client) ListCampaigns(ctx context.Context, out any) error {
	return c.do(ctx, http.MethodGet, c.endpoint("campaigns"), nil, out)
}

type RegisterAudio struct {
	FileName string  `json:"fileName"`
	Duration float64 `json:"duration"`
	AudioURL string  `json:"audioUrl"`
}

func (c *Client) RegisterAudio(ctx context.Context, campaignID string, in RegisterAudio, out any) error {
	return c.do(ctx, http.MethodPost, c.endpoint("campaigns", campaignID, "audios"), in, out)
}

func (c *Client) ListAudios(ctx context.Context, campaignID string, out any) error {
	return c.do(ctx, http.MethodGet, c.endpoint("campaigns", campaignID, "audios"), nil, out)
}

func (c *Client) AudioStatus(ctx context.Context, campaignID, audioID string, out any) error {
	return c.do(ctx, http.MethodGet, c.endpoint("campaigns", campaignID, "audios", audioID, "status"), nil, out)
}

func (c *Client) Report(ctx context.Context, campaignID string, out any) error {
	return c.do(ctx, http.MethodGet, c.endpoint("campaigns", campaignID, "report"), nil, out)
}

// Export streams the exported file into w.
func (c *Client) Export(ctx context.Context, campaignID, format, table string, w io.Writer) error {
	q := url.Values{}
	q.Set("format", format)
	if table != "" {
		q.Set("table", table)
	}
	resp, err := c.send(ctx, http.MethodGet, c.endpoint("campaigns", campaignID, "export")+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
