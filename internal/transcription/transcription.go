package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"call-insights-go/internal/logger"
)

var ErrFailed = errors.New("transcription failed")

// Transcriber turns a reachable audio URL into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

type PublishSuccessResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		MediaId          string `json:"MediaId"`
		Status           string `json:"Status"`
		LanguageId       int    `json:"LanguageId"`
		TranscriptionURL string `json:"TranscriptionURL"`
		WordsCount       int    `json:"WordsCount"`
	} `json:"Data"`
	Reason   string `json:"Reason,omitempty"`
	UniqueId string `json:"UniqueId,omitempty"`
}

type StatusResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		AudioURL             string `json:"AudioURL"`
		LanguageId           int    `json:"LanguageId"`
		Status               string `json:"Status"` // Success, Queued, Processing, Failed
		TranscriptionTextURL string `json:"TranscriptionTextURL"`
		WordsCount           int    `json:"WordsCount"`
	} `json:"Data"`
	Reason   string `json:"Reason,omitempty"`
	UniqueId string `json:"UniqueId,omitempty"`
}

type Options struct {
	Host         string
	CallType     string
	HTTPTimeout  time.Duration
	RequestRetry time.Duration
	PollInterval time.Duration
	MaxPolls     int

	// Timeout bounds a whole Transcribe call. Zero means no bound.
	Timeout time.Duration
}

func (o *Options) defaults() {
	if o.CallType == "" {
		o.CallType = "PNS"
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 12 * time.Second
	}
	if o.RequestRetry <= 0 {
		o.RequestRetry = 12 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 1500 * time.Millisecond
	}
	if o.MaxPolls <= 0 {
		o.MaxPolls = 40
	}
}

// Client drives the publish / poll / download transcription API.
type Client struct {
	opts Options
	http *http.Client
	log  *logger.Logger
}

func NewClient(opts Options, log *logger.Logger) (*Client, error) {
	if opts.Host == "" {
		return nil, errors.New("TRANSCRIBE_URL not set")
	}
	opts.defaults()
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.HTTPTimeout},
		log:  log.With(logrus.Fields{"component": "transcription"}),
	}, nil
}

func (c *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	log := c.log.WithField("audio_url", audioURL)
	mediaID, existingURL, err := c.publish(ctx, audioURL)
	if err != nil {
		return "", err
	}
	if existingURL != "" {
		log.Info("transcription already exists, downloading text")
		return c.download(ctx, existingURL)
	}
	finalURL, err := c.poll(ctx, mediaID)
	if err != nil {
		return "", err
	}
	log.WithField("final_url", finalURL).Info("download final transcript")
	return c.download(ctx, finalURL)
}

func (c *Client) publish(ctx context.Context, audioURL string) (string, string, error) {
	endpoint := strings.TrimRight(c.opts.Host, "/") + "/transcribe"
	newReq := func() (*http.Request, error) {
		var b bytes.Buffer
		w := multipart.NewWriter(&b)
		_ = w.WriteField("callRecordingLink", audioURL)
		_ = w.WriteField("callType", c.opts.CallType)
		_ = w.Close()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &b)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}

	var resp PublishSuccessResponse
	if err := c.doJSON(ctx, newReq, &resp); err != nil {
		return "", "", fmt.Errorf("transcribe publish: %w", err)
	}
	if resp.Code != 200 {
		return "", "", fmt.Errorf("transcribe publish error: code=%d reason=%s", resp.Code, resp.Reason)
	}
	if resp.Data.TranscriptionURL != "" && strings.EqualFold(resp.Data.Status, "success") {
		return "", resp.Data.TranscriptionURL, nil
	}
	return resp.Data.MediaId, "", nil
}

func (c *Client) poll(ctx context.Context, mediaID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.opts.Host, "/") + "/getstatus")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("mediaId", mediaID)
	u.RawQuery = q.Encode()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for i := 0; i < c.opts.MaxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		newReq := func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		}
		var s StatusResponse
		if err := c.doJSON(ctx, newReq, &s); err != nil {
			c.log.WithError(err).Warn("polling failed")
			continue
		}

		c.log.WithFields(logrus.Fields{
			"media_id": mediaID,
			"status":   s.Data.Status,
		}).Debug("polling transcription")

		switch s.Data.Status {
		case "Success":
			return s.Data.TranscriptionTextURL, nil
		case "Failed":
			return "", fmt.Errorf("%w: %s", ErrFailed, s.Reason)
		}
	}
	return "", fmt.Errorf("transcription timeout for media %s", mediaID)
}

func (c *Client) download(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("download failed: %s", string(b))
	}
	return string(b), nil
}

// doJSON retries server errors and undecodable bodies. Requests are rebuilt
// per attempt since a multipart body can only be read once.
func (c *Client) doJSON(ctx context.Context, newReq func() (*http.Request, error), target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.opts.RequestRetry

	op := func() error {
		req, err := newReq()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: %s", string(body))
		}
		if len(body) == 0 {
			return fmt.Errorf("empty body")
		}
		if err := json.Unmarshal(body, target); err != nil {
			return fmt.Errorf("json decode error: %v body=%s", err, string(body))
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// Mock returns a fixed transcript for USE_MOCK_TRANSCRIBE.
type Mock struct {
	Transcript string
	Err        error
}

func (m Mock) Transcribe(ctx context.Context, _ string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Transcript == "" {
		return "MOCK TRANSCRIPT: Customer says they face pricing issues and want refund.", nil
	}
	return m.Transcript, ctx.Err()
}
