package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPConfig configures the HTTP classifier adapter.
type HTTPConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// HTTPClassifier calls a remote classification endpoint over HTTP.
type HTTPClassifier struct {
	cfg        HTTPConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption customizes an HTTPClassifier.
type ClientOption func(*HTTPClassifier)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClassifier) {
		h.httpClient = c
	}
}

// NewHTTPClassifier builds a classifier backed by a remote HTTP service.
func NewHTTPClassifier(cfg HTTPConfig, logger zerolog.Logger, opts ...ClientOption) *HTTPClassifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	h := &HTTPClassifier{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Classify posts the conversation context to the classification service
// and decodes its verdict. The call is bounded by the configured timeout.
func (h *HTTPClassifier) Classify(ctx context.Context, in Input) (*Result, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal classifier input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		h.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(snippet)).
			Msg("classifier returned non-2xx status")
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	return &result, nil
}
