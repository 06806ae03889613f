package messenger

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

// WhatsAppConfig holds the WhatsApp Cloud API connection settings.
type WhatsAppConfig struct {
	BaseURL     string // e.g. https://graph.facebook.com/v19.0
	PhoneID     string // business phone number id
	AccessToken string
}

// WhatsAppClient sends messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	cfg        WhatsAppConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures a WhatsAppClient.
type ClientOption func(*WhatsAppClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(w *WhatsAppClient) { w.httpClient = c }
}

// NewWhatsAppClient creates a WhatsApp Cloud API messenger.
func NewWhatsAppClient(cfg WhatsAppConfig, logger zerolog.Logger, opts ...ClientOption) *WhatsAppClient {
	w := &WhatsAppClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

type textPayload struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textContent `json:"text"`
}

type textContent struct {
	Body string `json:"body"`
}

type readPayload struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// Send delivers a text message to the given phone number.
func (w *WhatsAppClient) Send(ctx context.Context, phone, text string) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             textContent{Body: text},
	}
	return w.post(ctx, payload)
}

// MarkRead acknowledges an inbound message so the sender sees read receipts.
func (w *WhatsAppClient) MarkRead(ctx context.Context, messageID string) error {
	payload := readPayload{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	}
	return w.post(ctx, payload)
}

func (w *WhatsAppClient) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.cfg.BaseURL, w.cfg.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.cfg.AccessToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read at most 1KB of response body for the error message.
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		w.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("whatsapp api rejected request")
		return fmt.Errorf("whatsapp api returned status %d", resp.StatusCode)
	}

	return nil
}
