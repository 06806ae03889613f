package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aftercare/aftercare/internal/domain/conversation"
)

// InboundProcessor consumes one flattened inbound message. Implemented
// by the conversation manager.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, msg conversation.InboundMessage) error
}

// Config carries the provider-facing secrets. Both are required in
// production; Validate at startup enforces that.
type Config struct {
	VerifyToken string
	AppSecret   string
}

type Handler struct {
	cfg       Config
	processor InboundProcessor
	logger    zerolog.Logger
}

func NewHandler(cfg Config, processor InboundProcessor, logger zerolog.Logger) *Handler {
	return &Handler{cfg: cfg, processor: processor, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/whatsapp", h.Verify)
	g.POST("/whatsapp", h.Receive)
}

// Verify answers the provider handshake: the challenge is echoed back
// only when the pre-shared verify token matches.
func (h *Handler) Verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode != "subscribe" || token != h.cfg.VerifyToken {
		h.logger.Warn().Str("mode", mode).Msg("webhook verification rejected")
		return echo.NewHTTPError(http.StatusForbidden, ErrVerifyToken.Error())
	}
	return c.String(http.StatusOK, challenge)
}

// Receive handles a message delivery. Internal failures return 500 so
// the provider redelivers; processing is idempotent, which makes the
// retry safe.
func (h *Handler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	sig := c.Request().Header.Get("X-Hub-Signature-256")
	if err := VerifySignature(h.cfg.AppSecret, body, sig); err != nil {
		h.logger.Warn().Str("remote_ip", c.RealIP()).Msg("webhook signature rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed envelope")
	}

	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			for _, st := range change.Value.Statuses {
				h.logger.Debug().
					Str("message_id", st.ID).
					Str("status", st.Status).
					Msg("delivery status event")
			}
		}
	}

	ctx := c.Request().Context()
	for _, msg := range envelope.InboundMessages() {
		if err := h.processor.HandleInbound(ctx, msg); err != nil {
			h.logger.Error().Err(err).
				Str("message_id", msg.MessageID).
				Msg("inbound message processing failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}
