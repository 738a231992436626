package handler

import (
	"errors"
	"io"
	"net/http"

	"event-tickets/internal/service"

	"github.com/labstack/echo/v4"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes   = 1 << 20
)

type WebhookHandler struct {
	webhookService service.WebhookService
}

func NewWebhookHandler(webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

func (h *WebhookHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		return c.String(http.StatusBadRequest, "unreadable body")
	}

	resp, err := h.webhookService.HandleStripeWebhook(ctx, body, c.Request().Header.Get(stripeSignatureHeader))
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			return c.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
		}
		return internalError("Webhook handler failed")
	}

	return c.JSON(http.StatusOK, resp)
}
