package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/flexmatch/flexmatch-api/internal/payment"
	"github.com/flexmatch/flexmatch-api/internal/service"
	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	svc     service.BookingService
	gateway payment.Gateway
	logger  *slog.Logger
}

func NewWebhookHandler(svc service.BookingService, gateway payment.Gateway, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, gateway: gateway, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook-checkout", h.CheckoutWebhook)
}

// CheckoutWebhook receives gateway events. Once the signature verifies we
// always answer 200, otherwise the gateway keeps redelivering an event we
// can never apply. Downstream failures are logged instead.
func (h *WebhookHandler) CheckoutWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read request body")
	}

	event, err := h.gateway.VerifyWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook signature")
	}

	if !event.Completed {
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	bookingID, err := strconv.ParseUint(event.ClientReferenceID, 10, 64)
	if err != nil {
		h.logger.Warn("webhook carries invalid booking reference",
			"client_reference_id", event.ClientReferenceID)
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	if err := h.svc.ConfirmFromWebhook(c.Request().Context(), uint(bookingID), event.TransactionID); err != nil {
		h.logger.Error("webhook confirmation failed",
			"booking_id", bookingID, "error", err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
