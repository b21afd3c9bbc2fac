package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/salespipehq/salespipe/pkg/api/errors"
	"github.com/salespipehq/salespipe/pkg/dispatch"
	"github.com/salespipehq/salespipe/pkg/models"
)

// Bulk dispatch can take a while with rate-limit pauses between batches, so
// the timeout is generous.
const dispatchTimeout = 2 * time.Minute

// NotificationHandler handles bulk notification dispatch
type NotificationHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(dispatcher *dispatch.Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// SendBulkEmail delivers one email to every recipient in batches and returns
// the per-recipient accounting
func (h *NotificationHandler) SendBulkEmail(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dispatchTimeout)
	defer cancel()

	var req models.BulkEmailRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	report, err := h.dispatcher.SendBulkEmail(ctx, req.Recipients, req.Subject, req.HTMLBody, req.TextBody)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// SendBulkSMS sends individual SMS messages in batches
func (h *NotificationHandler) SendBulkSMS(c echo.Context) error {
	return h.sendBulkMessages(c, h.dispatcher.SendBulkSMS)
}

// SendBulkWhatsApp sends individual WhatsApp messages in batches
func (h *NotificationHandler) SendBulkWhatsApp(c echo.Context) error {
	return h.sendBulkMessages(c, h.dispatcher.SendBulkWhatsApp)
}

func (h *NotificationHandler) sendBulkMessages(c echo.Context, send func(context.Context, []models.PhoneMessage) (*dispatch.MessageReport, error)) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dispatchTimeout)
	defer cancel()

	var req models.BulkMessageRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	report, err := send(ctx, req.Recipients)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
