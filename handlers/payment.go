package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"consultbook/services/billing"
	"consultbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const maxWebhookBody = 65536

// invoiceMetadataKey links a payment intent to the invoice it pays.
const invoiceMetadataKey = "invoice_id"

// PaymentHandler receives payment confirmations from Stripe.
type PaymentHandler struct {
	Billing       billing.BillingService
	WebhookSecret string
}

func NewPaymentHandler(svc billing.BillingService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{Billing: svc, WebhookSecret: webhookSecret}
}

// StripeWebhookHandler marks the referenced invoice paid on
// payment_intent.succeeded. Only storage failures are answered with an error
// status so that Stripe redelivers; rejected transitions are acknowledged.
func (h *PaymentHandler) StripeWebhookHandler(c *gin.Context) {
	logger := zap.L()

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "failed to read body", err.Error())
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid webhook signature", err.Error())
		return
	}

	if event.Type != "payment_intent.succeeded" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid payment intent", err.Error())
		return
	}
	invoiceID := intent.Metadata[invoiceMetadataKey]
	if invoiceID == "" {
		logger.Warn("Payment intent without invoice reference", zap.String("paymentIntent", intent.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	inv, err := h.Billing.ConfirmPayment(c.Request.Context(), invoiceID)
	if err != nil {
		if errors.Is(err, utils.ErrStorageUnavailable) || utils.ErrorCode(err) == "" {
			utils.RespondError(c, err)
			return
		}
		logger.Warn("Payment confirmation not applied",
			zap.String("invoiceID", invoiceID),
			zap.String("paymentIntent", intent.ID),
			zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
		return
	}

	logger.Info("Invoice paid",
		zap.String("invoiceID", inv.ID),
		zap.String("invoiceNumber", inv.InvoiceNumber),
		zap.String("paymentIntent", intent.ID))
	c.JSON(http.StatusOK, gin.H{"received": true, "applied": true})
}
