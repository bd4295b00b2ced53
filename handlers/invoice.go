package handlers

import (
	"net/http"
	"strconv"

	invoiceRepo "consultbook/database/repository/invoice"
	"consultbook/models"
	"consultbook/services/billing"
	"consultbook/utils"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler exposes invoicing to administrators.
type InvoiceHandler struct {
	Service billing.BillingService
}

func NewInvoiceHandler(svc billing.BillingService) *InvoiceHandler {
	return &InvoiceHandler{Service: svc}
}

type reissueInput struct {
	NewAmount float64 `json:"newAmount"`
	Reason    string  `json:"reason"`
}

type invoiceStatusInput struct {
	Status string `json:"status" binding:"required"`
}

func (h *InvoiceHandler) CreateInvoiceHandler(c *gin.Context) {
	var input billing.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	res, err := h.Service.CreateInvoice(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *InvoiceHandler) ListInvoicesHandler(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("includeInactive"))
	invoices, err := h.Service.ListInvoices(c.Request.Context(), invoiceRepo.InvoiceFilter{
		AppointmentID:   c.Query("appointmentId"),
		UserID:          c.Query("userId"),
		Status:          models.InvoiceStatus(c.Query("status")),
		IncludeInactive: includeInactive,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) GetInvoiceHandler(c *gin.Context) {
	inv, err := h.Service.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) ReissueInvoiceHandler(c *gin.Context) {
	var input reissueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	res, err := h.Service.ReissueInvoice(c.Request.Context(), billing.ReissueRequest{
		OriginalInvoiceID: c.Param("id"),
		NewAmount:         input.NewAmount,
		Reason:            input.Reason,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UpdateInvoiceStatusHandler is the explicit path for pending -> overdue and
// manual payment entry.
func (h *InvoiceHandler) UpdateInvoiceStatusHandler(c *gin.Context) {
	var input invoiceStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	inv, err := h.Service.TransitionInvoiceStatus(c.Request.Context(), c.Param("id"), models.InvoiceStatus(input.Status))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) AppointmentInvoicesHandler(c *gin.Context) {
	history, err := h.Service.InvoiceHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
