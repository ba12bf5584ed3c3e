package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	"github.com/noah-isme/dorm-hub-api/internal/service"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
	"github.com/noah-isme/dorm-hub-api/pkg/response"
)

// PaymentHandler exposes payment ledger endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var filter models.PaymentFilter
	filter.StudentID = c.Query("studentId")
	filter.Status = c.Query("status")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	payments, pagination, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Get godoc
// @Summary Get payment detail
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Create godoc
// @Summary Record payment
// @Description Records a payment. The settlement status is derived from the amount, the room rent and the due date.
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	payment, err := h.payments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Update godoc
// @Summary Update payment
// @Description Edits amount, due date or description. The settlement status is re-derived.
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.UpdatePaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	var req service.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	payment, err := h.payments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// UpdateStatus godoc
// @Summary Cancel payment
// @Description Manual status override. Only the cancelled status may be requested; the others are derived.
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body map[string]string true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id}/status [patch]
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	var payload struct {
		Status models.PaymentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}
	if payload.Status != models.PaymentStatusCancelled {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only the cancelled status can be set manually"))
		return
	}
	payment, err := h.payments.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Delete godoc
// @Summary Delete payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	if err := h.payments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCSV godoc
// @Summary Export the payment ledger as CSV
// @Tags Payments
// @Produce text/csv
// @Success 200 {file} file
// @Router /payments/export/csv [get]
func (h *PaymentHandler) ExportCSV(c *gin.Context) {
	data, err := h.payments.ExportCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("payments-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportPDF godoc
// @Summary Export the payment ledger as PDF
// @Tags Payments
// @Produce application/pdf
// @Success 200 {file} file
// @Router /payments/export/pdf [get]
func (h *PaymentHandler) ExportPDF(c *gin.Context) {
	data, err := h.payments.ExportPDF(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("payments-%s.pdf", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
