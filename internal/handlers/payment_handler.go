package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"compliance-service/internal/models"
	"compliance-service/internal/payments"
	"compliance-service/internal/services"
	"compliance-service/internal/utils"

	"github.com/gofiber/fiber/v3"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) Register(app *fiber.App) {
	paymentGroup := app.Group("compliance/api/v1/payments")

	paymentGroup.Post("/open", h.OpenPayment)         // POST /payments/open
	paymentGroup.Post("/:id/method", h.SelectMethod)  // POST /payments/:id/method
	paymentGroup.Post("/:id/submit", h.SubmitPayment) // POST /payments/:id/submit
	paymentGroup.Post("/:id/cancel", h.CancelPayment) // POST /payments/:id/cancel
	paymentGroup.Get("/:id", h.GetTransaction)        // GET  /payments/:id
}

func (h *PaymentHandler) OpenPayment(c fiber.Ctx) error {
	var req models.OpenPaymentRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	tx, err := h.paymentService.OpenPayment(c.Context(), req)
	if err != nil {
		if payments.IsValidationError(err) {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("VALIDATION_FAILED", err.Error()))
		}
		slog.Error("Failed to open payment", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("PAYMENT_OPEN_FAILED", err.Error()))
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(tx))
}

func (h *PaymentHandler) SelectMethod(c fiber.Ctx) error {
	transactionID := c.Params("id")

	var req models.SelectMethodRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	tx, err := h.paymentService.SelectMethod(c.Context(), transactionID, req.Method)
	if err != nil {
		return h.paymentError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(tx))
}

func (h *PaymentHandler) SubmitPayment(c fiber.Ctx) error {
	transactionID := c.Params("id")

	var req models.SubmitPaymentRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	tx, err := h.paymentService.SubmitPayment(c.Context(), transactionID, req)
	if err != nil {
		return h.paymentError(c, err)
	}

	return c.Status(http.StatusAccepted).JSON(utils.CreateSuccessResponse(tx))
}

func (h *PaymentHandler) CancelPayment(c fiber.Ctx) error {
	transactionID := c.Params("id")

	tx, err := h.paymentService.CancelPayment(c.Context(), transactionID)
	if err != nil {
		return h.paymentError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(tx))
}

func (h *PaymentHandler) GetTransaction(c fiber.Ctx) error {
	transactionID := c.Params("id")

	tx, err := h.paymentService.GetTransaction(c.Context(), transactionID)
	if err != nil {
		return h.paymentError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(tx))
}

func (h *PaymentHandler) paymentError(c fiber.Ctx, err error) error {
	switch {
	case payments.IsValidationError(err):
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("VALIDATION_FAILED", err.Error()))
	case payments.IsInitiationError(err):
		return c.Status(http.StatusBadGateway).JSON(
			utils.CreateErrorResponse("INITIATION_FAILED", err.Error()))
	case err == payments.ErrConfirmationInFlight:
		return c.Status(http.StatusConflict).JSON(
			utils.CreateErrorResponse("CONFIRMATION_IN_FLIGHT", err.Error()))
	case err == payments.ErrNoOpenTransaction, err == payments.ErrTransactionCompleted:
		return c.Status(http.StatusConflict).JSON(
			utils.CreateErrorResponse("INVALID_TRANSACTION_STATE", err.Error()))
	case strings.Contains(err.Error(), "not found"):
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", err.Error()))
	default:
		slog.Error("Payment operation failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("PAYMENT_FAILED", err.Error()))
	}
}
