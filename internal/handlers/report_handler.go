package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"compliance-service/internal/models"
	"compliance-service/internal/services"
	"compliance-service/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ReportHandler struct {
	reportService *services.ReportService
	exportService *services.ReportExportService
}

func NewReportHandler(reportService *services.ReportService, exportService *services.ReportExportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		exportService: exportService,
	}
}

func (h *ReportHandler) Register(app *fiber.App) {
	reportGroup := app.Group("compliance/api/v1/reports")

	reportGroup.Post("/derive", h.DeriveAssessment)    // POST /reports/derive
	reportGroup.Post("/generate", h.GenerateReport)    // POST /reports/generate
	reportGroup.Get("/owner/:owner_id", h.ListByOwner) // GET  /reports/owner/:owner_id
	reportGroup.Get("/:id", h.GetReport)               // GET  /reports/:id
	reportGroup.Post("/:id/export", h.ExportReport)    // POST /reports/:id/export
}

// DeriveAssessment runs the pure assessment on a caller-supplied raw dataset
// map and polygon. Nothing is stored.
func (h *ReportHandler) DeriveAssessment(c fiber.Ctx) error {
	var req models.DeriveReportRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	assessment := h.reportService.DeriveAssessment(req)
	return c.JSON(utils.CreateSuccessResponse(assessment))
}

func (h *ReportHandler) GenerateReport(c fiber.Ctx) error {
	var req models.GenerateReportRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if req.Boundary == nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("VALIDATION_FAILED", "boundary is required"))
	}

	record, assessment, err := h.reportService.GenerateReport(c.Context(), req)
	if err != nil {
		return h.reportError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(fiber.Map{
		"report":     record,
		"assessment": assessment,
	}))
}

func (h *ReportHandler) GetReport(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid report id"))
	}

	record, err := h.reportService.GetReport(c.Context(), id)
	if err != nil {
		return h.reportError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(record))
}

func (h *ReportHandler) ListByOwner(c fiber.Ctx) error {
	ownerID := c.Params("owner_id")

	records, err := h.reportService.ListReportsByOwner(c.Context(), ownerID)
	if err != nil {
		return h.reportError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(records))
}

func (h *ReportHandler) ExportReport(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid report id"))
	}

	url, err := h.exportService.ExportReport(c.Context(), id)
	if err != nil {
		return h.reportError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(fiber.Map{"download_url": url}))
}

func (h *ReportHandler) reportError(c fiber.Ctx, err error) error {
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "verified payment"):
		return c.Status(http.StatusPaymentRequired).JSON(
			utils.CreateErrorResponse("PAYMENT_REQUIRED", errMsg))
	case strings.Contains(errMsg, "not found"):
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", errMsg))
	case strings.Contains(errMsg, "required") || strings.Contains(errMsg, "not been generated"):
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("VALIDATION_FAILED", errMsg))
	case strings.Contains(errMsg, "forest datasets"):
		return c.Status(http.StatusBadGateway).JSON(
			utils.CreateErrorResponse("UPSTREAM_FAILED", errMsg))
	default:
		slog.Error("Report operation failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("REPORT_FAILED", errMsg))
	}
}
