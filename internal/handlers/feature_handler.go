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

type FeatureHandler struct {
	featureService *services.FeatureService
}

func NewFeatureHandler(featureService *services.FeatureService) *FeatureHandler {
	return &FeatureHandler{featureService: featureService}
}

func (h *FeatureHandler) Register(app *fiber.App) {
	featureGroup := app.Group("compliance/api/v1/features")

	featureGroup.Get("/", h.ListFeatures)            // GET    /features
	featureGroup.Get("/:name", h.GetFeature)         // GET    /features/:name
	featureGroup.Post("/", h.CreateFeature)          // POST   /features
	featureGroup.Put("/:id", h.UpdateFeature)        // PUT    /features/:id
	featureGroup.Delete("/:id", h.DeactivateFeature) // DELETE /features/:id
}

func (h *FeatureHandler) ListFeatures(c fiber.Ctx) error {
	includeInactive := c.Query("include_inactive") == "true"

	features, err := h.featureService.ListFeatures(c.Context(), includeInactive)
	if err != nil {
		return h.featureError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(features))
}

func (h *FeatureHandler) GetFeature(c fiber.Ctx) error {
	featureName := c.Params("name")

	feature, err := h.featureService.GetFeatureByName(c.Context(), featureName)
	if err != nil {
		return h.featureError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(feature))
}

func (h *FeatureHandler) CreateFeature(c fiber.Ctx) error {
	var req models.CreateFeatureRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	feature, err := h.featureService.CreateFeature(c.Context(), req)
	if err != nil {
		return h.featureError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(feature))
}

func (h *FeatureHandler) UpdateFeature(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid feature id"))
	}

	var req models.UpdateFeatureRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	feature, err := h.featureService.UpdateFeature(c.Context(), id, req)
	if err != nil {
		return h.featureError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(feature))
}

func (h *FeatureHandler) DeactivateFeature(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid feature id"))
	}

	if err := h.featureService.DeactivateFeature(c.Context(), id); err != nil {
		return h.featureError(c, err)
	}

	return c.JSON(utils.CreateSuccessResponse(fiber.Map{"deactivated": true}))
}

func (h *FeatureHandler) featureError(c fiber.Ctx, err error) error {
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "not found"):
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", errMsg))
	case strings.Contains(errMsg, "required") || strings.Contains(errMsg, "cannot be negative"):
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("VALIDATION_FAILED", errMsg))
	default:
		slog.Error("Feature operation failed", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("FEATURE_FAILED", errMsg))
	}
}
