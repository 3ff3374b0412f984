package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/grading"
	"github.com/noah-isme/gema-multigraders/internal/middleware"
	"github.com/noah-isme/gema-multigraders/internal/service"
	"github.com/noah-isme/gema-multigraders/internal/utils"
)

// GradingHandler exposes the multi-grader workflow of a grading item.
type GradingHandler struct {
	service     service.GradingService
	logger      zerolog.Logger
	submitGuard fiber.Handler
}

// NewGradingHandler constructs the handler. submitGuard, when set, runs before submissions
// and is meant for rate limiting.
func NewGradingHandler(service service.GradingService, submitGuard fiber.Handler, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service:     service,
		logger:      logger.With().Str("component", "grading_handler").Logger(),
		submitGuard: submitGuard,
	}
}

// Register binds item grading routes under /grading/areas.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/:areaId/formula/preview", h.previewFormula)
	router.Get("/:areaId/items/:itemId", h.view)

	submit := []fiber.Handler{middleware.RequireCapability(grading.CapGrade, grading.CapManage)}
	if h.submitGuard != nil {
		submit = append(submit, h.submitGuard)
	}
	submit = append(submit, h.submit)
	router.Post("/:areaId/items/:itemId/grades", submit...)

	router.Delete("/:areaId/items/:itemId/grades/mine", h.cancel)
	router.Delete("/:areaId/items/:itemId/grades", h.wipe)
}

func (h *GradingHandler) view(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	response, err := h.service.View(requestContext(c), actor, c.Params("areaId"), c.Params("itemId"), strings.ToLower(c.Query("view")))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load grading item")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load grading item")
	}
	return utils.SendSuccess(c, "grading item", response)
}

func (h *GradingHandler) submit(c *fiber.Ctx) error {
	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := actorFromContext(c)
	response, err := h.service.Submit(requestContext(c), actor, c.Params("areaId"), c.Params("itemId"), payload)
	if err != nil {
		var gradeErrs grading.ValidationErrors
		switch {
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
		case errors.As(err, &gradeErrs):
			return utils.FailWithData(c, fiber.StatusUnprocessableEntity, "grade validation failed", response.View, gradeErrs.ByKey())
		case errors.Is(err, service.ErrPermissionDenied):
			return utils.FailWithData(c, fiber.StatusForbidden, err.Error(), response.View, nil)
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("grader_id", actor.ID).Msg("failed to save grade")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to save grade")
		}
	}

	if !response.Saved {
		return utils.SendSuccess(c, "nothing to save", response)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grade saved", response)
}

func (h *GradingHandler) cancel(c *fiber.Ctx) error {
	response, err := h.service.Cancel(requestContext(c), actorFromContext(c), c.Params("areaId"), c.Params("itemId"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to cancel draft")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to cancel draft")
	}
	return utils.SendSuccess(c, "draft cancelled", response)
}

func (h *GradingHandler) wipe(c *fiber.Ctx) error {
	response, err := h.service.Wipe(requestContext(c), actorFromContext(c), c.Params("areaId"), c.Params("itemId"))
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to wipe grading item")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to wipe grading item")
	}
	return utils.SendSuccess(c, "grading item wiped", response)
}

func (h *GradingHandler) previewFormula(c *fiber.Ctx) error {
	var payload dto.FormulaPreviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.PreviewFormula(requestContext(c), c.Params("areaId"), payload)
	if err != nil {
		var gradeErrs grading.ValidationErrors
		switch {
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
		case errors.As(err, &gradeErrs):
			return utils.Fail(c, fiber.StatusUnprocessableEntity, "invalid outcome values", gradeErrs.ByKey())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to preview formula")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to preview formula")
		}
	}
	return utils.SendSuccess(c, "formula preview", response)
}
