package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/grading"
	"github.com/noah-isme/gema-multigraders/internal/middleware"
	"github.com/noah-isme/gema-multigraders/internal/service"
	"github.com/noah-isme/gema-multigraders/internal/utils"
)

// DefinitionHandler manages the multi-grader configuration of grading areas.
type DefinitionHandler struct {
	service service.DefinitionService
	logger  zerolog.Logger
}

// NewDefinitionHandler constructs the handler.
func NewDefinitionHandler(service service.DefinitionService, logger zerolog.Logger) *DefinitionHandler {
	return &DefinitionHandler{
		service: service,
		logger:  logger.With().Str("component", "definition_handler").Logger(),
	}
}

// Register binds definition routes under /grading/areas.
func (h *DefinitionHandler) Register(router fiber.Router) {
	router.Get("/:areaId/definition", h.get)
	router.Put("/:areaId/definition", middleware.RequireCapability(grading.CapManage), h.save)
	router.Delete("/:areaId/definition", middleware.RequireCapability(grading.CapSiteConfig), h.delete)
}

func (h *DefinitionHandler) get(c *fiber.Ctx) error {
	response, err := h.service.Get(requestContext(c), c.Params("areaId"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load definition")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load definition")
	}
	return utils.SendSuccess(c, "grading definition", response)
}

func (h *DefinitionHandler) save(c *fiber.Ctx) error {
	var payload dto.DefinitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Save(requestContext(c), actorFromContext(c), c.Params("areaId"), payload)
	if err != nil {
		var invalid *service.InvalidDefinitionError
		switch {
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
		case errors.As(err, &invalid):
			return utils.Fail(c, fiber.StatusUnprocessableEntity, "invalid definition", map[string]string{invalid.Field: invalid.Message})
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to save definition")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to save definition")
		}
	}
	return utils.SendSuccess(c, "grading definition saved", response)
}

func (h *DefinitionHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), actorFromContext(c), c.Params("areaId")); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to delete definition")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete definition")
	}
	return utils.SendSuccess(c, "grading definition deleted", nil)
}
