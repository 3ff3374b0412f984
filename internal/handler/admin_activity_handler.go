package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/service"
	"github.com/noah-isme/gema-multigraders/internal/utils"
)

const (
	defaultActivityPageSize = 25
	maxActivityPageSize     = 200
)

// AdminActivityHandler exposes the grading audit trail.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches the audit trail routes. The item route lists the history of one grading
// item and accepts the same query filters as the root.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/areas/:areaId", h.list)
	router.Get("/areas/:areaId/items/:itemId", h.list)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	req, message := activityRequest(c)
	if message != "" {
		return utils.SendError(c, fiber.StatusBadRequest, message)
	}

	response, err := h.service.List(requestContext(c), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity logs")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity logs")
	}
	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}

// activityRequest reads paging and filters. Path parameters win over query parameters.
func activityRequest(c *fiber.Ctx) (dto.ActivityListRequest, string) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.ActivityListRequest{}, "invalid page"
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return dto.ActivityListRequest{}, "invalid page size"
	}
	since, err := parseQueryTime(c, "since")
	if err != nil {
		return dto.ActivityListRequest{}, "invalid since, expected RFC 3339"
	}
	until, err := parseQueryTime(c, "until")
	if err != nil {
		return dto.ActivityListRequest{}, "invalid until, expected RFC 3339"
	}
	if !since.IsZero() && !until.IsZero() && !since.Before(until) {
		return dto.ActivityListRequest{}, "since must be before until"
	}

	switch {
	case pageSize <= 0:
		pageSize = defaultActivityPageSize
	case pageSize > maxActivityPageSize:
		pageSize = maxActivityPageSize
	}

	return dto.ActivityListRequest{
		Page:       max(page, 1),
		PageSize:   pageSize,
		ActorID:    c.Query("actor_id"),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		AreaID:     firstNonEmpty(c.Params("areaId"), c.Query("area_id")),
		ItemID:     firstNonEmpty(c.Params("itemId"), c.Query("item_id")),
		Since:      since,
		Until:      until,
	}, ""
}

func parseQueryTime(c *fiber.Ctx, key string) (time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
