package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/handler"
	"github.com/noah-isme/gema-multigraders/internal/middleware"
	"github.com/noah-isme/gema-multigraders/internal/repository"
	"github.com/noah-isme/gema-multigraders/internal/service"
)

func TestNotificationHandlerListAndMarkRead(t *testing.T) {
	stack := newGradingStack(t)
	logger := zerolog.New(io.Discard)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(stack.db), nil, "", nil, validator.New(), logger)
	handler.NewNotificationHandler(notifications, logger, time.Second).Register(
		stack.app.Group("/api/v1/notifications", identify, middleware.WithAuth(func(c *fiber.Ctx) error {
			return c.Next()
		}, middleware.AuthOptions{RequireUser: true})),
	)

	sent, err := notifications.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "bob",
		Type:    "second_grading_requested",
		Subject: "Second grading required for Essay",
		Message: "Alice has requested second grading. Please take a moment to grade this item.",
	})
	require.NoError(t, err)

	resp, _ := stack.do(t, http.MethodGet, "/api/v1/notifications", "", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, env := stack.do(t, http.MethodGet, "/api/v1/notifications?limit=10", "bob", "teacher", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Items, 1)
	require.Equal(t, int64(1), list.Unread)

	resp, _ = stack.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", sent.ID), "alice", "teacher", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, env = stack.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", sent.ID), "bob", "teacher", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var read dto.NotificationResponse
	require.NoError(t, json.Unmarshal(env.Data, &read))
	require.True(t, read.Read)

	resp, _ = stack.do(t, http.MethodPatch, "/api/v1/notifications/abc/read", "bob", "teacher", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
