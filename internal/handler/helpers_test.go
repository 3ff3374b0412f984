package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-multigraders/internal/database"
	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/handler"
	"github.com/noah-isme/gema-multigraders/internal/middleware"
	"github.com/noah-isme/gema-multigraders/internal/models"
	"github.com/noah-isme/gema-multigraders/internal/repository"
	"github.com/noah-isme/gema-multigraders/internal/service"
)

type recordingNotifier struct {
	sent []dto.NotificationCreateRequest
}

func (n *recordingNotifier) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	n.sent = append(n.sent, payload)
	return dto.NotificationResponse{UserID: payload.UserID, Type: payload.Type}, nil
}

type gradingStack struct {
	app      *fiber.App
	db       *gorm.DB
	notifier *recordingNotifier
}

// identify stands in for JWTProtected so tests can pick the viewer per request.
func identify(c *fiber.Ctx) error {
	if user := c.Get("X-Test-User"); user != "" {
		c.Locals(middleware.LocalUserID, user)
		c.Locals(middleware.LocalUserRole, c.Get("X-Test-Role"))
	}
	return c.Next()
}

func newGradingStack(t *testing.T) gradingStack {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	users := repository.NewUserRepository(db)
	require.NoError(t, users.Upsert(context.Background(), []models.User{
		{ID: "alice", FullName: "Alice Primary"},
		{ID: "bob", FullName: "Bob Second"},
	}))

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	definitions := service.NewDefinitionService(repository.NewGradingDefinitionRepository(db), nil, 0, activity, validate, logger)
	notifier := &recordingNotifier{}
	grading := service.NewGradingService(
		definitions,
		service.GradingRepositories{
			Items:   repository.NewGradingItemRepository(db),
			Records: repository.NewGradeRecordRepository(db),
		},
		service.NewUserDirectory(users, logger),
		notifier,
		activity,
		validate,
		"https://lms.example.com",
		logger,
	)

	app := fiber.New()
	areas := app.Group("/api/v1/grading/areas", identify)
	handler.NewDefinitionHandler(definitions, logger).Register(areas)
	handler.NewGradingHandler(grading, nil, logger).Register(areas)
	handler.NewAdminActivityHandler(activity, logger).Register(app.Group("/api/v1/admin/activities", identify, middleware.RequireRole("admin")))

	return gradingStack{app: app, db: db, notifier: notifier}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
	Meta    json.RawMessage `json:"meta"`
}

func (s gradingStack) do(t *testing.T, method, path, user, role string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, env
}
