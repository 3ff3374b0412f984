package router

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-multigraders/internal/config"
	"github.com/noah-isme/gema-multigraders/internal/handler"
	"github.com/noah-isme/gema-multigraders/internal/utils"
)

func TestRegisterProtectsGradingRoutes(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{AppName: "Multigraders"}, Dependencies{
		GradingHandler: handler.NewGradingHandler(nil, nil, zerolog.New(io.Discard)),
		JWTMiddleware: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusUnauthorized, "missing authorization header")
		},
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Multigraders", resp.Header.Get("X-Application"))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/grading/areas/essay/items/stu-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
