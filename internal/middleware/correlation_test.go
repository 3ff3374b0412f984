package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDPropagates(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		fromCtx, _ := c.UserContext().Value(correlationKey{}).(string)
		return c.SendString(GetCorrelationID(c) + "|" + fromCtx)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, " grade-42 ")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "grade-42", resp.Header.Get(CorrelationHeader))

	req = httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-7")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-7", resp.Header.Get(CorrelationHeader))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Len(t, resp.Header.Get(CorrelationHeader), 36)
}

func TestContextWithCorrelationIgnoresBlank(t *testing.T) {
	ctx := ContextWithCorrelation(context.Background(), "  ")
	require.Nil(t, ctx.Value(correlationKey{}))

	ctx = ContextWithCorrelation(ctx, "abc")
	require.Equal(t, "abc", ctx.Value(correlationKey{}))
}
