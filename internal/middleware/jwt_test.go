package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTProtectedStoresViewerIdentity(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error {
		actor := ActorFromContext(c)
		return c.JSON(fiber.Map{"id": actor.ID, "role": actor.Role, "caps": len(actor.Capabilities)})
	})

	token := signedToken(t, "secret", jwt.MapClaims{
		"sub":  "alice",
		"role": []interface{}{"Teacher"},
		"caps": "grade:manage, site:config",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	headers := []string{
		"",
		"Token abc",
		"Bearer " + signedToken(t, "other", jwt.MapClaims{"sub": "alice"}),
		"Bearer " + signedToken(t, "secret", jwt.MapClaims{"role": "teacher"}),
		"Bearer " + signedToken(t, "secret", jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(-time.Hour).Unix()}),
	}
	for _, header := range headers {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, header)
	}
}

func TestNormalizeUserID(t *testing.T) {
	require.Equal(t, "42", normalizeUserID(float64(42)))
	require.Equal(t, "", normalizeUserID(float64(-1)))
	require.Equal(t, "", normalizeUserID(1.5))
	require.Equal(t, "bob", normalizeUserID(" bob "))
	require.Equal(t, "", normalizeUserID(true))
}
