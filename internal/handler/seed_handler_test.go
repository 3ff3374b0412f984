package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-multigraders/internal/dto"
	"github.com/noah-isme/gema-multigraders/internal/handler"
	"github.com/noah-isme/gema-multigraders/internal/service"
)

type mockSeedService struct {
	err          error
	lastToken    string
	lastDocument []byte
	result       dto.SeedDefinitionsResponse
}

func (m *mockSeedService) SeedDefinitions(_ context.Context, token string, document []byte) (dto.SeedDefinitionsResponse, error) {
	m.lastToken = token
	m.lastDocument = document
	if m.err != nil {
		return dto.SeedDefinitionsResponse{}, m.err
	}
	return m.result, nil
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

const seedDocument = `
[[definition]]
area_id = "essay"
secondary_graders = ["bob"]
`

func TestSeedHandler_DefinitionsSuccess(t *testing.T) {
	svc := &mockSeedService{result: dto.SeedDefinitionsResponse{Definitions: 1}}
	app := fiber.New()
	handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/admin/seed"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/seed/definitions", bytes.NewReader([]byte(seedDocument)))
	req.Header.Set("Content-Type", "application/toml")
	req.Header.Set("X-Seed-Token", "secret")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                        `json:"success"`
		Data    dto.SeedDefinitionsResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, 1, response.Data.Definitions)
	require.Equal(t, "secret", svc.lastToken)
	require.Equal(t, seedDocument, string(svc.lastDocument))
}

func TestSeedHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "disabled", err: service.ErrSeedDisabled, statusCode: fiber.StatusForbidden},
		{name: "unauthorized", err: service.ErrSeedUnauthorized, statusCode: fiber.StatusForbidden},
		{name: "payload", err: fmt.Errorf("%w: bad toml", service.ErrSeedPayload), statusCode: fiber.StatusBadRequest},
		{name: "definition", err: &service.InvalidDefinitionError{Field: "formula", Message: "bad"}, statusCode: fiber.StatusBadRequest},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockSeedService{err: tc.err}
			app := fiber.New()
			handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/seed"))

			req := httptest.NewRequest(http.MethodPost, "/seed/definitions", bytes.NewReader([]byte(seedDocument)))
			req.Header.Set("X-Seed-Token", "secret")

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var response struct {
				Success bool `json:"success"`
			}
			decodeResponse(t, resp, &response)
			require.False(t, response.Success)
		})
	}
}

func TestSeedHandler_EmptyBody(t *testing.T) {
	svc := &mockSeedService{}
	app := fiber.New()
	handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/seed"))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/seed/definitions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, svc.lastDocument)
}
