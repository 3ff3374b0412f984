package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-multigraders/internal/dto"
)

const definitionPath = "/api/v1/grading/areas/lab/definition"

func TestDefinitionHandlerRoundTrip(t *testing.T) {
	stack := newGradingStack(t)

	resp, env := stack.do(t, http.MethodGet, definitionPath, "alice", "teacher", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var current dto.DefinitionResponse
	require.NoError(t, json.Unmarshal(env.Data, &current))
	require.False(t, current.Stored)

	resp, env = stack.do(t, http.MethodPut, definitionPath, "carol", "manager", map[string]interface{}{
		"auto_calculate_method": "max",
		"outcomes":              []map[string]interface{}{{"id": "1", "name": "Method", "min": 0, "max": 4}},
		"formula":               "##outcome:1##",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var saved dto.DefinitionSaveResponse
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	require.Equal(t, 1, saved.Definition.Version)
	require.Equal(t, "carol", saved.Definition.UpdatedBy)

	resp, _ = stack.do(t, http.MethodDelete, definitionPath, "carol", "manager", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = stack.do(t, http.MethodDelete, definitionPath, "root", "admin", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDefinitionHandlerRejectsTeachersAndBadInput(t *testing.T) {
	stack := newGradingStack(t)

	resp, _ := stack.do(t, http.MethodPut, definitionPath, "alice", "teacher", map[string]interface{}{"name": "x"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, env := stack.do(t, http.MethodPut, definitionPath, "root", "admin", map[string]interface{}{"formula": "##outcome:1## *"})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Details, &details))
	require.Contains(t, details, "formula")

	resp, _ = stack.do(t, http.MethodPut, definitionPath, "root", "admin", map[string]interface{}{"auto_calculate_method": "median"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
