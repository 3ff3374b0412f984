package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-multigraders/internal/dto"
)

func TestAdminActivityHandlerScopesToItem(t *testing.T) {
	stack := newGradingStack(t)

	for _, item := range []string{"stu-1", "stu-2"} {
		resp, _ := stack.do(t, http.MethodPost, "/api/v1/grading/areas/essay/items/"+item+"/grades", "alice", "teacher", map[string]interface{}{"grade": "60"})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}
	resp, _ := stack.do(t, http.MethodDelete, "/api/v1/grading/areas/essay/items/stu-1/grades", "root", "admin", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env := stack.do(t, http.MethodGet, "/api/v1/admin/activities/areas/essay/items/stu-1", "root", "admin", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var entries []dto.ActivityResponse
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "grades.wiped", entries[0].Action, "newest first")
	require.Equal(t, "grade.submitted", entries[1].Action)
	require.Equal(t, "essay", entries[1].AreaID)
	require.Equal(t, "stu-1", entries[1].ItemID)

	resp, env = stack.do(t, http.MethodGet, "/api/v1/admin/activities/areas/essay?action=grade.*", "root", "admin", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.Equal(t, "grade.submitted", entry.Action)
	}

	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	require.Equal(t, int64(2), meta.TotalItems)
	require.Equal(t, 25, meta.PageSize)
}

func TestAdminActivityHandlerRejectsBadFilters(t *testing.T) {
	stack := newGradingStack(t)

	for _, query := range []string{
		"?page=x",
		"?since=yesterday",
		"?since=2024-03-02T00:00:00Z&until=2024-03-01T00:00:00Z",
	} {
		resp, _ := stack.do(t, http.MethodGet, "/api/v1/admin/activities"+query, "root", "admin", nil)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, query)
	}

	resp, _ := stack.do(t, http.MethodGet, "/api/v1/admin/activities", "alice", "teacher", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
