package handler

import (
	"net/http"
	"strconv"
	"time"

	"ordercore/internal/config"
	"ordercore/internal/middleware"
	"ordercore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 監査ログと補償キューの参照、手動スイープ
type AdminOpsHandler struct {
	audit        *usecase.AuditLogUsecase
	compensation *usecase.CompensationUsecase
}

func NewAdminOpsHandler(audit *usecase.AuditLogUsecase, compensation *usecase.CompensationUsecase) *AdminOpsHandler {
	return &AdminOpsHandler{audit: audit, compensation: compensation}
}

func (h *AdminOpsHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))

	admin.GET("/audit-logs", h.listAuditLogs)
	admin.GET("/compensation-failures", h.listCompensationFailures)
	admin.POST("/compensation-failures/sweep", h.sweep)
}

// GET /admin/audit-logs?actor_user_id=&action=&resource_type=&resource_id=&from=&to=&limit=&offset=
func (h *AdminOpsHandler) listAuditLogs(c echo.Context) error {
	q := usecase.AuditLogQuery{
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   c.QueryParam("resource_id"),
	}

	var err error
	if q.ActorUserID, err = queryInt64(c, "actor_user_id"); err != nil {
		return badRequest(c, "invalid actor_user_id")
	}
	limit, err := queryInt64(c, "limit")
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	offset, err := queryInt64(c, "offset")
	if err != nil {
		return badRequest(c, "invalid offset")
	}
	q.Limit, q.Offset = int(limit), int(offset)

	if q.From, err = queryTime(c, "from"); err != nil {
		return badRequest(c, "invalid from")
	}
	if q.To, err = queryTime(c, "to"); err != nil {
		return badRequest(c, "invalid to")
	}

	logs, err := h.audit.List(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": logs})
}

func (h *AdminOpsHandler) listCompensationFailures(c echo.Context) error {
	limit, err := queryInt64(c, "limit")
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	items, err := h.compensation.ListPending(c.Request().Context(), int(limit))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// スケジューラを待たずに1回流す
func (h *AdminOpsHandler) sweep(c echo.Context) error {
	res, err := h.compensation.Sweep(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// 空なら0
func queryInt64(c echo.Context, key string) (int64, error) {
	s := c.QueryParam(key)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// RFC3339。空ならnil
func queryTime(c echo.Context, key string) (*time.Time, error) {
	s := c.QueryParam(key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
