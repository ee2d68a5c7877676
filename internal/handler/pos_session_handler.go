package handler

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"ordercore/internal/config"
	"ordercore/internal/middleware"
	"ordercore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /pos/sessions（レジの開け閉めと過不足）
type PosSessionHandler struct {
	sessions *usecase.PosSessionUsecase
	recon    *usecase.ReconciliationUsecase
}

func NewPosSessionHandler(sessions *usecase.PosSessionUsecase, recon *usecase.ReconciliationUsecase) *PosSessionHandler {
	return &PosSessionHandler{sessions: sessions, recon: recon}
}

// 金額は数値でも文字列でも受け取れる（"500.00"）
type OpenSessionRequest struct {
	OpeningAmount *decimal.Decimal `json:"opening_amount"`
}

type CloseSessionRequest struct {
	ClosingAmount *decimal.Decimal `json:"closing_amount"`
}

type DiscrepancyRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason"`
}

func (h *PosSessionHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/pos/sessions")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.RequireRole(middleware.RoleEmployee, middleware.RoleAdmin))

	g.POST("/open", h.open)
	g.POST("/close", h.close)
	g.GET("/current", h.current)
	g.GET("/:id", h.detail)
	g.POST("/:id/discrepancy", h.recordDiscrepancy)
	g.GET("/:id/reconciliation", h.reconciliation, middleware.RequireRole(middleware.RoleAdmin))
}

func (h *PosSessionHandler) open(c echo.Context) error {
	employeeID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req OpenSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.OpeningAmount == nil {
		return badRequest(c, "opening_amount required")
	}

	out, err := h.sessions.OpenSession(c.Request().Context(), employeeID, usecase.OpenSessionInput{
		OpeningAmount: *req.OpeningAmount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *PosSessionHandler) close(c echo.Context) error {
	employeeID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CloseSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ClosingAmount == nil {
		return badRequest(c, "closing_amount required")
	}

	out, err := h.sessions.CloseSession(c.Request().Context(), employeeID, usecase.CloseSessionInput{
		ClosingAmount: *req.ClosingAmount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PosSessionHandler) current(c echo.Context) error {
	employeeID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.sessions.GetCurrent(c.Request().Context(), employeeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PosSessionHandler) detail(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.sessions.GetSession(c.Request().Context(), actorID, isAdmin(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PosSessionHandler) recordDiscrepancy(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req DiscrepancyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Amount == nil {
		return badRequest(c, "amount required")
	}

	out, err := h.sessions.RecordDiscrepancy(
		c.Request().Context(),
		actorID,
		isAdmin(c),
		strings.TrimSpace(c.Param("id")),
		usecase.RecordDiscrepancyInput{Amount: *req.Amount, Reason: req.Reason},
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *PosSessionHandler) reconciliation(c echo.Context) error {
	out, err := h.recon.Reconcile(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
