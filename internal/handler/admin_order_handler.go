package handler

import (
	"net/http"
	"strconv"
	"strings"

	"ordercore/internal/config"
	"ordercore/internal/middleware"
	"ordercore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	status    *usecase.OrderStatusUsecase
	inventory *usecase.InventoryUsecase
}

func NewAdminOrderHandler(status *usecase.OrderStatusUsecase, inventory *usecase.InventoryUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{status: status, inventory: inventory}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type PaymentSettleRequest struct {
	Outcome     string `json:"outcome"`
	ProviderRef string `json:"provider_ref"`
}

type StockAdjustmentRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))

	admin.PUT("/orders/:id/status", h.updateStatus)
	admin.POST("/orders/:id/payment", h.settlePayment)
	admin.POST("/products/:id/stock-adjustments", h.adjustStock)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID := strings.TrimSpace(c.Param("id"))
	if orderID == "" {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//操作した管理者ID（監査ログ用）
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.status.UpdateStatus(c.Request().Context(), adminID, orderID, usecase.UpdateOrderStatusInput{
		Status: req.Status,
		Reason: req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) settlePayment(c echo.Context) error {
	orderID := strings.TrimSpace(c.Param("id"))
	if orderID == "" {
		return badRequest(c, "invalid id")
	}

	var req PaymentSettleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.status.SettlePayment(c.Request().Context(), adminID, orderID, usecase.SettlePaymentInput{
		Outcome:     req.Outcome,
		ProviderRef: req.ProviderRef,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) adjustStock(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req StockAdjustmentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.inventory.AdjustStock(c.Request().Context(), adminID, productID, usecase.AdjustStockInput{
		Delta:  req.Delta,
		Reason: req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
