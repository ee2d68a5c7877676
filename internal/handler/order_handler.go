package handler

import (
	"net/http"
	"strings"

	"ordercore/internal/config"
	"ordercore/internal/domain/model"
	"ordercore/internal/middleware"
	"ordercore/internal/usecase"

	"github.com/labstack/echo/v4"
)

const idempotencyHeader = "X-Idempotency-Key"

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type OrderCreateRequest struct {
	Items           []OrderItemRequest    `json:"items"`
	CouponCode      string                `json:"coupon_code"`
	PaymentMethodID int64                 `json:"payment_method_id"`
	Customer        usecase.CustomerInput `json:"customer"`
	Shipping        usecase.AddressInput  `json:"shipping"`
}

type OrderPreviewRequest struct {
	Items      []OrderItemRequest `json:"items"`
	CouponCode string             `json:"coupon_code"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	//ストアフロント（ログイン不要）
	e.POST("/orders", h.create)
	e.POST("/orders/preview", h.preview)

	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.GET("/:id", h.detail)

	pos := e.Group("/pos/orders")
	pos.Use(middleware.AuthJWT(cfg))
	pos.Use(middleware.RequireRole(middleware.RoleEmployee, middleware.RoleAdmin))
	pos.POST("", h.createPOS)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), toPlaceOrderInput(c, req, model.OrderSourceEcommerce, 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) createPOS(c echo.Context) error {
	employeeID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), toPlaceOrderInput(c, req, model.OrderSourcePOS, employeeID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) preview(c echo.Context) error {
	var req OrderPreviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Preview(c.Request().Context(), usecase.PreviewInput{
		Items:      toCartLines(req.Items),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func toPlaceOrderInput(c echo.Context, req OrderCreateRequest, source model.OrderSource, employeeID int64) usecase.PlaceOrderInput {
	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	return usecase.PlaceOrderInput{
		Source:          source,
		Items:           toCartLines(req.Items),
		CouponCode:      req.CouponCode,
		PaymentMethodID: req.PaymentMethodID,
		Customer:        req.Customer,
		Shipping:        req.Shipping,
		EmployeeID:      employeeID,
		IdempotencyKey:  c.Request().Header.Get(idempotencyHeader),
	}
}

func toCartLines(items []OrderItemRequest) []usecase.CartLine {
	lines := make([]usecase.CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, usecase.CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}
