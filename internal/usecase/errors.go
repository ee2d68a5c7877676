package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HandlerがそのままJSONにするエラー
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    defaultCode(status),
		Message: message,
	}
}

// codeと原因つき
func newCodedError(status int, code, message string, details any, cause error) *HTTPError {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
		Err:     cause,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func defaultCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusUnprocessableEntity:
		return "UNPROCESSABLE"
	default:
		return "INTERNAL"
	}
}

type PricingErrorCode string

const (
	PricingEmptyCart             PricingErrorCode = "EMPTY_CART"
	PricingInvalidQuantity       PricingErrorCode = "INVALID_QUANTITY"
	PricingProductUnavailable    PricingErrorCode = "PRODUCT_UNAVAILABLE"
	PricingCouponNotFound        PricingErrorCode = "COUPON_NOT_FOUND"
	PricingCouponExpired         PricingErrorCode = "COUPON_EXPIRED"
	PricingCouponInactive        PricingErrorCode = "COUPON_INACTIVE"
	PricingCouponThresholdNotMet PricingErrorCode = "COUPON_THRESHOLD_NOT_MET"
)

// 価格計算の失敗。商品に関するものはProductIDが入る
type PricingError struct {
	Code      PricingErrorCode
	ProductID int64
}

func (e *PricingError) Error() string {
	if e.ProductID > 0 {
		return fmt.Sprintf("pricing: %s (product %d)", e.Code, e.ProductID)
	}
	return "pricing: " + string(e.Code)
}

func (e *PricingError) IsCouponError() bool {
	return strings.HasPrefix(string(e.Code), "COUPON_")
}

// 在庫不足1行分
type InsufficientStockError struct {
	ProductID int64 `json:"product_id"`
	Requested int64 `json:"requested"`
	Available int64 `json:"available"`
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// 引当で足りなかった行すべて
type StockConflictError struct {
	Lines []InsufficientStockError
}

func (e *StockConflictError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, l.Error())
	}
	return strings.Join(parts, "; ")
}

var (
	ErrSessionAlreadyOpen  = errors.New("pos session already open")
	ErrNoOpenSession       = errors.New("no open pos session")
	ErrReservationNotHeld  = errors.New("reservation is not held")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// 価格計算エラーをHTTPへ（カートの形が悪いものは400、それ以外は422）
func pricingHTTPError(pe *PricingError) error {
	status := http.StatusUnprocessableEntity
	if pe.Code == PricingEmptyCart || pe.Code == PricingInvalidQuantity {
		status = http.StatusBadRequest
	}
	var details any
	if pe.ProductID > 0 {
		details = map[string]int64{"product_id": pe.ProductID}
	}
	return newCodedError(status, string(pe.Code), pe.Error(), details, pe)
}

func stockHTTPError(se *StockConflictError) error {
	return newCodedError(http.StatusConflict, "INSUFFICIENT_STOCK", "insufficient stock", se.Lines, se)
}

// ドメインエラーをHTTPErrorへ。知らないものは500
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if he, ok := AsHTTPError(err); ok {
		return he
	}

	var pe *PricingError
	if errors.As(err, &pe) {
		return pricingHTTPError(pe)
	}
	var se *StockConflictError
	if errors.As(err, &se) {
		return stockHTTPError(se)
	}

	switch {
	case errors.Is(err, ErrSessionAlreadyOpen):
		return newCodedError(http.StatusConflict, "SESSION_ALREADY_OPEN", "pos session already open", nil, err)
	case errors.Is(err, ErrNoOpenSession):
		return newCodedError(http.StatusConflict, "NO_OPEN_SESSION", "no open pos session", nil, err)
	case errors.Is(err, ErrInvalidTransition):
		return newCodedError(http.StatusConflict, "INVALID_TRANSITION", "invalid status transition", nil, err)
	case errors.Is(err, ErrReservationNotHeld):
		return newCodedError(http.StatusConflict, "RESERVATION_NOT_HELD", "reservation expired", nil, err)
	}
	return newCodedError(http.StatusInternalServerError, "INTERNAL", "db error", nil, err)
}
