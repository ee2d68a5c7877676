package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusReturned  OrderStatus = "RETURNED"
)

// 許可される遷移だけを持つ
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusPreparing, OrderStatusReturned},
	OrderStatusPreparing: {OrderStatusShipped},
	OrderStatusShipped:   {OrderStatusDelivered},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	switch st {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusPreparing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return st, true
	}
	return "", false
}

// 終端状態からはどこへも遷移できない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusDelivered || s == OrderStatusReturned
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, to := range orderTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

type OrderSource string

const (
	OrderSourceEcommerce OrderSource = "ECOMMERCE"
	OrderSourcePOS       OrderSource = "POS"
)

// 注文時点の顧客情報
type CustomerSnapshot struct {
	Name      string `gorm:"type:varchar(255);not null" json:"name"`
	Email     string `gorm:"type:varchar(255)" json:"email"`
	Phone     string `gorm:"type:varchar(30)" json:"phone"`
	BillingID string `gorm:"type:varchar(50)" json:"billing_id"`
}

// 注文時点の配送先（後から住所を変えても注文は変わらない）
type AddressSnapshot struct {
	Line1        string `gorm:"type:varchar(255)" json:"line1"`
	Line2        string `gorm:"type:varchar(255)" json:"line2"`
	Municipality string `gorm:"type:varchar(255)" json:"municipality"`
	Department   string `gorm:"type:varchar(255)" json:"department"`
	PostalCode   string `gorm:"type:varchar(20)" json:"postal_code"`
	Reference    string `gorm:"type:varchar(255)" json:"reference"`
}

type Order struct {
	ID     string      `gorm:"type:uuid;primaryKey" json:"id"`
	Source OrderSource `gorm:"type:varchar(20);not null;index" json:"source"`
	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	Customer CustomerSnapshot `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	Shipping AddressSnapshot  `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`

	Subtotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Discount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	CouponCode *string         `gorm:"type:varchar(64)" json:"coupon_code"`

	PaymentMethodID int64 `gorm:"not null;index" json:"payment_method_id"`

	//POSのみ
	EmployeeID   *int64  `gorm:"index" json:"employee_id"`
	PosSessionID *string `gorm:"type:uuid;index" json:"pos_session_id"`

	ReservationID  string  `gorm:"type:uuid;not null;index" json:"reservation_id"`
	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
