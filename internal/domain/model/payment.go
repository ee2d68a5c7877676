package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// 支払い（注文ごとに1件。金額は注文合計と一致）
type Payment struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID         string          `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	PaymentMethodID int64           `gorm:"not null" json:"payment_method_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status          PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`

	//外部決済の参照（中身は見ない）
	ProviderRef string `gorm:"type:varchar(255)" json:"provider_ref"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
