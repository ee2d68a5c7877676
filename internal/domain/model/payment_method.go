package model

import "time"

type PaymentMethodKind string

const (
	PaymentMethodCash           PaymentMethodKind = "CASH"
	PaymentMethodCard           PaymentMethodKind = "CARD"
	PaymentMethodTransfer       PaymentMethodKind = "TRANSFER"
	PaymentMethodCashOnDelivery PaymentMethodKind = "CASH_ON_DELIVERY"
)

// 支払い方法
type PaymentMethod struct {
	ID   int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string            `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name string            `gorm:"type:varchar(255);not null" json:"name"`
	Kind PaymentMethodKind `gorm:"type:varchar(30);not null" json:"kind"`

	//POSでその場で決済が確定するか（現金など）
	SettlesImmediately bool `gorm:"not null;default:false" json:"settles_immediately"`

	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
