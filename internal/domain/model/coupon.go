package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponTypePercentage CouponType = "PERCENTAGE"
	CouponTypeFixed      CouponType = "FIXED"
)

// クーポン（読み取り専用）
type Coupon struct {
	ID    int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code  string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Type  CouponType      `gorm:"type:varchar(20);not null" json:"type"`
	Value decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"value"`

	//最低小計（なければ条件なし）
	MinSubtotal *decimal.Decimal `gorm:"type:decimal(12,2)" json:"min_subtotal"`

	ExpiresAt *time.Time `json:"expires_at"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
