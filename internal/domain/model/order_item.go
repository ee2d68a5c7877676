package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。商品名・SKU・単価は販売時点のスナップショット
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             string          `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID           int64           `gorm:"not null;index" json:"product_id"`
	SKUSnapshot         string          `gorm:"column:sku_snapshot;type:varchar(64);not null" json:"sku_snapshot"`
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price_snapshot"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	LineSubtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_subtotal"`
	LineDiscount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_discount"`
	LineTotal           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
}
