package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 商品（カタログ側が所有。コアは price を読み、stock だけを更新する）
type Product struct {
	ID    int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU   string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"sku"`
	Name  string          `gorm:"type:varchar(255);not null" json:"name"`
	Price decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`

	//在庫は条件付き減算でしか減らさない
	Stock int64 `gorm:"not null;check:chk_products_stock_non_negative,stock >= 0" json:"stock"`

	IsActive  bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
