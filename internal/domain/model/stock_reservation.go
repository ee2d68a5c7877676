package model

import "time"

type ReservationStatus string

const (
	//在庫を減らしたが、まだ注文に紐づいていない
	ReservationStatusHeld     ReservationStatus = "HELD"
	ReservationStatusConsumed ReservationStatus = "CONSUMED"
	ReservationStatusReleased ReservationStatus = "RELEASED"
)

// 在庫引当。release を冪等にするために状態を保存する
type StockReservation struct {
	ID         string            `gorm:"type:uuid;primaryKey" json:"id"`
	Status     ReservationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	OrderID    *string           `gorm:"type:uuid;index" json:"order_id"`
	ReleasedAt *time.Time        `json:"released_at"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null" json:"updated_at"`

	Lines []StockReservationLine `gorm:"foreignKey:ReservationID" json:"lines"`
}

type StockReservationLine struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID string `gorm:"type:uuid;not null;index" json:"reservation_id"`
	ProductID     int64  `gorm:"not null" json:"product_id"`
	Quantity      int64  `gorm:"not null" json:"quantity"`
}
