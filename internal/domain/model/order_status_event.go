package model

import "time"

// 注文ステータスの履歴（追記のみ）
type OrderStatusEvent struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID string `gorm:"type:uuid;not null;index" json:"order_id"`

	//初回イベントは空
	FromStatus OrderStatus `gorm:"type:varchar(20)" json:"from_status"`
	ToStatus   OrderStatus `gorm:"type:varchar(20);not null" json:"to_status"`

	Reason    string    `gorm:"type:varchar(255);not null" json:"reason"`
	ActorID   *int64    `json:"actor_id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
