package model

import "time"

// 在庫戻しに失敗した引当（オペレーター確認用キュー）
type CompensationFailure struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID  string     `gorm:"type:uuid;not null;index" json:"reservation_id"`
	OrderAttemptID string     `gorm:"type:uuid;not null" json:"order_attempt_id"`
	LastError      string     `gorm:"type:text;not null" json:"last_error"`
	Attempts       int        `gorm:"not null;default:1" json:"attempts"`
	ResolvedAt     *time.Time `gorm:"index" json:"resolved_at"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}
