package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// レジのセッション。閉じるとき以外は更新しない、削除もしない
type PosSession struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	//closed_at IS NULL の行は従業員ごとに1つだけ
	EmployeeID int64 `gorm:"not null;index;uniqueIndex:ux_pos_sessions_open_employee,where:closed_at IS NULL" json:"employee_id"`

	OpenedAt      time.Time        `gorm:"not null" json:"opened_at"`
	ClosedAt      *time.Time       `json:"closed_at"`
	OpeningAmount decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"opening_amount"`
	ClosingAmount *decimal.Decimal `gorm:"type:decimal(12,2)" json:"closing_amount"`
}

func (s PosSession) IsOpen() bool {
	return s.ClosedAt == nil
}

// 現金の過不足（正=過剰、負=不足）。追記のみ
type PosDiscrepancy struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  string          `gorm:"type:uuid;not null;index" json:"session_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reason     string          `gorm:"type:varchar(255);not null" json:"reason"`
	RecordedBy int64           `gorm:"not null" json:"recorded_by"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
}
