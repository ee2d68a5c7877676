package model

import "time"

// セッション開閉、注文ステータス更新など。
type AuditAction string

const (
	//在庫を調整した操作。
	AuditActionAdjustStock AuditAction = "ADJUST_STOCK"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//支払いを確定/失敗にした操作。
	AuditActionSettlePayment AuditAction = "SETTLE_PAYMENT"
	//レジを開けた/閉めた操作。
	AuditActionOpenSession  AuditAction = "OPEN_POS_SESSION"
	AuditActionCloseSession AuditAction = "CLOSE_POS_SESSION"
	//過不足を記録した操作。
	AuditActionRecordDiscrepancy AuditAction = "RECORD_DISCREPANCY"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceProduct    AuditResourceType = "product"
	AuditResourceOrder      AuditResourceType = "order"
	AuditResourcePayment    AuditResourceType = "payment"
	AuditResourcePosSession AuditResourceType = "pos_session"
)

// 監査ログ（操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（従業員/管理者）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	//対象のID（uuid/数値どちらも文字列で持つ）。
	ResourceID string `gorm:"type:varchar(64);not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
