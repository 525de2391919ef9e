package model

import "time"

type PointReason string

const (
	PointReasonEarn   PointReason = "EARN"
	PointReasonUse    PointReason = "USE"
	PointReasonRefund PointReason = "REFUND"
	PointReasonAdmin  PointReason = "ADMIN"
)

// ポイント台帳。残高はこの履歴のdeltaの合計と常に一致する（追記のみ）。
type PointHistory struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64       `gorm:"not null;index" json:"user_id"`
	OrderNo   *string     `gorm:"type:varchar(20);index" json:"order_no"`
	Delta     int64       `gorm:"not null" json:"delta"` // 使用はマイナス
	Reason    PointReason `gorm:"type:varchar(20);not null" json:"reason"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
}
