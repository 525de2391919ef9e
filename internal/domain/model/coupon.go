package model

import "time"

type CouponType string

const (
	CouponTypeFixed   CouponType = "FIXED"
	CouponTypePercent CouponType = "PERCENT"
)

type Coupon struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name        string     `gorm:"type:varchar(100)" json:"name"`
	Type        CouponType `gorm:"type:varchar(20);not null" json:"type"`
	Value       int64      `gorm:"not null" json:"value"` // FIXED=金額 / PERCENT=割合
	MinAmount   int64      `gorm:"not null;default:0" json:"min_amount"`
	MaxDiscount *int64     `json:"max_discount"` // PERCENTの上限（nullなら無制限）
	ValidFrom   time.Time  `gorm:"not null" json:"valid_from"`
	ValidTo     time.Time  `gorm:"not null" json:"valid_to"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	IssuedCount int64      `gorm:"not null;default:0" json:"issued_count"`
	UsedCount   int64      `gorm:"not null;default:0" json:"used_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// 発行1件＝1行。order_noとused_atがnullなら「発行済み・未使用」。
// 使用時にその場でorder_no/used_atを埋める（1回だけ）。
type CouponUsage struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CouponID  int64      `gorm:"not null;index:idx_coupon_user" json:"coupon_id"`
	UserID    int64      `gorm:"not null;index:idx_coupon_user" json:"user_id"`
	OrderNo   *string    `gorm:"type:varchar(20);index" json:"order_no"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (u CouponUsage) IsRedeemed() bool {
	return u.OrderNo != nil
}
