package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusAccepted   OrderStatus = "ACCEPTED"
	OrderStatusPreparing  OrderStatus = "PREPARING"
	OrderStatusDelivering OrderStatus = "DELIVERING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusRejected   OrderStatus = "REJECTED"
)

// 終端ステータスはこれ以上変更できない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled || s == OrderStatusRejected
}

type OrderType string

const (
	OrderTypeDelivery OrderType = "DELIVERY"
	OrderTypeTakeout  OrderType = "TAKEOUT"
)

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "CASH"    // 現地現金払い
	PaymentMethodCard    PaymentMethod = "CARD"    // 現地カード払い
	PaymentMethodPrepaid PaymentMethod = "PREPAID" // 事前決済
)

type Order struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo string `gorm:"type:varchar(20);not null;uniqueIndex" json:"order_no"`
	UserID  *int64 `gorm:"index" json:"user_id"` // ゲスト注文はnull

	CustomerName string `gorm:"type:varchar(100);not null" json:"customer_name"`
	Phone        string `gorm:"type:varchar(20);not null;index" json:"phone"`
	Address      string `gorm:"type:varchar(255)" json:"address"`

	OrderType     OrderType     `gorm:"type:varchar(20);not null" json:"order_type"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`

	ItemsTotal     int64  `gorm:"not null" json:"items_total"`
	DeliveryFee    int64  `gorm:"not null;default:0" json:"delivery_fee"`
	UsedPoints     int64  `gorm:"not null;default:0" json:"used_points"`
	CouponID       *int64 `gorm:"index" json:"coupon_id"`
	CouponDiscount int64  `gorm:"not null;default:0" json:"coupon_discount"`
	FinalAmount    int64  `gorm:"not null" json:"final_amount"`
	EarnedPoints   int64  `gorm:"not null;default:0" json:"earned_points"`

	EstimatedMinutes int    `gorm:"not null;default:0" json:"estimated_minutes"`
	RiderID          *int64 `json:"rider_id"`
	CancelReason     string `gorm:"type:varchar(255)" json:"cancel_reason"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
