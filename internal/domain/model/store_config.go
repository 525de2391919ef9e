package model

import (
	"encoding/json"
	"time"
)

// 店舗設定は1行だけ（ID=1）。営業時間まわりと注文ポリシーを持つ。
type StoreConfig struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	BusinessHoursJSON string `gorm:"type:text" json:"business_hours_json"` // 曜日→open/close
	ClosedDaysJSON    string `gorm:"type:text" json:"closed_days_json"`    // 定休日（time.Weekdayの数値）
	BreakStart        string `gorm:"type:varchar(5)" json:"break_start"`   // "15:00"（空なら休憩なし）
	BreakEnd          string `gorm:"type:varchar(5)" json:"break_end"`
	TemporaryClosed   bool   `gorm:"not null;default:false" json:"temporary_closed"`
	IsBusy            bool   `gorm:"not null;default:false" json:"is_busy"`

	MinOrderAmount       int64 `gorm:"not null;default:0" json:"min_order_amount"`
	CouponMinOrderAmount int64 `gorm:"not null;default:0" json:"coupon_min_order_amount"` // クーポン利用時の下限
	DeliveryFee          int64 `gorm:"not null;default:0" json:"delivery_fee"`
	PointRatePercent     int64 `gorm:"not null;default:10" json:"point_rate_percent"`

	UpdatedAt time.Time `json:"updated_at"`
}

type DayHours struct {
	Open  string `json:"open"`  // "11:00"
	Close string `json:"close"` // "21:30"
}

// 曜日キーはtime.Weekdayの数値文字列（"0"=Sunday）
func (c StoreConfig) BusinessHours() (map[string]DayHours, error) {
	if c.BusinessHoursJSON == "" {
		return nil, nil
	}
	var hours map[string]DayHours
	if err := json.Unmarshal([]byte(c.BusinessHoursJSON), &hours); err != nil {
		return nil, err
	}
	return hours, nil
}

func (c StoreConfig) ClosedDays() ([]int, error) {
	if c.ClosedDaysJSON == "" {
		return nil, nil
	}
	var days []int
	if err := json.Unmarshal([]byte(c.ClosedDaysJSON), &days); err != nil {
		return nil, err
	}
	return days, nil
}
