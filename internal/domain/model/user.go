package model

import "time"

// 会員。認証は外部システム側なのでここはポイント残高の持ち主としてだけ扱う。
type User struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(100)" json:"name"`
	Phone         string    `gorm:"type:varchar(20);index" json:"phone"`
	PointsBalance int64     `gorm:"not null;default:0" json:"points_balance"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
