package model

import (
	"encoding/json"
	"time"
)

// メニューのCRUDは管理画面側の責務。コアは価格と売り切れの参照のみ。
type MenuItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Price       int64     `gorm:"not null" json:"price"`
	IsSoldOut   bool      `gorm:"not null;default:false" json:"is_sold_out"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	OptionsJSON string    `gorm:"type:text" json:"options_json"` // MenuOptionの配列
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MenuOption struct {
	Name  string `json:"name"`
	Price int64  `json:"price"` // 加算額
}

func (m MenuItem) Options() ([]MenuOption, error) {
	if m.OptionsJSON == "" {
		return nil, nil
	}
	var opts []MenuOption
	if err := json.Unmarshal([]byte(m.OptionsJSON), &opts); err != nil {
		return nil, err
	}
	return opts, nil
}
