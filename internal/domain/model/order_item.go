package model

import "time"

type OrderItem struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64 `gorm:"not null;index" json:"order_id"`
	MenuItemID int64 `gorm:"not null;index" json:"menu_item_id"`

	// 注文時点のスナップショット（メニュー変更の影響を受けない）
	NameSnapshot      string `gorm:"type:varchar(255);not null" json:"name_snapshot"`
	UnitPriceSnapshot int64  `gorm:"not null" json:"unit_price_snapshot"`
	OptionsPrice      int64  `gorm:"not null;default:0" json:"options_price"`
	OptionsJSON       string `gorm:"type:text" json:"options_json"`

	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 明細1行の金額
func (i OrderItem) LineTotal() int64 {
	return (i.UnitPriceSnapshot + i.OptionsPrice) * i.Quantity
}
