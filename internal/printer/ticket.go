package printer

import (
	"fmt"
	"strings"
	"time"
)

// 厨房伝票。注文パイプラインから切り離した非正規化データだけを持つ。
type Ticket struct {
	OrderNo       string       `json:"order_no"`
	CustomerName  string       `json:"customer_name"`
	Phone         string       `json:"phone"`
	Address       string       `json:"address"`
	OrderType     string       `json:"order_type"`
	PaymentMethod string       `json:"payment_method"`
	Items         []TicketItem `json:"items"`

	ItemsTotal     int64 `json:"items_total"`
	DeliveryFee    int64 `json:"delivery_fee"`
	UsedPoints     int64 `json:"used_points"`
	CouponDiscount int64 `json:"coupon_discount"`
	FinalAmount    int64 `json:"final_amount"`

	OrderedAt time.Time `json:"ordered_at"`
}

type TicketItem struct {
	Name      string   `json:"name"`
	Quantity  int64    `json:"quantity"`
	LineTotal int64    `json:"line_total"`
	Options   []string `json:"options"`
}

// ローカルスプール/ログ用のプレーンテキスト表現
func (t Ticket) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== ORDER #%s ===\n", t.OrderNo)
	fmt.Fprintf(&b, "%s  %s\n", t.OrderType, t.OrderedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "%s  %s\n", t.CustomerName, t.Phone)
	if t.Address != "" {
		fmt.Fprintf(&b, "%s\n", t.Address)
	}
	b.WriteString("----------------\n")

	for _, it := range t.Items {
		fmt.Fprintf(&b, "%s x%d  %d\n", it.Name, it.Quantity, it.LineTotal)
		for _, opt := range it.Options {
			fmt.Fprintf(&b, "  + %s\n", opt)
		}
	}

	b.WriteString("----------------\n")
	fmt.Fprintf(&b, "items    %d\n", t.ItemsTotal)
	if t.DeliveryFee > 0 {
		fmt.Fprintf(&b, "delivery %d\n", t.DeliveryFee)
	}
	if t.UsedPoints > 0 {
		fmt.Fprintf(&b, "points   -%d\n", t.UsedPoints)
	}
	if t.CouponDiscount > 0 {
		fmt.Fprintf(&b, "coupon   -%d\n", t.CouponDiscount)
	}
	fmt.Fprintf(&b, "TOTAL    %d (%s)\n", t.FinalAmount, t.PaymentMethod)

	return b.String()
}
