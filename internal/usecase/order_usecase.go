package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/realtime"
	repo "app/internal/repository"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// POSソケットへの配信。hubが実装する。
type Broadcaster interface {
	Broadcast(event string, data any)
}

// 営業時間ゲートと店舗ポリシー。catalog.Storeが実装する。
type CatalogGate interface {
	IsOpen(ctx context.Context, now time.Time) (bool, string, error)
	Snapshot(ctx context.Context) (model.StoreConfig, error)
}

// 事前決済の取り消し（ベストエフォート）。payment.Clientが実装する。
type PaymentGateway interface {
	Enabled() bool
	CancelAsync(orderNo string, amount int64)
}

type OrderUsecase struct {
	tx      repo.TransactionManager
	menu    repo.MenuItemRepository
	catalog CatalogGate
	events  Broadcaster
}

func NewOrderUsecase(tx repo.TransactionManager, menu repo.MenuItemRepository, catalog CatalogGate, events Broadcaster) *OrderUsecase {
	return &OrderUsecase{tx: tx, menu: menu, catalog: catalog, events: events}
}

type PlaceOrderItemInput struct {
	MenuItemID int64    `json:"menu_item_id"`
	Quantity   int64    `json:"quantity"`
	Options    []string `json:"options"` // メニュー側で定義されたオプション名
}

type PlaceOrderInput struct {
	UserID        *int64
	CustomerName  string
	Phone         string
	Address       string
	Items         []PlaceOrderItemInput
	UsedPoints    int64
	CouponCode    string
	PaymentMethod string
	OrderType     string

	// スタッフ/開発モードの注文は営業時間ゲートを免除する（ゲートは顧客向けの助言的チェック）
	StaffOrder bool
}

type OrderItemOutput struct {
	MenuItemID int64              `json:"menu_item_id"`
	Name       string             `json:"name"`
	UnitPrice  int64              `json:"unit_price"`
	Options    []model.MenuOption `json:"options"`
	Quantity   int64              `json:"quantity"`
	LineTotal  int64              `json:"line_total"`
}

type OrderOutput struct {
	OrderNo       string            `json:"order_no"`
	UserID        *int64            `json:"user_id"`
	CustomerName  string            `json:"customer_name"`
	Phone         string            `json:"phone"`
	Address       string            `json:"address"`
	OrderType     string            `json:"order_type"`
	PaymentMethod string            `json:"payment_method"`
	Status        string            `json:"status"`
	Items         []OrderItemOutput `json:"items"`

	ItemsTotal     int64 `json:"items_total"`
	DeliveryFee    int64 `json:"delivery_fee"`
	UsedPoints     int64 `json:"used_points"`
	CouponDiscount int64 `json:"coupon_discount"`
	FinalAmount    int64 `json:"final_amount"`
	EarnedPoints   int64 `json:"earned_points"`

	EstimatedMinutes int       `json:"estimated_minutes"`
	RiderID          *int64    `json:"rider_id"`
	CancelReason     string    `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// PlaceOrderは検証→台帳トランザクション→配信の順で1注文を受け付ける。
// 台帳の変更（ポイント・クーポン・採番・注文行）は1つのTxにまとめ、途中失敗は全部戻す。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, in PlaceOrderInput) (OrderOutput, error) {
	// --- ここから下のバリデーションは無変更（ロールバック不要） ---
	if strings.TrimSpace(in.CustomerName) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "customer name required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "phone required")
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "empty items")
	}

	orderType := model.OrderType(strings.ToUpper(strings.TrimSpace(in.OrderType)))
	if orderType != model.OrderTypeDelivery && orderType != model.OrderTypeTakeout {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order type")
	}
	if orderType == model.OrderTypeDelivery && strings.TrimSpace(in.Address) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "address required")
	}

	payMethod := model.PaymentMethod(strings.ToUpper(strings.TrimSpace(in.PaymentMethod)))
	switch payMethod {
	case model.PaymentMethodCash, model.PaymentMethodCard, model.PaymentMethodPrepaid:
	default:
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment method")
	}

	if in.UsedPoints < 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid used points")
	}
	if in.UsedPoints > 0 && in.UserID == nil {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "guest cannot use points")
	}
	if in.CouponCode != "" && in.UserID == nil {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "guest cannot use coupon")
	}

	if !in.StaffOrder {
		open, reason, err := u.catalog.IsOpen(ctx, time.Now())
		if err != nil {
			return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !open {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "out of business hours: "+reason)
		}
	}

	cfg, err := u.catalog.Snapshot(ctx)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 金額はサーバー側で再計算する（クライアント申告の価格は信用しない）
	items, itemsTotal, err := buildOrderItems(ctx, u.menu, in.Items)
	if err != nil {
		return OrderOutput{}, err
	}

	minAmount := cfg.MinOrderAmount
	if in.CouponCode != "" && cfg.CouponMinOrderAmount > minAmount {
		minAmount = cfg.CouponMinOrderAmount
	}
	if itemsTotal < minAmount {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "below minimum order amount")
	}

	var deliveryFee int64
	if orderType == model.OrderTypeDelivery {
		deliveryFee = cfg.DeliveryFee
	}

	// --- ここから台帳トランザクション ---
	var out OrderOutput

	place := func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			orderNo, err := r.Orders().NextOrderNo(ctx)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			if in.UsedPoints > 0 {
				if err := r.Points().Reserve(ctx, *in.UserID, in.UsedPoints, orderNo); err != nil {
					if errors.Is(err, repo.ErrInsufficientPoints) {
						return NewHTTPError(http.StatusBadRequest, "insufficient points")
					}
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}

			var couponID *int64
			var couponDiscount int64
			if in.CouponCode != "" {
				cp, discount, err := validateCoupon(ctx, r.Coupons(), in.CouponCode, *in.UserID, itemsTotal, time.Now())
				if err != nil {
					return err
				}
				if err := r.Coupons().Redeem(ctx, cp.ID, *in.UserID, orderNo); err != nil {
					if errors.Is(err, repo.ErrCouponAlreadyUsed) {
						return NewHTTPError(http.StatusConflict, "coupon already used")
					}
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				couponID = &cp.ID
				couponDiscount = discount
			}

			finalAmount := itemsTotal - in.UsedPoints - couponDiscount + deliveryFee
			if finalAmount < 0 {
				return NewHTTPError(http.StatusBadRequest, "discount exceeds order total")
			}

			var earned int64
			if in.UserID != nil {
				earned = (itemsTotal - in.UsedPoints - couponDiscount) * cfg.PointRatePercent / 100
				if earned < 0 {
					earned = 0
				}
			}

			o := model.Order{
				OrderNo:        orderNo,
				UserID:         in.UserID,
				CustomerName:   strings.TrimSpace(in.CustomerName),
				Phone:          strings.TrimSpace(in.Phone),
				Address:        strings.TrimSpace(in.Address),
				OrderType:      orderType,
				PaymentMethod:  payMethod,
				Status:         model.OrderStatusPending,
				ItemsTotal:     itemsTotal,
				DeliveryFee:    deliveryFee,
				UsedPoints:     in.UsedPoints,
				CouponID:       couponID,
				CouponDiscount: couponDiscount,
				FinalAmount:    finalAmount,
				EarnedPoints:   earned,
				CreatedAt:      time.Now(),
			}

			orderID, err := r.Orders().Create(ctx, o)
			if err != nil {
				if errors.Is(err, repo.ErrConflict) {
					// 採番の同時実行負け。Txごと巻き戻して取り直す。
					return err
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			o.ID = orderID
			out = toOrderOutput(o, items)
			return nil
		})
	}

	err = place()
	if errors.Is(err, repo.ErrConflict) {
		// 新しい番号で1回だけやり直す
		err = place()
		if errors.Is(err, repo.ErrConflict) {
			return OrderOutput{}, NewHTTPError(http.StatusConflict, "order number conflict")
		}
	}
	if err != nil {
		return OrderOutput{}, err
	}

	// 配信はコミット後。Broadcastは詰まったソケットを待たない。
	u.events.Broadcast(realtime.EventNewOrder, out)

	return out, nil
}

type EditOrderInput struct {
	CustomerName *string
	Phone        *string
	Address      *string
	Items        []PlaceOrderItemInput // nilなら明細は変更しない
}

// EditOrderはPENDINGの間だけ許す受諾前編集。台帳（ポイント・クーポン）は触らない。
func (u *OrderUsecase) EditOrder(ctx context.Context, orderNo string, in EditOrderInput) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByOrderNo(ctx, orderNo)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusBadRequest, "order not editable")
		}

		if in.CustomerName != nil {
			o.CustomerName = strings.TrimSpace(*in.CustomerName)
		}
		if in.Phone != nil {
			o.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Address != nil {
			o.Address = strings.TrimSpace(*in.Address)
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if in.Items != nil {
			if len(in.Items) == 0 {
				return NewHTTPError(http.StatusBadRequest, "empty items")
			}

			newItems, itemsTotal, err := buildOrderItems(ctx, r.Menu(), in.Items)
			if err != nil {
				return err
			}

			finalAmount := itemsTotal - o.UsedPoints - o.CouponDiscount + o.DeliveryFee
			if finalAmount < 0 {
				return NewHTTPError(http.StatusBadRequest, "discount exceeds order total")
			}

			if err := r.OrderItems().DeleteByOrderID(ctx, o.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.OrderItems().CreateBulk(ctx, o.ID, newItems); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			o.ItemsTotal = itemsTotal
			o.FinalAmount = finalAmount
			if o.UserID != nil {
				cfg, err := u.catalog.Snapshot(ctx)
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				earned := (itemsTotal - o.UsedPoints - o.CouponDiscount) * cfg.PointRatePercent / 100
				if earned < 0 {
					earned = 0
				}
				o.EarnedPoints = earned
			}
			items = newItems
		}

		if err := r.Orders().Update(ctx, o); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetOrder(ctx context.Context, orderNo string) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByOrderNo(ctx, orderNo)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListOrders(ctx context.Context, f repo.OrderListFilter) ([]OrderOutput, error) {
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs, err = withItems(ctx, r, orders)
		return err
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) ListByUser(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs, err = withItems(ctx, r, orders)
		return err
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) ListByPhone(ctx context.Context, phone string) ([]OrderOutput, error) {
	if strings.TrimSpace(phone) == "" {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid phone")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByPhone(ctx, phone, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs, err = withItems(ctx, r, orders)
		return err
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ---- helpers ----

// メニュー価格とオプション加算からスナップショット明細を組み立てる
func buildOrderItems(ctx context.Context, menu repo.MenuItemRepository, inputs []PlaceOrderItemInput) ([]model.OrderItem, int64, error) {
	ids := make([]int64, 0, len(inputs))
	for _, it := range inputs {
		if it.Quantity <= 0 {
			return nil, 0, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
		ids = append(ids, it.MenuItemID)
	}

	byID, err := menu.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]model.OrderItem, 0, len(inputs))
	var total int64

	for _, in := range inputs {
		m, ok := byID[in.MenuItemID]
		if !ok || !m.IsActive {
			return nil, 0, NewHTTPError(http.StatusBadRequest, "menu item unavailable")
		}
		if m.IsSoldOut {
			return nil, 0, NewHTTPError(http.StatusBadRequest, "menu item unavailable")
		}

		available, err := m.Options()
		if err != nil {
			return nil, 0, NewHTTPError(http.StatusInternalServerError, "invalid menu options")
		}

		var optionsPrice int64
		selected := make([]model.MenuOption, 0, len(in.Options))
		for _, name := range in.Options {
			opt, ok := findOption(available, name)
			if !ok {
				return nil, 0, NewHTTPError(http.StatusBadRequest, "invalid option: "+name)
			}
			optionsPrice += opt.Price
			selected = append(selected, opt)
		}

		optionsJSON := ""
		if len(selected) > 0 {
			b, err := json.Marshal(selected)
			if err != nil {
				return nil, 0, NewHTTPError(http.StatusInternalServerError, "invalid menu options")
			}
			optionsJSON = string(b)
		}

		item := model.OrderItem{
			MenuItemID:        m.ID,
			NameSnapshot:      m.Name,
			UnitPriceSnapshot: m.Price,
			OptionsPrice:      optionsPrice,
			OptionsJSON:       optionsJSON,
			Quantity:          in.Quantity,
		}
		items = append(items, item)
		total += item.LineTotal()
	}

	return items, total, nil
}

func findOption(opts []model.MenuOption, name string) (model.MenuOption, bool) {
	for _, o := range opts {
		if o.Name == name {
			return o, true
		}
	}
	return model.MenuOption{}, false
}

func withItems(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		var opts []model.MenuOption
		if it.OptionsJSON != "" {
			_ = json.Unmarshal([]byte(it.OptionsJSON), &opts)
		}
		outItems = append(outItems, OrderItemOutput{
			MenuItemID: it.MenuItemID,
			Name:       it.NameSnapshot,
			UnitPrice:  it.UnitPriceSnapshot,
			Options:    opts,
			Quantity:   it.Quantity,
			LineTotal:  it.LineTotal(),
		})
	}

	return OrderOutput{
		OrderNo:       o.OrderNo,
		UserID:        o.UserID,
		CustomerName:  o.CustomerName,
		Phone:         o.Phone,
		Address:       o.Address,
		OrderType:     string(o.OrderType),
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		Items:         outItems,

		ItemsTotal:     o.ItemsTotal,
		DeliveryFee:    o.DeliveryFee,
		UsedPoints:     o.UsedPoints,
		CouponDiscount: o.CouponDiscount,
		FinalAmount:    o.FinalAmount,
		EarnedPoints:   o.EarnedPoints,

		EstimatedMinutes: o.EstimatedMinutes,
		RiderID:          o.RiderID,
		CancelReason:     o.CancelReason,
		CreatedAt:        o.CreatedAt,
	}
}
