package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/printer"
	"app/internal/realtime"
	repo "app/internal/repository"
)

// 厨房伝票の印刷。printer.Dispatcherが実装する。
type TicketPrinter interface {
	Print(ctx context.Context, t printer.Ticket) bool
}

// 注文ステータスの状態機械。遷移の判定・compare-and-swap・遷移ごとの副作用を持つ。
type FulfillmentUsecase struct {
	tx       repo.TransactionManager
	events   Broadcaster
	printer  TicketPrinter
	payments PaymentGateway
}

func NewFulfillmentUsecase(tx repo.TransactionManager, events Broadcaster, p TicketPrinter, payments PaymentGateway) *FulfillmentUsecase {
	return &FulfillmentUsecase{tx: tx, events: events, printer: p, payments: payments}
}

// 許可される遷移。ここに無い組はIllegalTransition。
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusAccepted, model.OrderStatusRejected, model.OrderStatusCanceled},
	model.OrderStatusAccepted:   {model.OrderStatusPreparing, model.OrderStatusCanceled},
	model.OrderStatusPreparing:  {model.OrderStatusDelivering, model.OrderStatusCanceled},
	model.OrderStatusDelivering: {model.OrderStatusCompleted, model.OrderStatusCanceled},
}

func transitionAllowed(from, to model.OrderStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

type UpdateStatusInput struct {
	Status           string
	EstimatedMinutes int
	RiderID          *int64
	Reason           string // CANCELED/REJECTEDのとき
}

// UpdateStatusは1遷移を実行して、確定した新ステータスを返す。
// 遷移は「現在のステータスからのCAS」なので、2台のPOSが同時に同じPENDINGを
// 受けても勝者は1台だけになる。
func (u *FulfillmentUsecase) UpdateStatus(ctx context.Context, orderNo string, in UpdateStatusInput) (model.OrderStatus, error) {
	target := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	switch target {
	case model.OrderStatusAccepted, model.OrderStatusPreparing, model.OrderStatusDelivering,
		model.OrderStatusCompleted, model.OrderStatusCanceled, model.OrderStatusRejected:
	default:
		return "", NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		order     model.Order
		items     []model.OrderItem
		effective model.OrderStatus
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByOrderNo(ctx, orderNo)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status.IsTerminal() {
			return NewHTTPError(http.StatusBadRequest, "order already terminal")
		}
		if !transitionAllowed(o.Status, target) {
			return NewHTTPError(http.StatusBadRequest, "illegal transition")
		}

		// 現金払いは玄関先で精算するので、配達開始＝実質完了として先に進める
		effective = target
		if target == model.OrderStatusDelivering && o.PaymentMethod == model.PaymentMethodCash {
			effective = model.OrderStatusCompleted
		}

		if err := r.Orders().UpdateStatusIf(ctx, o.OrderNo, o.Status, effective); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				// 同時遷移の負け（例：別POSが先に受諾した）
				return NewHTTPError(http.StatusConflict, "illegal transition")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		switch effective {
		case model.OrderStatusAccepted:
			if in.EstimatedMinutes > 0 {
				if err := r.Orders().SetEstimatedMinutes(ctx, o.OrderNo, in.EstimatedMinutes); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				o.EstimatedMinutes = in.EstimatedMinutes
			}
			items, err = r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

		case model.OrderStatusPreparing, model.OrderStatusDelivering:
			if in.RiderID != nil {
				if err := r.Orders().SetRider(ctx, o.OrderNo, *in.RiderID); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				o.RiderID = in.RiderID
			}

		case model.OrderStatusCompleted:
			// ポイント付与は1回だけ（Accrueが同一注文のEARN重複を弾く）
			if o.UserID != nil && o.EarnedPoints > 0 {
				if err := r.Points().Accrue(ctx, *o.UserID, o.EarnedPoints, o.OrderNo); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}

		case model.OrderStatusCanceled, model.OrderStatusRejected:
			if in.Reason != "" {
				if err := r.Orders().SetCancelReason(ctx, o.OrderNo, in.Reason); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				o.CancelReason = in.Reason
			}
			if err := compensate(ctx, r, o); err != nil {
				return err
			}
		}

		o.Status = effective
		order = o
		return nil
	})

	if err != nil {
		return "", err
	}

	// コミット後の副作用。どれも注文パイプラインをブロックしない。
	switch effective {
	case model.OrderStatusAccepted:
		t := buildTicket(order, items)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			u.printer.Print(ctx, t)
		}()

	case model.OrderStatusCanceled, model.OrderStatusRejected:
		if order.PaymentMethod == model.PaymentMethodPrepaid && u.payments.Enabled() {
			u.payments.CancelAsync(order.OrderNo, order.FinalAmount)
		}
	}

	u.events.Broadcast(realtime.EventStatusChanged, realtime.StatusChangedPayload{
		OrderNo: order.OrderNo,
		Status:  string(effective),
	})

	return effective, nil
}

// Cancelは顧客/店舗起点のキャンセル。状態機械のCANCELED遷移に乗せる。
func (u *FulfillmentUsecase) Cancel(ctx context.Context, orderNo string, reason string) error {
	_, err := u.UpdateStatus(ctx, orderNo, UpdateStatusInput{
		Status: string(model.OrderStatusCanceled),
		Reason: reason,
	})
	return err
}

// キャンセル/拒否の台帳補償。RefundもReleaseも冪等なので二重実行しても壊れない。
func compensate(ctx context.Context, r repo.TxRepos, o model.Order) error {
	if o.UserID != nil && o.UsedPoints > 0 {
		if err := r.Points().Refund(ctx, *o.UserID, o.UsedPoints, o.OrderNo); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}
	if o.CouponID != nil && o.UserID != nil {
		if err := r.Coupons().Release(ctx, *o.CouponID, *o.UserID, o.OrderNo); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}
	return nil
}

func buildTicket(o model.Order, items []model.OrderItem) printer.Ticket {
	tItems := make([]printer.TicketItem, 0, len(items))
	for _, it := range items {
		var opts []model.MenuOption
		if it.OptionsJSON != "" {
			_ = json.Unmarshal([]byte(it.OptionsJSON), &opts)
		}
		names := make([]string, 0, len(opts))
		for _, opt := range opts {
			names = append(names, opt.Name)
		}
		tItems = append(tItems, printer.TicketItem{
			Name:      it.NameSnapshot,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
			Options:   names,
		})
	}

	return printer.Ticket{
		OrderNo:       o.OrderNo,
		CustomerName:  o.CustomerName,
		Phone:         o.Phone,
		Address:       o.Address,
		OrderType:     string(o.OrderType),
		PaymentMethod: string(o.PaymentMethod),
		Items:         tItems,

		ItemsTotal:     o.ItemsTotal,
		DeliveryFee:    o.DeliveryFee,
		UsedPoints:     o.UsedPoints,
		CouponDiscount: o.CouponDiscount,
		FinalAmount:    o.FinalAmount,

		OrderedAt: o.CreatedAt,
	}
}
