package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// order_noの重複やステータスCASの負けなど、同時実行での衝突
var ErrConflict = errors.New("conflict")

type OrderListFilter struct {
	Page   int
	Limit  int
	Status string
	From   *time.Time
	To     *time.Time
}

// 注文の永続化だけを約束。
type OrderRepository interface {
	FindByOrderNo(ctx context.Context, orderNo string) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	ListByPhone(ctx context.Context, phone string, page int, limit int) ([]model.Order, int64, error)
	ListByStatuses(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error)

	// 現在の最大order_no+1（空なら1）。注文挿入と同じトランザクション内で呼ぶこと。
	NextOrderNo(ctx context.Context) (string, error)

	// order_noの一意制約違反はErrConflictで返す
	Create(ctx context.Context, order model.Order) (int64, error)
	Update(ctx context.Context, order model.Order) error

	// fromが現在のステータスのときだけtoへ更新する（compare-and-swap）。
	// 1行も更新できなければErrConflict。
	UpdateStatusIf(ctx context.Context, orderNo string, from, to model.OrderStatus) error

	// ACCEPTED時の目安時間・PREPARING/DELIVERING時のライダーなど付帯情報
	SetEstimatedMinutes(ctx context.Context, orderNo string, minutes int) error
	SetRider(ctx context.Context, orderNo string, riderID int64) error
	SetCancelReason(ctx context.Context, orderNo string, reason string) error
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
