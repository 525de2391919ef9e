package usecase

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// POS再接続時のリプレイ供給元（realtime.OrderFeed実装）。
// PENDINGはまだ誰も受けていない注文なので個別のnew-orderに、
// 受諾済み〜配達中はrestore-ordersの一括になる。
type OrderFeed struct {
	tx repo.TransactionManager
}

func NewOrderFeed(tx repo.TransactionManager) *OrderFeed {
	return &OrderFeed{tx: tx}
}

func (f *OrderFeed) PendingOrders(ctx context.Context) ([]any, error) {
	return f.byStatuses(ctx, []model.OrderStatus{model.OrderStatusPending})
}

func (f *OrderFeed) ActiveOrders(ctx context.Context) ([]any, error) {
	return f.byStatuses(ctx, []model.OrderStatus{
		model.OrderStatusAccepted,
		model.OrderStatusPreparing,
		model.OrderStatusDelivering,
	})
}

func (f *OrderFeed) byStatuses(ctx context.Context, statuses []model.OrderStatus) ([]any, error) {
	var outs []OrderOutput

	err := f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByStatuses(ctx, statuses)
		if err != nil {
			return err
		}
		outs, err = withItems(ctx, r, orders)
		return err
	})
	if err != nil {
		return nil, err
	}

	boxed := make([]any, 0, len(outs))
	for _, o := range outs {
		boxed = append(boxed, o)
	}
	return boxed, nil
}
