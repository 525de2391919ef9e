package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrInsufficientPoints = errors.New("insufficient points")

// ポイント台帳。残高の増減は必ず履歴の追記とセットで行う。
type PointRepository interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	History(ctx context.Context, userID int64, page int, limit int) ([]model.PointHistory, int64, error)

	// 残高が足りるときだけ減算してUSE履歴を追記する。足りなければErrInsufficientPoints。
	Reserve(ctx context.Context, userID int64, amount int64, orderNo string) error

	// EARN履歴を追記して残高を加算する。同じorderNoのEARNが既にあれば何もしない。
	Accrue(ctx context.Context, userID int64, amount int64, orderNo string) error

	// REFUND履歴を追記して残高を戻す。同じorderNoのREFUNDが既にあれば何もしない（二重返金防止）。
	Refund(ctx context.Context, userID int64, amount int64, orderNo string) error
}
