package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponAlreadyUsed = errors.New("coupon already used")
)

type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	FindByID(ctx context.Context, couponID int64) (model.Coupon, error)

	// (couponID, userID)の未使用発行行を返す。なければErrNotFound。
	FindUnredeemedUsage(ctx context.Context, couponID, userID int64) (model.CouponUsage, error)

	// 発行行を1行作ってissued_countを+1する
	CreateUsage(ctx context.Context, couponID, userID int64) (model.CouponUsage, error)

	// 未使用の発行行にorder_no/used_atを埋める。未使用行がなければErrCouponAlreadyUsed。
	// used_countを+1する。
	Redeem(ctx context.Context, couponID, userID int64, orderNo string) error

	// キャンセル補償。orderNoで使用済みになった行を未使用へ戻しused_countを-1する。
	// 該当行がなければ何もしない（冪等）。
	Release(ctx context.Context, couponID, userID int64, orderNo string) error

	ListUsagesByUserID(ctx context.Context, userID int64) ([]model.CouponUsage, error)
}
