package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CouponUsecase struct {
	tx          repo.TransactionManager
	coupons     repo.CouponRepository
	welcomeCode string
}

func NewCouponUsecase(tx repo.TransactionManager, coupons repo.CouponRepository, welcomeCode string) *CouponUsecase {
	return &CouponUsecase{tx: tx, coupons: coupons, welcomeCode: welcomeCode}
}

type CouponValidationOutput struct {
	CouponID       int64  `json:"coupon_id"`
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
}

// Validateは注文前の事前チェック。台帳は変更しない。
func (u *CouponUsecase) Validate(ctx context.Context, code string, userID int64, cartTotal int64) (CouponValidationOutput, error) {
	if strings.TrimSpace(code) == "" {
		return CouponValidationOutput{}, NewHTTPError(http.StatusBadRequest, "code required")
	}
	if userID <= 0 {
		return CouponValidationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	if cartTotal < 0 {
		return CouponValidationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid cart total")
	}

	cp, discount, err := validateCoupon(ctx, u.coupons, code, userID, cartTotal, time.Now())
	if err != nil {
		return CouponValidationOutput{}, err
	}

	return CouponValidationOutput{
		CouponID:       cp.ID,
		Code:           cp.Code,
		DiscountAmount: discount,
	}, nil
}

type CouponClaimOutput struct {
	CouponID int64  `json:"coupon_id"`
	Code     string `json:"code"`
	UsageID  int64  `json:"usage_id"`
}

// Claimは公開の「コードでクーポンを受け取る」パス。
// 同じ未使用発行が既にあればそれを返す（冪等）。
func (u *CouponUsecase) Claim(ctx context.Context, code string, userID int64) (CouponClaimOutput, error) {
	if strings.TrimSpace(code) == "" {
		return CouponClaimOutput{}, NewHTTPError(http.StatusBadRequest, "code required")
	}
	if userID <= 0 {
		return CouponClaimOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var out CouponClaimOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cp, err := r.Coupons().FindByCode(ctx, code)
		if errors.Is(err, repo.ErrCouponNotFound) {
			return NewHTTPError(http.StatusNotFound, "coupon not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !cp.IsActive {
			return NewHTTPError(http.StatusBadRequest, "coupon inactive")
		}

		existing, err := r.Coupons().FindUnredeemedUsage(ctx, cp.ID, userID)
		if err == nil {
			out = CouponClaimOutput{CouponID: cp.ID, Code: cp.Code, UsageID: existing.ID}
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		usage, err := r.Coupons().CreateUsage(ctx, cp.ID, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = CouponClaimOutput{CouponID: cp.ID, Code: cp.Code, UsageID: usage.ID}
		return nil
	})

	if err != nil {
		return CouponClaimOutput{}, err
	}
	return out, nil
}

// 新規会員へのウェルカムクーポン。会員登録処理には組み込まず、外から呼ばせる
// （登録の失敗とクーポン発行の失敗を別々に扱えるように）。
func (u *CouponUsecase) IssueWelcomeCoupon(ctx context.Context, userID int64) (CouponClaimOutput, error) {
	return u.Claim(ctx, u.welcomeCode, userID)
}

func (u *CouponUsecase) ListMyCoupons(ctx context.Context, userID int64) ([]model.CouponUsage, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	usages, err := u.coupons.ListUsagesByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return usages, nil
}

// ---- 共有の検証ロジック（注文パスはTx内のrepoで同じチェックを通す） ----

func validateCoupon(ctx context.Context, coupons repo.CouponRepository, code string, userID int64, cartTotal int64, now time.Time) (model.Coupon, int64, error) {
	cp, err := coupons.FindByCode(ctx, code)
	if errors.Is(err, repo.ErrCouponNotFound) {
		return model.Coupon{}, 0, NewHTTPError(http.StatusNotFound, "coupon not found")
	}
	if err != nil {
		return model.Coupon{}, 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !cp.IsActive {
		return model.Coupon{}, 0, NewHTTPError(http.StatusBadRequest, "coupon inactive")
	}
	if now.Before(cp.ValidFrom) || now.After(cp.ValidTo) {
		return model.Coupon{}, 0, NewHTTPError(http.StatusBadRequest, "coupon expired")
	}
	if cartTotal < cp.MinAmount {
		return model.Coupon{}, 0, NewHTTPError(http.StatusBadRequest, "coupon minimum amount not met")
	}

	if _, err := coupons.FindUnredeemedUsage(ctx, cp.ID, userID); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Coupon{}, 0, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		// 未使用行なし。発行済みか未発行かでメッセージを分ける。
		usages, lerr := coupons.ListUsagesByUserID(ctx, userID)
		if lerr != nil {
			return model.Coupon{}, 0, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, usg := range usages {
			if usg.CouponID == cp.ID {
				return model.Coupon{}, 0, NewHTTPError(http.StatusConflict, "coupon already used")
			}
		}
		return model.Coupon{}, 0, NewHTTPError(http.StatusBadRequest, "coupon not issued to user")
	}

	return cp, discountFor(cp, cartTotal), nil
}

func discountFor(cp model.Coupon, cartTotal int64) int64 {
	switch cp.Type {
	case model.CouponTypeFixed:
		return cp.Value
	case model.CouponTypePercent:
		d := cartTotal * cp.Value / 100
		if cp.MaxDiscount != nil && d > *cp.MaxDiscount {
			d = *cp.MaxDiscount
		}
		return d
	default:
		return 0
	}
}
