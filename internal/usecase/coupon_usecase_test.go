package usecase

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func welcomeCoupon(now time.Time) model.Coupon {
	return model.Coupon{
		ID:        3,
		Code:      "WELCOME",
		Name:      "新規会員クーポン",
		Type:      model.CouponTypeFixed,
		Value:     10000,
		MinAmount: 25000,
		ValidFrom: now.Add(-30 * 24 * time.Hour),
		ValidTo:   now.Add(30 * 24 * time.Hour),
		IsActive:  true,
	}
}

func TestCouponUsecase_Validate_InputValidation(t *testing.T) {
	uc := NewCouponUsecase(new(TxManagerMock), new(CouponRepoMock), "WELCOME")

	_, err := uc.Validate(context.Background(), "", 7, 1000)
	assertErrContains(t, err, "code required")

	_, err = uc.Validate(context.Background(), "WELCOME", 0, 1000)
	assertErrContains(t, err, "invalid user id")

	_, err = uc.Validate(context.Background(), "WELCOME", 7, -1)
	assertErrContains(t, err, "invalid cart total")
}

func TestCouponUsecase_Validate_NotFound(t *testing.T) {
	coupons := new(CouponRepoMock)
	coupons.On("FindByCode", mock.Anything, "NOPE").Return(model.Coupon{}, repo.ErrCouponNotFound)

	uc := NewCouponUsecase(new(TxManagerMock), coupons, "WELCOME")

	_, err := uc.Validate(context.Background(), "NOPE", 7, 30000)
	assertErrContains(t, err, "coupon not found")
}

// 25,000円未満のカートでは割引を計算しない
func TestCouponUsecase_Validate_MinimumNotMet(t *testing.T) {
	now := time.Now()
	coupons := new(CouponRepoMock)
	coupons.On("FindByCode", mock.Anything, "WELCOME").Return(welcomeCoupon(now), nil)

	uc := NewCouponUsecase(new(TxManagerMock), coupons, "WELCOME")

	_, err := uc.Validate(context.Background(), "WELCOME", 7, 20000)
	assertErrContains(t, err, "coupon minimum amount not met")
	coupons.AssertNotCalled(t, "FindUnredeemedUsage", mock.Anything, mock.Anything, mock.Anything)
}

func TestCouponUsecase_Validate_FixedDiscount(t *testing.T) {
	now := time.Now()
	userID := int64(7)

	coupons := new(CouponRepoMock)
	coupons.On("FindByCode", mock.Anything, "WELCOME").Return(welcomeCoupon(now), nil)
	coupons.On("FindUnredeemedUsage", mock.Anything, int64(3), userID).Return(model.CouponUsage{ID: 9, CouponID: 3, UserID: userID}, nil)

	uc := NewCouponUsecase(new(TxManagerMock), coupons, "WELCOME")

	out, err := uc.Validate(context.Background(), "WELCOME", userID, 26000)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), out.CouponID)
	assert.Equal(t, int64(10000), out.DiscountAmount)
}

func TestCouponUsecase_Validate_PercentDiscount_Capped(t *testing.T) {
	now := time.Now()
	userID := int64(7)
	cap := int64(1500)

	cp := model.Coupon{
		ID:          4,
		Code:        "SALE20",
		Type:        model.CouponTypePercent,
		Value:       20,
		MinAmount:   0,
		MaxDiscount: &cap,
		ValidFrom:   now.Add(-time.Hour),
		ValidTo:     now.Add(time.Hour),
		IsActive:    true,
	}

	coupons := new(CouponRepoMock)
	coupons.On("FindByCode", mock.Anything, "SALE20").Return(cp, nil)
	coupons.On("FindUnredeemedUsage", mock.Anything, int64(4), userID).Return(model.CouponUsage{ID: 10}, nil)

	uc := NewCouponUsecase(new(TxManagerMock), coupons, "WELCOME")

	// 10,000円の20%は2,000円だが上限1,500円で頭打ち
	out, err := uc.Validate(context.Background(), "SALE20", userID, 10000)
	assert.NoError(t, err)
	assert.Equal(t, int64(1500), out.DiscountAmount)
}

func TestCouponUsecase_Validate_Expired(t *testing.T) {
	now := time.Now()
	cp := welcomeCoupon(now)
	cp.ValidTo = now.Add(-time.Hour)

	coupons := new(CouponRepoMock)
	coupons.On("FindByCode", mock.Anything, "WELCOME").Return(cp, nil)

	uc := NewCouponUsecase(new(TxManagerMock), coupons, "WELCOME")

	_, err := uc.Validate(context.Background(), "WELCOME", 7, 30000)
	assertErrContains(t, err, "coupon expired")
}

func TestCouponUsecase_Validate_Inactive(t *testing.T) {
	now := time.Now()
	cp := welcomeCoupon(now)
	cp.IsActive = false

	coupons := new(CouponRepoMock)
	coupons.On("FindByCode", mock.Anything, "WELCOME").Return(cp, nil)

	uc := NewCouponUsecase(new(TxManagerMock), coupons, "WELCOME")

	_, err := uc.Validate(context.Background(), "WELCOME", 7, 30000)
	assertErrContains(t, err, "coupon inactive")
}

// 未使用行なし＋使用済み行あり → already used（409で返したい）
func TestCouponUsecase_Validate_AlreadyUsed(t *testing.T) {
	now := time.Now()
	userID := int64(7)
	orderNo := "55"

	coupons := new(CouponRepoMock)
	coupons.On("FindByCode", mock.Anything, "WELCOME").Return(welcomeCoupon(now), nil)
	coupons.On("FindUnredeemedUsage", mock.Anything, int64(3), userID).Return(model.CouponUsage{}, repo.ErrNotFound)
	coupons.On("ListUsagesByUserID", mock.Anything, userID).Return([]model.CouponUsage{
		{ID: 9, CouponID: 3, UserID: userID, OrderNo: &orderNo},
	}, nil)

	uc := NewCouponUsecase(new(TxManagerMock), coupons, "WELCOME")

	_, err := uc.Validate(context.Background(), "WELCOME", userID, 30000)
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)
	assertErrContains(t, err, "coupon already used")
}

// 発行自体されていないユーザーは already used と区別する
func TestCouponUsecase_Validate_NotIssued(t *testing.T) {
	now := time.Now()
	userID := int64(8)

	coupons := new(CouponRepoMock)
	coupons.On("FindByCode", mock.Anything, "WELCOME").Return(welcomeCoupon(now), nil)
	coupons.On("FindUnredeemedUsage", mock.Anything, int64(3), userID).Return(model.CouponUsage{}, repo.ErrNotFound)
	coupons.On("ListUsagesByUserID", mock.Anything, userID).Return([]model.CouponUsage{}, nil)

	uc := NewCouponUsecase(new(TxManagerMock), coupons, "WELCOME")

	_, err := uc.Validate(context.Background(), "WELCOME", userID, 30000)
	assertErrContains(t, err, "coupon not issued to user")
}

// =====================
// Claim / IssueWelcomeCoupon
// =====================

func TestCouponUsecase_Claim_CreatesUsage(t *testing.T) {
	now := time.Now()
	userID := int64(7)

	tx := new(TxManagerMock)
	repos := newTxReposMock()
	tx.Repos = repos
	tx.On("WithinTx", mock.Anything).Return(nil)

	repos.coupons.On("FindByCode", mock.Anything, "WELCOME").Return(welcomeCoupon(now), nil)
	repos.coupons.On("FindUnredeemedUsage", mock.Anything, int64(3), userID).Return(model.CouponUsage{}, repo.ErrNotFound)
	repos.coupons.On("CreateUsage", mock.Anything, int64(3), userID).Return(model.CouponUsage{ID: 21, CouponID: 3, UserID: userID}, nil)

	uc := NewCouponUsecase(tx, new(CouponRepoMock), "WELCOME")

	out, err := uc.Claim(context.Background(), "WELCOME", userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(21), out.UsageID)
	repos.coupons.AssertExpectations(t)
}

// 既に未使用発行があればそれを返すだけ（同じコードを何度叩いても1枚）
func TestCouponUsecase_Claim_Idempotent(t *testing.T) {
	now := time.Now()
	userID := int64(7)

	tx := new(TxManagerMock)
	repos := newTxReposMock()
	tx.Repos = repos
	tx.On("WithinTx", mock.Anything).Return(nil)

	repos.coupons.On("FindByCode", mock.Anything, "WELCOME").Return(welcomeCoupon(now), nil)
	repos.coupons.On("FindUnredeemedUsage", mock.Anything, int64(3), userID).Return(model.CouponUsage{ID: 21, CouponID: 3, UserID: userID}, nil)

	uc := NewCouponUsecase(tx, new(CouponRepoMock), "WELCOME")

	out, err := uc.Claim(context.Background(), "WELCOME", userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(21), out.UsageID)
	repos.coupons.AssertNotCalled(t, "CreateUsage", mock.Anything, mock.Anything, mock.Anything)
}

func TestCouponUsecase_IssueWelcomeCoupon_UsesConfiguredCode(t *testing.T) {
	now := time.Now()
	userID := int64(7)

	tx := new(TxManagerMock)
	repos := newTxReposMock()
	tx.Repos = repos
	tx.On("WithinTx", mock.Anything).Return(nil)

	repos.coupons.On("FindByCode", mock.Anything, "HELLO2026").Return(welcomeCoupon(now), nil)
	repos.coupons.On("FindUnredeemedUsage", mock.Anything, int64(3), userID).Return(model.CouponUsage{ID: 30}, nil)

	uc := NewCouponUsecase(tx, new(CouponRepoMock), "HELLO2026")

	out, err := uc.IssueWelcomeCoupon(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(30), out.UsageID)
	repos.coupons.AssertExpectations(t)
}
