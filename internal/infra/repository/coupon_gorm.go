package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type CouponGormRepository struct {
	db *gorm.DB
}

func NewCouponGormRepository(db *gorm.DB) *CouponGormRepository {
	return &CouponGormRepository{db: db}
}

func (r *CouponGormRepository) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	var cp model.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Coupon{}, repo.ErrCouponNotFound
	}
	if err != nil {
		return model.Coupon{}, err
	}
	return cp, nil
}

func (r *CouponGormRepository) FindByID(ctx context.Context, couponID int64) (model.Coupon, error) {
	var cp model.Coupon
	err := r.db.WithContext(ctx).Where("id = ?", couponID).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Coupon{}, repo.ErrCouponNotFound
	}
	if err != nil {
		return model.Coupon{}, err
	}
	return cp, nil
}

func (r *CouponGormRepository) FindUnredeemedUsage(ctx context.Context, couponID, userID int64) (model.CouponUsage, error) {
	var u model.CouponUsage
	err := r.db.WithContext(ctx).
		Where("coupon_id = ? AND user_id = ? AND order_no IS NULL", couponID, userID).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CouponUsage{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CouponUsage{}, err
	}
	return u, nil
}

// 未使用発行は(coupon_id, user_id)につき1行だけ（部分一意インデックスで担保）。
func (r *CouponGormRepository) CreateUsage(ctx context.Context, couponID, userID int64) (model.CouponUsage, error) {
	u := model.CouponUsage{
		CouponID: couponID,
		UserID:   userID,
	}
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		// 同時Claimの負け。相手が作った未使用行を返す（冪等）。
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.FindUnredeemedUsage(ctx, couponID, userID)
		}
		return model.CouponUsage{}, err
	}

	err := r.db.WithContext(ctx).Model(&model.Coupon{}).
		Where("id = ?", couponID).
		Update("issued_count", gorm.Expr("issued_count + 1")).Error
	if err != nil {
		return model.CouponUsage{}, err
	}
	return u, nil
}

// 未使用行があるときだけ埋める。同じ発行を同時に使おうとした2注文は片方しか勝てない。
// 対象は行idで1行に固定する（1注文が複数の発行を潰さない）。
func (r *CouponGormRepository) Redeem(ctx context.Context, couponID, userID int64, orderNo string) error {
	var u model.CouponUsage
	err := r.db.WithContext(ctx).
		Where("coupon_id = ? AND user_id = ? AND order_no IS NULL", couponID, userID).
		Order("id asc").
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrCouponAlreadyUsed
	}
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.CouponUsage{}).
		Where("id = ? AND order_no IS NULL", u.ID).
		Updates(map[string]any{
			"order_no": orderNo,
			"used_at":  time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 選んだ行を先に別の注文が埋めた
		return repo.ErrCouponAlreadyUsed
	}

	return r.db.WithContext(ctx).Model(&model.Coupon{}).
		Where("id = ?", couponID).
		Update("used_count", gorm.Expr("used_count + 1")).Error
}

// キャンセル補償。対象行がなければ冪等に成功扱い。
func (r *CouponGormRepository) Release(ctx context.Context, couponID, userID int64, orderNo string) error {
	res := r.db.WithContext(ctx).Model(&model.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ? AND order_no = ?", couponID, userID, orderNo).
		Updates(map[string]any{
			"order_no": nil,
			"used_at":  nil,
		})

	if res.Error != nil {
		// 既に別の未使用行がある場合は未使用には戻せない（部分一意インデックス）。
		// 使用済み行ごと取り消して発行数・使用数を戻す。
		var pgErr *pgconn.PgError
		if errors.As(res.Error, &pgErr) && pgErr.Code == "23505" {
			del := r.db.WithContext(ctx).
				Where("coupon_id = ? AND user_id = ? AND order_no = ?", couponID, userID, orderNo).
				Delete(&model.CouponUsage{})
			if del.Error != nil {
				return del.Error
			}
			if del.RowsAffected == 0 {
				return nil
			}
			return r.db.WithContext(ctx).Model(&model.Coupon{}).
				Where("id = ?", couponID).
				Updates(map[string]any{
					"used_count":   gorm.Expr("GREATEST(used_count - 1, 0)"),
					"issued_count": gorm.Expr("GREATEST(issued_count - 1, 0)"),
				}).Error
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Model(&model.Coupon{}).
		Where("id = ? AND used_count > 0", couponID).
		Update("used_count", gorm.Expr("used_count - 1")).Error
}

func (r *CouponGormRepository) ListUsagesByUserID(ctx context.Context, userID int64) ([]model.CouponUsage, error) {
	var items []model.CouponUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&items).Error
	if err != nil {
		return []model.CouponUsage{}, err
	}
	return items, nil
}
