package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type PointGormRepository struct {
	db *gorm.DB
}

func NewPointGormRepository(db *gorm.DB) *PointGormRepository {
	return &PointGormRepository{db: db}
}

func (r *PointGormRepository) Balance(ctx context.Context, userID int64) (int64, error) {
	var u model.User
	err := r.db.WithContext(ctx).Select("points_balance").Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, repo.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return u.PointsBalance, nil
}

func (r *PointGormRepository) History(ctx context.Context, userID int64, page int, limit int) ([]model.PointHistory, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.PointHistory{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return []model.PointHistory{}, 0, err
	}

	var items []model.PointHistory
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.PointHistory{}, 0, err
	}

	return items, total, nil
}

// 残高が足りるときだけ減らす（在庫減算と同じ条件付きUPDATE）
func (r *PointGormRepository) Reserve(ctx context.Context, userID int64, amount int64, orderNo string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND points_balance >= ?", userID, amount).
		Update("points_balance", gorm.Expr("points_balance - ?", amount))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrInsufficientPoints
	}

	h := model.PointHistory{
		UserID:  userID,
		OrderNo: &orderNo,
		Delta:   -amount,
		Reason:  model.PointReasonUse,
	}
	return r.db.WithContext(ctx).Create(&h).Error
}

func (r *PointGormRepository) Accrue(ctx context.Context, userID int64, amount int64, orderNo string) error {
	return r.addOnce(ctx, userID, amount, orderNo, model.PointReasonEarn)
}

func (r *PointGormRepository) Refund(ctx context.Context, userID int64, amount int64, orderNo string) error {
	return r.addOnce(ctx, userID, amount, orderNo, model.PointReasonRefund)
}

// 同じorderNo+reasonの履歴が既にあれば加算しない（POS再接続のリプレイ対策）
func (r *PointGormRepository) addOnce(ctx context.Context, userID int64, amount int64, orderNo string, reason model.PointReason) error {
	if amount <= 0 {
		return nil
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.PointHistory{}).
		Where("user_id = ? AND order_no = ? AND reason = ?", userID, orderNo, reason).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("points_balance", gorm.Expr("points_balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}

	h := model.PointHistory{
		UserID:  userID,
		OrderNo: &orderNo,
		Delta:   amount,
		Reason:  reason,
	}
	return r.db.WithContext(ctx).Create(&h).Error
}
