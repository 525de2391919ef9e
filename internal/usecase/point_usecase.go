package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	repo "app/internal/repository"
)

type PointUsecase struct {
	points repo.PointRepository
}

func NewPointUsecase(points repo.PointRepository) *PointUsecase {
	return &PointUsecase{points: points}
}

type PointBalanceOutput struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

func (u *PointUsecase) Balance(ctx context.Context, userID int64) (PointBalanceOutput, error) {
	if userID <= 0 {
		return PointBalanceOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	balance, err := u.points.Balance(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return PointBalanceOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return PointBalanceOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return PointBalanceOutput{UserID: userID, Balance: balance}, nil
}

type PointHistoryOutput struct {
	OrderNo   *string   `json:"order_no"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *PointUsecase) History(ctx context.Context, userID int64, page int, limit int) ([]PointHistoryOutput, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	entries, _, err := u.points.History(ctx, userID, page, limit)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]PointHistoryOutput, 0, len(entries))
	for _, e := range entries {
		outs = append(outs, PointHistoryOutput{
			OrderNo:   e.OrderNo,
			Delta:     e.Delta,
			Reason:    string(e.Reason),
			CreatedAt: e.CreatedAt,
		})
	}
	return outs, nil
}
