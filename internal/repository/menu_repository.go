package repository

import (
	"context"

	"app/internal/domain/model"
)

// メニューの参照のみ。編集は管理システム側。
type MenuItemRepository interface {
	FindByID(ctx context.Context, id int64) (model.MenuItem, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error)
}

// 店舗設定（1行）の読み書き
type StoreConfigRepository interface {
	Get(ctx context.Context) (model.StoreConfig, error)
	Save(ctx context.Context, cfg model.StoreConfig) error
}
