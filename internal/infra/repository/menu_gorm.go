package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type MenuItemGormRepository struct {
	db *gorm.DB
}

func NewMenuItemGormRepository(db *gorm.DB) *MenuItemGormRepository {
	return &MenuItemGormRepository{db: db}
}

func (r *MenuItemGormRepository) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	var m model.MenuItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.MenuItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.MenuItem{}, err
	}
	return m, nil
}

func (r *MenuItemGormRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	var items []model.MenuItem
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.MenuItem, len(items))
	for _, m := range items {
		byID[m.ID] = m
	}
	return byID, nil
}

type StoreConfigGormRepository struct {
	db *gorm.DB
}

func NewStoreConfigGormRepository(db *gorm.DB) *StoreConfigGormRepository {
	return &StoreConfigGormRepository{db: db}
}

func (r *StoreConfigGormRepository) Get(ctx context.Context) (model.StoreConfig, error) {
	var c model.StoreConfig
	err := r.db.WithContext(ctx).Where("id = ?", 1).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.StoreConfig{}, repo.ErrNotFound
	}
	if err != nil {
		return model.StoreConfig{}, err
	}
	return c, nil
}

func (r *StoreConfigGormRepository) Save(ctx context.Context, cfg model.StoreConfig) error {
	cfg.ID = 1
	return r.db.WithContext(ctx).Save(&cfg).Error
}
