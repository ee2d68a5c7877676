package repository

import (
	"context"
	"time"

	"ordercore/internal/domain/model"
	repo "ordercore/internal/repository"

	"gorm.io/gorm"
)

type CompensationGormRepository struct {
	db *gorm.DB
}

func NewCompensationGormRepository(db *gorm.DB) *CompensationGormRepository {
	return &CompensationGormRepository{db: db}
}

func (r *CompensationGormRepository) Create(ctx context.Context, f model.CompensationFailure) error {
	return r.db.WithContext(ctx).Create(&f).Error
}

func (r *CompensationGormRepository) ListUnresolved(ctx context.Context, limit int) ([]model.CompensationFailure, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []model.CompensationFailure
	err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("id asc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CompensationGormRepository) MarkResolved(ctx context.Context, id int64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.CompensationFailure{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Updates(map[string]interface{}{"resolved_at": at, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CompensationGormRepository) RecordAttempt(ctx context.Context, id int64, lastError string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.CompensationFailure{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
