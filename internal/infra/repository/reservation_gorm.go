package repository

import (
	"context"
	"time"

	"ordercore/internal/domain/model"

	"gorm.io/gorm"
)

type ReservationGormRepository struct {
	db *gorm.DB
}

func NewReservationGormRepository(db *gorm.DB) *ReservationGormRepository {
	return &ReservationGormRepository{db: db}
}

// 明細も一緒に作成される
func (r *ReservationGormRepository) Create(ctx context.Context, reservation model.StockReservation) error {
	return translate(r.db.WithContext(ctx).Create(&reservation).Error)
}

func (r *ReservationGormRepository) FindByID(ctx context.Context, reservationID string) (model.StockReservation, error) {
	var res model.StockReservation
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("product_id asc") }).
		Where("id = ?", reservationID).
		First(&res).Error
	if err != nil {
		return model.StockReservation{}, translate(err)
	}
	return res, nil
}

func (r *ReservationGormRepository) MarkConsumed(ctx context.Context, reservationID string, orderID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.StockReservation{}).
		Where("id = ? AND status = ?", reservationID, model.ReservationStatusHeld).
		Updates(map[string]interface{}{
			"status":     model.ReservationStatusConsumed,
			"order_id":   orderID,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// 2回目以降は0行更新になるので、呼び出し側は在庫を戻さない
func (r *ReservationGormRepository) MarkReleased(ctx context.Context, reservationID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.StockReservation{}).
		Where("id = ? AND status <> ?", reservationID, model.ReservationStatusReleased).
		Updates(map[string]interface{}{
			"status":      model.ReservationStatusReleased,
			"released_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ReservationGormRepository) ListHeldBefore(ctx context.Context, before time.Time, limit int) ([]model.StockReservation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []model.StockReservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.ReservationStatusHeld, before).
		Order("created_at asc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
