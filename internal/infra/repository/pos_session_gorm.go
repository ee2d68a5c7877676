package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ordercore/internal/domain/model"

	"gorm.io/gorm"
)

type PosSessionGormRepository struct {
	db *gorm.DB
}

func NewPosSessionGormRepository(db *gorm.DB) *PosSessionGormRepository {
	return &PosSessionGormRepository{db: db}
}

// 部分ユニークインデックスに当たったら ErrDuplicate
func (r *PosSessionGormRepository) Create(ctx context.Context, session model.PosSession) error {
	return translate(r.db.WithContext(ctx).Create(&session).Error)
}

func (r *PosSessionGormRepository) FindByID(ctx context.Context, sessionID string) (model.PosSession, error) {
	var s model.PosSession
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&s).Error; err != nil {
		return model.PosSession{}, translate(err)
	}
	return s, nil
}

func (r *PosSessionGormRepository) FindOpenByEmployee(ctx context.Context, employeeID int64) (model.PosSession, error) {
	var s model.PosSession
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND closed_at IS NULL", employeeID).
		First(&s).Error
	if err != nil {
		return model.PosSession{}, translate(err)
	}
	return s, nil
}

func (r *PosSessionGormRepository) Close(ctx context.Context, sessionID string, closingAmount decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.PosSession{}).
		Where("id = ? AND closed_at IS NULL", sessionID).
		Updates(map[string]interface{}{
			"closed_at":      at,
			"closing_amount": closingAmount,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type DiscrepancyGormRepository struct {
	db *gorm.DB
}

func NewDiscrepancyGormRepository(db *gorm.DB) *DiscrepancyGormRepository {
	return &DiscrepancyGormRepository{db: db}
}

func (r *DiscrepancyGormRepository) Append(ctx context.Context, d model.PosDiscrepancy) error {
	return r.db.WithContext(ctx).Create(&d).Error
}

func (r *DiscrepancyGormRepository) ListBySession(ctx context.Context, sessionID string) ([]model.PosDiscrepancy, error) {
	var out []model.PosDiscrepancy
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
