package repository

import (
	"context"

	"ordercore/internal/domain/model"
)

type CouponRepository interface {
	//コードは大文字小文字を区別しない
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
}
