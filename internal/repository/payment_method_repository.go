package repository

import (
	"context"

	"ordercore/internal/domain/model"
)

type PaymentMethodRepository interface {
	FindByID(ctx context.Context, id int64) (model.PaymentMethod, error)
}
