package repository

import (
	"context"

	"ordercore/internal/domain/model"
)

// カタログの読み取り窓口（価格と在庫は常に最新を読む）
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)

	//まとめて取得。存在しないIDはmapに入らない
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)
}
