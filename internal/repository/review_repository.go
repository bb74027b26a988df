package repository

import (
	"context"

	"app/internal/domain/model"
)

type ReviewRepository interface {
	FindByProductAndUser(ctx context.Context, productID int64, userID int64) (model.Review, error)
	Create(ctx context.Context, r model.Review) (model.Review, error)
	Update(ctx context.Context, r model.Review) error
	ListByProductID(ctx context.Context, productID int64, page int, limit int) ([]model.Review, int64, error)

	//再計算用の集計（平均と件数）
	AggregateByProductID(ctx context.Context, productID int64) (avg float64, count int64, err error)
}
