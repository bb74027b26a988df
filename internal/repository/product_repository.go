package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
// stock/num_salesの増減はInventoryRepositoryに分離している。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	//slugとstock/num_sales/rating系は更新対象に含めない
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	//レビュー集計の反映
	SetRating(ctx context.Context, productID int64, rating float64, numReviews int64) error
}
