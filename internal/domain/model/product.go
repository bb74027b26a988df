package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 商品の状態（新品/中古）
type Condition string

const (
	ConditionNew  Condition = "New"
	ConditionUsed Condition = "Used"
)

// 商品。stockとnum_salesはInventoryRepositoryの原子的UPDATEだけが触る。
// ratingとnum_reviewsはレビュー集計で再計算される派生値。
type Product struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//タイトル由来の読みやすいキー。作成時に決めて以後変更しない。
	Slug string `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Category    string `gorm:"type:varchar(100);not null;index" json:"category"`
	Description string `gorm:"type:text" json:"description"`

	//基本価格。割引適用前。
	Price decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`

	//割引率（0〜100）。0は割引なし。
	Discount int `gorm:"not null;default:0" json:"discount"`

	//割引の期限。NULLなら無期限。
	DiscountExpiry *time.Time `json:"discount_expiry"`

	Stock    int64 `gorm:"not null" json:"stock"`
	NumSales int64 `gorm:"not null;default:0" json:"num_sales"`

	//レビューから再計算される平均（0〜5）
	Rating     float64 `gorm:"not null;default:0" json:"rating"`
	NumReviews int64   `gorm:"not null;default:0" json:"num_reviews"`

	Condition Condition `gorm:"type:varchar(10);not null;default:'New'" json:"condition"`

	//画像URL（最大5件）
	Images pq.StringArray `gorm:"type:text[]" json:"images"`

	IsActive  bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
