package model

import (
	"time"

	"github.com/lib/pq"
)

// 商品レビュー。1ユーザー1商品1件（再投稿は上書き）。
// キーはuser_id。表示名での同定は衝突するためしない。
type Review struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64 `gorm:"not null;index;uniqueIndex:idx_reviews_product_user" json:"product_id"`
	UserID    int64 `gorm:"not null;uniqueIndex:idx_reviews_product_user" json:"user_id"`

	//表示用の投稿者名（同定には使わない）
	Author string `gorm:"type:varchar(255);not null" json:"author"`

	//1〜5
	Rating  int            `gorm:"not null" json:"rating"`
	Comment string         `gorm:"type:text" json:"comment"`
	Images  pq.StringArray `gorm:"type:text[]" json:"images"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
