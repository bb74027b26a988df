package model

import "time"

// 注文の追跡ログ。追記専用。
// 成功した遷移の後、最後のエントリのstatusは必ず注文のstatusと一致する。
type TrackingEvent struct {
	ID      int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64       `gorm:"not null;index" json:"order_id"`
	Status  OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	Message string      `gorm:"type:varchar(255);not null" json:"message"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
