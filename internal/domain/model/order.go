package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文ステータス。文字列はDBの保存値であり表示ラベルでもあるので変更不可。
type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusPacking        OrderStatus = "Packing"
	OrderStatusShipped        OrderStatus = "Shipped"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
	OrderStatusRejected       OrderStatus = "Rejected"
)

// 終端ステータスかどうか。終端に入った注文は一切遷移できない。
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// 配送パス上の段階番号。終端側のCancelled/Rejectedは-1。
// 厳格モードで「前に進む遷移か」の判定に使う。
func (s OrderStatus) Stage() int {
	switch s {
	case OrderStatusProcessing:
		return 0
	case OrderStatusPacking:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusOutForDelivery:
		return 3
	case OrderStatusDelivered:
		return 4
	default:
		return -1
	}
}

// 配送パスの5ラベルのいずれかか
func IsForwardStatus(s OrderStatus) bool {
	return s.Stage() >= 0
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

// 注文。明細と金額は作成時スナップショットで以後不変。
// 可変なのはstatus/payment_status/delivered_atと追記専用の追跡ログだけ。
type Order struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//配送先（住所録参照ではなく注文時点の写し）
	FullName   string `gorm:"type:varchar(255);not null" json:"full_name"`
	Address    string `gorm:"type:varchar(255);not null" json:"address"`
	City       string `gorm:"type:varchar(255);not null" json:"city"`
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`
	Country    string `gorm:"type:varchar(100);not null" json:"country"`

	PaymentMethod string        `gorm:"type:varchar(50);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"payment_status"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//作成時に一度だけ計算して凍結。後の価格変更では変わらない。
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	DeliveredAt *time.Time `json:"delivered_at"`

	IdempotencyKey string `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
