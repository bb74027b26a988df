package repository

import (
	"context"

	"app/internal/domain/model"
)

// 追跡ログ。追記と読み出しのみ（更新・削除は存在しない）。
type TrackingEventRepository interface {
	Append(ctx context.Context, ev model.TrackingEvent) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingEvent, error)
}
