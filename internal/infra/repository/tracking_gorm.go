package repository

import (
	"context"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type TrackingGormRepository struct {
	db *gorm.DB
}

func NewTrackingGormRepository(db *gorm.DB) *TrackingGormRepository {
	return &TrackingGormRepository{db: db}
}

// 追記のみ
func (r *TrackingGormRepository) Append(ctx context.Context, ev model.TrackingEvent) error {
	return r.db.WithContext(ctx).Create(&ev).Error
}

func (r *TrackingGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingEvent, error) {
	var events []model.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&events).Error
	if err != nil {
		return []model.TrackingEvent{}, err
	}
	return events, nil
}
