package audit

import (
	"context"
	"time"

	"github.com/shopmate/sentinel/model"
	"gorm.io/gorm"
)

// EventRepository reads back persisted events for the admin API and prunes
// them past their retention window. Writes go through the DatabaseSink,
// never through here.
type EventRepository interface {
	RecentEvents(ctx context.Context, limit int) ([]*model.SecurityEventRecord, error)
	EventsByIP(ctx context.Context, ip string, limit int) ([]*model.SecurityEventRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) RecentEvents(ctx context.Context, limit int) ([]*model.SecurityEventRecord, error) {
	var records []*model.SecurityEventRecord
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *eventRepository) EventsByIP(ctx context.Context, ip string, limit int) ([]*model.SecurityEventRecord, error) {
	var records []*model.SecurityEventRecord
	err := r.db.WithContext(ctx).
		Where("ip = ?", ip).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// DeleteOlderThan removes events persisted before cutoff and reports how
// many rows went.
func (r *eventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&model.SecurityEventRecord{})
	return result.RowsAffected, result.Error
}
