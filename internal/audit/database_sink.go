package audit

import (
	"context"

	"github.com/shopmate/sentinel/internal/security"
	"github.com/shopmate/sentinel/model"
	"gorm.io/gorm"
)

// DatabaseSink persists flushed batches into the security_event table.
type DatabaseSink struct {
	db *gorm.DB
}

func NewDatabaseSink(db *gorm.DB) *DatabaseSink {
	return &DatabaseSink{db: db}
}

func (s *DatabaseSink) Name() string { return "database" }

func (s *DatabaseSink) WriteBatch(ctx context.Context, batch []*security.SecurityEvent) error {
	records := make([]*model.SecurityEventRecord, 0, len(batch))
	for _, event := range batch {
		records = append(records, model.NewSecurityEventRecord(event))
	}
	return s.db.WithContext(ctx).Create(records).Error
}
