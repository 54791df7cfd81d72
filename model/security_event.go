package model

import (
	"time"

	"github.com/shopmate/sentinel/internal/security"
	"gorm.io/datatypes"
)

// SecurityEventRecord is the database-sink row for a flushed security
// event. Details and tags are stored as JSON so the table stays queryable
// without a migration per new detail key.
type SecurityEventRecord struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement"`
	EventID       string         `gorm:"size:64;not null;uniqueIndex"` // snowflake id assigned at ingestion
	Timestamp     time.Time      `gorm:"index;not null"`
	EventType     string         `gorm:"size:64;not null;index"`
	Severity      string         `gorm:"size:16;not null;index"`
	UserID        string         `gorm:"size:64;index"`
	SessionID     string         `gorm:"size:64"`
	ShopDomain    string         `gorm:"size:255;index"`
	IP            string         `gorm:"size:45;not null;index"` // IPv4/IPv6
	UserAgent     string         `gorm:"size:512"`
	Endpoint      string         `gorm:"size:512"`
	Method        string         `gorm:"size:10"`
	StatusCode    int            `gorm:""`
	Message       string         `gorm:"size:1024"`
	Details       datatypes.JSON `gorm:""`
	RiskScore     int            `gorm:"not null;index"`
	Tags          datatypes.JSON `gorm:""`
	CorrelationID string         `gorm:"size:64;index"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
}

func (SecurityEventRecord) TableName() string {
	return "security_event"
}

// NewSecurityEventRecord flattens an in-memory event into its row shape.
func NewSecurityEventRecord(event *security.SecurityEvent) *SecurityEventRecord {
	record := &SecurityEventRecord{
		EventID:       event.ID,
		Timestamp:     event.Timestamp,
		EventType:     string(event.Type),
		Severity:      string(event.Severity),
		UserID:        event.UserID,
		SessionID:     event.SessionID,
		ShopDomain:    event.ShopDomain,
		IP:            event.IPAddress,
		UserAgent:     event.UserAgent,
		Endpoint:      event.Endpoint,
		Method:        event.Method,
		StatusCode:    event.StatusCode,
		Message:       event.Message,
		RiskScore:     event.RiskScore,
		CorrelationID: event.CorrelationID,
	}
	if len(event.Details) > 0 {
		record.Details, _ = marshalJSONColumn(event.Details)
	}
	if len(event.Tags) > 0 {
		record.Tags, _ = marshalJSONColumn(event.Tags)
	}
	return record
}
