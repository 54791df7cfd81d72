package secrets

import (
	"time"

	"github.com/google/uuid"
)

// accessLog is a bounded append-only ring. Once the high-water mark is
// exceeded the oldest half is dropped in one step, keeping amortized
// append cost constant.
type accessLog struct {
	entries   []*AccessLogEntry
	highWater int
}

func newAccessLog(highWater int) *accessLog {
	return &accessLog{highWater: highWater}
}

func (l *accessLog) append(secretID string, action AccessAction, accessor Accessor, success bool, errMsg string) {
	l.entries = append(l.entries, &AccessLogEntry{
		ID:         uuid.NewString(),
		SecretID:   secretID,
		AccessedBy: accessor.ID,
		AccessedAt: time.Now(),
		Action:     action,
		IPAddress:  accessor.IP,
		UserAgent:  accessor.UserAgent,
		Success:    success,
		Error:      errMsg,
	})
	if len(l.entries) > l.highWater {
		keep := len(l.entries) / 2
		l.entries = append(l.entries[:0], l.entries[len(l.entries)-keep:]...)
	}
}

// page returns one page of entries, newest first. pageSize <= 0 returns an
// empty page; pages past the end are empty.
func (l *accessLog) page(pageNum, pageSize int) []*AccessLogEntry {
	if pageSize <= 0 || pageNum < 1 {
		return nil
	}
	total := len(l.entries)
	start := (pageNum - 1) * pageSize
	if start >= total {
		return nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	page := make([]*AccessLogEntry, 0, end-start)
	// entries are stored oldest-first; walk backwards for newest-first
	for i := total - 1 - start; i >= total-end; i-- {
		page = append(page, l.entries[i])
	}
	return page
}

func (l *accessLog) size() int {
	return len(l.entries)
}
