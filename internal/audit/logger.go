package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopmate/sentinel/internal/events"
	"github.com/shopmate/sentinel/internal/metrics"
	"github.com/shopmate/sentinel/internal/risk"
	"github.com/shopmate/sentinel/internal/security"
	"github.com/shopmate/sentinel/model"
	"github.com/shopmate/sentinel/params"
)

type Config struct {
	LogLevel      security.Severity // minimum severity to record
	BatchSize     int
	FlushInterval time.Duration
	MaxBuffered   int // buffer bound; oldest events are dropped beyond it
}

func (c *Config) sanitize() {
	if c.LogLevel.Rank() < 0 {
		c.LogLevel = security.SeverityLow
	}
	if c.BatchSize < 1 {
		c.BatchSize = params.AuditDefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = params.AuditDefaultFlushInterval
	}
	if c.MaxBuffered < 1 {
		c.MaxBuffered = params.AuditMaxBufferedEvents
	}
}

// Logger ingests security events, scores and tags them, fans them out to
// live subscribers and delivers them to the configured sinks in batches.
//
// Delivery is at-most-once: a sink failure drops the batch after logging
// the error, it is never re-queued.
type Logger struct {
	cfg    Config
	sinks  []Sink
	events *events.Topic[*security.SecurityEvent]

	mu      sync.Mutex
	buffer  []*security.SecurityEvent
	dropped uint64
	closed  bool

	stop     chan struct{}
	loopDone chan struct{}
}

func NewLogger(cfg Config, sinks ...Sink) *Logger {
	cfg.sanitize()
	l := &Logger{
		cfg:      cfg,
		sinks:    sinks,
		events:   events.NewTopic[*security.SecurityEvent](),
		buffer:   make([]*security.SecurityEvent, 0, cfg.BatchSize),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go l.flushLoop()
	return l
}

// Events is the live securityEvent feed. Every recorded event is published
// here synchronously before it is buffered.
func (l *Logger) Events() *events.Topic[*security.SecurityEvent] {
	return l.events
}

// LogSecurityEvent builds an immutable SecurityEvent from the request
// context, scores and tags it, publishes it and appends it to the flush
// buffer. Events below the configured log level return nil and leave no
// trace. A CRITICAL event forces an immediate flush regardless of the
// buffer length.
func (l *Logger) LogSecurityEvent(eventType security.EventType, reqCtx security.RequestContext, message string, details map[string]any, severity security.Severity) *security.SecurityEvent {
	if severity.Rank() < l.cfg.LogLevel.Rank() {
		return nil
	}

	event := &security.SecurityEvent{
		ID:         model.GenerateID(),
		Timestamp:  time.Now(),
		Type:       eventType,
		Severity:   severity,
		UserID:     reqCtx.UserID,
		SessionID:  reqCtx.SessionID,
		ShopDomain: reqCtx.ShopDomain,
		IPAddress:  reqCtx.IP,
		UserAgent:  reqCtx.UserAgent,
		Endpoint:   reqCtx.Path,
		Method:     reqCtx.Method,
		StatusCode: reqCtx.StatusCode,
		Message:    message,
		Details:    details,
	}
	if cid, ok := details["correlationId"].(string); ok {
		event.CorrelationID = cid
	}
	event.RiskScore = risk.Score(event)
	event.Tags = deriveTags(event)

	metrics.EventsTotal.WithLabelValues(string(eventType), string(severity)).Inc()
	l.events.Publish(event)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return event
	}
	if len(l.buffer) >= l.cfg.MaxBuffered {
		// drop-oldest backpressure policy
		copy(l.buffer, l.buffer[1:])
		l.buffer = l.buffer[:len(l.buffer)-1]
		l.dropped++
		metrics.EventsDroppedTotal.Inc()
	}
	l.buffer = append(l.buffer, event)

	var batch []*security.SecurityEvent
	trigger := ""
	switch {
	case severity == security.SeverityCritical:
		batch, trigger = l.swapBufferLocked(), "critical"
	case len(l.buffer) >= l.cfg.BatchSize:
		batch, trigger = l.swapBufferLocked(), "batch_size"
	}
	l.mu.Unlock()

	if len(batch) > 0 {
		l.writeBatch(batch, trigger)
	}
	return event
}

// swapBufferLocked atomically hands the current buffer to the caller and
// replaces it with an empty one, so ingestion racing a slow sink write is
// neither blocked nor duplicated. Callers must hold l.mu.
func (l *Logger) swapBufferLocked() []*security.SecurityEvent {
	batch := l.buffer
	l.buffer = make([]*security.SecurityEvent, 0, l.cfg.BatchSize)
	return batch
}

// writeBatch delivers a snapshot to every sink outside the lock. A failed
// sink loses the batch; delivery is at-most-once by design.
func (l *Logger) writeBatch(batch []*security.SecurityEvent, trigger string) {
	metrics.FlushesTotal.WithLabelValues(trigger).Inc()
	ctx := context.Background()
	for _, sink := range l.sinks {
		if err := sink.WriteBatch(ctx, batch); err != nil {
			metrics.SinkErrorsTotal.WithLabelValues(sink.Name()).Inc()
			slog.Error("Audit sink write failed, batch dropped", "sink", sink.Name(), "events", len(batch), "error", err)
		}
	}
}

// Flush forces delivery of all buffered events.
func (l *Logger) Flush() {
	l.mu.Lock()
	batch := l.swapBufferLocked()
	l.mu.Unlock()
	if len(batch) > 0 {
		l.writeBatch(batch, "manual")
	}
}

// Close cancels the flush timer and attempts a final delivery of anything
// still buffered. The logger must not be used afterwards.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	close(l.stop)
	<-l.loopDone
	l.Flush()
}

// Dropped reports how many events the bounded buffer has discarded.
func (l *Logger) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *Logger) flushLoop() {
	defer close(l.loopDone)
	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			batch := l.swapBufferLocked()
			l.mu.Unlock()
			if len(batch) > 0 {
				l.writeBatch(batch, "interval")
			}
		case <-l.stop:
			return
		}
	}
}

// deriveTags attaches the severity, risk band, event type and a coarse
// source prefix so sinks can filter without re-deriving anything.
func deriveTags(event *security.SecurityEvent) []string {
	tags := []string{
		"severity:" + strings.ToLower(string(event.Severity)),
		"risk:" + strings.ToLower(string(security.ThreatLevelForScore(event.RiskScore))),
		"type:" + strings.ToLower(string(event.Type)),
	}
	if prefix := coarseIPPrefix(event.IPAddress); prefix != "" {
		tags = append(tags, "ip:"+prefix)
	}
	return tags
}

// coarseIPPrefix returns the /24 prefix of an IPv4 address, or the first
// two groups of an IPv6 address. Addresses whose leading groups are
// elided, like ::1, carry no usable prefix and yield "".
func coarseIPPrefix(ipAddress string) string {
	if strings.Contains(ipAddress, ":") {
		parts := strings.Split(ipAddress, ":")
		if len(parts) > 2 && parts[0] != "" && parts[1] != "" {
			return parts[0] + ":" + parts[1]
		}
		return ""
	}
	if parts := strings.Split(ipAddress, "."); len(parts) == 4 {
		return fmt.Sprintf("%s.%s.%s", parts[0], parts[1], parts[2])
	}
	return ""
}
