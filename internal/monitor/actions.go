package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopmate/sentinel/internal/metrics"
	"github.com/shopmate/sentinel/internal/security"
	"github.com/spf13/cast"
)

// Notification is the payload handed to the external notify/escalate
// channels when a rule's action calls out.
type Notification struct {
	RuleID      string
	RuleName    string
	Severity    security.Severity
	ThreatLevel security.ThreatLevel
	Message     string
	Event       *security.SecurityEvent
}

// Notifier is the outbound channel contract for notify and escalate
// actions: email, chat, paging. Implementations live outside this package.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
	Escalate(ctx context.Context, notification Notification) error
}

// executeActions runs every action of a triggered rule in order. One
// failing action is logged and does not stop the rest.
func (m *Monitor) executeActions(rule *Rule, event *security.SecurityEvent) {
	for _, action := range rule.Actions {
		switch action.Type {
		case ActionAlert:
			m.createAlert(rule, event, action.Config)
		case ActionBlockIP:
			duration := time.Duration(cast.ToInt64(action.Config["durationMs"])) * time.Millisecond
			m.BlockIP(event.IPAddress, duration)
		case ActionRateLimit:
			multiplier := cast.ToFloat64(action.Config["multiplier"])
			if multiplier <= 0 {
				multiplier = 0.1
			}
			m.SetRateLimitOverride(event.IPAddress, multiplier)
		case ActionNotify:
			m.callNotifier(rule, event, false)
		case ActionEscalate:
			m.callNotifier(rule, event, true)
		default:
			slog.Error("Unknown rule action", "rule", rule.ID, "action", action.Type)
		}
	}
}

// createAlert opens a SecurityAlert whose threat level derives from the
// triggering event's risk score.
func (m *Monitor) createAlert(rule *Rule, event *security.SecurityEvent, config map[string]any) {
	title := cast.ToString(config["title"])
	if title == "" {
		title = rule.Name
	}
	alert := &Alert{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		ThreatLevel: security.ThreatLevelForScore(event.RiskScore),
		Title:       title,
		Description: fmt.Sprintf("%s (rule %s, risk score %d)", rule.Description, rule.ID, event.RiskScore),
		Source:      event.IPAddress,
		AffectedSystems: []string{
			event.Endpoint,
		},
		Indicators: []string{
			"ip:" + event.IPAddress,
			"userAgent:" + event.UserAgent,
			"event:" + string(event.Type),
		},
		RecommendedActions: cast.ToStringSlice(config["recommendedActions"]),
		CorrelationID:      event.CorrelationID,
	}

	m.mu.Lock()
	m.alerts[alert.ID] = alert
	m.mu.Unlock()

	metrics.AlertsOpen.Inc()
	m.topics.AlertCreated.Publish(alert)
	slog.Warn("Security alert created", "alert", alert.ID, "threatLevel", alert.ThreatLevel, "source", alert.Source)
}

func (m *Monitor) callNotifier(rule *Rule, event *security.SecurityEvent, escalate bool) {
	if m.notifier == nil {
		slog.Warn("No notifier configured, rule action skipped", "rule", rule.ID, "escalate", escalate)
		return
	}
	notification := Notification{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Severity:    rule.Severity,
		ThreatLevel: security.ThreatLevelForScore(event.RiskScore),
		Message:     fmt.Sprintf("%s triggered by event %s from %s", rule.Name, event.ID, event.IPAddress),
		Event:       event,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var err error
	if escalate {
		err = m.notifier.Escalate(ctx, notification)
	} else {
		err = m.notifier.Notify(ctx, notification)
	}
	if err != nil {
		slog.Error("Notification delivery failed", "rule", rule.ID, "escalate", escalate, "error", err)
	}
}
