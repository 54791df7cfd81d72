package monitor

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopmate/sentinel/internal/events"
	"github.com/shopmate/sentinel/internal/metrics"
	"github.com/shopmate/sentinel/internal/security"
	"github.com/shopmate/sentinel/params"
)

type Config struct {
	MaxHistoryEvents int
	HistoryMaxAge    time.Duration
	DefaultBlockTTL  time.Duration
}

func (c *Config) sanitize() {
	if c.MaxHistoryEvents < 1 {
		c.MaxHistoryEvents = params.MonitorMaxHistoryEvents
	}
	if c.HistoryMaxAge <= 0 {
		c.HistoryMaxAge = params.MonitorHistoryMaxAge
	}
	if c.DefaultBlockTTL <= 0 {
		c.DefaultBlockTTL = params.MonitorDefaultBlockTTL
	}
}

// RuleTrigger is the ruleTriggered notification payload.
type RuleTrigger struct {
	Rule  *Rule
	Event *security.SecurityEvent
}

// RateOverride is the rateLimitOverridden notification payload.
type RateOverride struct {
	IP         string
	Multiplier float64
}

// Notifications groups the monitor's typed pub/sub topics.
type Notifications struct {
	AlertCreated        *events.Topic[*Alert]
	AlertResolved       *events.Topic[*Alert]
	RuleAdded           *events.Topic[*Rule]
	RuleRemoved         *events.Topic[*Rule]
	RuleTriggered       *events.Topic[RuleTrigger]
	IPBlocked           *events.Topic[string]
	IPUnblocked         *events.Topic[string]
	RateLimitOverridden *events.Topic[RateOverride]
	MonitoringStarted   *events.Topic[time.Time]
	MonitoringStopped   *events.Topic[time.Time]
}

func newNotifications() *Notifications {
	return &Notifications{
		AlertCreated:        events.NewTopic[*Alert](),
		AlertResolved:       events.NewTopic[*Alert](),
		RuleAdded:           events.NewTopic[*Rule](),
		RuleRemoved:         events.NewTopic[*Rule](),
		RuleTriggered:       events.NewTopic[RuleTrigger](),
		IPBlocked:           events.NewTopic[string](),
		IPUnblocked:         events.NewTopic[string](),
		RateLimitOverridden: events.NewTopic[RateOverride](),
		MonitoringStarted:   events.NewTopic[time.Time](),
		MonitoringStopped:   events.NewTopic[time.Time](),
	}
}

// Metrics is a point-in-time aggregate snapshot.
type Metrics struct {
	TotalEvents    uint64                          `json:"totalEvents"`
	ByType         map[security.EventType]uint64   `json:"byType"`
	BySeverity     map[security.Severity]uint64    `json:"bySeverity"`
	ByThreatLevel  map[security.ThreatLevel]uint64 `json:"byThreatLevel"`
	OpenAlerts     int                             `json:"openAlerts"`
	BlockedIPs     int                             `json:"blockedIPs"`
	RulesInstalled int                             `json:"rulesInstalled"`
}

// Monitor evaluates threat detection rules against incoming events and
// executes their response actions. All mutable state lives behind one
// mutex so two events racing on the same rule cannot both pass the
// cooldown check.
type Monitor struct {
	cfg      Config
	notifier Notifier
	topics   *Notifications

	mu            sync.Mutex
	monitoring    bool
	rules         map[string]*Rule
	alerts        map[string]*Alert
	history       []*security.SecurityEvent
	blockTimers   map[string]*blockEntry
	rateOverrides map[string]float64

	totalEvents   uint64
	byType        map[security.EventType]uint64
	bySeverity    map[security.Severity]uint64
	byThreatLevel map[security.ThreatLevel]uint64
}

// New builds a stopped monitor preloaded with the default rule set.
// notifier may be nil, in which case notify/escalate actions only log.
func New(cfg Config, notifier Notifier) *Monitor {
	cfg.sanitize()
	m := &Monitor{
		cfg:           cfg,
		notifier:      notifier,
		topics:        newNotifications(),
		rules:         make(map[string]*Rule),
		alerts:        make(map[string]*Alert),
		blockTimers:   make(map[string]*blockEntry),
		rateOverrides: make(map[string]float64),
		byType:        make(map[security.EventType]uint64),
		bySeverity:    make(map[security.Severity]uint64),
		byThreatLevel: make(map[security.ThreatLevel]uint64),
	}
	for _, rule := range DefaultRules() {
		m.rules[rule.ID] = rule
	}
	return m
}

func (m *Monitor) Notifications() *Notifications {
	return m.topics
}

func (m *Monitor) Start() {
	m.mu.Lock()
	if m.monitoring {
		m.mu.Unlock()
		return
	}
	m.monitoring = true
	m.mu.Unlock()
	m.topics.MonitoringStarted.Publish(time.Now())
	slog.Info("Security monitoring started")
}

// Stop turns processing off. Events arriving while stopped are dropped,
// not queued. Blocked IPs and open alerts are retained.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		return
	}
	m.monitoring = false
	m.mu.Unlock()
	m.topics.MonitoringStopped.Publish(time.Now())
	slog.Info("Security monitoring stopped")
}

func (m *Monitor) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitoring
}

// ProcessSecurityEvent appends the event to history, updates the
// aggregates and evaluates every enabled rule whose cooldown has elapsed.
// A no-op while the monitor is stopped.
func (m *Monitor) ProcessSecurityEvent(event *security.SecurityEvent) {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		return
	}

	m.history = append(m.history, event)
	m.pruneHistoryLocked(time.Now())

	m.totalEvents++
	m.byType[event.Type]++
	m.bySeverity[event.Severity]++
	m.byThreatLevel[security.ThreatLevelForScore(event.RiskScore)]++

	now := time.Now()
	var triggered []*Rule
	for _, rule := range m.rules {
		if !rule.Enabled {
			continue
		}
		if !rule.LastTriggered.IsZero() && now.Sub(rule.LastTriggered) < rule.Cooldown {
			continue
		}
		if m.ruleMatches(rule, event) {
			rule.LastTriggered = now
			triggered = append(triggered, rule)
		}
	}
	m.mu.Unlock()

	// deterministic order when several rules fire on one event
	sort.Slice(triggered, func(i, j int) bool { return triggered[i].ID < triggered[j].ID })
	for _, rule := range triggered {
		metrics.RulesTriggeredTotal.WithLabelValues(rule.ID).Inc()
		m.topics.RuleTriggered.Publish(RuleTrigger{Rule: rule, Event: event})
		slog.Warn("Threat detection rule triggered", "rule", rule.ID, "event", event.ID, "ip", event.IPAddress)
		m.executeActions(rule, event)
	}
}

// ruleMatches evaluates all conditions (logical AND). Panics from a
// malformed rule are contained so the remaining rules still run.
func (m *Monitor) ruleMatches(rule *Rule, event *security.SecurityEvent) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Rule evaluation panicked", "rule", rule.ID, "panic", r)
			matched = false
		}
	}()
	for _, cond := range rule.Conditions {
		if !evaluateCondition(event, cond) {
			return false
		}
	}
	return len(rule.Conditions) > 0
}

// pruneHistoryLocked enforces both history bounds after each event.
func (m *Monitor) pruneHistoryLocked(now time.Time) {
	if overflow := len(m.history) - m.cfg.MaxHistoryEvents; overflow > 0 {
		m.history = append(m.history[:0], m.history[overflow:]...)
	}
	cutoff := now.Add(-m.cfg.HistoryMaxAge)
	firstFresh := 0
	for firstFresh < len(m.history) && m.history[firstFresh].Timestamp.Before(cutoff) {
		firstFresh++
	}
	if firstFresh > 0 {
		m.history = append(m.history[:0], m.history[firstFresh:]...)
	}
}

// EventHistory returns a copy of the bounded event history.
func (m *Monitor) EventHistory() []*security.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := make([]*security.SecurityEvent, len(m.history))
	copy(history, m.history)
	return history
}

// AddRule installs or replaces a rule.
func (m *Monitor) AddRule(rule *Rule) error {
	if rule.ID == "" {
		return ErrRuleIDEmpty
	}
	if len(rule.Conditions) == 0 {
		return ErrRuleNoConditions
	}
	m.mu.Lock()
	m.rules[rule.ID] = rule
	m.mu.Unlock()
	m.topics.RuleAdded.Publish(rule)
	return nil
}

// RemoveRule uninstalls a rule, reporting whether it existed.
func (m *Monitor) RemoveRule(id string) bool {
	m.mu.Lock()
	rule, ok := m.rules[id]
	if ok {
		delete(m.rules, id)
	}
	m.mu.Unlock()
	if ok {
		m.topics.RuleRemoved.Publish(rule)
	}
	return ok
}

// Rules returns the installed rules sorted by id.
func (m *Monitor) Rules() []*Rule {
	m.mu.Lock()
	rules := make([]*Rule, 0, len(m.rules))
	for _, rule := range m.rules {
		rules = append(rules, rule)
	}
	m.mu.Unlock()
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// ActiveAlerts returns unresolved alerts, newest first.
func (m *Monitor) ActiveAlerts() []*Alert {
	m.mu.Lock()
	alerts := make([]*Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if !alert.IsResolved {
			alerts = append(alerts, alert)
		}
	}
	m.mu.Unlock()
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Timestamp.After(alerts[j].Timestamp) })
	return alerts
}

// ResolveAlert closes an alert. Resolving an already-resolved alert is a
// no-op, not an error.
func (m *Monitor) ResolveAlert(id string, resolvedBy string) bool {
	m.mu.Lock()
	alert, ok := m.alerts[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if alert.IsResolved {
		m.mu.Unlock()
		return true
	}
	now := time.Now()
	alert.IsResolved = true
	alert.ResolvedAt = &now
	alert.ResolvedBy = resolvedBy
	m.mu.Unlock()

	metrics.AlertsOpen.Dec()
	m.topics.AlertResolved.Publish(alert)
	return true
}

// Metrics returns a snapshot of the aggregates.
func (m *Monitor) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := Metrics{
		TotalEvents:    m.totalEvents,
		ByType:         make(map[security.EventType]uint64, len(m.byType)),
		BySeverity:     make(map[security.Severity]uint64, len(m.bySeverity)),
		ByThreatLevel:  make(map[security.ThreatLevel]uint64, len(m.byThreatLevel)),
		BlockedIPs:     len(m.blockTimers),
		RulesInstalled: len(m.rules),
	}
	for k, v := range m.byType {
		snapshot.ByType[k] = v
	}
	for k, v := range m.bySeverity {
		snapshot.BySeverity[k] = v
	}
	for k, v := range m.byThreatLevel {
		snapshot.ByThreatLevel[k] = v
	}
	for _, alert := range m.alerts {
		if !alert.IsResolved {
			snapshot.OpenAlerts++
		}
	}
	return snapshot
}

// Close cancels all pending unblock timers. State queries remain valid.
func (m *Monitor) Close() {
	m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	for ip, entry := range m.blockTimers {
		entry.timer.Stop()
		delete(m.blockTimers, ip)
	}
}
