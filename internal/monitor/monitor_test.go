package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopmate/sentinel/internal/security"
)

type fakeNotifier struct {
	mu         sync.Mutex
	notified   []Notification
	escalated  []Notification
	notifyErr  error
	escalError error
}

func (n *fakeNotifier) Notify(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, notification)
	return n.notifyErr
}

func (n *fakeNotifier) Escalate(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.escalated = append(n.escalated, notification)
	return n.escalError
}

func authFailureEvent(ip string, riskScore int) *security.SecurityEvent {
	return &security.SecurityEvent{
		ID:        "evt-" + ip,
		Timestamp: time.Now(),
		Type:      security.EventAuthFailure,
		Severity:  security.SeverityHigh,
		IPAddress: ip,
		UserAgent: "curl/8.4.0",
		Endpoint:  "/api/login",
		Method:    "POST",
		RiskScore: riskScore,
	}
}

func newStartedMonitor(t *testing.T) *Monitor {
	t.Helper()
	m := New(Config{}, nil)
	m.Start()
	t.Cleanup(m.Close)
	return m
}

func TestMonitoringGate(t *testing.T) {
	m := New(Config{}, nil)
	t.Cleanup(m.Close)

	// stopped: events are dropped, not queued
	m.ProcessSecurityEvent(authFailureEvent("10.0.0.5", 70))
	if got := m.Metrics().TotalEvents; got != 0 {
		t.Fatalf("stopped monitor processed %d events", got)
	}

	m.Start()
	if !m.IsMonitoring() {
		t.Fatal("expected monitoring on after Start")
	}
	m.ProcessSecurityEvent(authFailureEvent("10.0.0.5", 70))
	if got := m.Metrics().TotalEvents; got != 1 {
		t.Fatalf("expected 1 processed event, got %d", got)
	}

	m.Stop()
	if m.IsMonitoring() {
		t.Fatal("expected monitoring off after Stop")
	}
}

// TestBruteForceScenario covers the stock brute-force rule: five
// high-risk AUTH_FAILURE events from one IP fire the rule exactly once
// (5 min cooldown), block the IP and open one HIGH alert.
func TestBruteForceScenario(t *testing.T) {
	m := newStartedMonitor(t)

	for i := 0; i < 5; i++ {
		m.ProcessSecurityEvent(authFailureEvent("10.0.0.5", 70))
	}

	if !m.IsIPBlocked("10.0.0.5") {
		t.Error("expected 10.0.0.5 blocked")
	}
	alerts := m.ActiveAlerts()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	if alerts[0].ThreatLevel != security.ThreatLevelHigh {
		t.Errorf("expected HIGH threat level, got %s", alerts[0].ThreatLevel)
	}
	if alerts[0].Source != "10.0.0.5" {
		t.Errorf("alert source should be the offending IP, got %q", alerts[0].Source)
	}
}

func TestRuleCooldown(t *testing.T) {
	m := newStartedMonitor(t)

	fired := 0
	feed, unsubscribe := m.Notifications().RuleTriggered.Subscribe(16)
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		m.ProcessSecurityEvent(authFailureEvent("10.0.0.9", 75))
	}
drain:
	for {
		select {
		case <-feed:
			fired++
		default:
			break drain
		}
	}
	if fired != 1 {
		t.Fatalf("rule fired %d times within cooldown, want 1", fired)
	}

	// an elapsed cooldown re-arms the rule
	m.mu.Lock()
	m.rules["brute-force-detection"].LastTriggered = time.Now().Add(-10 * time.Minute)
	m.mu.Unlock()

	m.ProcessSecurityEvent(authFailureEvent("10.0.0.9", 75))
	select {
	case <-feed:
	case <-time.After(time.Second):
		t.Fatal("rule did not re-fire after cooldown elapsed")
	}
}

func TestRateLimitAbuseRule(t *testing.T) {
	m := newStartedMonitor(t)

	event := &security.SecurityEvent{
		ID:        "evt-rl",
		Timestamp: time.Now(),
		Type:      security.EventRateLimitExceeded,
		Severity:  security.SeverityMedium,
		IPAddress: "198.51.100.20",
		RiskScore: 45,
	}
	m.ProcessSecurityEvent(event)

	if got := m.RateLimitOverride("198.51.100.20"); got != 0.1 {
		t.Fatalf("expected 0.1 override, got %v", got)
	}
	if got := m.RateLimitOverride("203.0.113.1"); got != 1 {
		t.Fatalf("expected default multiplier 1, got %v", got)
	}

	m.ClearRateLimitOverride("198.51.100.20")
	if got := m.RateLimitOverride("198.51.100.20"); got != 1 {
		t.Fatalf("expected override cleared, got %v", got)
	}
}

func TestEscalateCallsNotifier(t *testing.T) {
	notifier := &fakeNotifier{}
	m := New(Config{}, notifier)
	m.Start()
	t.Cleanup(m.Close)

	m.ProcessSecurityEvent(&security.SecurityEvent{
		ID:        "evt-sqli",
		Timestamp: time.Now(),
		Type:      security.EventSQLInjectionAttempt,
		Severity:  security.SeverityCritical,
		IPAddress: "203.0.113.66",
		RiskScore: 99,
	})

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.escalated) != 1 {
		t.Fatalf("expected 1 escalation, got %d", len(notifier.escalated))
	}
	if notifier.escalated[0].RuleID != "sql-injection-detection" {
		t.Errorf("wrong rule escalated: %s", notifier.escalated[0].RuleID)
	}
}

func TestManualUnblockCancelsTimer(t *testing.T) {
	m := newStartedMonitor(t)

	unblocked, unsubscribe := m.Notifications().IPUnblocked.Subscribe(4)
	defer unsubscribe()

	m.BlockIP("10.1.1.1", 30*time.Millisecond)
	if !m.UnblockIP("10.1.1.1") {
		t.Fatal("expected UnblockIP to report the IP was blocked")
	}
	<-unblocked // manual unblock notification

	// re-block; the cancelled timer must not clear this newer block
	m.BlockIP("10.1.1.1", time.Hour)
	time.Sleep(80 * time.Millisecond)
	if !m.IsIPBlocked("10.1.1.1") {
		t.Fatal("stale timer cleared a newer block")
	}

	if m.UnblockIP("172.16.0.1") {
		t.Error("unblocking a non-blocked IP should report false")
	}
}

func TestAutoUnblockExpires(t *testing.T) {
	m := newStartedMonitor(t)

	unblocked, unsubscribe := m.Notifications().IPUnblocked.Subscribe(1)
	defer unsubscribe()

	m.BlockIP("10.2.2.2", 20*time.Millisecond)
	select {
	case ip := <-unblocked:
		if ip != "10.2.2.2" {
			t.Fatalf("wrong ip unblocked: %s", ip)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("auto-unblock never fired")
	}
	if m.IsIPBlocked("10.2.2.2") {
		t.Fatal("ip still blocked after expiry")
	}
}

// TestBlockIPConcurrentExpiry arms immediately expiring blocks from several
// goroutines at once. The unblock callback can fire before BlockIP has even
// returned, so it must observe a fully constructed block entry; eventually
// every address must be cleared.
func TestBlockIPConcurrentExpiry(t *testing.T) {
	m := newStartedMonitor(t)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				m.BlockIP(fmt.Sprintf("10.9.%d.%d", g, i), time.Nanosecond)
			}
		}(g)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for len(m.BlockedIPs()) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d addresses still blocked after expiry", len(m.BlockedIPs()))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestResolveAlertIdempotent(t *testing.T) {
	m := newStartedMonitor(t)
	m.ProcessSecurityEvent(authFailureEvent("10.3.3.3", 80))

	alerts := m.ActiveAlerts()
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	id := alerts[0].ID

	if !m.ResolveAlert(id, "analyst@shopmate") {
		t.Fatal("first resolve failed")
	}
	if !m.ResolveAlert(id, "someone-else") {
		t.Fatal("second resolve should be a no-op, not a failure")
	}
	if alerts[0].ResolvedBy != "analyst@shopmate" {
		t.Errorf("second resolve overwrote resolution: %s", alerts[0].ResolvedBy)
	}
	if len(m.ActiveAlerts()) != 0 {
		t.Error("resolved alert still listed as active")
	}
	if m.ResolveAlert("missing-id", "x") {
		t.Error("resolving an unknown alert should report false")
	}
}

func TestAddRemoveRule(t *testing.T) {
	m := newStartedMonitor(t)

	if err := m.AddRule(&Rule{ID: "", Conditions: []Condition{{Field: "type", Operator: OpEquals, Value: "X"}}}); err != ErrRuleIDEmpty {
		t.Fatalf("expected ErrRuleIDEmpty, got %v", err)
	}
	if err := m.AddRule(&Rule{ID: "no-conds"}); err != ErrRuleNoConditions {
		t.Fatalf("expected ErrRuleNoConditions, got %v", err)
	}

	rule := &Rule{
		ID:      "shop-takeover",
		Name:    "Shop domain probing",
		Enabled: true,
		Conditions: []Condition{
			{Field: "shopDomain", Operator: OpContains, Value: "evil"},
		},
		Actions:  []Action{{Type: ActionAlert}},
		Cooldown: time.Minute,
	}
	if err := m.AddRule(rule); err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}

	event := authFailureEvent("10.4.4.4", 10)
	event.ShopDomain = "evil.myshopify.com"
	m.ProcessSecurityEvent(event)
	if len(m.ActiveAlerts()) != 1 {
		t.Fatal("custom rule did not fire")
	}

	if !m.RemoveRule("shop-takeover") {
		t.Fatal("RemoveRule failed")
	}
	if m.RemoveRule("shop-takeover") {
		t.Fatal("removing twice should report false")
	}
}

// TestMalformedRuleIsolated ensures one broken rule cannot keep the rest
// from firing on the same event.
func TestMalformedRuleIsolated(t *testing.T) {
	m := newStartedMonitor(t)

	if err := m.AddRule(&Rule{
		ID:      "broken-regex",
		Enabled: true,
		Conditions: []Condition{
			{Field: "userAgent", Operator: OpMatches, Value: "(["},
		},
		Actions:  []Action{{Type: ActionAlert}},
		Cooldown: time.Minute,
	}); err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}

	m.ProcessSecurityEvent(authFailureEvent("10.5.5.5", 80))
	if len(m.ActiveAlerts()) != 1 {
		t.Fatal("healthy rule suppressed by malformed rule")
	}
}

func TestHistoryBounds(t *testing.T) {
	m := New(Config{MaxHistoryEvents: 5, HistoryMaxAge: time.Hour}, nil)
	m.Start()
	t.Cleanup(m.Close)

	for i := 0; i < 8; i++ {
		event := authFailureEvent("10.6.6.6", 10)
		m.ProcessSecurityEvent(event)
	}
	if got := len(m.EventHistory()); got != 5 {
		t.Fatalf("history not capped: %d", got)
	}

	// entries older than the max age are pruned on the next event
	m.mu.Lock()
	for _, event := range m.history[:3] {
		event.Timestamp = time.Now().Add(-2 * time.Hour)
	}
	m.mu.Unlock()
	m.ProcessSecurityEvent(authFailureEvent("10.6.6.8", 10))

	for _, event := range m.EventHistory() {
		if event.Timestamp.Before(time.Now().Add(-time.Hour)) {
			t.Fatal("stale event survived pruning")
		}
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := newStartedMonitor(t)

	m.ProcessSecurityEvent(authFailureEvent("10.7.7.7", 75))
	snapshot := m.Metrics()
	if snapshot.TotalEvents != 1 {
		t.Errorf("TotalEvents = %d", snapshot.TotalEvents)
	}
	if snapshot.ByType[security.EventAuthFailure] != 1 {
		t.Errorf("ByType = %v", snapshot.ByType)
	}
	if snapshot.BySeverity[security.SeverityHigh] != 1 {
		t.Errorf("BySeverity = %v", snapshot.BySeverity)
	}
	if snapshot.ByThreatLevel[security.ThreatLevelHigh] != 1 {
		t.Errorf("ByThreatLevel = %v", snapshot.ByThreatLevel)
	}
	if snapshot.OpenAlerts != 1 || snapshot.BlockedIPs != 1 {
		t.Errorf("OpenAlerts=%d BlockedIPs=%d", snapshot.OpenAlerts, snapshot.BlockedIPs)
	}
	if snapshot.RulesInstalled != len(DefaultRules()) {
		t.Errorf("RulesInstalled = %d", snapshot.RulesInstalled)
	}
}
