package risk

import (
	"testing"

	"github.com/shopmate/sentinel/internal/security"
)

func makeEvent(eventType security.EventType, severity security.Severity) *security.SecurityEvent {
	return &security.SecurityEvent{
		Type:      eventType,
		Severity:  severity,
		IPAddress: "203.0.113.10",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
	}
}

func TestScoreBaseByType(t *testing.T) {
	cases := []struct {
		eventType security.EventType
		want      int
	}{
		{security.EventAuthFailure, 30},
		{security.EventAuthzFailure, 40},
		{security.EventRateLimitExceeded, 20},
		{security.EventCSRFInvalid, 50},
		{security.EventSQLInjectionAttempt, 80},
		{security.EventXSSAttempt, 70},
		{security.EventSuspiciousActivity, 60},
		{security.EventDataAccess, 0},
		{security.EventConfigChange, 0},
	}
	for _, tc := range cases {
		got := Score(makeEvent(tc.eventType, security.SeverityMedium))
		if got != tc.want {
			t.Errorf("Score(%s, MEDIUM) = %d, want %d", tc.eventType, got, tc.want)
		}
	}
}

func TestScoreSeverityFactor(t *testing.T) {
	// AUTH_FAILURE base 30: CRITICAL x1.5=45, HIGH x1.2=36, LOW x0.8=24
	cases := []struct {
		severity security.Severity
		want     int
	}{
		{security.SeverityCritical, 45},
		{security.SeverityHigh, 36},
		{security.SeverityMedium, 30},
		{security.SeverityLow, 24},
	}
	for _, tc := range cases {
		got := Score(makeEvent(security.EventAuthFailure, tc.severity))
		if got != tc.want {
			t.Errorf("Score(AUTH_FAILURE, %s) = %d, want %d", tc.severity, got, tc.want)
		}
	}
}

func TestScoreSuspiciousIPAdjustment(t *testing.T) {
	event := makeEvent(security.EventAuthFailure, security.SeverityMedium)
	event.IPAddress = "10.0.0.5"
	if got := Score(event); got != 50 {
		t.Errorf("expected +20 for private source IP, got score %d", got)
	}

	event.IPAddress = "127.0.0.1"
	if got := Score(event); got != 50 {
		t.Errorf("expected +20 for loopback source IP, got score %d", got)
	}
}

func TestScoreScriptedClientAdjustment(t *testing.T) {
	event := makeEvent(security.EventAuthFailure, security.SeverityMedium)
	event.UserAgent = "curl/8.4.0"
	if got := Score(event); got != 45 {
		t.Errorf("expected +15 for scripted client, got score %d", got)
	}
}

// TestScoreClamped verifies the score invariant 0 <= score <= 100 even when
// every adjustment stacks on the highest base score.
func TestScoreClamped(t *testing.T) {
	event := &security.SecurityEvent{
		Type:      security.EventSQLInjectionAttempt,
		Severity:  security.SeverityCritical,
		IPAddress: "192.168.1.44",
		UserAgent: "python-requests/2.31",
	}
	// 80*1.5 + 20 + 15 = 155 before clamping
	if got := Score(event); got != 100 {
		t.Errorf("expected clamp to 100, got %d", got)
	}

	for _, eventType := range []security.EventType{
		security.EventDataAccess, security.EventSystemError,
	} {
		if got := Score(makeEvent(eventType, security.SeverityLow)); got < 0 || got > 100 {
			t.Errorf("score out of range for %s: %d", eventType, got)
		}
	}
}

func TestIsScriptedClient(t *testing.T) {
	scripted := []string{"Googlebot/2.1", "my-crawler", "curl/7.1", "Wget/1.21", "python-requests/2.28", "Go-http-client/1.1"}
	for _, ua := range scripted {
		if !IsScriptedClient(ua) {
			t.Errorf("expected %q to be flagged as scripted", ua)
		}
	}
	if IsScriptedClient("Mozilla/5.0 (Windows NT 10.0; Win64; x64)") {
		t.Error("regular browser user agent flagged as scripted")
	}
	if IsScriptedClient("") {
		t.Error("empty user agent flagged as scripted")
	}
}
