package security

import "time"

type EventType string

const (
	EventAuthSuccess             EventType = "AUTH_SUCCESS"
	EventAuthFailure             EventType = "AUTH_FAILURE"
	EventAuthzSuccess            EventType = "AUTHZ_SUCCESS"
	EventAuthzFailure            EventType = "AUTHZ_FAILURE"
	EventRateLimitExceeded       EventType = "RATE_LIMIT_EXCEEDED"
	EventCSRFInvalid             EventType = "CSRF_INVALID"
	EventInputSanitization       EventType = "INPUT_SANITIZATION"
	EventSQLInjectionAttempt     EventType = "SQL_INJECTION_ATTEMPT"
	EventXSSAttempt              EventType = "XSS_ATTEMPT"
	EventSuspiciousActivity      EventType = "SUSPICIOUS_ACTIVITY"
	EventDataAccess              EventType = "DATA_ACCESS"
	EventDataModification        EventType = "DATA_MODIFICATION"
	EventConfigChange            EventType = "CONFIG_CHANGE"
	EventSystemError             EventType = "SYSTEM_ERROR"
	EventSecurityHeaderViolation EventType = "SECURITY_HEADER_VIOLATION"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so a minimum log level can be enforced.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

type ThreatLevel string

const (
	ThreatLevelLow      ThreatLevel = "LOW"
	ThreatLevelMedium   ThreatLevel = "MEDIUM"
	ThreatLevelHigh     ThreatLevel = "HIGH"
	ThreatLevelCritical ThreatLevel = "CRITICAL"
)

// ThreatLevelForScore buckets a risk score into a coarse threat level.
func ThreatLevelForScore(riskScore int) ThreatLevel {
	switch {
	case riskScore >= 90:
		return ThreatLevelCritical
	case riskScore >= 70:
		return ThreatLevelHigh
	case riskScore >= 40:
		return ThreatLevelMedium
	default:
		return ThreatLevelLow
	}
}

// SecurityEvent is an immutable record of a single security-relevant
// incident. It is produced once by the HTTP boundary and consumed, never
// mutated, by the audit logger and the security monitor.
type SecurityEvent struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Type          EventType      `json:"type"`
	Severity      Severity       `json:"severity"`
	UserID        string         `json:"userId,omitempty"`
	SessionID     string         `json:"sessionId,omitempty"`
	ShopDomain    string         `json:"shopDomain,omitempty"`
	IPAddress     string         `json:"ipAddress"`
	UserAgent     string         `json:"userAgent"`
	Endpoint      string         `json:"endpoint"`
	Method        string         `json:"method"`
	StatusCode    int            `json:"statusCode"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	RiskScore     int            `json:"riskScore"`
	Tags          []string       `json:"tags,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// RequestContext carries the request identifiers the web layer hands to
// this subsystem. It is the sole coupling point to the HTTP framework.
type RequestContext struct {
	IP         string
	Method     string
	Path       string
	StatusCode int
	UserAgent  string
	UserID     string
	SessionID  string
	ShopDomain string
}
