package audit

import (
	"github.com/shopmate/sentinel/internal/security"
)

// Convenience wrappers with the fixed type/severity mapping for the common
// event categories. Each is a thin shim over LogSecurityEvent.

func (l *Logger) LogAuthentication(reqCtx security.RequestContext, success bool, message string, details map[string]any) *security.SecurityEvent {
	if success {
		return l.LogSecurityEvent(security.EventAuthSuccess, reqCtx, message, details, security.SeverityLow)
	}
	return l.LogSecurityEvent(security.EventAuthFailure, reqCtx, message, details, security.SeverityHigh)
}

func (l *Logger) LogAuthorization(reqCtx security.RequestContext, granted bool, message string, details map[string]any) *security.SecurityEvent {
	if granted {
		return l.LogSecurityEvent(security.EventAuthzSuccess, reqCtx, message, details, security.SeverityLow)
	}
	return l.LogSecurityEvent(security.EventAuthzFailure, reqCtx, message, details, security.SeverityHigh)
}

func (l *Logger) LogRateLimitExceeded(reqCtx security.RequestContext, message string, details map[string]any) *security.SecurityEvent {
	return l.LogSecurityEvent(security.EventRateLimitExceeded, reqCtx, message, details, security.SeverityMedium)
}

func (l *Logger) LogCSRFViolation(reqCtx security.RequestContext, message string, details map[string]any) *security.SecurityEvent {
	return l.LogSecurityEvent(security.EventCSRFInvalid, reqCtx, message, details, security.SeverityHigh)
}

func (l *Logger) LogInputSanitization(reqCtx security.RequestContext, message string, details map[string]any) *security.SecurityEvent {
	return l.LogSecurityEvent(security.EventInputSanitization, reqCtx, message, details, security.SeverityMedium)
}

// LogAttackAttempt records SQL-injection or XSS attempts. Attack attempts
// are CRITICAL, which flushes the buffer immediately.
func (l *Logger) LogAttackAttempt(attackType security.EventType, reqCtx security.RequestContext, message string, details map[string]any) *security.SecurityEvent {
	return l.LogSecurityEvent(attackType, reqCtx, message, details, security.SeverityCritical)
}

func (l *Logger) LogSuspiciousActivity(reqCtx security.RequestContext, message string, details map[string]any) *security.SecurityEvent {
	return l.LogSecurityEvent(security.EventSuspiciousActivity, reqCtx, message, details, security.SeverityHigh)
}
