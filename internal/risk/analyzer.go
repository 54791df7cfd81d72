package risk

import (
	"net"
	"regexp"

	"github.com/shopmate/sentinel/internal/security"
)

// baseScores holds the per-type contribution before severity weighting.
// Event types not listed contribute nothing on their own.
var baseScores = map[security.EventType]int{
	security.EventAuthFailure:         30,
	security.EventAuthzFailure:        40,
	security.EventRateLimitExceeded:   20,
	security.EventCSRFInvalid:         50,
	security.EventSQLInjectionAttempt: 80,
	security.EventXSSAttempt:          70,
	security.EventSuspiciousActivity:  60,
}

var botUserAgentPattern = regexp.MustCompile(`(?i)(bot|crawler|spider|scraper|curl|wget|python-requests|go-http-client)`)

// Score estimates how dangerous a single event is on a 0-100 scale.
// It is a pure function: no I/O, no side effects, deterministic for a
// given event.
func Score(event *security.SecurityEvent) int {
	score := float64(baseScores[event.Type])

	switch event.Severity {
	case security.SeverityCritical:
		score *= 1.5
	case security.SeverityHigh:
		score *= 1.2
	case security.SeverityMedium:
		score *= 1.0
	case security.SeverityLow:
		score *= 0.8
	}

	if IsSuspiciousIP(event.IPAddress) {
		score += 20
	}
	if IsScriptedClient(event.UserAgent) {
		score += 15
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// IsSuspiciousIP is a placeholder heuristic flagging private and loopback
// ranges. A production deployment should swap this for a real threat-intel
// lookup.
func IsSuspiciousIP(ipAddress string) bool {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback()
}

// IsScriptedClient reports whether the user agent looks like a bot,
// crawler or scripted HTTP client.
func IsScriptedClient(userAgent string) bool {
	return userAgent != "" && botUserAgentPattern.MatchString(userAgent)
}
