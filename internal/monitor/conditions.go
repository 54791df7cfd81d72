package monitor

import (
	"regexp"
	"strings"

	"github.com/shopmate/sentinel/internal/security"
	"github.com/spf13/cast"
)

// eventField resolves a condition field from the closed set of event
// attributes, falling back to the details map for anything else.
func eventField(event *security.SecurityEvent, field string) (any, bool) {
	switch field {
	case "type":
		return string(event.Type), true
	case "severity":
		return string(event.Severity), true
	case "ipAddress":
		return event.IPAddress, true
	case "userAgent":
		return event.UserAgent, true
	case "endpoint":
		return event.Endpoint, true
	case "method":
		return event.Method, true
	case "statusCode":
		return event.StatusCode, true
	case "riskScore":
		return event.RiskScore, true
	case "shopDomain":
		return event.ShopDomain, true
	}
	val, ok := event.Details[field]
	return val, ok
}

// evaluateCondition reports whether the event satisfies one condition.
// Any coercion or regex error counts as a non-match so one malformed rule
// cannot abort event processing.
func evaluateCondition(event *security.SecurityEvent, cond Condition) bool {
	actual, ok := eventField(event, cond.Field)
	if !ok {
		return cond.Operator == OpNotIn
	}

	switch cond.Operator {
	case OpEquals:
		return cast.ToString(actual) == cast.ToString(cond.Value)
	case OpContains:
		return strings.Contains(cast.ToString(actual), cast.ToString(cond.Value))
	case OpMatches:
		pattern, err := regexp.Compile(cast.ToString(cond.Value))
		if err != nil {
			return false
		}
		return pattern.MatchString(cast.ToString(actual))
	case OpGreaterThan:
		lhs, lhsErr := cast.ToFloat64E(actual)
		rhs, rhsErr := cast.ToFloat64E(cond.Value)
		return lhsErr == nil && rhsErr == nil && lhs > rhs
	case OpLessThan:
		lhs, lhsErr := cast.ToFloat64E(actual)
		rhs, rhsErr := cast.ToFloat64E(cond.Value)
		return lhsErr == nil && rhsErr == nil && lhs < rhs
	case OpIn:
		return containsValue(cond.Value, actual)
	case OpNotIn:
		return !containsValue(cond.Value, actual)
	default:
		return false
	}
}

func containsValue(haystack any, needle any) bool {
	values, err := cast.ToStringSliceE(haystack)
	if err != nil {
		return false
	}
	target := cast.ToString(needle)
	for _, val := range values {
		if val == target {
			return true
		}
	}
	return false
}
