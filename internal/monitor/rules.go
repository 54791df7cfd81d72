package monitor

import (
	"time"

	"github.com/shopmate/sentinel/internal/security"
)

type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpContains    ConditionOperator = "contains"
	OpMatches     ConditionOperator = "matches"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpIn          ConditionOperator = "in"
	OpNotIn       ConditionOperator = "not_in"
)

type ActionType string

const (
	ActionAlert     ActionType = "alert"
	ActionBlockIP   ActionType = "block_ip"
	ActionRateLimit ActionType = "rate_limit"
	ActionNotify    ActionType = "notify"
	ActionEscalate  ActionType = "escalate"
)

// Condition matches one event attribute against a value. Field resolves
// from the closed set of event attributes first, then falls back to the
// event's details map. TimeWindow is carried for rule authors but not
// evaluated; the per-rule cooldown bounds trigger frequency instead.
type Condition struct {
	Field      string            `json:"field"`
	Operator   ConditionOperator `json:"operator"`
	Value      any               `json:"value"`
	TimeWindow time.Duration     `json:"timeWindowMs,omitempty"`
}

// Action is one response step of a triggered rule.
type Action struct {
	Type   ActionType     `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Rule is a condition-action threat detection rule. All conditions must
// match (logical AND) for the actions to run. A rule with LastTriggered
// set does not re-fire until Cooldown has elapsed.
type Rule struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Enabled       bool              `json:"enabled"`
	Severity      security.Severity `json:"severity"`
	Conditions    []Condition       `json:"conditions"`
	Actions       []Action          `json:"actions"`
	Cooldown      time.Duration     `json:"cooldownMs"`
	LastTriggered time.Time         `json:"lastTriggered,omitempty"`
}

// Alert is an open or resolved security alert. Alerts are never deleted;
// resolution only stamps the resolution fields.
type Alert struct {
	ID                 string               `json:"id"`
	Timestamp          time.Time            `json:"timestamp"`
	ThreatLevel        security.ThreatLevel `json:"threatLevel"`
	Title              string               `json:"title"`
	Description        string               `json:"description"`
	Source             string               `json:"source"`
	AffectedSystems    []string             `json:"affectedSystems,omitempty"`
	Indicators         []string             `json:"indicators,omitempty"`
	RecommendedActions []string             `json:"recommendedActions,omitempty"`
	CorrelationID      string               `json:"correlationId,omitempty"`
	IsResolved         bool                 `json:"isResolved"`
	ResolvedAt         *time.Time           `json:"resolvedAt,omitempty"`
	ResolvedBy         string               `json:"resolvedBy,omitempty"`
}

// DefaultRules is the rule set the monitor ships with.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			ID:          "brute-force-detection",
			Name:        "Brute Force Attack",
			Description: "Repeated high-risk authentication failures from one source",
			Enabled:     true,
			Severity:    security.SeverityHigh,
			Conditions: []Condition{
				{Field: "type", Operator: OpEquals, Value: string(security.EventAuthFailure)},
				{Field: "riskScore", Operator: OpGreaterThan, Value: 60},
			},
			Actions: []Action{
				{Type: ActionAlert},
				{Type: ActionBlockIP, Config: map[string]any{"durationMs": int64(time.Hour / time.Millisecond)}},
			},
			Cooldown: 5 * time.Minute,
		},
		{
			ID:          "sql-injection-detection",
			Name:        "SQL Injection Attempt",
			Description: "SQL injection payload detected in request input",
			Enabled:     true,
			Severity:    security.SeverityCritical,
			Conditions: []Condition{
				{Field: "type", Operator: OpEquals, Value: string(security.EventSQLInjectionAttempt)},
			},
			Actions: []Action{
				{Type: ActionAlert},
				{Type: ActionBlockIP, Config: map[string]any{"durationMs": int64(2 * time.Hour / time.Millisecond)}},
				{Type: ActionEscalate},
			},
			Cooldown: time.Minute,
		},
		{
			ID:          "xss-detection",
			Name:        "Cross-Site Scripting Attempt",
			Description: "XSS payload detected in request input",
			Enabled:     true,
			Severity:    security.SeverityHigh,
			Conditions: []Condition{
				{Field: "type", Operator: OpEquals, Value: string(security.EventXSSAttempt)},
			},
			Actions: []Action{
				{Type: ActionAlert},
				{Type: ActionBlockIP, Config: map[string]any{"durationMs": int64(time.Hour / time.Millisecond)}},
			},
			Cooldown: 5 * time.Minute,
		},
		{
			ID:          "rate-limit-abuse",
			Name:        "Rate Limit Abuse",
			Description: "Sustained rate limit violations from one source",
			Enabled:     true,
			Severity:    security.SeverityMedium,
			Conditions: []Condition{
				{Field: "type", Operator: OpEquals, Value: string(security.EventRateLimitExceeded)},
				{Field: "riskScore", Operator: OpGreaterThan, Value: 40},
			},
			Actions: []Action{
				{Type: ActionAlert},
				{Type: ActionRateLimit, Config: map[string]any{"multiplier": 0.1}},
			},
			Cooldown: 10 * time.Minute,
		},
	}
}
