package monitor

import "errors"

var (
	ErrRuleIDEmpty      = errors.New("rule id cannot be empty")
	ErrRuleNoConditions = errors.New("rule must have at least one condition")
)
