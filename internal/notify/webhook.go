package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopmate/sentinel/internal/common"
	"github.com/shopmate/sentinel/internal/monitor"
	"github.com/shopmate/sentinel/internal/security"
)

// WebhookNotifier POSTs escalations as JSON to an incident endpoint
// (PagerDuty bridge, Slack relay). Plain notifications are a no-op; the
// webhook is for incidents only.
type WebhookNotifier struct {
	url        string
	signingKey string
	client     *http.Client
}

func NewWebhookNotifier(url string, signingKey string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		signingKey: signingKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	RuleID      string                  `json:"ruleId"`
	RuleName    string                  `json:"ruleName"`
	Severity    security.Severity       `json:"severity"`
	ThreatLevel security.ThreatLevel    `json:"threatLevel"`
	Message     string                  `json:"message"`
	Event       *security.SecurityEvent `json:"event,omitempty"`
	SentAt      time.Time               `json:"sentAt"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, notification monitor.Notification) error {
	return nil
}

func (n *WebhookNotifier) Escalate(ctx context.Context, notification monitor.Notification) error {
	body, err := json.Marshal(webhookPayload{
		RuleID:      notification.RuleID,
		RuleName:    notification.RuleName,
		Severity:    notification.Severity,
		ThreatLevel: notification.ThreatLevel,
		Message:     notification.Message,
		Event:       notification.Event,
		SentAt:      time.Now(),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.signingKey != "" {
		req.Header.Set("X-Sentinel-Signature", common.CalculateHash(n.signingKey, body))
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("escalation webhook returned status %d", resp.StatusCode)
	}
	return nil
}
