package mail

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/shopmate/sentinel/internal/monitor"
	"github.com/shopmate/sentinel/internal/render"
)

func notificationVars(n monitor.Notification) fiber.Map {
	vars := fiber.Map{
		"ruleId":      n.RuleID,
		"ruleName":    n.RuleName,
		"severity":    string(n.Severity),
		"threatLevel": string(n.ThreatLevel),
		"message":     n.Message,
	}
	if n.Event != nil {
		vars["ipAddress"] = n.Event.IPAddress
		vars["endpoint"] = n.Event.Endpoint
		vars["riskScore"] = n.Event.RiskScore
		vars["timestamp"] = n.Event.Timestamp.Format("2006-01-02 15:04:05 MST")
	}
	return vars
}

// SendSecurityAlert mails a triggered-rule notification to the security
// contacts.
func SendSecurityAlert(sender MailSender, toEmails []string, n monitor.Notification) error {
	body, err := render.RenderHTML("mail/security-alert", notificationVars(n))
	if err != nil {
		return err
	}
	return sender.Send(&Message{
		To:      toEmails,
		Subject: fmt.Sprintf("[%s] Security alert: %s", n.ThreatLevel, n.RuleName),
		Body:    body,
		IsHTML:  true,
	})
}

// SendSecurityEscalation mails an escalated incident. Escalations go out
// even for rules that carry no notify action.
func SendSecurityEscalation(sender MailSender, toEmails []string, n monitor.Notification) error {
	body, err := render.RenderHTML("mail/security-escalation", notificationVars(n))
	if err != nil {
		return err
	}
	return sender.Send(&Message{
		To:      toEmails,
		Subject: fmt.Sprintf("[ESCALATED] Security incident: %s", n.RuleName),
		Body:    body,
		IsHTML:  true,
	})
}
