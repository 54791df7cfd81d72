// Package notify delivers monitor notifications to the outside world:
// alert email to the security contacts and webhook escalation for
// incidents that need a human now.
package notify

import (
	"context"
	"errors"

	"github.com/shopmate/sentinel/internal/mail"
	"github.com/shopmate/sentinel/internal/monitor"
)

// EmailNotifier sends both notifications and escalations as email.
type EmailNotifier struct {
	sender     mail.MailSender
	recipients []string
}

func NewEmailNotifier(sender mail.MailSender, recipients []string) *EmailNotifier {
	return &EmailNotifier{sender: sender, recipients: recipients}
}

func (n *EmailNotifier) Notify(ctx context.Context, notification monitor.Notification) error {
	return mail.SendSecurityAlert(n.sender, n.recipients, notification)
}

func (n *EmailNotifier) Escalate(ctx context.Context, notification monitor.Notification) error {
	return mail.SendSecurityEscalation(n.sender, n.recipients, notification)
}

// Multi fans a notification out to every notifier and joins the errors.
type Multi struct {
	notifiers []monitor.Notifier
}

func NewMulti(notifiers ...monitor.Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, notification monitor.Notification) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, notification); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Escalate(ctx context.Context, notification monitor.Notification) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Escalate(ctx, notification); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
