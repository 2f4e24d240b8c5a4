package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"github.com/sirupsen/logrus"
)

// Notification is one reorder finding rendered for delivery.
type Notification struct {
	ComponentCode  string
	ComponentName  string
	ReorderStatus  string
	QuantityOnHand int
	ReorderPoint   int
}

func (n Notification) text() string {
	return fmt.Sprintf("[%s] %s (%s): %d on hand, reorder point %d",
		n.ReorderStatus, n.ComponentName, n.ComponentCode, n.QuantityOnHand, n.ReorderPoint)
}

// SMTPConfig carries the outbound mail settings.
type SMTPConfig struct {
	Host string
	Port string
	From string
}

// Notifier delivers reorder notifications over Slack webhooks and email.
// Delivery is best-effort; failures are logged, never propagated to the
// sweep.
type Notifier struct {
	httpClient *http.Client
	smtp       SMTPConfig
	logger     *logrus.Logger
}

func NewNotifier(smtpConfig SMTPConfig, logger *logrus.Logger) *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		smtp:       smtpConfig,
		logger:     logger,
	}
}

// SendSlack posts the notifications to a Slack incoming webhook as one
// message.
func (n *Notifier) SendSlack(ctx context.Context, webhookURL string, notifications []Notification) error {
	if webhookURL == "" || len(notifications) == 0 {
		return nil
	}

	text := "Inventory reorder alerts:\n"
	for _, notif := range notifications {
		text += "• " + notif.text() + "\n"
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SendEmail delivers the notifications as a plain-text email.
func (n *Notifier) SendEmail(to string, notifications []Notification) error {
	if to == "" || len(notifications) == 0 {
		return nil
	}
	if n.smtp.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	body := "The following components are at or below their reorder thresholds:\r\n\r\n"
	for _, notif := range notifications {
		body += notif.text() + "\r\n"
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Inventory reorder alerts\r\n\r\n%s",
		n.smtp.From, to, body)

	addr := n.smtp.Host + ":" + n.smtp.Port
	return smtp.SendMail(addr, nil, n.smtp.From, []string{to}, []byte(msg))
}

// Deliver fans a batch out to every configured channel, logging failures.
func (n *Notifier) Deliver(ctx context.Context, tenantID, slackWebhookURL, alertEmail string, notifications []Notification) {
	if len(notifications) == 0 {
		return
	}
	if slackWebhookURL != "" {
		if err := n.SendSlack(ctx, slackWebhookURL, notifications); err != nil {
			n.logger.WithError(err).WithField("tenant_id", tenantID).Warn("Failed to deliver Slack notification")
		}
	}
	if alertEmail != "" {
		if err := n.SendEmail(alertEmail, notifications); err != nil {
			n.logger.WithError(err).WithField("tenant_id", tenantID).Warn("Failed to deliver email notification")
		}
	}
}
