// Package notification sends case outcome emails through SES and escalation
// alerts through SNS.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	awsx "benefit-orchestrator/internal/common/aws"
	"benefit-orchestrator/internal/common/config"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
)

// Request describes one notification. Data fills the template placeholders.
type Request struct {
	CaseID    string
	Kind      models.NotificationKind
	Recipient string
	Data      map[string]interface{}
}

type template struct {
	subject string
	body    string
}

var templates = map[models.NotificationKind]template{
	models.NotificationOutcome: {
		subject: "Your benefit request {{caseId}} has been processed",
		body: "Dear {{name}},\n\n" +
			"Your request {{caseId}} for {{benefitType}} has been processed.\n" +
			"Outcome: {{outcome}}\n\n{{summary}}\n",
	},
	models.NotificationEscalation: {
		subject: "Case {{caseId}} needs manual handling",
		body: "Case {{caseId}} stopped after {{steps}} stage(s) at {{lastStage}}.\n" +
			"Reason: {{errorCode}}\n\n{{summary}}\n",
	},
}

// Notifier delivers notifications. A nil sender or a disabled channel yields
// a notification with status disabled.
type Notifier struct {
	cfg   config.NotificationConfig
	email awsx.EmailSender
	topic awsx.TopicPublisher
	log   logger.Logger
	now   func() time.Time
}

func New(cfg config.NotificationConfig, email awsx.EmailSender, topic awsx.TopicPublisher, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:   cfg,
		email: email,
		topic: topic,
		log:   log.WithFields(map[string]interface{}{"component": "notifier"}),
		now:   time.Now,
	}
}

// Notify sends req on the channel for its kind. Delivery failures are
// reported in the returned status; err is only for an unknown kind.
func (n *Notifier) Notify(ctx context.Context, req Request) (*models.Notification, error) {
	tmpl, ok := templates[req.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown notification kind: %s", req.Kind)
	}

	data := map[string]interface{}{"caseId": req.CaseID}
	for k, v := range req.Data {
		data[k] = v
	}
	subject := renderTemplate(tmpl.subject, data)
	body := renderTemplate(tmpl.body, data)

	out := &models.Notification{
		ID:     uuid.New().String(),
		CaseID: req.CaseID,
		Kind:   req.Kind,
		Status: models.NotificationDisabled,
		SentAt: n.now().UTC().Format(time.RFC3339),
	}

	var (
		messageID *string
		err       error
	)
	switch req.Kind {
	case models.NotificationOutcome:
		out.Channel = models.ChannelEmail
		out.Recipient = req.Recipient
		if !n.cfg.Email.Enabled || n.email == nil || req.Recipient == "" {
			return out, nil
		}
		res, sendErr := n.email.SendEmail(ctx, awsx.PlainTextEmail(n.cfg.Email.FromEmail, req.Recipient, subject, body))
		if err = sendErr; err == nil && res != nil {
			messageID = res.MessageId
		}

	case models.NotificationEscalation:
		out.Channel = models.ChannelSNS
		out.Recipient = n.cfg.Escalation.TopicARN
		if !n.cfg.Escalation.Enabled || n.topic == nil || n.cfg.Escalation.TopicARN == "" {
			return out, nil
		}
		attrs := map[string]string{"caseId": req.CaseID}
		if code, ok := data["errorCode"].(string); ok && code != "" {
			attrs["errorCode"] = code
		}
		res, sendErr := n.topic.Publish(ctx, awsx.TopicMessage(n.cfg.Escalation.TopicARN, subject, body, attrs))
		if err = sendErr; err == nil && res != nil {
			messageID = res.MessageId
		}
	}

	if err != nil {
		n.log.Error("notification send failed", map[string]interface{}{
			"caseId":  req.CaseID,
			"kind":    req.Kind,
			"channel": out.Channel,
			"error":   err.Error(),
		})
		out.Status = models.NotificationFailed
		return out, nil
	}

	out.Status = models.NotificationSent
	out.MessageID = aws.ToString(messageID)
	n.log.Info("notification sent", map[string]interface{}{
		"caseId":    req.CaseID,
		"kind":      req.Kind,
		"channel":   out.Channel,
		"messageId": out.MessageID,
	})
	return out, nil
}

// renderTemplate replaces {{key}} placeholders and drops any left unfilled.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
