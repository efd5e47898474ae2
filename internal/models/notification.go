// internal/models/notification.go
package models

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSNS   NotificationChannel = "sns"
)

type NotificationStatus string

const (
	NotificationSent     NotificationStatus = "sent"
	NotificationFailed   NotificationStatus = "failed"
	NotificationDisabled NotificationStatus = "disabled"
)

type NotificationKind string

const (
	NotificationOutcome    NotificationKind = "case_outcome"
	NotificationEscalation NotificationKind = "case_escalation"
)

type Notification struct {
	ID        string              `json:"id"`
	CaseID    string              `json:"caseId"`
	Kind      NotificationKind    `json:"kind"`
	Channel   NotificationChannel `json:"channel"`
	Recipient string              `json:"recipient,omitempty"`
	Status    NotificationStatus  `json:"status"`
	MessageID string              `json:"messageId,omitempty"`
	SentAt    string              `json:"sentAt,omitempty"`
}
