// internal/workers/notification/send-case-notification/models.go
package sendcasenotification

import "benefit-orchestrator/internal/models"

type Input struct {
	CaseID    string                  `json:"caseId"`
	Kind      models.NotificationKind `json:"kind"`
	Recipient string                  `json:"recipient"`
	Data      map[string]interface{}  `json:"data"`
}

type Output struct {
	NotificationSent bool                 `json:"notificationSent"`
	Notification     *models.Notification `json:"notification"`
}
