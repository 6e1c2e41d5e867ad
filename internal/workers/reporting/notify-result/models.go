// internal/workers/reporting/notify-result/models.go
package notifyresult

import (
	"ert-inspection/internal/models"
	"ert-inspection/internal/report"
)

type Input struct {
	ReportID     string         `json:"reportId"`
	Inspection   string         `json:"inspection"`
	HasUnfit     bool           `json:"hasUnfit"`
	Report       *report.Report `json:"report"`
	Recipients   []string       `json:"recipients,omitempty"`
	DocumentPath string         `json:"documentPath,omitempty"`
}

type Output struct {
	Status        string                `json:"status"` // "sent", "partial", "disabled"
	EmailsSent    int                   `json:"emailsSent"`
	EmailsFailed  int                   `json:"emailsFailed"`
	AlertSent     bool                  `json:"alertSent"`
	Notifications []models.Notification `json:"notifications"`
	SentAt        string                `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeInspectionSummary = "inspection_summary"
	TypeUnfitAlert        = "unfit_alert"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
