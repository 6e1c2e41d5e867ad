// internal/models/notification.go
package models

// Notification records one message sent about a completed inspection.
type Notification struct {
	ID         string                 `json:"id"`
	ReportID   string                 `json:"reportId"`
	Recipient  string                 `json:"recipient"`
	Type       string                 `json:"type"`    // "inspection_summary", "unfit_alert"
	Channel    string                 `json:"channel"` // "email", "sms"
	Status     string                 `json:"status"`  // "sent", "failed", "disabled"
	Error      string                 `json:"error,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	ProviderID string                 `json:"providerId,omitempty"`
	SentAt     string                 `json:"sentAt,omitempty"`
}
