// internal/workers/reporting/export-report/models.go
package exportreport

import "ert-inspection/internal/report"

type Input struct {
	ReportID   string         `json:"reportId"`
	Inspection string         `json:"inspection"`
	HasUnfit   bool           `json:"hasUnfit"`
	Report     *report.Report `json:"report"`
}

type Output struct {
	ReportID        string `json:"reportId"`
	DocumentPath    string `json:"documentPath"`
	Archived        bool   `json:"archived"`
	ArchiveLocation string `json:"archiveLocation,omitempty"`
	ExportedAt      string `json:"exportedAt"` // ISO 8601
}
