package report

import (
	"context"
	"strconv"
)

// ProcessStarter starts a workflow instance; satisfied by camunda.Client.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// ProcessExporter hands the report to the report workflow, whose workers
// render, archive and notify asynchronously.
type ProcessExporter struct {
	starter   ProcessStarter
	processID string
}

func NewProcessExporter(starter ProcessStarter, processID string) *ProcessExporter {
	return &ProcessExporter{starter: starter, processID: processID}
}

func (e *ProcessExporter) Name() string { return "process" }

// ProcessVariables is the variable document the workflow starts with.
type ProcessVariables struct {
	ReportID   string  `json:"reportId"`
	Inspection string  `json:"inspection"`
	HasUnfit   bool    `json:"hasUnfit"`
	Report     *Report `json:"report"`
}

// Export returns the process instance key.
func (e *ProcessExporter) Export(ctx context.Context, r *Report) (string, error) {
	key, err := e.starter.StartProcess(ctx, e.processID, ProcessVariables{
		ReportID:   r.ID,
		Inspection: r.Inspection,
		HasUnfit:   r.HasUnfit(),
		Report:     r.Compact(),
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(key, 10), nil
}
