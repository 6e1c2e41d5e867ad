// internal/workers/reporting/export-report/handler.go
package exportreport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/common/metrics"
	"ert-inspection/internal/report"
)

const (
	TaskType = "export-inspection-report"
)

type Handler struct {
	config     *Config
	document   report.Exporter
	archive    report.Exporter
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

// NewHandler renders documents into config.OutputDir. archive may be nil,
// in which case reports are not indexed.
func NewHandler(config *Config, archive report.Exporter, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	document, err := report.NewDocumentExporter(config.OutputDir)
	if err != nil {
		return nil, err
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		document:   document,
		archive:    archive,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInvalidFieldError("variables", fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Report == nil {
		return nil, errors.NewInvalidFieldError("report", "report variable is missing")
	}
	if input.Report.ID == "" {
		input.Report.ID = input.ReportID
	}

	path, err := h.document.Export(ctx, input.Report)
	if err != nil {
		return nil, errors.NewExportFailedError(h.document.Name(), err)
	}

	output := &Output{
		ReportID:     input.Report.ID,
		DocumentPath: path,
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	if h.archive != nil {
		loc, err := h.archive.Export(ctx, input.Report)
		if err != nil {
			return nil, errors.NewExportFailedError(h.archive.Name(), err)
		}
		output.Archived = true
		output.ArchiveLocation = loc
	}

	h.logger.Info("report exported", map[string]interface{}{
		"reportId":   output.ReportID,
		"inspection": input.Report.Inspection,
		"document":   output.DocumentPath,
		"archived":   output.Archived,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
