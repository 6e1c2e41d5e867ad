// internal/workers/reporting/notify-result/handler.go
package notifyresult

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/common/metrics"
	"ert-inspection/internal/common/validation"
	"ert-inspection/internal/models"
	"ert-inspection/internal/report"
)

const (
	TaskType = "notify-inspection-result"
)

// EmailSender is satisfied by aws.SESClient.
type EmailSender interface {
	SendHTMLEmail(ctx context.Context, from, to, subject, html string) (string, error)
}

// AlertPublisher is satisfied by aws.SNSClient.
type AlertPublisher interface {
	PublishToTopic(ctx context.Context, topicARN, subject, message string) (string, error)
}

type Handler struct {
	config     *Config
	email      EmailSender
	alerts     AlertPublisher
	summary    *template.Template
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, email EmailSender, alerts AlertPublisher, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	tmpl, err := template.New("summary").Parse(summaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		email:      email,
		alerts:     alerts,
		summary:    tmpl,
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
	r := input.Report
	reportID := r.ID
	if reportID == "" {
		reportID = input.ReportID
	}

	sentAt := time.Now().UTC().Format(time.RFC3339)
	output := &Output{Status: StatusDisabled, SentAt: sentAt, Notifications: []models.Notification{}}

	var lastErr error
	if h.config.EmailEnabled && h.email != nil {
		body, err := h.renderSummary(input)
		if err != nil {
			return nil, err
		}
		subject := fmt.Sprintf("[%s] %s inspection %s: %d/%d LAYAK",
			strings.ToUpper(r.Inspection), r.Title, r.Area, r.Summary.Layak, r.Summary.Total)

		// attempt every recipient; the job fails only when nobody was reached
		for _, to := range h.recipients(input) {
			n := models.Notification{
				ID:        uuid.New().String(),
				ReportID:  reportID,
				Recipient: to,
				Type:      TypeInspectionSummary,
				Channel:   ChannelEmail,
			}
			msgID, err := h.email.SendHTMLEmail(ctx, h.config.FromEmail, to, subject, body)
			if err != nil {
				h.logger.Error("email send failed", map[string]interface{}{
					"error":    err.Error(),
					"email":    to,
					"reportId": reportID,
				})
				lastErr = errors.NewNotificationSendFailedError(ChannelEmail, err)
				n.Status = StatusFailed
				n.Error = err.Error()
				output.EmailsFailed++
			} else {
				n.Status = StatusSent
				n.ProviderID = msgID
				n.SentAt = sentAt
				output.EmailsSent++
			}
			output.Notifications = append(output.Notifications, n)
		}
	}

	// alerts only go out when something failed inspection
	if h.config.SMSEnabled && h.alerts != nil && (input.HasUnfit || r.HasUnfit()) {
		n := models.Notification{
			ID:        uuid.New().String(),
			ReportID:  reportID,
			Recipient: h.config.TopicARN,
			Type:      TypeUnfitAlert,
			Channel:   ChannelSMS,
			Payload:   map[string]interface{}{"unfit": r.Summary.TidakLayak},
		}
		msgID, err := h.alerts.PublishToTopic(ctx, h.config.TopicARN, "Unit TIDAK LAYAK", alertMessage(r))
		if err != nil {
			h.logger.Error("alert publish failed", map[string]interface{}{
				"error":    err.Error(),
				"reportId": reportID,
			})
			lastErr = errors.NewNotificationSendFailedError(ChannelSMS, err)
			n.Status = StatusFailed
			n.Error = err.Error()
		} else {
			output.AlertSent = true
			n.Status = StatusSent
			n.ProviderID = msgID
			n.SentAt = sentAt
		}
		output.Notifications = append(output.Notifications, n)
	}

	delivered := output.EmailsSent > 0 || output.AlertSent
	switch {
	case lastErr != nil && !delivered:
		return nil, lastErr
	case lastErr != nil:
		output.Status = StatusPartial
		h.logger.Warn("some notifications failed", map[string]interface{}{
			"reportId":     reportID,
			"emailsSent":   output.EmailsSent,
			"emailsFailed": output.EmailsFailed,
			"alertSent":    output.AlertSent,
		})
	case delivered:
		output.Status = StatusSent
	}
	return output, nil
}

// recipients merges configured and per-job addresses, dropping invalid and
// duplicate ones.
func (h *Handler) recipients(input *Input) []string {
	seen := make(map[string]bool)
	var out []string
	for _, addr := range append(append([]string{}, h.config.Recipients...), input.Recipients...) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			continue
		}
		if !validation.ValidateEmail(addr) {
			h.logger.Warn("skipping invalid recipient", map[string]interface{}{"email": addr})
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

func (h *Handler) renderSummary(input *Input) (string, error) {
	var buf bytes.Buffer
	data := struct {
		*report.Report
		DocumentPath string
		Unfit        []report.Unit
	}{input.Report, input.DocumentPath, unfitUnits(input.Report)}
	if err := h.summary.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

func unfitUnits(r *report.Report) []report.Unit {
	var out []report.Unit
	for _, u := range r.Units {
		if u.Condition == models.ConditionTidakLayak {
			out = append(out, u)
		}
	}
	return out
}

func alertMessage(r *report.Report) string {
	tags := make([]string, 0, r.Summary.TidakLayak)
	for _, u := range unfitUnits(r) {
		tags = append(tags, u.Tag)
	}
	return fmt.Sprintf("%s %s (%s): %d unit TIDAK LAYAK: %s",
		r.Title, r.Area, r.PeriodeInspeksi, len(tags), strings.Join(tags, ", "))
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

const summaryTemplate = `<p>{{.Title}} inspection for <b>{{.Area}}</b> ({{.PeriodeInspeksi}}) has been submitted.</p>
<p>PIC: {{.PIC}}<br>Diperiksa oleh: {{.DiPeriksaOleh}}<br>Diketahui oleh: {{.DiketahuiOleh}}</p>
<p>{{.Summary.Total}} unit: {{.Summary.Layak}} LAYAK, {{.Summary.TidakLayak}} TIDAK LAYAK</p>
{{if .Unfit}}<p>Units needing follow-up:</p>
<ul>{{range .Unfit}}<li>{{.Tag}}{{with .Notes}}: {{.}}{{end}}</li>{{end}}</ul>
{{end}}{{with .DocumentPath}}<p>Report: {{.}}</p>{{end}}`
