// Package submission drains a finished inspection session against the
// records API, one create call per unit, and finalizes it on full success.
package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/common/metrics"
	"ert-inspection/internal/common/observability"
	"ert-inspection/internal/models"
	"ert-inspection/internal/records"
	"ert-inspection/internal/report"
	"ert-inspection/internal/wizard"
)

// Source is the wizard being submitted.
type Source interface {
	Definition() *wizard.Definition
	Snapshot() *wizard.Session
	Reset(ctx context.Context) error
}

type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
)

// UnitResult is the fate of one create call.
type UnitResult struct {
	UnitID   int    `json:"unitId"`
	Tag      string `json:"tag"`
	RecordID string `json:"recordId,omitempty"`
	Err      error  `json:"-"`
}

func (u UnitResult) Saved() bool { return u.Err == nil }

// Result summarizes one submission attempt.
type Result struct {
	Outcome   Outcome        `json:"outcome"`
	Saved     int            `json:"saved"`
	Total     int            `json:"total"`
	Units     []UnitResult   `json:"units"`
	Message   string         `json:"message"`
	Report    *report.Report `json:"-"`
	Location  string         `json:"location,omitempty"`
	ExportErr error          `json:"-"`
}

// Config holds the optional collaborators.
type Config struct {
	UserID        int
	Exporter      report.Exporter
	Observability *observability.Observability
}

type Orchestrator struct {
	records  records.Creator
	exporter report.Exporter
	userID   int
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

func New(creator records.Creator, cfg Config, log logger.Logger) *Orchestrator {
	obs := cfg.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Orchestrator{
		records:  creator,
		exporter: cfg.Exporter,
		userID:   cfg.UserID,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "submission"}),
		now:      time.Now,
	}
}

// Submit posts every unit in list order.
//
// Preconditions are checked before any network call and reported as a plain
// error with no result. When some units fail, Submit returns the result and a
// PARTIAL_SUBMISSION error and the draft is left as it was. When all succeed
// the draft is cleared and the report exported; an export failure is recorded
// on the result and does not undo the submission.
func (o *Orchestrator) Submit(ctx context.Context, src Source) (*Result, error) {
	def := src.Definition()
	snap := src.Snapshot()

	if err := snap.CheckSignatures(); err != nil {
		return nil, err
	}
	if len(snap.Units) == 0 {
		return nil, errors.NewNoUnitsError()
	}

	inspection := string(def.Type)
	log := o.logger.WithFields(map[string]interface{}{"inspection": inspection})
	ctx, span := observability.Tracer().Start(ctx, "inspection.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("inspection", inspection),
		attribute.Int("units", len(snap.Units)),
	)

	start := o.now()
	result := &Result{Total: len(snap.Units), Units: make([]UnitResult, 0, len(snap.Units))}
	recordIDs := make([]string, 0, len(snap.Units))

	for i, unit := range snap.Units {
		ur := UnitResult{UnitID: unit.ID, Tag: unit.Tag}
		id, err := o.records.CreateRecord(ctx, def.Resource, BuildPayload(snap, i, o.userID))
		if err != nil {
			ur.Err = err
			o.recordUnit(ctx, inspection, "failed")
			log.Warn("Unit not saved", map[string]interface{}{
				"unitId": unit.ID,
				"code":   string(errors.CodeOf(err)),
				"error":  err.Error(),
			})
		} else {
			ur.RecordID = id
			result.Saved++
			recordIDs = append(recordIDs, id)
			o.recordUnit(ctx, inspection, "saved")
		}
		result.Units = append(result.Units, ur)
	}

	if result.Saved < result.Total {
		result.Outcome = OutcomePartial
		perr := errors.NewPartialSubmissionError(result.Saved, result.Total)
		result.Message = perr.Message
		o.finish(ctx, inspection, result.Outcome, start)
		span.SetStatus(codes.Error, perr.Message)
		log.Warn("Submission incomplete, draft kept", map[string]interface{}{
			"saved": result.Saved,
			"total": result.Total,
		})
		return result, perr
	}

	result.Outcome = OutcomeComplete
	result.Message = fmt.Sprintf("All %d units saved", result.Total)
	result.Report = report.Build(def, snap, recordIDs, o.now())

	if err := src.Reset(ctx); err != nil {
		log.Error("Draft could not be cleared after submission", map[string]interface{}{"error": err.Error()})
	}

	if o.exporter != nil {
		loc, err := o.exporter.Export(ctx, result.Report)
		result.Location = loc
		if err != nil {
			result.ExportErr = errors.NewExportFailedError(o.exporter.Name(), err)
			result.Message = errors.UserMessage(result.ExportErr)
			span.RecordError(err)
			log.Error("Report export failed", map[string]interface{}{
				"exporter": o.exporter.Name(),
				"reportId": result.Report.ID,
				"error":    err.Error(),
			})
		}
	}

	o.finish(ctx, inspection, result.Outcome, start)
	log.Info("Submission complete", map[string]interface{}{
		"units":    result.Total,
		"reportId": result.Report.ID,
		"location": result.Location,
	})
	return result, nil
}

func (o *Orchestrator) recordUnit(ctx context.Context, inspection, outcome string) {
	metrics.UnitPosts.WithLabelValues(inspection, outcome).Inc()
	o.obs.RecordUnitPost(ctx, inspection, outcome)
}

func (o *Orchestrator) finish(ctx context.Context, inspection string, outcome Outcome, start time.Time) {
	elapsed := o.now().Sub(start)
	metrics.Submissions.WithLabelValues(inspection, string(outcome)).Inc()
	metrics.SubmissionDuration.WithLabelValues(inspection).Observe(elapsed.Seconds())
	o.obs.RecordSubmission(ctx, inspection, string(outcome), elapsed)
}

// BuildPayload is the flat record body for unit i: session info, unit
// fields, the checklist as a JSON string, both signers and the unit's
// idempotency key. Session photos ride on the first unit only.
func BuildPayload(s *wizard.Session, i int, userID int) map[string]interface{} {
	unit := s.Units[i]
	payload := make(map[string]interface{}, len(s.Info)+len(unit.Fields)+12)

	for k, v := range s.Info {
		payload[k] = v
	}
	for k, v := range unit.Fields {
		payload[k] = v
	}

	payload["tag"] = unit.Tag
	payload["checklist"] = checklistJSON(unit.Checklist)
	payload["kondisi"] = string(unit.Condition)
	payload["keterangan"] = unit.Notes
	payload["diketahuiOleh"] = s.Known.Name
	payload["diPeriksaOleh"] = s.Checked.Name
	payload["signatureDiketahui"] = s.Known.Signature
	payload["signatureDiPeriksa"] = s.Checked.Signature
	payload["idempotencyKey"] = unit.IdempotencyKey
	if userID > 0 {
		payload["userId"] = userID
	}
	if i == 0 && len(s.Photos) > 0 {
		payload["photos"] = append([]string(nil), s.Photos...)
	}
	return payload
}

func checklistJSON(c map[string]models.CheckResult) string {
	if c == nil {
		return "{}"
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
