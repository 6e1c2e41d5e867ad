package wizard

import (
	"context"
	"strings"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/common/metrics"
	"ert-inspection/internal/draft"
	"ert-inspection/internal/models"
)

// Draft field names; the store prefixes them with the inspection prefix.
const (
	FieldStep          = "step"
	FieldInfo          = "info"
	FieldForm          = "form"
	FieldUnits         = "units"
	FieldNextID        = "next_id"
	FieldPhotos        = "photos"
	FieldSignerKnown   = "sig_known"
	FieldSignerChecked = "sig_checked"
)

// Wizard drives one inspection session and persists every change.
type Wizard struct {
	def     *Definition
	store   *draft.Store
	session *Session
	logger  logger.Logger
}

// New creates a wizard; call Load before use to restore any saved draft.
func New(def *Definition, store *draft.Store, log logger.Logger) *Wizard {
	return &Wizard{
		def:     def,
		store:   store,
		session: NewSession(def),
		logger:  log.WithFields(map[string]interface{}{"inspection": string(def.Type)}),
	}
}

func (w *Wizard) Definition() *Definition { return w.def }

// Session exposes the live session. Callers must not modify it.
func (w *Wizard) Session() *Session { return w.session }

// Snapshot returns a deep copy of the current session.
func (w *Wizard) Snapshot() *Session { return w.session.Clone() }

// Load restores the draft, falling back to defaults field by field.
func (w *Wizard) Load(ctx context.Context) *Session {
	def := NewSession(w.def)
	s := &Session{
		Step:    draft.Get(ctx, w.store, FieldStep, def.Step),
		Info:    draft.Get(ctx, w.store, FieldInfo, def.Info),
		Form:    draft.Get(ctx, w.store, FieldForm, def.Form),
		Units:   draft.Get(ctx, w.store, FieldUnits, def.Units),
		NextID:  draft.Get(ctx, w.store, FieldNextID, def.NextID),
		Photos:  draft.Get(ctx, w.store, FieldPhotos, def.Photos),
		Known:   draft.Get(ctx, w.store, FieldSignerKnown, def.Known),
		Checked: draft.Get(ctx, w.store, FieldSignerChecked, def.Checked),
	}

	if s.Step < StepInfo || s.Step > w.def.ReviewStep() {
		s.Step = StepInfo
	}
	if s.Info == nil {
		s.Info = def.Info
	}
	if s.Form.Fields == nil {
		s.Form.Fields = map[string]string{}
	}
	if s.Form.Checklist == nil {
		s.Form.Checklist = map[string]models.CheckResult{}
	}
	if s.Units == nil {
		s.Units = []models.Unit{}
	}
	if s.Photos == nil {
		s.Photos = []string{}
	}
	w.sanitize(s)
	if len(s.Units) > w.def.Cap {
		w.logger.Warn("Draft holds more units than the cap allows, truncating", map[string]interface{}{
			"units": len(s.Units),
			"cap":   w.def.Cap,
		})
		s.Units = s.Units[:w.def.Cap]
	}
	for _, u := range s.Units {
		if u.ID >= s.NextID {
			s.NextID = u.ID + 1
		}
	}

	w.session = s
	w.logger.Debug("Draft loaded", map[string]interface{}{
		"step":  s.Step,
		"units": len(s.Units),
	})
	return s
}

// SetInfo sets one info-step field.
func (w *Wizard) SetInfo(ctx context.Context, key, value string) error {
	if w.def.infoField(key) == nil {
		return errors.NewInvalidFieldError(key, "not an info field of this inspection")
	}
	next := w.session.Clone()
	next.Info[key] = strings.TrimSpace(value)
	return w.commit(ctx, next, FieldInfo)
}

// SetFormField sets a field of the unit sub-form. "tag" sets the tag number.
func (w *Wizard) SetFormField(ctx context.Context, key, value string) error {
	next := w.session.Clone()
	if key == "tag" {
		next.Form.Tag = value
		return w.commit(ctx, next, FieldForm)
	}
	if w.def.unitField(key) == nil {
		return errors.NewInvalidFieldError(key, "not a unit field of this inspection")
	}
	next.Form.Fields[key] = value
	return w.commit(ctx, next, FieldForm)
}

// SetChecklistItem records the answer for one checklist item on the sub-form.
func (w *Wizard) SetChecklistItem(ctx context.Context, key string, result models.CheckResult) error {
	if err := w.def.checkAnswer(key, result); err != nil {
		return err
	}
	next := w.session.Clone()
	next.Form.Checklist[key] = result
	return w.commit(ctx, next, FieldForm)
}

func (w *Wizard) SetCondition(ctx context.Context, c models.Condition) error {
	if err := checkCondition(c); err != nil {
		return err
	}
	next := w.session.Clone()
	next.Form.Condition = c
	return w.commit(ctx, next, FieldForm)
}

func (w *Wizard) SetNotes(ctx context.Context, notes string) error {
	next := w.session.Clone()
	next.Form.Notes = notes
	return w.commit(ctx, next, FieldForm)
}

// AddUnit commits the sub-form as a new unit. The live session only changes
// once the draft has been written.
func (w *Wizard) AddUnit(ctx context.Context) (models.Unit, error) {
	next := w.session.Clone()
	unit, err := next.AddUnit(w.def, next.Form)
	if err != nil {
		w.logger.Debug("Unit rejected", map[string]interface{}{"code": string(errors.CodeOf(err))})
		return models.Unit{}, err
	}

	// next_id first so a partial write never reuses an id
	if err := w.commit(ctx, next, FieldNextID, FieldUnits, FieldForm); err != nil {
		return models.Unit{}, err
	}

	metrics.UnitsAdded.WithLabelValues(string(w.def.Type)).Inc()
	w.logger.Info("Unit added", map[string]interface{}{
		"unitId": unit.ID,
		"tag":    unit.Tag,
		"units":  len(w.session.Units),
	})
	return unit, nil
}

// RemoveUnit drops a unit by id; unknown ids are a no-op.
func (w *Wizard) RemoveUnit(ctx context.Context, id int) error {
	next := w.session.Clone()
	if !next.RemoveUnit(id) {
		return nil
	}
	return w.commit(ctx, next, FieldUnits)
}

// GoTo moves to target if the gate allows it.
func (w *Wizard) GoTo(ctx context.Context, target int) error {
	if target < StepInfo || target > w.def.ReviewStep() {
		return errors.NewInvalidStepError(target, w.def.ReviewStep())
	}
	decision := CanAdvance(w.def, w.session.Step, target, w.session)
	if !decision.Allowed {
		return errors.NewStepBlockedError(target, decision.Message)
	}
	if target == w.session.Step {
		return nil
	}
	next := w.session.Clone()
	next.Step = target
	return w.commit(ctx, next, FieldStep)
}

func (w *Wizard) Next(ctx context.Context) error {
	if w.session.Step >= w.def.ReviewStep() {
		return nil
	}
	return w.GoTo(ctx, w.session.Step+1)
}

func (w *Wizard) Back(ctx context.Context) error {
	if w.session.Step <= StepInfo {
		return nil
	}
	return w.GoTo(ctx, w.session.Step-1)
}

func (w *Wizard) AddPhoto(ctx context.Context, dataURL string) error {
	next := w.session.Clone()
	if err := next.AddPhoto(w.def, dataURL); err != nil {
		return err
	}
	return w.commit(ctx, next, FieldPhotos)
}

func (w *Wizard) RemovePhoto(ctx context.Context, index int) error {
	next := w.session.Clone()
	if err := next.RemovePhoto(index); err != nil {
		return err
	}
	return w.commit(ctx, next, FieldPhotos)
}

// SetSigner stores name and signature for role. Empty arguments keep the
// current value so name and signature can be captured separately.
func (w *Wizard) SetSigner(ctx context.Context, role models.SignerRole, name, signature string) error {
	next := w.session.Clone()
	field := FieldSignerChecked
	signer := &next.Checked
	switch role {
	case models.RoleKnown:
		field = FieldSignerKnown
		signer = &next.Known
	case models.RoleChecked:
	default:
		return errors.NewInvalidFieldError("role", "role must be known or checked")
	}

	if name = strings.TrimSpace(name); name != "" {
		signer.Name = name
	}
	if signature != "" {
		if !models.IsDataURL(signature) {
			return errors.NewInvalidFieldError("signature", "signature must be a base64 data URL")
		}
		signer.Signature = signature
	}
	return w.commit(ctx, next, field)
}

func (w *Wizard) Review() Summary {
	return w.session.Review()
}

// Reset clears the draft and starts a fresh session.
func (w *Wizard) Reset(ctx context.Context) error {
	if err := w.store.Clear(ctx); err != nil {
		return err
	}
	w.session = NewSession(w.def)
	return nil
}

// sanitize drops restored values outside the condition and answer enums.
func (w *Wizard) sanitize(s *Session) {
	if s.Form.Condition != "" && !s.Form.Condition.Valid() {
		w.logger.Warn("Discarding invalid condition from draft form", map[string]interface{}{"condition": string(s.Form.Condition)})
		s.Form.Condition = ""
	}
	for key, result := range s.Form.Checklist {
		if w.def.checkAnswer(key, result) != nil {
			delete(s.Form.Checklist, key)
		}
	}

	kept := s.Units[:0]
	for _, u := range s.Units {
		if err := w.def.checkUnit(u); err != nil {
			w.logger.Warn("Discarding invalid unit from draft", map[string]interface{}{
				"unitId": u.ID,
				"error":  errors.UserMessage(err),
			})
			continue
		}
		kept = append(kept, u)
	}
	s.Units = kept
}

// commit writes the named fields of next in order and adopts next as the
// live session only when every write succeeded.
func (w *Wizard) commit(ctx context.Context, next *Session, fields ...string) error {
	for _, field := range fields {
		if err := draft.Set(ctx, w.store, field, next.field(field)); err != nil {
			w.logger.Warn("Draft not saved, change discarded", map[string]interface{}{
				"field": field,
				"error": err.Error(),
			})
			return err
		}
	}
	w.session = next
	return nil
}
