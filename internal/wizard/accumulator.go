package wizard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/validation"
	"ert-inspection/internal/models"
)

// HydrantTagPrefix is the fixed prefix of hydrant tag numbers.
const HydrantTagPrefix = "HYD-"

var (
	now               = time.Now
	newIdempotencyKey = uuid.NewString
)

// AddUnit turns form into a unit and appends it. Nothing changes on error.
// On success the sub-form is reset to type defaults.
func (s *Session) AddUnit(def *Definition, form models.UnitForm) (models.Unit, error) {
	if len(s.Units) >= def.Cap {
		return models.Unit{}, errors.NewCapacityExceededError(def.Cap)
	}

	fields := make(map[string]string, len(form.Fields))
	for k, v := range form.Fields {
		if v = strings.TrimSpace(v); v != "" {
			fields[k] = v
		}
	}
	if err := def.checkUnitFields(fields); err != nil {
		return models.Unit{}, err
	}

	checklist := make(map[string]models.CheckResult, len(def.Checklist))
	for key, result := range form.Checklist {
		if err := def.checkAnswer(key, result); err != nil {
			return models.Unit{}, err
		}
		checklist[key] = result
	}
	for _, item := range def.Checklist {
		if _, ok := checklist[item.Key]; !ok {
			checklist[item.Key] = models.CheckNA
		}
	}

	condition := form.Condition
	if condition == "" {
		condition = models.ConditionLayak
	}
	if err := checkCondition(condition); err != nil {
		return models.Unit{}, err
	}

	if s.NextID < 1 {
		s.NextID = 1
	}
	// ids stay above anything still in the list, even if the counter was lost
	for _, u := range s.Units {
		if u.ID >= s.NextID {
			s.NextID = u.ID + 1
		}
	}
	id := s.NextID

	unit := models.Unit{
		ID:             id,
		Tag:            def.unitTag(form.Tag, id),
		Fields:         fields,
		Checklist:      checklist,
		Condition:      condition,
		Notes:          strings.TrimSpace(form.Notes),
		IdempotencyKey: newIdempotencyKey(),
		AddedAt:        now().UTC(),
	}

	s.Units = append(s.Units, unit)
	s.NextID = id + 1
	s.Form = def.DefaultForm()
	return unit, nil
}

// RemoveUnit filters out the unit with id. Absent ids are ignored.
func (s *Session) RemoveUnit(id int) bool {
	kept := make([]models.Unit, 0, len(s.Units))
	removed := false
	for _, u := range s.Units {
		if u.ID == id {
			removed = true
			continue
		}
		kept = append(kept, u)
	}
	s.Units = kept
	return removed
}

// FormatTagNumber builds the printed tag for a unit. Hydrant tags are the
// fixed prefix followed by the digits of raw; other types return raw trimmed.
// A hydrant raw value without digits yields "".
func FormatTagNumber(t models.InspectionType, raw string) string {
	if t != models.TypeHydrant {
		return strings.TrimSpace(raw)
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(raw)), HydrantTagPrefix))
	if digits == "" {
		return ""
	}
	return HydrantTagPrefix + digits
}

func (d *Definition) unitTag(raw string, id int) string {
	if tag := FormatTagNumber(d.Type, raw); tag != "" {
		return tag
	}
	if d.Type == models.TypeHydrant {
		return FormatTagNumber(d.Type, strconv.Itoa(id))
	}
	return strconv.Itoa(id)
}

func (d *Definition) checkUnitFields(fields map[string]string) error {
	result := d.schema.Validate(validation.FormDocument(fields))
	if result.Valid {
		return nil
	}

	// identity field first so the operator sees the most important problem
	if d.IdentityField != "" && result.HasErrors(d.IdentityField) {
		return d.fieldError(d.IdentityField, result.GetErrorsForField(d.IdentityField)[0])
	}
	return d.fieldError(result.Errors[0].Field, result.Errors[0])
}

func (d *Definition) fieldError(key string, verr validation.ValidationError) error {
	label := key
	if f := d.unitField(key); f != nil {
		label = f.Label
	}
	switch verr.Code {
	case "REQUIRED_FIELD_MISSING", "MIN_LENGTH_VIOLATION":
		return errors.NewMissingRequiredFieldError(key, label)
	default:
		return errors.NewInvalidFieldError(label, verr.Message)
	}
}

func (d *Definition) checkAnswer(key string, result models.CheckResult) error {
	item := d.checklistItem(key)
	if item == nil {
		return errors.NewInvalidFieldError(key, "not a checklist item of this inspection")
	}
	if !result.Valid() {
		return errors.NewInvalidFieldError(item.Label, fmt.Sprintf("answer %q must be yes, no or n/a", result))
	}
	return nil
}

func checkCondition(c models.Condition) error {
	if !c.Valid() {
		return errors.NewInvalidFieldError("Condition", fmt.Sprintf("%q must be LAYAK or TIDAK LAYAK", c))
	}
	return nil
}

// checkUnit validates a stored unit's condition and checklist answers.
// Items no longer in the checklist are kept.
func (d *Definition) checkUnit(u models.Unit) error {
	if err := checkCondition(u.Condition); err != nil {
		return err
	}
	for key, result := range u.Checklist {
		if !result.Valid() {
			label := key
			if item := d.checklistItem(key); item != nil {
				label = item.Label
			}
			return errors.NewInvalidFieldError(label, fmt.Sprintf("answer %q must be yes, no or n/a", result))
		}
	}
	return nil
}
