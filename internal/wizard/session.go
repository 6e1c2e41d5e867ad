package wizard

import (
	"strings"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/models"
)

// Session is the in-progress state of one inspection.
type Session struct {
	Step    int               `json:"step"`
	Info    map[string]string `json:"info"`
	Form    models.UnitForm   `json:"form"`
	Units   []models.Unit     `json:"units"`
	NextID  int               `json:"nextId"`
	Photos  []string          `json:"photos"`
	Known   models.Signer     `json:"known"`
	Checked models.Signer     `json:"checked"`
}

// NewSession returns a session at step 1 with type defaults.
func NewSession(def *Definition) *Session {
	return &Session{
		Step:   StepInfo,
		Info:   def.DefaultInfo(),
		Form:   def.DefaultForm(),
		Units:  []models.Unit{},
		NextID: 1,
		Photos: []string{},
	}
}

// Summary is what the review step shows.
type Summary struct {
	Total      int `json:"total"`
	Layak      int `json:"layak"`
	TidakLayak int `json:"tidakLayak"`
	Photos     int `json:"photos"`
}

// Review counts units by condition.
func (s *Session) Review() Summary {
	sum := Summary{Total: len(s.Units), Photos: len(s.Photos)}
	for _, u := range s.Units {
		switch u.Condition {
		case models.ConditionLayak:
			sum.Layak++
		case models.ConditionTidakLayak:
			sum.TidakLayak++
		}
	}
	return sum
}

// Signer returns the signer for role.
func (s *Session) Signer(role models.SignerRole) models.Signer {
	if role == models.RoleKnown {
		return s.Known
	}
	return s.Checked
}

// CheckSignatures enforces the submission preconditions on signers.
func (s *Session) CheckSignatures() error {
	signers := []struct {
		label  string
		signer models.Signer
	}{
		{"Acknowledging supervisor", s.Known},
		{"Inspector", s.Checked},
	}
	for _, sg := range signers {
		if strings.TrimSpace(sg.signer.Name) == "" {
			return errors.NewSignatureMissingError(sg.label, "name")
		}
	}
	for _, sg := range signers {
		if strings.TrimSpace(sg.signer.Signature) == "" {
			return errors.NewSignatureMissingError(sg.label, "signature")
		}
	}
	return nil
}

// AddPhoto appends a data-URL image.
func (s *Session) AddPhoto(def *Definition, dataURL string) error {
	if len(s.Photos) >= def.MaxPhotos {
		return errors.NewPhotoLimitExceededError(def.MaxPhotos)
	}
	if !models.IsDataURL(dataURL) {
		return errors.NewInvalidFieldError("photo", "photo must be a base64 data URL")
	}
	s.Photos = append(s.Photos, dataURL)
	return nil
}

// RemovePhoto drops the photo at index (0-based).
func (s *Session) RemovePhoto(index int) error {
	if index < 0 || index >= len(s.Photos) {
		return errors.NewInvalidFieldError("photo", "no photo at that position")
	}
	s.Photos = append(s.Photos[:index:index], s.Photos[index+1:]...)
	return nil
}

// field returns the value persisted under a draft field name.
func (s *Session) field(name string) interface{} {
	switch name {
	case FieldStep:
		return s.Step
	case FieldInfo:
		return s.Info
	case FieldForm:
		return s.Form
	case FieldUnits:
		return s.Units
	case FieldNextID:
		return s.NextID
	case FieldPhotos:
		return s.Photos
	case FieldSignerKnown:
		return s.Known
	case FieldSignerChecked:
		return s.Checked
	}
	panic("wizard: unknown draft field " + name)
}

// Clone returns a deep copy, safe to hand to a submission while the
// original keeps being edited.
func (s *Session) Clone() *Session {
	c := *s
	c.Info = cloneStrings(s.Info)
	c.Form = cloneForm(s.Form)
	c.Units = make([]models.Unit, 0, len(s.Units))
	for _, u := range s.Units {
		c.Units = append(c.Units, cloneUnit(u))
	}
	c.Photos = append(make([]string, 0, len(s.Photos)), s.Photos...)
	return &c
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneChecklist(m map[string]models.CheckResult) map[string]models.CheckResult {
	if m == nil {
		return nil
	}
	out := make(map[string]models.CheckResult, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneForm(f models.UnitForm) models.UnitForm {
	f.Fields = cloneStrings(f.Fields)
	f.Checklist = cloneChecklist(f.Checklist)
	return f
}

func cloneUnit(u models.Unit) models.Unit {
	u.Fields = cloneStrings(u.Fields)
	u.Checklist = cloneChecklist(u.Checklist)
	return u
}
