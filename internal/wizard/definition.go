// Package wizard is the step engine shared by every inspection type: a
// Definition describes the type, a Session holds the in-progress state and
// a Wizard keeps the Session in a draft store.
package wizard

import (
	"fmt"
	"sort"
	"strings"

	"ert-inspection/internal/common/validation"
	"ert-inspection/internal/models"
)

const (
	StepInfo  = 1
	StepUnits = 2

	// DefaultMaxPhotos is the per-session photo cap.
	DefaultMaxPhotos = 5
)

// Field is one text input on the info step or on the unit sub-form.
type Field struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Required bool     `json:"required,omitempty"`
	Default  string   `json:"default,omitempty"`
	Enum     []string `json:"enum,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`
}

// ChecklistItem is one tri-state question asked for every unit.
type ChecklistItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Rule blocks entering Target (and anything beyond it) until Check passes.
type Rule struct {
	Target  int
	Check   func(*Session) bool
	Message string
}

// Definition is everything the engine needs to know about an inspection type.
type Definition struct {
	Type          models.InspectionType
	Title         string
	Prefix        string
	Resource      string
	Cap           int
	Steps         []string
	PhotoStep     int
	MinPhotos     int
	MaxPhotos     int
	InfoFields    []Field
	UnitFields    []Field
	IdentityField string
	TagPrefix     string
	Checklist     []ChecklistItem
	Rules         []Rule

	schema *validation.Schema
}

// Build validates d, derives the default gate rules and compiles the unit schema.
// Extra rules already present on d are kept and merged in step order.
func Build(d Definition) (*Definition, error) {
	if d.Type == "" || d.Prefix == "" || d.Resource == "" {
		return nil, fmt.Errorf("definition needs type, prefix and resource")
	}
	if d.Cap <= 0 {
		return nil, fmt.Errorf("%s: cap must be positive", d.Type)
	}
	if len(d.Steps) < 3 {
		return nil, fmt.Errorf("%s: at least three steps are required", d.Type)
	}
	if d.PhotoStep != 0 && (d.PhotoStep <= StepUnits || d.PhotoStep >= len(d.Steps)) {
		return nil, fmt.Errorf("%s: photo step %d must sit between units and review", d.Type, d.PhotoStep)
	}
	if d.MaxPhotos == 0 {
		d.MaxPhotos = DefaultMaxPhotos
	}
	if d.MinPhotos > d.MaxPhotos {
		return nil, fmt.Errorf("%s: min photos %d exceeds max %d", d.Type, d.MinPhotos, d.MaxPhotos)
	}
	if d.IdentityField != "" && d.unitField(d.IdentityField) == nil {
		return nil, fmt.Errorf("%s: identity field %q is not a unit field", d.Type, d.IdentityField)
	}

	schema, err := validation.Compile(d.unitSchema())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Type, err)
	}
	d.schema = schema

	d.Rules = append(d.defaultRules(), d.Rules...)
	sort.SliceStable(d.Rules, func(i, j int) bool { return d.Rules[i].Target < d.Rules[j].Target })

	return &d, nil
}

// MustBuild is Build for package-level catalogs.
func MustBuild(d Definition) *Definition {
	def, err := Build(d)
	if err != nil {
		panic(err)
	}
	return def
}

// ReviewStep is the last step, where signatures are collected and the batch submitted.
func (d *Definition) ReviewStep() int {
	return len(d.Steps)
}

// StepName returns the label of step n (1-based).
func (d *Definition) StepName(n int) string {
	if n < 1 || n > len(d.Steps) {
		return ""
	}
	return d.Steps[n-1]
}

// DefaultForm returns an empty sub-form with type defaults filled in.
func (d *Definition) DefaultForm() models.UnitForm {
	form := models.UnitForm{
		Fields:    make(map[string]string, len(d.UnitFields)),
		Checklist: make(map[string]models.CheckResult, len(d.Checklist)),
		Condition: models.ConditionLayak,
	}
	for _, f := range d.UnitFields {
		if f.Default != "" {
			form.Fields[f.Key] = f.Default
		}
	}
	return form
}

// DefaultInfo returns the info step with defaults filled in.
func (d *Definition) DefaultInfo() map[string]string {
	info := make(map[string]string, len(d.InfoFields))
	for _, f := range d.InfoFields {
		if f.Default != "" {
			info[f.Key] = f.Default
		}
	}
	return info
}

func (d *Definition) infoField(key string) *Field {
	for i := range d.InfoFields {
		if d.InfoFields[i].Key == key {
			return &d.InfoFields[i]
		}
	}
	return nil
}

func (d *Definition) unitField(key string) *Field {
	for i := range d.UnitFields {
		if d.UnitFields[i].Key == key {
			return &d.UnitFields[i]
		}
	}
	return nil
}

func (d *Definition) checklistItem(key string) *ChecklistItem {
	for i := range d.Checklist {
		if d.Checklist[i].Key == key {
			return &d.Checklist[i]
		}
	}
	return nil
}

// unitSchema builds the JSON schema the unit sub-form must satisfy.
func (d *Definition) unitSchema() validation.JSONSchema {
	schema := validation.JSONSchema{
		Type:                 "object",
		Properties:           make(map[string]validation.Property, len(d.UnitFields)),
		AdditionalProperties: false,
	}
	for _, f := range d.UnitFields {
		prop := validation.Property{Type: "string", Description: f.Label}
		if len(f.Enum) > 0 {
			prop.Enum = f.Enum
		}
		if f.Pattern != "" {
			prop.Pattern = validation.StringPtr(f.Pattern)
		}
		if f.Required || f.Key == d.IdentityField {
			prop.MinLength = validation.IntPtr(1)
			schema.Required = append(schema.Required, f.Key)
		}
		schema.Properties[f.Key] = prop
	}
	return schema
}

func (d *Definition) defaultRules() []Rule {
	var rules []Rule
	for _, f := range d.InfoFields {
		if !f.Required {
			continue
		}
		key := f.Key
		rules = append(rules, Rule{
			Target:  StepUnits,
			Check:   func(s *Session) bool { return strings.TrimSpace(s.Info[key]) != "" },
			Message: fmt.Sprintf("%s is required", f.Label),
		})
	}

	rules = append(rules, Rule{
		Target:  StepUnits + 1,
		Check:   func(s *Session) bool { return len(s.Units) > 0 },
		Message: "Add at least one unit before continuing",
	})

	if d.PhotoStep != 0 && d.MinPhotos > 0 {
		minPhotos := d.MinPhotos
		rules = append(rules, Rule{
			Target:  d.PhotoStep + 1,
			Check:   func(s *Session) bool { return len(s.Photos) >= minPhotos },
			Message: fmt.Sprintf("Add at least %d photo(s) before reviewing", minPhotos),
		})
	}
	return rules
}
