// internal/models/inspection.go
package models

import (
	"strings"
	"time"
)

// InspectionType identifies one of the supported checklists.
type InspectionType string

const (
	TypeAPAR          InspectionType = "apar"
	TypeHydrant       InspectionType = "hydrant"
	TypeEyeWash       InspectionType = "eyewash"
	TypeSmokeDetector InspectionType = "smoke"
	TypeP2H           InspectionType = "p2h"
)

// AllInspectionTypes lists the types in display order.
var AllInspectionTypes = []InspectionType{
	TypeAPAR, TypeHydrant, TypeEyeWash, TypeSmokeDetector, TypeP2H,
}

var inspectionAliases = map[string]InspectionType{
	"apar":           TypeAPAR,
	"hydrant":        TypeHydrant,
	"eyewash":        TypeEyeWash,
	"eye-wash":       TypeEyeWash,
	"smoke":          TypeSmokeDetector,
	"smoke-detector": TypeSmokeDetector,
	"smokedetector":  TypeSmokeDetector,
	"p2h":            TypeP2H,
}

// ParseInspectionType accepts the canonical name and the API resource spelling.
func ParseInspectionType(s string) (InspectionType, bool) {
	t, ok := inspectionAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

func (t InspectionType) String() string { return string(t) }

// CheckResult is the tri-state answer for one checklist item.
type CheckResult string

const (
	CheckYes CheckResult = "yes"
	CheckNo  CheckResult = "no"
	CheckNA  CheckResult = "n/a"
)

// Valid reports whether r is one of the three answers.
func (r CheckResult) Valid() bool {
	switch r {
	case CheckYes, CheckNo, CheckNA:
		return true
	}
	return false
}

// ParseCheckResult understands English and Indonesian shorthands.
func ParseCheckResult(s string) (CheckResult, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "ya", "ok", "true", "baik":
		return CheckYes, true
	case "no", "n", "tidak", "false", "rusak":
		return CheckNo, true
	case "n/a", "na", "-", "none":
		return CheckNA, true
	default:
		return "", false
	}
}

// Condition is the overall verdict for a unit.
type Condition string

const (
	ConditionLayak      Condition = "LAYAK"
	ConditionTidakLayak Condition = "TIDAK LAYAK"
)

func (c Condition) Valid() bool {
	return c == ConditionLayak || c == ConditionTidakLayak
}

// ParseCondition is case-insensitive and accepts "_" or "-" for the space.
func ParseCondition(s string) (Condition, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch norm {
	case string(ConditionLayak), "FIT":
		return ConditionLayak, true
	case string(ConditionTidakLayak), "UNFIT":
		return ConditionTidakLayak, true
	default:
		return "", false
	}
}

// Unit is one inspected item inside a session.
type Unit struct {
	ID             int                    `json:"id"`
	Tag            string                 `json:"tag"`
	Fields         map[string]string      `json:"fields,omitempty"`
	Checklist      map[string]CheckResult `json:"checklist,omitempty"`
	Condition      Condition              `json:"kondisi"`
	Notes          string                 `json:"keterangan,omitempty"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	AddedAt        time.Time              `json:"addedAt"`
}

// UnitForm is the transient sub-form a unit is built from.
type UnitForm struct {
	Tag       string                 `json:"tag"`
	Fields    map[string]string      `json:"fields"`
	Checklist map[string]CheckResult `json:"checklist"`
	Condition Condition              `json:"kondisi"`
	Notes     string                 `json:"keterangan"`
}

// Signer is a named person with a captured signature (data URL).
type Signer struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

// Complete reports whether both name and signature are present.
func (s Signer) Complete() bool {
	return strings.TrimSpace(s.Name) != "" && strings.TrimSpace(s.Signature) != ""
}

// SignerRole distinguishes the acknowledging supervisor from the inspector.
type SignerRole string

const (
	RoleKnown   SignerRole = "known"   // diketahui oleh
	RoleChecked SignerRole = "checked" // diperiksa oleh
)

// IsDataURL reports whether s looks like a base64 data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:") && strings.Contains(s, ";base64,")
}
