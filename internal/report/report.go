// Package report turns a fully saved inspection session into a normalized
// report and hands it to one or more exporters.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ert-inspection/internal/models"
	"ert-inspection/internal/wizard"
)

// Report is the structure every exporter consumes.
type Report struct {
	ID                 string            `json:"id"`
	Inspection         string            `json:"inspection"`
	Title              string            `json:"title"`
	Area               string            `json:"area"`
	PIC                string            `json:"pic"`
	DiketahuiOleh      string            `json:"diketahuiOleh"`
	DiPeriksaOleh      string            `json:"diPeriksaOleh"`
	SignatureDiketahui string            `json:"signatureDiketahui,omitempty"`
	SignatureDiPeriksa string            `json:"signatureDiPeriksa,omitempty"`
	PeriodeInspeksi    string            `json:"periodeInspeksi"`
	CreatedAt          time.Time         `json:"createdAt"`
	Info               map[string]string `json:"info,omitempty"`
	Summary            wizard.Summary    `json:"summary"`
	Units              []Unit            `json:"units"`
	Photos             []string          `json:"photos,omitempty"`
	RecordIDs          []string          `json:"recordIds,omitempty"`
}

// Unit is one row of the report.
type Unit struct {
	No        int               `json:"no"`
	ID        int               `json:"id"`
	Tag       string            `json:"tag"`
	Fields    map[string]string `json:"fields,omitempty"`
	Checklist []ChecklistEntry  `json:"checklist"`
	Condition models.Condition  `json:"kondisi"`
	Notes     string            `json:"keterangan,omitempty"`
}

type ChecklistEntry struct {
	Key    string             `json:"key"`
	Label  string             `json:"label"`
	Result models.CheckResult `json:"result"`
}

// Exporter produces something from a report and returns where it went.
type Exporter interface {
	Name() string
	Export(ctx context.Context, r *Report) (string, error)
}

var newReportID = uuid.NewString

// Build normalizes a session snapshot. recordIDs are the server ids in unit order.
func Build(def *wizard.Definition, s *wizard.Session, recordIDs []string, createdAt time.Time) *Report {
	r := &Report{
		ID:                 newReportID(),
		Inspection:         string(def.Type),
		Title:              def.Title,
		Area:               s.Info["area"],
		PIC:                s.Info["pic"],
		DiketahuiOleh:      s.Known.Name,
		DiPeriksaOleh:      s.Checked.Name,
		SignatureDiketahui: s.Known.Signature,
		SignatureDiPeriksa: s.Checked.Signature,
		PeriodeInspeksi:    s.Info["periodeInspeksi"],
		CreatedAt:          createdAt.UTC(),
		Info:               make(map[string]string, len(s.Info)),
		Summary:            s.Review(),
		Units:              make([]Unit, 0, len(s.Units)),
		Photos:             append([]string(nil), s.Photos...),
		RecordIDs:          append([]string(nil), recordIDs...),
	}
	for k, v := range s.Info {
		r.Info[k] = v
	}

	for i, u := range s.Units {
		row := Unit{
			No:        i + 1,
			ID:        u.ID,
			Tag:       u.Tag,
			Fields:    u.Fields,
			Condition: u.Condition,
			Notes:     u.Notes,
		}
		for _, item := range def.Checklist {
			result, ok := u.Checklist[item.Key]
			if !ok {
				result = models.CheckNA
			}
			row.Checklist = append(row.Checklist, ChecklistEntry{Key: item.Key, Label: item.Label, Result: result})
		}
		r.Units = append(r.Units, row)
	}
	return r
}

// HasUnfit reports whether any unit was judged TIDAK LAYAK.
func (r *Report) HasUnfit() bool {
	return r.Summary.TidakLayak > 0
}

// Compact drops the embedded images; used where payload size is bounded.
func (r *Report) Compact() *Report {
	c := *r
	c.Photos = nil
	c.SignatureDiketahui = ""
	c.SignatureDiPeriksa = ""
	c.Summary.Photos = len(r.Photos)
	return &c
}
