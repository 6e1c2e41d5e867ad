package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/submission"
)

type unitResultView struct {
	UnitID   int    `json:"unitId"`
	Tag      string `json:"tag"`
	RecordID string `json:"recordId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type submitView struct {
	Outcome     string           `json:"outcome"`
	Saved       int              `json:"saved"`
	Total       int              `json:"total"`
	Message     string           `json:"message"`
	Units       []unitResultView `json:"units"`
	ReportID    string           `json:"reportId,omitempty"`
	Location    string           `json:"location,omitempty"`
	ExportError string           `json:"exportError,omitempty"`
}

func newSubmitView(r *submission.Result) submitView {
	v := submitView{
		Outcome:  string(r.Outcome),
		Saved:    r.Saved,
		Total:    r.Total,
		Message:  r.Message,
		Location: r.Location,
	}
	for _, u := range r.Units {
		uv := unitResultView{UnitID: u.UnitID, Tag: u.Tag, RecordID: u.RecordID}
		if u.Err != nil {
			uv.Error = errors.UserMessage(u.Err)
		}
		v.Units = append(v.Units, uv)
	}
	if r.Report != nil {
		v.ReportID = r.Report.ID
	}
	if r.ExportErr != nil {
		v.ExportError = errors.UserMessage(r.ExportErr)
	}
	return v
}

func (v submitView) printUnits(w io.Writer) {
	for _, u := range v.Units {
		if u.Error != "" {
			fmt.Fprintf(w, "  #%-3d %-12s FAILED  %s\n", u.UnitID, u.Tag, u.Error)
			continue
		}
		fmt.Fprintf(w, "  #%-3d %-12s saved   %s\n", u.UnitID, u.Tag, u.RecordID)
	}
}

// NewSubmitCommand posts every unit of the draft. A partial save keeps the
// draft and exits with ExitFailure so the operator can retry.
func NewSubmitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Save every unit to the records API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}

			result, err := opts.Env.Orchestrator().Submit(cmd.Context(), w)
			if result == nil {
				return out.Error(err, nil)
			}
			view := newSubmitView(result)
			if err != nil {
				if out.Format != "json" {
					view.printUnits(out.Writer)
				}
				return out.Error(err, view)
			}

			return out.Success(view, func(wr io.Writer) {
				view.printUnits(wr)
				fmt.Fprintln(wr, view.Message)
				if view.Location != "" {
					fmt.Fprintf(wr, "Report: %s\n", view.Location)
				}
			})
		},
	}
}

// NewHistoryCommand lists records already saved for the inspection type.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List saved records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			def, err := opts.Env.Catalog.Lookup(opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}
			list, err := opts.Env.Records.ListRecords(cmd.Context(), def.Resource)
			if err != nil {
				return out.Error(err, nil)
			}
			return out.Success(list, func(wr io.Writer) {
				fmt.Fprintf(wr, "%d %s records\n", len(list), def.Title)
				for _, rec := range list {
					fmt.Fprintf(wr, "  %-10v %-12v %-12v %v\n", rec["id"], rec["tag"], rec["kondisi"], rec["periodeInspeksi"])
				}
			})
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
