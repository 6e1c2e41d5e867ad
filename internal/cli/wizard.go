package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/models"
	"ert-inspection/internal/wizard"
)

type signerView struct {
	Name   string `json:"name"`
	Signed bool   `json:"signed"`
}

type statusView struct {
	Inspection string            `json:"inspection"`
	Title      string            `json:"title"`
	Step       int               `json:"step"`
	StepName   string            `json:"stepName"`
	Steps      []string          `json:"steps"`
	Cap        int               `json:"cap"`
	Info       map[string]string `json:"info"`
	Form       models.UnitForm   `json:"form"`
	Units      []models.Unit     `json:"units"`
	Photos     int               `json:"photos"`
	Known      signerView        `json:"diketahuiOleh"`
	Checked    signerView        `json:"diPeriksaOleh"`
	Summary    wizard.Summary    `json:"summary"`
	Missing    []string          `json:"missing,omitempty"`
}

func newStatusView(w *wizard.Wizard) statusView {
	def := w.Definition()
	s := w.Snapshot()
	return statusView{
		Inspection: string(def.Type),
		Title:      def.Title,
		Step:       s.Step,
		StepName:   def.StepName(s.Step),
		Steps:      def.Steps,
		Cap:        def.Cap,
		Info:       s.Info,
		Form:       s.Form,
		Units:      s.Units,
		Photos:     len(s.Photos),
		Known:      signerView{Name: s.Known.Name, Signed: s.Known.Signature != ""},
		Checked:    signerView{Name: s.Checked.Name, Signed: s.Checked.Signature != ""},
		Summary:    s.Review(),
		Missing:    wizard.Missing(def, def.ReviewStep(), s),
	}
}

func (v statusView) print(w io.Writer) {
	fmt.Fprintf(w, "%s inspection, step %d/%d (%s)\n", v.Title, v.Step, len(v.Steps), v.StepName)
	for _, k := range sortedKeys(v.Info) {
		fmt.Fprintf(w, "  %-16s %s\n", k+":", v.Info[k])
	}
	fmt.Fprintf(w, "Units: %d/%d\n", len(v.Units), v.Cap)
	for _, u := range v.Units {
		fmt.Fprintf(w, "  #%-3d %-12s %s\n", u.ID, u.Tag, u.Condition)
	}
	fmt.Fprintf(w, "Photos: %d\n", v.Photos)
	fmt.Fprintf(w, "Diketahui oleh: %s\n", signerLine(v.Known))
	fmt.Fprintf(w, "Diperiksa oleh: %s\n", signerLine(v.Checked))
	for _, m := range v.Missing {
		fmt.Fprintf(w, "  - %s\n", m)
	}
}

func signerLine(s signerView) string {
	name := s.Name
	if name == "" {
		name = "(none)"
	}
	if s.Signed {
		return name + " [signed]"
	}
	return name + " [not signed]"
}

// NewTypesCommand lists the configured inspection types.
func NewTypesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List inspection types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type typeView struct {
				Type      string   `json:"type"`
				Title     string   `json:"title"`
				Resource  string   `json:"resource"`
				Cap       int      `json:"cap"`
				Steps     []string `json:"steps"`
				Checklist []string `json:"checklist"`
			}
			var views []typeView
			for _, def := range opts.Env.Catalog.All() {
				tv := typeView{
					Type:     string(def.Type),
					Title:    def.Title,
					Resource: def.Resource,
					Cap:      def.Cap,
					Steps:    def.Steps,
				}
				for _, item := range def.Checklist {
					tv.Checklist = append(tv.Checklist, item.Key)
				}
				views = append(views, tv)
			}
			return opts.formatter(cmd).Success(views, func(w io.Writer) {
				for _, v := range views {
					fmt.Fprintf(w, "%-8s %-16s cap %-3d /api/%s\n", v.Type, v.Title, v.Cap, v.Resource)
				}
			})
		},
	}
}

func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return opts.formatter(cmd).Error(err, nil)
			}
			view := newStatusView(w)
			return opts.formatter(cmd).Success(view, view.print)
		},
	}
}

// NewInfoCommand sets session info fields: inspect info area=Workshop pic=Sari
func NewInfoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info key=value...",
		Short: "Set session info fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			pairs, err := parseAssignments(args)
			if err != nil {
				return out.Error(err, nil)
			}
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}
			for _, p := range pairs {
				if err := w.SetInfo(cmd.Context(), p.key, p.value); err != nil {
					return out.Error(err, nil)
				}
			}
			info := w.Snapshot().Info
			return out.Success(info, func(wr io.Writer) {
				for _, k := range sortedKeys(info) {
					fmt.Fprintf(wr, "%s: %s\n", k, info[k])
				}
			})
		},
	}
}

// NewFormCommand edits the unit sub-form. Besides unit fields it accepts
// tag=, kondisi=, keterangan= and check.<item>=yes|no|n/a.
func NewFormCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "form key=value...",
		Short: "Fill the unit form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}
			if err := applyForm(cmd, w, args); err != nil {
				return out.Error(err, nil)
			}
			form := w.Snapshot().Form
			return out.Success(form, func(wr io.Writer) {
				printForm(wr, w.Definition(), form)
			})
		},
	}
}

// NewAddCommand commits the sub-form as a unit, optionally after applying
// key=value pairs to it.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add [key=value...]",
		Short: "Add the unit form to the list",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}
			if err := applyForm(cmd, w, args); err != nil {
				return out.Error(err, nil)
			}
			unit, err := w.AddUnit(cmd.Context())
			if err != nil {
				return out.Error(err, nil)
			}
			count, limit := len(w.Session().Units), w.Definition().Cap
			return out.Success(unit, func(wr io.Writer) {
				fmt.Fprintf(wr, "Unit #%d (%s) added, %d/%d\n", unit.ID, unit.Tag, count, limit)
			})
		},
	}
}

func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <unit-id>",
		Short: "Remove a unit by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return out.Error(errors.NewInvalidFieldError("id", "unit id must be a number"), nil)
			}
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return out.Error(err, nil)
			}
			if err := w.RemoveUnit(cmd.Context(), id); err != nil {
				return out.Error(err, nil)
			}
			count := len(w.Session().Units)
			return out.Success(map[string]int{"units": count}, func(wr io.Writer) {
				fmt.Fprintf(wr, "%d units remaining\n", count)
			})
		},
	}
}

func NewStepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "step <n>",
		Short: "Jump to a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return opts.formatter(cmd).Error(errors.NewInvalidFieldError("step", "step must be a number"), nil)
			}
			return navigate(cmd, opts, func(w *wizard.Wizard) error { return w.GoTo(cmd.Context(), n) })
		},
	}
}

func NewNextCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Go to the next step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return navigate(cmd, opts, func(w *wizard.Wizard) error { return w.Next(cmd.Context()) })
		},
	}
}

func NewBackCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Go to the previous step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return navigate(cmd, opts, func(w *wizard.Wizard) error { return w.Back(cmd.Context()) })
		},
	}
}

func navigate(cmd *cobra.Command, opts *RootOptions, move func(*wizard.Wizard) error) error {
	out := opts.formatter(cmd)
	w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
	if err != nil {
		return out.Error(err, nil)
	}
	if err := move(w); err != nil {
		return out.Error(err, map[string]int{"step": w.Session().Step})
	}
	step := w.Session().Step
	name := w.Definition().StepName(step)
	return out.Success(map[string]interface{}{"step": step, "stepName": name}, func(wr io.Writer) {
		fmt.Fprintf(wr, "Step %d: %s\n", step, name)
	})
}

func NewReviewCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Summarize units by condition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return opts.formatter(cmd).Error(err, nil)
			}
			sum := w.Review()
			return opts.formatter(cmd).Success(sum, func(wr io.Writer) {
				fmt.Fprintf(wr, "Total: %d\nLAYAK: %d\nTIDAK LAYAK: %d\nPhotos: %d\n",
					sum.Total, sum.Layak, sum.TidakLayak, sum.Photos)
			})
		},
	}
}

func NewResetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := opts.Env.Wizard(cmd.Context(), opts.Type)
			if err != nil {
				return opts.formatter(cmd).Error(err, nil)
			}
			if err := w.Reset(cmd.Context()); err != nil {
				return opts.formatter(cmd).Error(err, nil)
			}
			return opts.formatter(cmd).Success(map[string]bool{"reset": true}, func(wr io.Writer) {
				fmt.Fprintln(wr, "Draft discarded")
			})
		},
	}
}

type assignment struct {
	key   string
	value string
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.NewInvalidFieldError(arg, "expected key=value")
		}
		out = append(out, assignment{key: key, value: value})
	}
	return out, nil
}

func applyForm(cmd *cobra.Command, w *wizard.Wizard, args []string) error {
	pairs, err := parseAssignments(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	for _, p := range pairs {
		switch {
		case p.key == "kondisi":
			c, ok := models.ParseCondition(p.value)
			if !ok {
				return errors.NewInvalidFieldError("kondisi", "condition must be LAYAK or TIDAK LAYAK")
			}
			err = w.SetCondition(ctx, c)
		case p.key == "keterangan":
			err = w.SetNotes(ctx, p.value)
		case strings.HasPrefix(p.key, "check."):
			r, ok := models.ParseCheckResult(p.value)
			if !ok {
				return errors.NewInvalidFieldError(p.key, "answer must be yes, no or n/a")
			}
			err = w.SetChecklistItem(ctx, strings.TrimPrefix(p.key, "check."), r)
		default:
			err = w.SetFormField(ctx, p.key, p.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func printForm(w io.Writer, def *wizard.Definition, form models.UnitForm) {
	if form.Tag != "" {
		fmt.Fprintf(w, "tag: %s\n", form.Tag)
	}
	for _, f := range def.UnitFields {
		if v := form.Fields[f.Key]; v != "" {
			fmt.Fprintf(w, "%s: %s\n", f.Key, v)
		}
	}
	for _, item := range def.Checklist {
		r := form.Checklist[item.Key]
		if r == "" {
			r = "-"
		}
		fmt.Fprintf(w, "  [%s] %s\n", r, item.Label)
	}
	fmt.Fprintf(w, "kondisi: %s\n", form.Condition)
	if form.Notes != "" {
		fmt.Fprintf(w, "keterangan: %s\n", form.Notes)
	}
}
