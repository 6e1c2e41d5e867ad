package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MultiExporter runs several exporters in order. One failing does not stop
// the rest; the joined error is returned alongside what did succeed.
type MultiExporter struct {
	exporters []Exporter
}

func NewMultiExporter(exporters ...Exporter) *MultiExporter {
	return &MultiExporter{exporters: exporters}
}

func (m *MultiExporter) Name() string {
	names := make([]string, len(m.exporters))
	for i, e := range m.exporters {
		names[i] = e.Name()
	}
	return strings.Join(names, "+")
}

// Export returns the locations joined with ", ".
func (m *MultiExporter) Export(ctx context.Context, r *Report) (string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, e := range m.exporters {
		loc, err := e.Export(ctx, r)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ", "), errors.Join(errs...)
}
