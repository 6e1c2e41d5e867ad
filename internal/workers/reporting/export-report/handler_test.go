package exportreport

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/models"
	"ert-inspection/internal/report"
)

// ==========================
// Test Helper Functions
// ==========================

type stubArchive struct {
	err     error
	indexed []*report.Report
}

func (s *stubArchive) Name() string { return "archive" }

func (s *stubArchive) Export(_ context.Context, r *report.Report) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.indexed = append(s.indexed, r)
	return "inspection-reports/" + r.ID, nil
}

func createTestConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func createTestInput() *Input {
	return &Input{
		ReportID:   "rep-0001-abcdef",
		Inspection: "hydrant",
		HasUnfit:   true,
		Report: &report.Report{
			ID:         "rep-0001-abcdef",
			Inspection: "hydrant",
			Title:      "Hydrant",
			Area:       "Dock 4",
			CreatedAt:  time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
			Units: []report.Unit{
				{No: 1, ID: 1, Tag: "HYD-01", Condition: models.ConditionTidakLayak, Notes: "valve seized"},
			},
		},
	}
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{"valid configuration", createTestConfig(t), ""},
		{"missing output dir", &Config{MaxJobsActive: 1, Timeout: time.Second}, "output_dir is required"},
		{"invalid timeout", &Config{MaxJobsActive: 1, OutputDir: "x"}, "timeout must be positive"},
		{"invalid max jobs", &Config{Timeout: time.Second, OutputDir: "x"}, "max_jobs_active must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.config, nil, logger.NewTestLogger(t))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, h.document)
		})
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_WritesDocument(t *testing.T) {
	cfg := createTestConfig(t)
	h, err := NewHandler(cfg, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, "rep-0001-abcdef", out.ReportID)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "hydrant-20261001-rep-0001.html"), out.DocumentPath)
	assert.False(t, out.Archived)
	assert.NotEmpty(t, out.ExportedAt)

	raw, err := os.ReadFile(out.DocumentPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "valve seized")
	assert.Contains(t, string(raw), "HYD-01")
}

func TestHandler_Execute_Archives(t *testing.T) {
	archive := &stubArchive{}
	h, err := NewHandler(createTestConfig(t), archive, logger.NewTestLogger(t))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.True(t, out.Archived)
	assert.Equal(t, "inspection-reports/rep-0001-abcdef", out.ArchiveLocation)
	require.Len(t, archive.indexed, 1)
	assert.Equal(t, "Dock 4", archive.indexed[0].Area)
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("missing report", func(t *testing.T) {
		h, err := NewHandler(createTestConfig(t), nil, logger.NewTestLogger(t))
		require.NoError(t, err)

		_, err = h.Execute(context.Background(), &Input{ReportID: "x"})
		assert.ErrorIs(t, err, errors.ErrInvalidField)
		assert.False(t, errors.IsRetryableErrorCode(errors.CodeOf(err)))
	})

	t.Run("archive failure is retryable", func(t *testing.T) {
		archive := &stubArchive{err: stderrors.New("cluster red")}
		h, err := NewHandler(createTestConfig(t), archive, logger.NewTestLogger(t))
		require.NoError(t, err)

		_, err = h.Execute(context.Background(), createTestInput())
		assert.ErrorIs(t, err, errors.ErrExportFailed)
		assert.True(t, errors.IsRetryableErrorCode(errors.CodeOf(err)))
	})

	t.Run("report id falls back to variable", func(t *testing.T) {
		h, err := NewHandler(createTestConfig(t), nil, logger.NewTestLogger(t))
		require.NoError(t, err)

		in := createTestInput()
		in.Report.ID = ""
		out, err := h.Execute(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "rep-0001-abcdef", out.ReportID)
	})
}
