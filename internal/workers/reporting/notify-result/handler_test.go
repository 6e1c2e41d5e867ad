package notifyresult

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/models"
	"ert-inspection/internal/report"
	"ert-inspection/internal/wizard"
)

// ==========================
// Mock Implementations
// ==========================

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendHTMLEmail(ctx context.Context, from, to, subject, html string) (string, error) {
	args := m.Called(ctx, from, to, subject, html)
	return args.String(0), args.Error(1)
}

type MockAlertPublisher struct {
	mock.Mock
}

func (m *MockAlertPublisher) PublishToTopic(ctx context.Context, topicARN, subject, message string) (string, error) {
	args := m.Called(ctx, topicARN, subject, message)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

const topic = "arn:aws:sns:ap-southeast-3:123456789012:ert-alerts"

func createTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.EmailEnabled = true
	cfg.SMSEnabled = true
	cfg.FromEmail = "ert@example.com"
	cfg.Recipients = []string{"hse@example.com"}
	cfg.TopicARN = topic
	return cfg
}

func createTestInput(unfit bool) *Input {
	units := []report.Unit{
		{No: 1, ID: 1, Tag: "1", Condition: models.ConditionLayak},
		{No: 2, ID: 2, Tag: "2", Condition: models.ConditionLayak},
	}
	summary := wizard.Summary{Total: 2, Layak: 2}
	if unfit {
		units[1].Condition = models.ConditionTidakLayak
		units[1].Notes = "tekanan rendah"
		summary = wizard.Summary{Total: 2, Layak: 1, TidakLayak: 1}
	}
	return &Input{
		ReportID:   "rep-1",
		Inspection: "apar",
		HasUnfit:   unfit,
		Report: &report.Report{
			ID:              "rep-1",
			Inspection:      "apar",
			Title:           "APAR",
			Area:            "Workshop",
			PIC:             "Sari",
			PeriodeInspeksi: "Oktober 2026",
			DiketahuiOleh:   "Pak Joko",
			DiPeriksaOleh:   "Rina",
			Summary:         summary,
			Units:           units,
		},
	}
}

func newTestHandler(t *testing.T, cfg *Config, email EmailSender, alerts AlertPublisher) *Handler {
	h, err := NewHandler(cfg, email, alerts, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"email without sender", func(c *Config) { c.FromEmail = "" }, "from_email is required"},
		{"sms without topic", func(c *Config) { c.TopicARN = "" }, "topic_arn is required"},
		{"no timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"everything disabled", func(c *Config) { *c = Config{Timeout: time.Second} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			tt.mutate(cfg)
			_, err := NewHandler(cfg, nil, nil, logger.NewTestLogger(t))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_AllFitSendsEmailOnly(t *testing.T) {
	email := new(MockEmailSender)
	email.On("SendHTMLEmail", mock.Anything, "ert@example.com", "hse@example.com",
		"[APAR] APAR inspection Workshop: 2/2 LAYAK", mock.AnythingOfType("string")).Return("ses-1", nil).Once()
	alerts := new(MockAlertPublisher)

	out, err := newTestHandler(t, createTestConfig(), email, alerts).Execute(context.Background(), createTestInput(false))
	require.NoError(t, err)

	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, 1, out.EmailsSent)
	assert.False(t, out.AlertSent)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, "ses-1", out.Notifications[0].ProviderID)
	assert.Equal(t, TypeInspectionSummary, out.Notifications[0].Type)
	email.AssertExpectations(t)
	alerts.AssertNotCalled(t, "PublishToTopic", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_UnfitPublishesAlert(t *testing.T) {
	var body string
	email := new(MockEmailSender)
	email.On("SendHTMLEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { body = args.String(4) }).
		Return("ses-1", nil)
	alerts := new(MockAlertPublisher)
	alerts.On("PublishToTopic", mock.Anything, topic, "Unit TIDAK LAYAK",
		"APAR Workshop (Oktober 2026): 1 unit TIDAK LAYAK: 2").Return("sns-1", nil).Once()

	in := createTestInput(true)
	in.Recipients = []string{"HSE@example.com", "supervisor@example.com", "not-an-email"}
	out, err := newTestHandler(t, createTestConfig(), email, alerts).Execute(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, out.EmailsSent, "duplicates and invalid addresses are skipped")
	assert.True(t, out.AlertSent)
	assert.Len(t, out.Notifications, 3)
	assert.Contains(t, body, "tekanan rendah")
	assert.Contains(t, body, "1 LAYAK, 1 TIDAK LAYAK")
	alerts.AssertExpectations(t)
}

func TestHandler_Execute_Disabled(t *testing.T) {
	cfg := &Config{Timeout: time.Second}
	out, err := newTestHandler(t, cfg, nil, nil).Execute(context.Background(), createTestInput(true))
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, out.Status)
	assert.Empty(t, out.Notifications)
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("missing report", func(t *testing.T) {
		_, err := newTestHandler(t, createTestConfig(), nil, nil).Execute(context.Background(), &Input{})
		assert.ErrorIs(t, err, errors.ErrInvalidField)
	})

	t.Run("email failure is retryable", func(t *testing.T) {
		email := new(MockEmailSender)
		email.On("SendHTMLEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", stderrors.New("throttled"))

		_, err := newTestHandler(t, createTestConfig(), email, nil).Execute(context.Background(), createTestInput(false))
		assert.ErrorIs(t, err, errors.ErrNotificationFailed)
		assert.True(t, errors.IsRetryableErrorCode(errors.CodeOf(err)))
	})

	t.Run("alert failure", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.EmailEnabled = false
		alerts := new(MockAlertPublisher)
		alerts.On("PublishToTopic", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", stderrors.New("denied"))

		_, err := newTestHandler(t, cfg, nil, alerts).Execute(context.Background(), createTestInput(true))
		assert.ErrorIs(t, err, errors.ErrNotificationFailed)
	})
}

func TestHandler_Execute_PartialDelivery(t *testing.T) {
	t.Run("one recipient failing does not stop the rest", func(t *testing.T) {
		email := new(MockEmailSender)
		email.On("SendHTMLEmail", mock.Anything, mock.Anything, "hse@example.com", mock.Anything, mock.Anything).
			Return("ses-1", nil).Once()
		email.On("SendHTMLEmail", mock.Anything, mock.Anything, "bounce@example.com", mock.Anything, mock.Anything).
			Return("", stderrors.New("mailbox unavailable")).Once()
		email.On("SendHTMLEmail", mock.Anything, mock.Anything, "supervisor@example.com", mock.Anything, mock.Anything).
			Return("ses-3", nil).Once()

		in := createTestInput(false)
		in.Recipients = []string{"bounce@example.com", "supervisor@example.com"}
		out, err := newTestHandler(t, createTestConfig(), email, nil).Execute(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, StatusPartial, out.Status)
		assert.Equal(t, 2, out.EmailsSent)
		assert.Equal(t, 1, out.EmailsFailed)
		require.Len(t, out.Notifications, 3)
		assert.Equal(t, "bounce@example.com", out.Notifications[1].Recipient)
		assert.Equal(t, StatusFailed, out.Notifications[1].Status)
		assert.Equal(t, "mailbox unavailable", out.Notifications[1].Error)
		assert.Equal(t, StatusSent, out.Notifications[2].Status)
		email.AssertExpectations(t)
	})

	t.Run("alert failure after emails went out completes the job", func(t *testing.T) {
		email := new(MockEmailSender)
		email.On("SendHTMLEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("ses-1", nil).Once()
		alerts := new(MockAlertPublisher)
		alerts.On("PublishToTopic", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", stderrors.New("denied")).Once()

		out, err := newTestHandler(t, createTestConfig(), email, alerts).Execute(context.Background(), createTestInput(true))
		require.NoError(t, err)

		assert.Equal(t, StatusPartial, out.Status)
		assert.Equal(t, 1, out.EmailsSent)
		assert.False(t, out.AlertSent)
		require.Len(t, out.Notifications, 2)
		assert.Equal(t, TypeUnfitAlert, out.Notifications[1].Type)
		assert.Equal(t, StatusFailed, out.Notifications[1].Status)
	})
}
