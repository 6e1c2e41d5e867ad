// Package errors provides standardized error handling for inspection sessions and workers.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Validation errors are local and synchronous; no state change occurs.
const (
	ErrCodeCapacityExceeded     ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrCodeStepBlocked          ErrorCode = "STEP_BLOCKED"
	ErrCodeInvalidStep          ErrorCode = "INVALID_STEP"
	ErrCodeSignatureMissing     ErrorCode = "SIGNATURE_MISSING"
	ErrCodeNoUnits              ErrorCode = "NO_UNITS"
	ErrCodePhotoLimitExceeded   ErrorCode = "PHOTO_LIMIT_EXCEEDED"
	ErrCodeInvalidField         ErrorCode = "INVALID_FIELD"
	ErrCodeUnknownInspection    ErrorCode = "UNKNOWN_INSPECTION_TYPE"
)

// Transport errors are caught per unit during submission.
const (
	ErrCodeTransportFailed   ErrorCode = "TRANSPORT_FAILED"
	ErrCodeRecordRejected    ErrorCode = "RECORD_REJECTED"
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrCodePartialSubmission ErrorCode = "PARTIAL_SUBMISSION"
)

// Storage, export and notification errors.
const (
	ErrCodeDraftCorrupt           ErrorCode = "DRAFT_CORRUPT"
	ErrCodeDraftStorageFailed     ErrorCode = "DRAFT_STORAGE_FAILED"
	ErrCodeExportFailed           ErrorCode = "EXPORT_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error. Message is always
// safe to show to the operator; Details carries the technical cause.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is reports whether target carries the same error code, so sentinel values
// below work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrCapacityExceeded     = &StandardError{Code: ErrCodeCapacityExceeded}
	ErrMissingRequiredField = &StandardError{Code: ErrCodeMissingRequiredField}
	ErrStepBlocked          = &StandardError{Code: ErrCodeStepBlocked}
	ErrInvalidStep          = &StandardError{Code: ErrCodeInvalidStep}
	ErrSignatureMissing     = &StandardError{Code: ErrCodeSignatureMissing}
	ErrNoUnits              = &StandardError{Code: ErrCodeNoUnits}
	ErrPhotoLimitExceeded   = &StandardError{Code: ErrCodePhotoLimitExceeded}
	ErrInvalidField         = &StandardError{Code: ErrCodeInvalidField}
	ErrUnknownInspection    = &StandardError{Code: ErrCodeUnknownInspection}
	ErrTransportFailed      = &StandardError{Code: ErrCodeTransportFailed}
	ErrRecordRejected       = &StandardError{Code: ErrCodeRecordRejected}
	ErrMalformedResponse    = &StandardError{Code: ErrCodeMalformedResponse}
	ErrPartialSubmission    = &StandardError{Code: ErrCodePartialSubmission}
	ErrDraftCorrupt         = &StandardError{Code: ErrCodeDraftCorrupt}
	ErrDraftStorageFailed   = &StandardError{Code: ErrCodeDraftStorageFailed}
	ErrExportFailed         = &StandardError{Code: ErrCodeExportFailed}
	ErrNotificationFailed   = &StandardError{Code: ErrCodeNotificationSendFailed}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewCapacityExceededError creates a non-retryable capacity error.
func NewCapacityExceededError(capacity int) *StandardError {
	return &StandardError{
		Code:      ErrCodeCapacityExceeded,
		Message:   fmt.Sprintf("Maximum of %d units reached", capacity),
		Details:   fmt.Sprintf("capacity: %d", capacity),
		Retryable: false,
		Metadata:  map[string]interface{}{"capacity": capacity},
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingRequiredFieldError creates a non-retryable validation error naming the field.
func NewMissingRequiredFieldError(field, label string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingRequiredField,
		Message:   fmt.Sprintf("%s is required", label),
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewStepBlockedError carries the gate message for a refused forward move.
func NewStepBlockedError(target int, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepBlocked,
		Message:   message,
		Details:   fmt.Sprintf("targetStep: %d", target),
		Retryable: false,
		Metadata:  map[string]interface{}{"targetStep": target},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStepError is returned for steps outside the wizard's range.
func NewInvalidStepError(step, max int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStep,
		Message:   fmt.Sprintf("Step must be between 1 and %d", max),
		Details:   fmt.Sprintf("step: %d", step),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSignatureMissingError names the signer whose name or signature is empty.
func NewSignatureMissingError(role, what string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSignatureMissing,
		Message:   fmt.Sprintf("%s %s is required", role, what),
		Details:   fmt.Sprintf("role: %s, missing: %s", role, what),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoUnitsError is returned when a submission has nothing to send.
func NewNoUnitsError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoUnits,
		Message:   "Add at least one unit before submitting",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPhotoLimitExceededError creates a non-retryable photo cap error.
func NewPhotoLimitExceededError(limit int) *StandardError {
	return &StandardError{
		Code:      ErrCodePhotoLimitExceeded,
		Message:   fmt.Sprintf("Maximum of %d photos reached", limit),
		Details:   fmt.Sprintf("limit: %d", limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFieldError rejects a field name or value the inspection type does not know.
func NewInvalidFieldError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidField,
		Message:   fmt.Sprintf("Invalid value for %s", field),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownInspectionError is returned for an unregistered inspection type.
func NewUnknownInspectionError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownInspection,
		Message:   fmt.Sprintf("Unknown inspection type %q", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportFailedError creates a retryable network error.
func NewTransportFailedError(resource string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportFailed,
		Message:   "Could not reach the inspection server",
		Details:   fmt.Sprintf("resource: %s, error: %s", resource, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordRejectedError creates an error for a non-success HTTP status.
func NewRecordRejectedError(resource string, status int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordRejected,
		Message:   "The inspection server rejected the record",
		Details:   fmt.Sprintf("resource: %s, status: %d", resource, status),
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedResponseError covers unparseable bodies and bodies without an id.
func NewMalformedResponseError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedResponse,
		Message:   "The inspection server returned an unexpected response",
		Details:   fmt.Sprintf("resource: %s, %s", resource, details),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPartialSubmissionError reports how many units were saved.
func NewPartialSubmissionError(saved, total int) *StandardError {
	return &StandardError{
		Code:      ErrCodePartialSubmission,
		Message:   fmt.Sprintf("%d of %d saved", saved, total),
		Details:   fmt.Sprintf("saved: %d, failed: %d", saved, total-saved),
		Retryable: true,
		Metadata:  map[string]interface{}{"saved": saved, "total": total},
		Timestamp: time.Now().UTC(),
	}
}

// NewDraftCorruptError is logged, never shown; the draft falls back to defaults.
func NewDraftCorruptError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftCorrupt,
		Message:   "Saved draft could not be read",
		Details:   fmt.Sprintf("key: %s, error: %v", key, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDraftStorageFailedError creates a retryable persistence error.
func NewDraftStorageFailedError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftStorageFailed,
		Message:   "Draft could not be saved, please try again",
		Details:   fmt.Sprintf("key: %s, error: %v", key, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExportFailedError creates a retryable report export error.
func NewExportFailedError(exporter string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExportFailed,
		Message:   "Records were saved but the report could not be generated",
		Details:   fmt.Sprintf("exporter: %s, error: %v", exporter, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification could not be sent",
		Details:   fmt.Sprintf("channel: %s, error: %v", channel, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeExportFailed, ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeTransportFailed, ErrCodeMalformedResponse:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        GetRetryCount(stdErr.Code),
		ErrorVariables: stdErr.Metadata,
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeCapacityExceeded, ErrCodeMissingRequiredField, ErrCodeStepBlocked,
		ErrCodeInvalidStep, ErrCodeSignatureMissing, ErrCodeNoUnits,
		ErrCodePhotoLimitExceeded, ErrCodeInvalidField, ErrCodeUnknownInspection:
		return "validation"
	case ErrCodeTransportFailed, ErrCodeRecordRejected, ErrCodeMalformedResponse:
		return "transport"
	case ErrCodePartialSubmission:
		return "batch"
	case ErrCodeDraftCorrupt, ErrCodeDraftStorageFailed:
		return "storage"
	case ErrCodeExportFailed, ErrCodeNotificationSendFailed:
		return "export"
	default:
		return "internal"
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// UserMessage returns text fit for the operator. Raw technical errors are
// never surfaced; anything that is not a StandardError gets a generic line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) && stdErr.Message != "" {
		return stdErr.Message
	}
	return "Something went wrong, please try again"
}

// CodeOf extracts the error code, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}
