// Package errors provides the error taxonomy of the orchestrator and its BPMN mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Domain taxonomy
const (
	ErrCodeCaseNotFound          ErrorCode = "CASE_NOT_FOUND"
	ErrCodeDocumentNotFound      ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeIdentityNotFound      ErrorCode = "IDENTITY_NOT_FOUND"
	ErrCodeIdentityAmbiguous     ErrorCode = "IDENTITY_AMBIGUOUS"
	ErrCodeRoutingIndeterminate  ErrorCode = "ROUTING_INDETERMINATE"
	ErrCodeStepBudgetExceeded    ErrorCode = "STEP_BUDGET_EXCEEDED"
	ErrCodeReverificationBlocked ErrorCode = "REVERIFICATION_BLOCKED"
)

// Infrastructure and boundary errors
const (
	ErrCodeInvalidInput             ErrorCode = "INVALID_INPUT"
	ErrCodeCollaboratorTimeout      ErrorCode = "COLLABORATOR_TIMEOUT"
	ErrCodeCollaboratorFailed       ErrorCode = "COLLABORATOR_FAILED"
	ErrCodeCollaboratorUnavailable  ErrorCode = "COLLABORATOR_UNAVAILABLE"
	ErrCodeStageResultInvalid       ErrorCode = "STAGE_RESULT_INVALID"
	ErrCodeClassificationFailed     ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeEventPublishFailed       ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches another StandardError by code so callers can use errors.Is against the sentinels below.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns the error with an extra metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrStepBudgetExceeded  = &StandardError{Code: ErrCodeStepBudgetExceeded}
	ErrStageResultInvalid  = &StandardError{Code: ErrCodeStageResultInvalid}
	ErrCollaboratorTimeout = &StandardError{Code: ErrCodeCollaboratorTimeout}
)

// CodeOf extracts the code of a wrapped StandardError, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// ==========================
// 2. BPMN Error Integration
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

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewCaseNotFoundError carries the valid identifiers so callers can retry with a corrected id.
func NewCaseNotFoundError(caseID string, available []string) *StandardError {
	return newError(ErrCodeCaseNotFound, "Case not found", fmt.Sprintf("caseId: %s", caseID), false).
		WithMetadata("availableCaseIds", available)
}

func NewDocumentNotFoundError(caseID, documentID string, available []string) *StandardError {
	return newError(ErrCodeDocumentNotFound, "Document not found",
		fmt.Sprintf("caseId: %s, documentId: %s", caseID, documentID), false).
		WithMetadata("availableDocumentIds", available)
}

func NewIdentityNotFoundError(details string) *StandardError {
	return newError(ErrCodeIdentityNotFound, "No identity record cleared the confidence floor", details, false)
}

func NewIdentityAmbiguousError(details string) *StandardError {
	return newError(ErrCodeIdentityAmbiguous, "Multiple identity records match", details, false)
}

func NewRoutingIndeterminateError(details string) *StandardError {
	return newError(ErrCodeRoutingIndeterminate, "History matched no transition rule", details, false)
}

func NewStepBudgetExceededError(steps, max int) *StandardError {
	return newError(ErrCodeStepBudgetExceeded, "Step budget exceeded",
		fmt.Sprintf("steps: %d, maxSteps: %d", steps, max), false)
}

func NewReverificationBlockedError(details string) *StandardError {
	return newError(ErrCodeReverificationBlocked, "Identity re-verification requires a reopen action", details, false)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false)
}

func NewCollaboratorTimeoutError(stage string) *StandardError {
	return newError(ErrCodeCollaboratorTimeout, "Stage collaborator timeout", fmt.Sprintf("stage: %s", stage), true)
}

func NewCollaboratorFailedError(stage string, err error) *StandardError {
	return newError(ErrCodeCollaboratorFailed, "Stage collaborator error",
		fmt.Sprintf("stage: %s, error: %s", stage, err.Error()), true)
}

func NewCollaboratorUnavailableError(stage string, err error) *StandardError {
	return newError(ErrCodeCollaboratorUnavailable, "Stage collaborator circuit open",
		fmt.Sprintf("stage: %s, error: %s", stage, err.Error()), true)
}

func NewStageResultInvalidError(stage string, problems []string) *StandardError {
	return newError(ErrCodeStageResultInvalid, "Stage result violates contract",
		fmt.Sprintf("stage: %s, problems: %s", stage, strings.Join(problems, "; ")), false)
}

func NewClassificationFailedError(err error) *StandardError {
	return newError(ErrCodeClassificationFailed, "Human response classification failed", err.Error(), true)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Cache unavailable", err.Error(), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewEventPublishFailedError(sink string, err error) *StandardError {
	return newError(ErrCodeEventPublishFailed, "Case event publish failed",
		fmt.Sprintf("sink: %s, error: %s", sink, err.Error()), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to the error codes caught by boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeCaseNotFound:             "CASE_NOT_FOUND",
	ErrCodeDocumentNotFound:         "DOCUMENT_NOT_FOUND",
	ErrCodeIdentityNotFound:         "IDENTITY_NOT_FOUND",
	ErrCodeIdentityAmbiguous:        "IDENTITY_AMBIGUOUS",
	ErrCodeRoutingIndeterminate:     "ROUTING_INDETERMINATE",
	ErrCodeStepBudgetExceeded:       "MANUAL_ESCALATION",
	ErrCodeReverificationBlocked:    "REVERIFICATION_BLOCKED",
	ErrCodeInvalidInput:             "INVALID_INPUT",
	ErrCodeCollaboratorTimeout:      "COLLABORATOR_TIMEOUT",
	ErrCodeCollaboratorFailed:       "COLLABORATOR_FAILED",
	ErrCodeCollaboratorUnavailable:  "COLLABORATOR_FAILED",
	ErrCodeStageResultInvalid:       "STAGE_RESULT_INVALID",
	ErrCodeClassificationFailed:     "CLASSIFICATION_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeSearchQueryFailed:        "SEARCH_QUERY_FAILED",
	ErrCodeCacheUnavailable:         "CACHE_UNAVAILABLE",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeEventPublishFailed:       "EVENT_PUBLISH_FAILED",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeEventPublishFailed,
		ErrCodeCollaboratorFailed:
		return 3

	case ErrCodeCollaboratorTimeout,
		ErrCodeCollaboratorUnavailable,
		ErrCodeClassificationFailed,
		ErrCodeCacheUnavailable:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasSuffix(codeStr, "_NOT_FOUND") && !strings.HasPrefix(codeStr, "IDENTITY"):
		return "LOOKUP"
	case strings.HasPrefix(codeStr, "IDENTITY"):
		return "IDENTITY"
	case strings.Contains(codeStr, "ROUTING") || strings.Contains(codeStr, "BUDGET") || strings.Contains(codeStr, "REVERIFICATION"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "COLLABORATOR") || strings.Contains(codeStr, "STAGE_RESULT") || strings.Contains(codeStr, "CLASSIFICATION"):
		return "COLLABORATOR"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CACHE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "EVENT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
