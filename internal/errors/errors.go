// Package errors provides unified error handling across the chat-assistant system.
//
// All interfaces (CLI, HTTP, TUI) report failures through the AppError type,
// which carries a stable code, a severity, and optional context such as the
// source template file or the stage where a parse failed. Template parsing has
// its own taxonomy: MalformedMetadata and MalformedStage are hard failures,
// StageCountMismatch is advisory and may accompany a usable Template.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Template parsing errors
	ErrCodeMalformedMetadata  ErrorCode = "MALFORMED_METADATA"
	ErrCodeMalformedStage     ErrorCode = "MALFORMED_STAGE"
	ErrCodeStageCountMismatch ErrorCode = "STAGE_COUNT_MISMATCH"

	// Validation errors
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// Service errors
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrCodeFileCorrupted  ErrorCode = "FILE_CORRUPTED"

	// Chat/completion errors
	ErrCodeChatFailure    ErrorCode = "CHAT_FAILURE"
	ErrCodeMissingAPIKey  ErrorCode = "MISSING_API_KEY"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"

	// Command errors
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeInvalidCommand  ErrorCode = "INVALID_COMMAND"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryParse      ErrorCategory = "parse"
	CategoryValidation ErrorCategory = "validation"
	CategoryService    ErrorCategory = "service"
	CategoryStorage    ErrorCategory = "storage"
	CategoryChat       ErrorCategory = "chat"
	CategoryCommand    ErrorCategory = "command"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Cause:     err,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeMalformedMetadata, ErrCodeMalformedStage:
		return CategoryParse, SeverityError
	case ErrCodeStageCountMismatch:
		return CategoryParse, SeverityWarning

	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField, ErrCodeInvalidFormat:
		return CategoryValidation, SeverityWarning

	case ErrCodeServiceUnavailable:
		return CategoryService, SeverityError
	case ErrCodeInternalError:
		return CategoryService, SeverityCritical

	case ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeAlreadyExists:
		return CategoryService, SeverityWarning

	case ErrCodeStorageFailure, ErrCodeFileCorrupted:
		return CategoryStorage, SeverityError
	case ErrCodeFileNotFound:
		return CategoryStorage, SeverityInfo

	case ErrCodeChatFailure, ErrCodeNetworkFailure:
		return CategoryChat, SeverityError
	case ErrCodeMissingAPIKey:
		return CategoryChat, SeverityCritical
	case ErrCodeRateLimited:
		return CategoryChat, SeverityWarning

	case ErrCodeCommandNotFound:
		return CategoryCommand, SeverityInfo
	case ErrCodeInvalidCommand:
		return CategoryCommand, SeverityError

	default:
		return CategorySystem, SeverityError
	}
}

func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeNetworkFailure, ErrCodeRateLimited, ErrCodeStorageFailure:
		return true
	default:
		return false
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// HasCode reports whether err carries the given error code
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Template parser error constructors. The source file identity and, for stage
// errors, the offending stage's position travel in the error context so a
// template author can locate the fault without re-deriving it.

// MalformedMetadataError reports an absent or unparseable metadata section.
func MalformedMetadataError(source string, reason string) *AppError {
	return NewAppError(ErrCodeMalformedMetadata, fmt.Sprintf("template metadata is malformed: %s", reason)).
		WithContext("source", source)
}

// MalformedStageError reports a stage section missing required fields or
// carrying an unparseable JSON structure block.
func MalformedStageError(source string, index int, title string, reason string) *AppError {
	return NewAppError(ErrCodeMalformedStage, fmt.Sprintf("stage %d (%s) is malformed: %s", index, title, reason)).
		WithContext("source", source).
		WithContext("stage_index", index).
		WithContext("stage_title", title)
}

// StageCountMismatchError reports a discrepancy between the declared
// stages_count and the number of stage sections actually present. The
// template remains usable; policy belongs to the caller.
func StageCountMismatchError(source string, declared, actual int) *AppError {
	return NewAppError(ErrCodeStageCountMismatch,
		fmt.Sprintf("declared stages_count %d but found %d stage sections", declared, actual)).
		WithContext("source", source).
		WithContext("declared", declared).
		WithContext("actual", actual)
}

// IsStageCountMismatch reports whether err is the advisory count mismatch.
func IsStageCountMismatch(err error) bool {
	return HasCode(err, ErrCodeStageCountMismatch)
}

// Common error constructors

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

func ChatError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeChatFailure, fmt.Sprintf("Chat operation failed: %s", operation))
}

func CommandNotFoundError(command string) *AppError {
	return NewAppError(ErrCodeCommandNotFound, fmt.Sprintf("Command '%s' not found", command))
}

func InvalidCommandError(command string, reason string) *AppError {
	return NewAppError(ErrCodeInvalidCommand, fmt.Sprintf("Invalid command '%s': %s", command, reason))
}
