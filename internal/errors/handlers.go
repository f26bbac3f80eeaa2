package errors

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for CLI interface
type CLIErrorHandler struct {
	Verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{Verbose: verbose}
}

// HandleError handles errors for CLI interface
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose {
		log.Printf("[%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())
		if appErr.Cause != nil {
			log.Printf("Caused by: %v", appErr.Cause)
		}
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("❌ CRITICAL: %s", appErr.Message)
	case SeverityError:
		return fmt.Sprintf("❌ ERROR: %s", appErr.Message)
	case SeverityWarning:
		return fmt.Sprintf("⚠️  WARNING: %s", appErr.Message)
	case SeverityInfo:
		return fmt.Sprintf("ℹ️  INFO: %s", appErr.Message)
	default:
		return fmt.Sprintf("❌ %s", appErr.Message)
	}
}

// HTTPErrorHandler handles errors for HTTP interface
type HTTPErrorHandler struct {
	IncludeDetails bool
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool) *HTTPErrorHandler {
	return &HTTPErrorHandler{IncludeDetails: includeDetails}
}

// HTTPErrorResponse is the JSON body written for failed requests
type HTTPErrorResponse struct {
	Error struct {
		Code     ErrorCode              `json:"code"`
		Message  string                 `json:"message"`
		Details  string                 `json:"details,omitempty"`
		Severity ErrorSeverity          `json:"severity"`
		Context  map[string]interface{} `json:"context,omitempty"`
	} `json:"error"`
}

// WriteHTTPError writes an error response to the HTTP writer
func (h *HTTPErrorHandler) WriteHTTPError(w http.ResponseWriter, err error) {
	appErr := GetAppError(err)

	log.Printf("[HTTP] [%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())

	var resp HTTPErrorResponse
	resp.Error.Code = appErr.Code
	resp.Error.Message = appErr.Message
	resp.Error.Severity = appErr.Severity
	if h.IncludeDetails {
		resp.Error.Details = appErr.Details
		resp.Error.Context = appErr.Context
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.getHTTPStatusCode(appErr.Code))
	json.NewEncoder(w).Encode(resp)
}

// getHTTPStatusCode maps error codes to HTTP status codes
func (h *HTTPErrorHandler) getHTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField, ErrCodeInvalidFormat,
		ErrCodeMalformedMetadata, ErrCodeMalformedStage, ErrCodeInvalidCommand:
		return http.StatusBadRequest
	case ErrCodeAlreadyExists:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// TUIErrorHandler handles errors for the terminal UI
type TUIErrorHandler struct{}

// NewTUIErrorHandler creates a new TUI error handler
func NewTUIErrorHandler() *TUIErrorHandler {
	return &TUIErrorHandler{}
}

// HandleError handles errors for the TUI, stripping interface noise
func (h *TUIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)
	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for inline TUI display
func (h *TUIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)
	if appErr.Severity == SeverityWarning {
		return fmt.Sprintf("warning: %s", appErr.Message)
	}
	return appErr.Message
}
