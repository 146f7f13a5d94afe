package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/analogist/internal/domain"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in the "code" field.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeNotFound         ErrorCode = "not_found"
	CodeMethodNotAllowed ErrorCode = "method_not_allowed"
	CodeQuotaExceeded    ErrorCode = "quota_exceeded"
	CodeUpstreamError    ErrorCode = "upstream_error"
	CodeNotConfigured    ErrorCode = "not_configured"
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code,omitempty"`
}

// quotaErrorResponse adds the usage observed when the quota was found exhausted.
type quotaErrorResponse struct {
	ErrorResponse
	Usage usageBody `json:"usage"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func quotaExceededHandler(w http.ResponseWriter, err error) bool {
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		return false
	}
	writeJSON(w, http.StatusTooManyRequests, quotaErrorResponse{
		ErrorResponse: ErrorResponse{Error: qe.Error(), Code: CodeQuotaExceeded},
		Usage: usageBody{
			Current:   qe.Usage.Current(),
			Limit:     qe.Usage.Limit(),
			ResetDate: qe.Usage.ResetDate(),
		},
	})
	return true
}

// invalidInputHandler surfaces the validation message verbatim.
func invalidInputHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidInput) {
		return false
	}
	msg := domain.ErrInvalidInput.Error()
	var ie *domain.InvalidInputError
	if errors.As(err, &ie) {
		msg = ie.Message
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, msg)
	return true
}

// upstreamHandler reports backend failures with the backend's own message.
func upstreamHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrUpstream) {
		return false
	}
	msg := "Failed to generate analogy"
	var ue *domain.UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		msg = ue.Message
	}
	writeError(w, http.StatusInternalServerError, CodeUpstreamError, msg)
	return true
}
