package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// Codes produced only by the transport layer.
const (
	codeUnauthorized     = "unauthorized"
	codeAuthFailed       = "auth_failed"
	codeOAuthDenied      = "oauth_denied"
	codeInvalidState     = "invalid_state"
	codeRateLimited      = "rate_limit_exceeded"
	codeChatFailed       = "chat_failed"
	codeRoutineFailed    = "routine_failed"
	codeRoutineNotFound  = "routine_not_found"
	codeUploadFailed     = "upload_failed"
	codePredictionFailed = "prediction_failed"
	codeInternal         = "internal_error"
)

var statusByCode = map[string]int{
	apperrors.CodeInvalidInput:        http.StatusBadRequest,
	apperrors.CodeInvalidRequest:      http.StatusBadRequest,
	apperrors.CodeDecodeFailed:        http.StatusUnprocessableEntity,
	apperrors.CodeArtifactMissing:     http.StatusServiceUnavailable,
	apperrors.CodeArtifactLoadFailed:  http.StatusServiceUnavailable,
	apperrors.CodeInferenceFailed:     http.StatusInternalServerError,
	apperrors.CodeUpstreamUnavailable: http.StatusBadGateway,
	apperrors.CodeStorageError:        http.StatusInternalServerError,
	apperrors.CodeRenderFailed:        http.StatusInternalServerError,
	codeUnauthorized:                  http.StatusUnauthorized,
	apperrors.CodeInvalidToken:        http.StatusUnauthorized,
	apperrors.CodeInvalidCredentials:  http.StatusUnauthorized,
	apperrors.CodeEmailExists:         http.StatusConflict,
	apperrors.CodeUserNotFound:        http.StatusNotFound,
	apperrors.CodeUploadNotFound:      http.StatusNotFound,
	apperrors.CodeAuthNotConfigured:   http.StatusServiceUnavailable,
	apperrors.CodeOAuthExchangeFailed: http.StatusBadGateway,
}

// fromAppError maps a domain error onto the transport envelope. Errors without
// a known code keep fallbackCode and answer 500.
func fromAppError(err error, fallbackCode string) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, fallbackCode, errMessage(err), err)
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    codeInternal,
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	return apperrors.MessageOf(err)
}
