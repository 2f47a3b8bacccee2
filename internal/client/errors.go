package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kit8-platform/kit8/internal/apperrors"
)

// ClientError represents an error encountered when communicating with the KIT8 API.
// StatusCode is only set for http errors; 0 means no HTTP response was involved
// (or, for auth errors, that the status is deliberately not reported).
type ClientError struct {
	Code        apperrors.ErrorCode `json:"code"`
	StatusCode  int                 `json:"status_code"`
	UserMessage string              `json:"user_message"`
	LogMessage  string              `json:"log_message"`
	Err         error               `json:"-"`
}

func (e *ClientError) Error() string {
	return e.LogMessage
}

// UserError returns the user-friendly message
func (e *ClientError) UserError() string {
	return e.UserMessage
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is matches on the error kind so callers can write errors.Is(err, client.ErrHTTP).
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.StatusCode == 0 || t.StatusCode == e.StatusCode)
}

// error kinds
var (
	ErrHTTP          = &ClientError{Code: apperrors.ErrCodeHTTP, LogMessage: "http error"}
	ErrNetwork       = &ClientError{Code: apperrors.ErrCodeNetwork, LogMessage: "network error"}
	ErrParse         = &ClientError{Code: apperrors.ErrCodeParse, LogMessage: "parse error"}
	ErrSerialization = &ClientError{Code: apperrors.ErrCodeSerialization, LogMessage: "serialization error"}
	ErrAuth          = &ClientError{Code: apperrors.ErrCodeAuth, LogMessage: "auth error"}
)

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

// NewClientConnectionError creates a ClientError for network/connection issues
func NewClientConnectionError(err error, while string) *ClientError {
	return &ClientError{
		Code:        apperrors.ErrCodeNetwork,
		UserMessage: "Unable to connect. Please check your internet connection and try again.",
		LogMessage:  fmt.Sprintf("network error: %v while %v", err, while),
		Err:         err,
	}
}

// NewClientParseError creates a ClientError for a response body that is not valid JSON
func NewClientParseError(err error, while string) *ClientError {
	return &ClientError{
		Code:        apperrors.ErrCodeParse,
		UserMessage: "The server sent an unexpected response. Please try again later.",
		LogMessage:  fmt.Sprintf("parse error: %v while %v", err, while),
		Err:         err,
	}
}

// NewClientSerializationError creates a ClientError for request data that cannot be encoded as JSON
func NewClientSerializationError(err error, while string) *ClientError {
	return &ClientError{
		Code:        apperrors.ErrCodeSerialization,
		UserMessage: "An error occurred. Please try again later.",
		LogMessage:  fmt.Sprintf("serialization error: %v while %v", err, while),
		Err:         err,
	}
}

// NewClientAuthError creates a ClientError for a failed login. The status code is not kept.
func NewClientAuthError(reason string, err error) *ClientError {
	logMsg := "login failed: " + reason
	if err != nil {
		logMsg = fmt.Sprintf("%s: %v", logMsg, err)
	}
	return &ClientError{
		Code:        apperrors.ErrCodeAuth,
		UserMessage: "Login failed. Please check your email and password and try again.",
		LogMessage:  logMsg,
		Err:         err,
	}
}

// NewClientApiError creates a ClientError from a non-2xx response sent by the KIT8 API
func NewClientApiError(statusCode int, body []byte) *ClientError {
	var serverErr apperrors.ErrorResponse
	// best effort: error bodies are not always JSON
	_ = json.Unmarshal(body, &serverErr)

	var userMsg string
	switch statusCode {
	case http.StatusUnauthorized:
		userMsg = "Your session has expired. Please log in again."
	case http.StatusForbidden:
		userMsg = "You don't have permission to access this resource."
	case http.StatusNotFound:
		userMsg = "The requested item could not be found."
	case http.StatusBadRequest:
		// Use server message for validation errors if available
		if serverErr.Text() != "" {
			userMsg = serverErr.Text()
		} else {
			userMsg = "Invalid request. Please check your input and try again."
		}
	case http.StatusTooManyRequests:
		userMsg = "Too many requests. Please try again in a few moments."
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		userMsg = "The service is temporarily unavailable. Please try again later."
	default:
		userMsg = "An error occurred. Please try again."
	}

	logMsg := fmt.Sprintf("HTTP error! status: %d", statusCode)
	if serverErr.ErrorCode != "" {
		logMsg += fmt.Sprintf(" (%s)", serverErr.ErrorCode)
	}
	if serverErr.Text() != "" {
		logMsg += fmt.Sprintf(" - %s", serverErr.Text())
	}

	return &ClientError{
		Code:        apperrors.ErrCodeHTTP,
		StatusCode:  statusCode,
		UserMessage: userMsg,
		LogMessage:  logMsg,
	}
}
