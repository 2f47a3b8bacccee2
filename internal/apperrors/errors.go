package apperrors

type ErrorCode string

// client-side failure kinds
const (
	ErrCodeHTTP          ErrorCode = "http_error"
	ErrCodeNetwork       ErrorCode = "network_error"
	ErrCodeParse         ErrorCode = "parse_error"
	ErrCodeSerialization ErrorCode = "serialization_error"
	ErrCodeAuth          ErrorCode = "auth_error"
)

// codes returned by the KIT8 API in error bodies
const (
	ErrCodeAuthenticationFailure ErrorCode = "authentication_error"
	ErrCodeForbidden             ErrorCode = "forbidden"
	ErrCodeInternalError         ErrorCode = "internal_error"
	ErrCodeInvalidRequest        ErrorCode = "invalid_request"
	ErrCodeInvalidURLParam       ErrorCode = "invalid_url_param"
	ErrCodeMalformedBody         ErrorCode = "malformed_body"
	ErrCodeResourceNotFound      ErrorCode = "resource_not_found"
	ErrCodeTokenInvalid          ErrorCode = "token_invalid"
)

// ErrorResponse is the error body sent by the KIT8 API.
// Older module handlers reply with {"error": "..."} only, so both message fields are read.
type ErrorResponse struct {
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Text returns whichever message field the server populated.
func (e ErrorResponse) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
