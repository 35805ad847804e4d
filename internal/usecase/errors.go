package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrorNotConfigured       ErrorCode = "NOT_CONFIGURED"
	ErrorUpstreamUnreachable ErrorCode = "UPSTREAM_UNREACHABLE"
	ErrorInternal            ErrorCode = "INTERNAL_ERROR"
)

// Client-visible error summaries.
const (
	msgInvalidJSON      = "invalid JSON in request body"
	msgMissingMessages  = "request JSON must include `messages` array"
	msgNotConfigured    = "OpenAI API key not configured"
	msgCredentialLoad   = "failed to load OpenAI API key"
	msgUpstream         = "failed to reach upstream"
	msgEncodeUpstream   = "failed to build upstream request"
	msgInvalidMessageAt = "invalid message at index %d"
)

// Error is a relay failure that was detected locally. Summary and Details are
// safe to show to the client; Err is for logs only.
type Error struct {
	Code    ErrorCode
	Summary string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Summary)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Summary, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, summary string, err error) *Error {
	return &Error{Code: code, Summary: summary, Err: err}
}
