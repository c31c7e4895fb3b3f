package core

// Error codes for domain errors delivered to sessions.
const (
	ErrCodeChannelNotFound  = "channel_not_found"
	ErrCodeAccessDenied     = "access_denied"
	ErrCodeNotInChannel     = "not_in_channel"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeStoreUnavailable = "store_unavailable"
)

// CoreError wraps a code and human-readable message. It crosses the
// gateway boundary as a value; the core never panics across it.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
