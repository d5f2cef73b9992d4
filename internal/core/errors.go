package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound       = "room_not_found"
	ErrCodeBadRequest         = "bad_request"
	ErrCodeCodeSpaceExhausted = "code_space_exhausted"
	ErrCodeInternal           = "internal_error"
	ErrCodeAlreadyJoined      = "already_joined"
	ErrCodeNotJoined          = "not_joined"
	ErrCodeInvalidMessage     = "invalid_message"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)

// CoreError wraps a code and human-readable message.
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

// AsCoreError maps an error returned by the core to its wire representation.
func AsCoreError(err error) *CoreError {
	if err == nil {
		return nil
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return coreError(ErrCodeRoomNotFound, "room not found")
	case errors.Is(err, ErrInvalidInput):
		return coreError(ErrCodeBadRequest, err.Error())
	case errors.Is(err, ErrCodeSpaceExhausted):
		return coreError(ErrCodeCodeSpaceExhausted, "no free room codes")
	default:
		return coreError(ErrCodeInternal, "internal error")
	}
}
