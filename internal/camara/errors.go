package camara

import (
	"errors"
	"fmt"
)

// Kind classifies transport and orchestration failures
type Kind string

const (
	KindConfiguration      Kind = "configuration"
	KindTokenAcquisition   Kind = "token_acquisition"
	KindMockPayloadMissing Kind = "mock_payload_missing"
	KindUpstream           Kind = "upstream"
	KindResourceCreation   Kind = "resource_creation"
)

// Kind sentinels. Match with errors.Is(err, camara.ErrUpstream).
var (
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrTokenAcquisition   = &Error{Kind: KindTokenAcquisition}
	ErrMockPayloadMissing = &Error{Kind: KindMockPayloadMissing}
	ErrUpstream           = &Error{Kind: KindUpstream}
	ErrResourceCreation   = &Error{Kind: KindResourceCreation}
)

// ErrInvalidMockData is the cause of a configuration error raised when the
// mock payload table is not a JSON object.
var ErrInvalidMockData = errors.New("mock payloads must be a JSON object")

// Error is a classified failure from the telco integration
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int // upstream HTTP status if applicable
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("[%d] %s", e.StatusCode, msg)
	}
	if e.Op != "" {
		return fmt.Sprintf("camara %s: %s", e.Op, msg)
	}
	return "camara: " + msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the bare sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" if err is not a classified error
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func newError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}
