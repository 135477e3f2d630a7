package ugi

import "errors"

// Kinds of session-ending conditions. Match with errors.Is.
var (
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrNoBoard         = errors.New("no board")
	ErrBadPosition     = errors.New("bad position command")
	ErrIllegalMove     = errors.New("illegal move")
	ErrBadGoParam      = errors.New("bad go parameter")
	ErrSearchFailed    = errors.New("search failed")
)

// ProtocolError ends a session. Message is the diagnostic line that was sent
// to the controller.
type ProtocolError struct {
	Kind    error
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
