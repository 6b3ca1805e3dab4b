package flowagent

import "errors"

var (
	ErrValidation         = errors.New("flowagent: invalid request")
	ErrParse              = errors.New("flowagent: diagram parse failed")
	ErrInterpretation     = errors.New("flowagent: instruction interpretation failed")
	ErrEmission           = errors.New("flowagent: workflow emission failed")
	ErrSessionNotFound    = errors.New("flowagent: session not found")
	ErrMalformedStructure = errors.New("flowagent: malformed workflow structure")
)

// Error is a failure with a message safe to show to the caller.
// It matches both its Kind and its underlying cause with errors.Is.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// NewError builds an Error of the given kind. err may be nil.
func NewError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Cause returns the underlying error message for logging, or the user message
// when there is no cause.
func (e *Error) Cause() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}
