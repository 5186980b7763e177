package service

import (
	"errors"

	"portfolio/internal/metrics"
)

// Kinds. Every error returned by the service is an *Error whose Kind is one
// of these, so errors.Is(err, ErrLocked) works on the result.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("auth error")
	ErrLocked     = errors.New("locked")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")
)

const (
	MsgMissingFields      = "missing fields"
	MsgMissingCredentials = "missing credentials"
	MsgInvalidInvitation  = "invalid or expired invitation"
	MsgEmailMismatch      = "email does not match invitation"
	MsgUsernameTaken      = "username already taken"
	MsgEmailRegistered    = "email already registered"
	MsgInvalidCredentials = "invalid credentials"
	MsgLockedNow          = "too many failed attempts, account locked"
	MsgLocked             = "account temporarily locked"
	MsgInvitationExists   = "invitation code already exists"
	MsgInvalidEmail       = "invalid email"
	MsgInternal           = "internal error"
)

// Error carries a caller-safe message in Msg; Err holds the underlying cause
// for logs and is never shown to clients.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }

func authErr(msg string) error { return &Error{Kind: ErrAuth, Msg: msg} }

func conflict(msg string) error { return &Error{Kind: ErrConflict, Msg: msg} }

func internal(err error) error { return &Error{Kind: ErrInternal, Msg: MsgInternal, Err: err} }

// Message returns the caller-safe text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return MsgInternal
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, ErrAuth):
		return metrics.OutcomeAuth
	case errors.Is(err, ErrLocked):
		return metrics.OutcomeLocked
	case errors.Is(err, ErrConflict):
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeInternal
}
