package store

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Every error that leaves the store carries one.
type Kind string

const (
	KindUnknown        Kind = ""
	KindConfiguration  Kind = "ConfigurationError"
	KindNotFound       Kind = "NotFound"
	KindNameConflict   Kind = "NameConflict"
	KindPathInvalid    Kind = "PathInvalid"
	KindInvalidRequest Kind = "InvalidRequest"
	KindAuth           Kind = "AuthError"
	KindPermission     Kind = "PermissionError"
	KindProtocol       Kind = "ProtocolError"
	KindPartialFailure Kind = "PartialFailure"
)

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrConfiguration  = &Error{Kind: KindConfiguration, Message: "backend is not configured"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "entry not found"}
	ErrNameConflict   = &Error{Kind: KindNameConflict, Message: "name already exists"}
	ErrPathInvalid    = &Error{Kind: KindPathInvalid, Message: "invalid path"}
	ErrInvalidRequest = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrAuth           = &Error{Kind: KindAuth, Message: "backend rejected the credential"}
	ErrPermission     = &Error{Kind: KindPermission, Message: "backend denied the operation"}
	ErrProtocol       = &Error{Kind: KindProtocol, Message: "backend returned an unexpected response"}
	ErrPartialFailure = &Error{Kind: KindPartialFailure, Message: "some entries failed"}
)

// Error is a categorized store failure.
//
// Message is short and safe to show to an anonymous caller; Err holds the
// underlying cause for logs.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// E builds an *Error of the given kind.
func E(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an *Error of the given kind around err.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns a caller-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// FromStatus maps a non-success HTTP status from a backend to a Kind.
func FromStatus(status int) Kind {
	switch status {
	case 401:
		return KindAuth
	case 403:
		return KindPermission
	case 404:
		return KindNotFound
	default:
		return KindProtocol
	}
}
