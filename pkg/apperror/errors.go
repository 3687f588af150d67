package apperror

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories returned by the payment and
// secret core. The HTTP boundary maps each kind to a status code.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindExpired           Kind = "EXPIRED"
	KindInvalid           Kind = "INVALID"
	KindConflict          Kind = "CONFLICT"
	KindIssuanceFailed    Kind = "ISSUANCE_FAILED"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindGatewayTimeout    Kind = "GATEWAY_TIMEOUT"
	KindGateway           Kind = "GATEWAY_ERROR"
	KindSignatureMismatch Kind = "SIGNATURE_MISMATCH"
	KindInternal          Kind = "INTERNAL"
)

// Validation reasons used by the payment gateway client.
const (
	ReasonAmountTooSmall = "AMOUNT_TOO_SMALL"
	ReasonAmountTooLarge = "AMOUNT_TOO_LARGE"
)

type Error struct {
	Kind       Kind
	Reason     string // set for KindValidation
	StatusCode int    // upstream status for KindGateway, 0 otherwise
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperror.ErrConflict) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrExpired           = &Error{Kind: KindExpired}
	ErrInvalid           = &Error{Kind: KindInvalid}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrIssuanceFailed    = &Error{Kind: KindIssuanceFailed}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrGatewayTimeout    = &Error{Kind: KindGatewayTimeout}
	ErrGateway           = &Error{Kind: KindGateway}
	ErrSignatureMismatch = &Error{Kind: KindSignatureMismatch}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

func Validation(reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

func GatewayTimeout(err error) *Error {
	return Wrap(KindGatewayTimeout, "payment gateway timed out", err)
}

func Gateway(statusCode int, message string, err error) *Error {
	return &Error{Kind: KindGateway, StatusCode: statusCode, Message: message, Err: err}
}

func IssuanceFailed(err error) *Error {
	return Wrap(KindIssuanceFailed, "secret stored but delivery failed", err)
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
