// Package apperror defines the domain error kinds returned by services.
//
// Every error carries a Kind, which the HTTP layer maps to a status code, and
// a Rule, a stable dotted identifier of the violated constraint that clients
// can use to render a localized message. Only the first violation of a
// request is ever reported.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidationConflict
	KindForbidden
	KindInconsistent
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidationConflict:
		return "validation_conflict"
	case KindForbidden:
		return "forbidden"
	case KindInconsistent:
		return "inconsistent"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// Error is a domain error with a machine readable rule.
type Error struct {
	Kind   Kind
	Rule   string
	Params map[string]any
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Rule, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Rule)
}

func (e *Error) Unwrap() error { return e.Err }

// With attaches a parameter and returns the same error.
func (e *Error) With(key string, value any) *Error {
	if e.Params == nil {
		e.Params = make(map[string]any)
	}
	e.Params[key] = value
	return e
}

func NotFound(rule string) *Error {
	return &Error{Kind: KindNotFound, Rule: rule}
}

func Conflict(rule string) *Error {
	return &Error{Kind: KindValidationConflict, Rule: rule}
}

func Forbidden(rule string) *Error {
	return &Error{Kind: KindForbidden, Rule: rule}
}

func BadRequest(rule string, err error) *Error {
	return &Error{Kind: KindBadRequest, Rule: rule, Err: err}
}

// Inconsistent reports that persistent state may violate an invariant,
// for example after a failed compensating write.
func Inconsistent(rule string, err error) *Error {
	return &Error{Kind: KindInconsistent, Rule: rule, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// RuleOf returns the rule of the first *Error in err's chain, or "".
func RuleOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Rule
	}
	return ""
}
