/*

Typed rejection taxonomy shared by every engine component. A precondition
violation anywhere in an operation aborts the whole operation; the caller gets
exactly one of these kinds plus a human-readable reason.

*/

package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies a rejection.
type Kind uint8

const (
	// KindUnknown is the zero value; never returned by engine components.
	KindUnknown Kind = iota
	// KindAuthorization: sender is not the admin/owner/updater the operation requires.
	KindAuthorization
	// KindValidation: malformed input (zero amount, out-of-range fee or
	// confidence, expired maturity, non-positive threshold).
	KindValidation
	// KindState: committed state cannot satisfy the request (insufficient
	// balance/allowance/liquidity/output, maturity not reached, no price).
	KindState
	// KindRate: temporal gate (update too frequent, deviation too large, price stale).
	KindRate
	// KindPolicy: operation currently disallowed (paused, circuit breaker,
	// conversion not enabled, already executed).
	KindPolicy
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindRate:
		return "rate"
	case KindPolicy:
		return "policy"
	default:
		return "unknown"
	}
}

// Error is a typed rejection. Components return it directly; host layers may
// wrap it with fmt.Errorf("%w: ...") without losing the kind.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Reason
}

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == "" && other.Kind == e.Kind || *other == *e
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Authorizationf builds an AuthorizationError.
func Authorizationf(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// Statef builds a StateError.
func Statef(format string, args ...any) *Error {
	return newError(KindState, format, args...)
}

// Ratef builds a RateError.
func Ratef(format string, args ...any) *Error {
	return newError(KindRate, format, args...)
}

// Policyf builds a PolicyError.
func Policyf(format string, args ...any) *Error {
	return newError(KindPolicy, format, args...)
}

// KindOf extracts the kind from err, unwrapping as needed. Returns KindUnknown
// for nil or untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
