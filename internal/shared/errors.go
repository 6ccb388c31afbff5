package shared

import "errors"

// Kind classifies an expected business outcome. The transport layer maps
// kinds to status codes; the core never speaks HTTP vocabulary.
type Kind int

const (
	// KindCaptchaInvalid indicates a failed or missing captcha challenge.
	KindCaptchaInvalid Kind = iota + 1
	// KindUserNameInvalid indicates the login name did not resolve to a user.
	KindUserNameInvalid
	// KindPasswordInvalid indicates a password mismatch.
	KindPasswordInvalid
	// KindConflict indicates a uniqueness violation.
	KindConflict
	// KindNotAcceptable indicates the target refuses the mutation
	// (immutable default role, role still in use).
	KindNotAcceptable
	// KindNotFound indicates a missing record on a routine lookup.
	KindNotFound
)

// Error is a soft error: a business-expected failure carried as data.
// Callers branch on the kind with errors.As, never on stack unwinding.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Soft constructs a soft error of the given kind.
func Soft(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// SoftKind extracts the kind when err is (or wraps) a soft error.
func SoftKind(err error) (Kind, bool) {
	var soft *Error
	if errors.As(err, &soft) {
		return soft.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a soft error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := SoftKind(err)
	return ok && k == kind
}
