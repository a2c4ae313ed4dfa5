package identity

import "errors"

// Provider error codes. The set is closed: callers map each code to a
// user-facing message and treat anything else as unexpected.
const (
	CodeEmailInUse         = "email-already-in-use"
	CodeInvalidEmail       = "invalid-email"
	CodeWeakPassword       = "weak-password"
	CodeInvalidCredentials = "invalid-credentials"
	CodeTooManyRequests    = "too-many-requests"
	CodeSignInCancelled    = "sign-in-cancelled"
)

// ErrDuplicateEmail is returned by repositories when an account insert
// collides with an existing email.
var ErrDuplicateEmail = errors.New("identity: email already registered")

// Error is a provider-reported failure carrying one of the known codes.
type Error struct {
	Code string
}

func (e *Error) Error() string {
	return "identity: " + e.Code
}

// NewError returns a provider error with the given code.
func NewError(code string) *Error {
	return &Error{Code: code}
}

// CodeOf extracts the provider code from err, or "" if err does not carry one.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
