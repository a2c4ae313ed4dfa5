package session

import (
	"errors"

	"sharelooped/internal/identity"
)

// ErrValidation marks failures detected locally, before the identity provider
// is contacted.
var ErrValidation = errors.New("validation failed")

// Generic fallback messages for provider errors outside the known code table.
const (
	MsgRegistrationFailed = "Registration failed. Please try again."
	MsgLoginFailed        = "Login failed. Please check your credentials."
	MsgGoogleFailed       = "Google sign-in failed. Please try again."
)

// codeMessages is the fixed table mapping provider codes to user-facing text.
// Unknown-user and wrong-password share one entry on purpose: the response
// must not reveal which part of the credentials was wrong.
var codeMessages = map[string]string{
	identity.CodeEmailInUse:         "This email address is already in use.",
	identity.CodeInvalidEmail:       "Please enter a valid email address.",
	identity.CodeWeakPassword:       "Password should be at least 6 characters.",
	identity.CodeInvalidCredentials: "Invalid email or password.",
	identity.CodeTooManyRequests:    "Too many attempts. Please try again later.",
	identity.CodeSignInCancelled:    "Sign-in was cancelled before completing the process.",
}

// UserMessage resolves err to a user-facing message. Provider codes outside
// the table, and errors without a code, yield the caller's fallback.
func UserMessage(err error, fallback string) string {
	if msg, ok := codeMessages[identity.CodeOf(err)]; ok {
		return msg
	}
	return fallback
}
