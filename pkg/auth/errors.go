package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a credential-exchange failure. Every error leaving this
// package carries exactly one Kind so callers can pick a user-facing message
// without inspecting causes.
type Kind int

const (
	// KindInvalidCredentials: bad email/password pair or unknown account.
	KindInvalidCredentials Kind = iota
	// KindRateLimited: the provider is throttling sign-in attempts.
	KindRateLimited
	// KindAccountDisabled: the account was disabled by an administrator.
	KindAccountDisabled
	// KindValidationFailed: registration fields rejected.
	KindValidationFailed
	// KindConsentCancelled: the user abandoned the federated consent flow.
	KindConsentCancelled
	// KindConsentBlocked: the federated consent flow could not open.
	KindConsentBlocked
	// KindBackendSyncFailed: the backend sync call failed.
	KindBackendSyncFailed
	// KindRegistrationFailed: generic registration failure.
	KindRegistrationFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindRateLimited:
		return "rate_limited"
	case KindAccountDisabled:
		return "account_disabled"
	case KindValidationFailed:
		return "validation_failed"
	case KindConsentCancelled:
		return "consent_cancelled"
	case KindConsentBlocked:
		return "consent_blocked"
	case KindBackendSyncFailed:
		return "backend_sync_failed"
	case KindRegistrationFailed:
		return "registration_failed"
	default:
		return "unknown"
	}
}

// Fallback messages used when the backend supplies none.
const (
	msgInvalidCredentials = "Incorrect email or password."
	msgRateLimited        = "Too many attempts. Please try again later."
	msgAccountDisabled    = "This account has been disabled. Contact support."
	msgConsentCancelled   = "Sign-in was cancelled."
	msgConsentBlocked     = "Could not open the sign-in window."
	msgBackendSyncFailed  = "Sign-in failed. Please try again."
	msgRegistrationFailed = "Registration failed. Please try again."
)

// Error is a classified credential-exchange failure.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the Kind from an error produced by this package.
// Returns ok=false for foreign errors.
func KindOf(err error) (Kind, bool) {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind, true
	}
	return 0, false
}

// validationError builds a KindValidationFailed error from per-field
// messages. A single invalid field surfaces its message directly; several
// are combined into one summary line.
func validationError(fields map[string][]string, messages []string, cause error) *Error {
	var message string
	switch len(messages) {
	case 0:
		message = msgRegistrationFailed
	case 1:
		message = messages[0]
	default:
		message = "Validation errors: " + strings.Join(messages, "; ")
	}
	return &Error{Kind: KindValidationFailed, Message: message, Fields: fields, cause: cause}
}
