package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	textCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	textCodeRoleLookupFailed    = "ROLE_LOOKUP_FAILED"
	textCodeRoleNotFound        = "ROLE_NOT_FOUND"
	textCodeSessionExpired      = "SESSION_EXPIRED"
	textCodeEmailTaken          = "EMAIL_TAKEN"
)

// ErrInvalidCredentials is returned when the identity provider rejects the
// supplied email/password pair.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrProviderUnavailable is returned when the identity provider cannot be
// reached or fails for reasons unrelated to the credentials.
var ErrProviderUnavailable = goerrors.New("identity provider unavailable", goerrors.CategoryInternal).
	WithTextCode(textCodeProviderUnavailable).
	WithCode(goerrors.CodeInternal)

// ErrRoleLookupFailed is returned when the role lookup fails for reasons
// other than the row being absent.
var ErrRoleLookupFailed = goerrors.New("unable to load user role", goerrors.CategoryInternal).
	WithTextCode(textCodeRoleLookupFailed).
	WithCode(goerrors.CodeInternal)

// ErrRoleNotFound is the well-defined empty result of a role lookup. It is
// not an error-state condition: callers resolve the role to RoleUnknown.
var ErrRoleNotFound = goerrors.New("no role recorded for user", goerrors.CategoryNotFound).
	WithTextCode(textCodeRoleNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrSessionExpired is returned when a session credential is known but past
// its expiry.
var ErrSessionExpired = goerrors.New("session expired", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionNotFound is returned when a session credential is not in the
// valid-token set.
var ErrSessionNotFound = goerrors.New("session not found", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is returned on registration when the email already has an
// account.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(textCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// IsInvalidCredentials reports whether err represents a credential rejection
// as opposed to a provider failure.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsRoleNotFound reports whether err is the empty-result condition of a role
// lookup.
func IsRoleNotFound(err error) bool {
	if goerrors.IsNotFound(err) {
		return true
	}
	return hasTextCode(err, textCodeRoleNotFound)
}

// IsEmailTaken reports whether err is a registration conflict.
func IsEmailTaken(err error) bool {
	return hasTextCode(err, textCodeEmailTaken)
}

// IsSessionInvalid reports whether err means the session credential no
// longer grants access, either expired or revoked.
func IsSessionInvalid(err error) bool {
	return hasTextCode(err, textCodeSessionExpired)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// errorMessage extracts the human-readable message surfaced to callers in
// the auth state. Rich errors keep their message, anything else is reported
// verbatim.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}
