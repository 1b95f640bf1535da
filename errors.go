package keybot

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidKey       = "INVALID_KEY"
	TextCodeKeyUsed          = "KEY_ALREADY_USED"
	TextCodeKeyLookupFailure = "KEY_LOOKUP_FAILURE"
	TextCodeMissingRole      = "MISSING_ROLE"
	TextCodeStoreFailure     = "STORE_FAILURE"
	TextCodeKeyCreateFailure = "KEY_CREATE_FAILURE"
	TextCodePlatformFailure  = "PLATFORM_FAILURE"
	TextCodeTokenFailure     = "TOKEN_FAILURE"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
)

// ErrKeyNotFound is returned when no key matches the supplied value
var ErrKeyNotFound = goerrors.New("registration key not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvalidKey).
	WithCode(goerrors.CodeNotFound)

// ErrKeyUsed is returned when the key was already consumed, including when a
// concurrent registration claimed it first.
var ErrKeyUsed = goerrors.New("registration key already used", goerrors.CategoryConflict).
	WithTextCode(TextCodeKeyUsed).
	WithCode(goerrors.CodeConflict)

// ErrMissingRole is returned when the caller does not hold the required role
var ErrMissingRole = goerrors.New("account does not hold the required role", goerrors.CategoryAuthz).
	WithTextCode(TextCodeMissingRole).
	WithCode(goerrors.CodeForbidden)

// ErrTokenExpired is returned when validating an expired session token
var ErrTokenExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token cannot be parsed or verified
var ErrTokenMalformed = goerrors.New("session token malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// storeFailure wraps a store error. Errors that already carry a text code
// pass through untouched so not-found and conflict signals survive.
func storeFailure(err error, operation string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "credential store operation failed").
		WithTextCode(TextCodeStoreFailure).
		WithCode(goerrors.CodeInternal).
		WithMetadata(map[string]any{"operation": operation})
}

// internalFailure re-labels err under a new text code, keeping err as source
func internalFailure(err error, textCode, message string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(textCode).
		WithCode(goerrors.CodeInternal)
}

// TextCode returns the text code carried by err, or an empty string
func TextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

// HasTextCode reports whether err carries the given text code
func HasTextCode(err error, code string) bool {
	return err != nil && TextCode(err) == code
}
