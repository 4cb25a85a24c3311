package contacts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds    = "invalid_credentials"
	TextCodeTokenExpired    = "token_expired"
	TextCodeTokenMalformed  = "token_malformed"
	TextCodeStaleToken      = "stale_token"
	TextCodeEmailInUse      = "email_in_use"
	TextCodeAlreadyVerified = "already_verified"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooLong is returned for passwords over the bcrypt input limit
var ErrPasswordTooLong = errors.New("password exceeds maximum length", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when the cleartext does not
// match the stored hash
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials is the generic login failure. Unknown email,
// unverified account, and wrong password all resolve to this exact error
// so callers cannot enumerate accounts.
var ErrInvalidCredentials = errors.New("Email or password invalide", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is the single middleware failure. Missing header, bad
// scheme, bad signature, expiry, unknown subject, and superseded tokens
// all collapse into it.
var ErrUnauthorized = errors.New("Unauthorized", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a bearer token is past its embedded expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a bearer token cannot be parsed or
// its signature does not match the process key
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrEmailInUse is returned when registering an email that already exists
var ErrEmailInUse = errors.New("Email already in use", errors.CategoryConflict).
	WithTextCode(TextCodeEmailInUse).
	WithCode(errors.CodeConflict)

// ErrUserNotFound is returned when an email or verification token does not
// resolve to a user
var ErrUserNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrAlreadyVerified is returned when requesting a new verification mail
// for an account that already verified
var ErrAlreadyVerified = errors.New("Verification has already been passed", errors.CategoryValidation).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(errors.CodeBadRequest)

// ErrContactNotFound covers both missing contacts and contacts owned by a
// different user; the two cases are indistinguishable on purpose.
var ErrContactNotFound = errors.New("Not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// recordNotFound is what repository lookups return on a miss. The
// repository library classifies misses under its own database category,
// which errors.IsNotFound does not match; repositories translate at the
// boundary so flow guards only ever see CategoryNotFound.
func recordNotFound() *errors.Error {
	return errors.New("Record not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
