package authz

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrMismatchedHashAndPassword is returned when a secret does not match the
// stored hash
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrNoEmptyString guards hashing of empty secrets
var ErrNoEmptyString = errors.New("password can not be an empty string")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

const (
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeInvalidTokenTTL    = "INVALID_TOKEN_TTL"
	TextCodeTenantRequired     = "TENANT_REQUIRED"
	TextCodePermissionDenied   = "PERMISSION_DENIED"
	TextCodeInvalidUserStatus  = "INVALID_USER_STATUS"
	TextCodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeImmutableClaim     = "IMMUTABLE_CLAIM_MUTATION"
	TextCodeTenantImmutable    = "TENANT_ID_IMMUTABLE"
	TextCodeUnregisteredType   = "UNREGISTERED_TYPE_KEY"
	TextCodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	TextCodeSameAsOldPassword  = "SAME_AS_OLD_PASSWORD"
	TextCodeProfileUnconfirmed = "PROFILE_NOT_CONFIRMED"
	TextCodeProfileConfirmed   = "PROFILE_ALREADY_CONFIRMED"
)

// ErrTokenExpired is returned when a bearer token is past its expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a bearer token cannot be parsed or its
// signature does not verify.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidTokenTTL is returned when a token is requested with a zero or
// negative duration.
var ErrInvalidTokenTTL = goerrors.New("token TTL must be positive", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidTokenTTL).
	WithCode(goerrors.CodeBadRequest)

// ErrTenantRequired is returned when a caller reaches a protected operation
// without a well-formed tenant claim.
var ErrTenantRequired = goerrors.New("a valid tenant claim is required", goerrors.CategoryAuthz).
	WithTextCode(TextCodeTenantRequired).
	WithCode(goerrors.CodeForbidden)

// ErrPermissionDenied is returned when the caller's effective permission set
// does not contain the required permission.
var ErrPermissionDenied = goerrors.New("permission denied", goerrors.CategoryAuthz).
	WithTextCode(TextCodePermissionDenied).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidUserStatus is returned when an otherwise valid login is blocked
// by the account's status (locked, unconfirmed, disabled).
var ErrInvalidUserStatus = goerrors.New("user status does not permit login", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidUserStatus).
	WithCode(goerrors.CodeForbidden)

// ErrTooManyLoginAttempts is returned while the attempt cooldown window is
// active.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrImmutableClaimMutation is returned when a claims decorator touches a
// claim the issuer considers immutable.
var ErrImmutableClaimMutation = goerrors.New("immutable claim mutated", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim)

// ErrTenantImmutable is returned when an update would move a role to a
// different tenant.
var ErrTenantImmutable = goerrors.New("role tenant can not change after creation", goerrors.CategoryConflict).
	WithTextCode(TextCodeTenantImmutable).
	WithCode(goerrors.CodeConflict)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
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
