package authz

import (
	"errors"
	"time"
)

// MaxLoginAttempts is the maximum number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// ResetSessionPeriod is how long a password reset session stays usable.
var ResetSessionPeriod = "24h"

// CredentialValidator classifies login, password reset, and profile
// confirmation attempts against an identity snapshot. Each check sequence is
// ordered and short-circuits: the first failing check decides the outcome.
// The validator holds no shared state; it is a pure function of its inputs
// plus the injected clock.
type CredentialValidator struct {
	now                  Clock
	requireVerifiedEmail bool
	logger               Logger
}

// NewCredentialValidator returns a validator with the default policy:
// system clock, verified email required for login.
func NewCredentialValidator() *CredentialValidator {
	return &CredentialValidator{
		now:                  time.Now,
		requireVerifiedEmail: true,
		logger:               defLogger{},
	}
}

// WithClock injects a custom clock (useful for tests).
func (v *CredentialValidator) WithClock(clock Clock) *CredentialValidator {
	if clock != nil {
		v.now = clock
	}
	return v
}

// WithVerifiedEmailRequired toggles whether login requires a confirmed
// profile.
func (v *CredentialValidator) WithVerifiedEmailRequired(required bool) *CredentialValidator {
	v.requireVerifiedEmail = required
	return v
}

// WithLogger overrides the logger.
func (v *CredentialValidator) WithLogger(logger Logger) *CredentialValidator {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// CheckLogin classifies a login attempt. The user is nil when the identifier
// resolved to nothing; the outcome is then LoginUserNotFound regardless of
// the submitted password. Infrastructure problems (a corrupt stored hash,
// an unparseable cooldown pattern) surface as errors, never as outcomes.
func (v *CredentialValidator) CheckLogin(user *User, password string) (LoginOutcome, error) {
	if user == nil {
		return LoginUserNotFound, nil
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return LoginPasswordNotMatched, nil
		}
		return LoginOK, err
	}

	ok, err := v.statusPermitsLogin(user)
	if err != nil {
		return LoginOK, err
	}
	if !ok {
		return LoginInvalidUserStatus, nil
	}

	return LoginOK, nil
}

func (v *CredentialValidator) statusPermitsLogin(user *User) (bool, error) {
	user.EnsureStatus()

	switch user.Status {
	case UserStatusActive:
	case UserStatusLocked:
		// a locked account with an elapsed lockout window may log in again
		if user.LockoutEnd == nil || v.now().Before(*user.LockoutEnd) {
			return false, nil
		}
	default:
		return false, nil
	}

	if user.LockoutEnd != nil && v.now().Before(*user.LockoutEnd) {
		return false, nil
	}

	if v.requireVerifiedEmail && !user.EmailValidated {
		return false, nil
	}

	return true, nil
}

// ResetAttempt bundles the inputs of a password reset classification: the
// resolved user (nil if absent), the resolved reset session (nil if absent),
// and the submitted new password.
type ResetAttempt struct {
	User        *User
	Reset       *PasswordReset
	NewPassword string
}

// CheckPasswordReset classifies a reset attempt. Checks run strictly in
// order: missing user, unconfirmed profile, invalid/expired/used session,
// new password equal to the current one. An unconfirmed profile therefore
// wins over an invalid token when both hold.
func (v *CredentialValidator) CheckPasswordReset(attempt ResetAttempt) (ResetOutcome, error) {
	user := attempt.User
	if user == nil {
		return ResetUserNotFound, nil
	}

	if !user.EmailValidated {
		return ResetProfileNotConfirmed, nil
	}

	valid, err := v.resetSessionValid(attempt.Reset)
	if err != nil {
		return ResetOK, err
	}
	if !valid {
		return ResetInvalidToken, nil
	}

	if user.PasswordHash != "" {
		err := ComparePasswordAndHash(attempt.NewPassword, user.PasswordHash)
		switch {
		case err == nil:
			return ResetSameAsOldPassword, nil
		case errors.Is(err, ErrMismatchedHashAndPassword):
			// new password differs from the old one
		default:
			return ResetOK, err
		}
	}

	return ResetOK, nil
}

func (v *CredentialValidator) resetSessionValid(reset *PasswordReset) (bool, error) {
	if reset == nil {
		return false, nil
	}

	if reset.Status != ResetRequestedStatus {
		return false, nil
	}

	if reset.CreatedAt == nil {
		return false, nil
	}

	expired, err := IsOutsideThresholdPeriod(v.now, *reset.CreatedAt, ResetSessionPeriod)
	if err != nil {
		return false, err
	}

	return !expired, nil
}

// CheckConfirmation classifies a profile confirmation attempt: the caller
// proves account ownership with their password before the profile flips to
// confirmed.
func (v *CredentialValidator) CheckConfirmation(user *User, password string) (ConfirmOutcome, error) {
	if user == nil {
		return ConfirmUserNotFound, nil
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return ConfirmPasswordNotMatched, nil
		}
		return ConfirmOK, err
	}

	if user.EmailValidated {
		return ConfirmProfileAlreadyConfirmed, nil
	}

	return ConfirmOK, nil
}
