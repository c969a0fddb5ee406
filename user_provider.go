package authz

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// UserTracker is a store we can use to retrieve users and record login
// attempts
type UserTracker interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider resolves identities for the authenticator and enforces the
// attempt cooldown before any secret comparison happens.
type UserProvider struct {
	store    UserTracker
	now      Clock
	logger   Logger
	provider LoggerProvider
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	loggerProvider, logger := ResolveLogger("authz.user_provider", nil, nil)
	return &UserProvider{
		store:    store,
		now:      time.Now,
		logger:   logger,
		provider: loggerProvider,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.provider, u.logger = ResolveLogger("authz.user_provider", u.provider, l)
	return u
}

// WithLoggerProvider overrides the logger provider used by the user provider.
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.provider, u.logger = ResolveLogger("authz.user_provider", provider, u.logger)
	return u
}

// WithClock injects a custom clock (useful for tests).
func (u *UserProvider) WithClock(clock Clock) *UserProvider {
	if clock != nil {
		u.now = clock
	}
	return u
}

// ResolveIdentity finds the user for an identifier. Absence surfaces as a
// not-found error; an active attempt cooldown surfaces as
// ErrTooManyLoginAttempts before any password work is done.
func (u *UserProvider) ResolveIdentity(ctx context.Context, identifier string) (*User, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during resolution")
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(u.now, *user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	return user, nil
}

// TrackAttemptedLogin increments the attempt counter for the user.
func (u *UserProvider) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return u.store.TrackAttemptedLogin(ctx, user)
}

// TrackSuccessfulLogin resets the attempt counter and stamps the login time.
func (u *UserProvider) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return u.store.TrackSuccessfulLogin(ctx, user)
}

var _ IdentityStore = (*UserProvider)(nil)
