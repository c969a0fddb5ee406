package authz

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string, tenantID uuid.UUID) (string, error)
	Impersonate(ctx context.Context, identifier string, tenantID uuid.UUID) (string, error)
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (*User, error)
}

// Auther wires identity resolution, credential classification, role
// projection, and token issuance into the login flow.
type Auther struct {
	identities      IdentityStore
	roles           RoleStore
	validator       *CredentialValidator
	tokenService    TokenService
	tokenTTL        time.Duration
	logger          Logger
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(identities IdentityStore, roles RoleStore, opts Config) *Auther {
	tokenService := NewTokenService(
		StaticSecret(opts.GetSigningKey()),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		identities:      identities,
		roles:           roles,
		validator:       NewCredentialValidator(),
		tokenService:    tokenService,
		tokenTTL:        time.Duration(opts.GetTokenExpiration()) * time.Hour,
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the token service built from Config.
func (s *Auther) WithTokenService(tokenService TokenService) *Auther {
	if tokenService != nil {
		s.tokenService = tokenService
	}
	return s
}

// WithCredentialValidator overrides the default credential validator.
func (s *Auther) WithCredentialValidator(validator *CredentialValidator) *Auther {
	if validator != nil {
		s.validator = validator
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching tokens.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// loginTracker is implemented by identity stores that record attempt
// bookkeeping; the provider-backed store does, test stubs may not.
type loginTracker interface {
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// Login classifies the credentials and, on success, mints a bearer token
// scoped to the given tenant: the token carries the tenant claim and the
// union of permissions the user holds through roles in that tenant.
func (s *Auther) Login(ctx context.Context, identifier, password string, tenantID uuid.UUID) (string, error) {
	user, err := s.resolveUser(ctx, identifier)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", tenantID, map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	outcome, err := s.validator.CheckLogin(user, password)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "credential check failed")
	}

	if outcome != LoginOK {
		return "", s.rejectLogin(ctx, user, identifier, tenantID, outcome)
	}

	if tracker, ok := s.identities.(loginTracker); ok {
		if err := tracker.TrackSuccessfulLogin(ctx, user); err != nil {
			s.logger.Error("failed to track successful login", "error", err)
		}
	}

	token, err := s.issueToken(ctx, user, tenantID)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), tenantID, map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID.String(), tenantID, map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// Impersonate mints a token for the identity without a credential check.
// Reserve it for operator tooling.
func (s *Auther) Impersonate(ctx context.Context, identifier string, tenantID uuid.UUID) (string, error) {
	user, err := s.resolveUser(ctx, identifier)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, "", tenantID, map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	if user == nil {
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, "", tenantID, map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return "", ErrIdentityNotFound
	}

	token, err := s.issueToken(ctx, user, tenantID)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, user.ID.String(), tenantID, map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventImpersonationSuccess, ActorRef{Type: "system"}, user.ID.String(), tenantID, map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// SessionFromToken validates a raw token and converts it to a session view.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

// IdentityFromSession loads the user behind the session.
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (*User, error) {
	user, err := s.identities.ResolveIdentity(ctx, session.GetUserID())
	if err != nil {
		s.logger.Error("IdentityFromSession resolve identity failed", "error", err)
		return nil, err
	}

	return user, nil
}

func (s *Auther) resolveUser(ctx context.Context, identifier string) (*User, error) {
	user, err := s.identities.ResolveIdentity(ctx, identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// absence flows into the validator as a nil snapshot
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *Auther) rejectLogin(ctx context.Context, user *User, identifier string, tenantID uuid.UUID, outcome LoginOutcome) error {
	var rejection error
	actor := ActorRef{Type: "unknown"}
	userID := ""

	switch outcome {
	case LoginUserNotFound:
		rejection = ErrIdentityNotFound
	case LoginPasswordNotMatched:
		rejection = ErrMismatchedHashAndPassword
		actor = s.actorFromUser(user)
		userID = user.ID.String()
		if tracker, ok := s.identities.(loginTracker); ok {
			if err := tracker.TrackAttemptedLogin(ctx, user); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login attempt")
			}
		}
	case LoginInvalidUserStatus:
		rejection = ErrInvalidUserStatus
		actor = s.actorFromUser(user)
		userID = user.ID.String()
	default:
		rejection = ErrIdentityNotFound
	}

	s.emitAuthEvent(ctx, ActivityEventLoginFailure, actor, userID, tenantID, map[string]any{
		"identifier": identifier,
		"outcome":    outcome.String(),
	})

	return rejection
}

func (s *Auther) issueToken(ctx context.Context, user *User, tenantID uuid.UUID) (string, error) {
	if user == nil {
		return "", ErrIdentityNotFound
	}

	roles, err := s.roles.ResolveTenantRoles(ctx, user.ID, tenantID)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve tenant roles for token")
	}

	claims := NewTenantClaims(NewIdentityFromUser(user), tenantID, PermissionUnion(roles))
	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(s.claimsDecorator)
	if err := decorator.Decorate(ctx, NewIdentityFromUser(user), claims); err != nil {
		s.logger.Error("claims decorator failed", "error", err)
		return "", err
	}

	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims", "error", err)
		return "", err
	}

	token, _, err := s.tokenService.Issue(claims, s.tokenTTL)
	return token, err
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, tenantID uuid.UUID, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if tenantID != uuid.Nil {
		event.TenantID = tenantID.String()
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}
