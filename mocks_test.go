package authz_test

import (
	"context"
	"time"

	authz "github.com/goliatone/go-authz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockLogger implements authz.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// discardLogger swallows everything; used where log output is noise.
type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// MockIdentity implements authz.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Username() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

// MockUserTracker implements authz.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string) (*authz.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*authz.User)
	return user, args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *authz.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *authz.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// stubIdentityStore resolves every identifier to the same user, or to the
// configured error.
type stubIdentityStore struct {
	user *authz.User
	err  error
}

func (s *stubIdentityStore) ResolveIdentity(context.Context, string) (*authz.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

// stubRoleStore serves a fixed role projection keyed by tenant.
type stubRoleStore struct {
	roles map[uuid.UUID][]*authz.Role
	err   error
}

func (s *stubRoleStore) ResolveTenantRoles(_ context.Context, _ uuid.UUID, tenantID uuid.UUID) ([]*authz.Role, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.roles[tenantID], nil
}

// testConfig implements authz.Config
type testConfig struct {
	signingKey      string
	tokenExpiration int
	issuer          string
	audience        []string
}

func (c testConfig) GetSigningKey() string    { return c.signingKey }
func (c testConfig) GetSigningMethod() string { return "HS256" }
func (c testConfig) GetContextKey() string    { return "user" }
func (c testConfig) GetTokenExpiration() int {
	if c.tokenExpiration == 0 {
		return 24
	}
	return c.tokenExpiration
}
func (c testConfig) GetTokenLookup() string { return "header:Authorization" }
func (c testConfig) GetAuthScheme() string  { return "Bearer" }
func (c testConfig) GetIssuer() string      { return c.issuer }
func (c testConfig) GetAudience() []string  { return c.audience }

// quickHash hashes with the minimum bcrypt cost to keep tests fast.
func quickHash(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// staticClock returns a Clock pinned to the given instant.
func staticClock(at time.Time) authz.Clock {
	return func() time.Time { return at }
}
