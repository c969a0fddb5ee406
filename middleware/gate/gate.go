package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	authz "github.com/goliatone/go-authz"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// TokenValidator validates a raw bearer token into a claim set. It mirrors
// TokenService.Validate from the root package.
type TokenValidator interface {
	Validate(tokenString string) (authz.ClaimSet, error)
}

// OperationResolver maps an incoming request to the operation key looked up
// in the requirement registry.
type OperationResolver func(ctx router.Context) string

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	SigningKey     SigningKey
	SigningKeys    map[string]SigningKey
	ContextKey     string
	TokenLookup    string
	AuthScheme     string
	KeyFunc        jwt.Keyfunc
	JWKSetURLs     []string

	// TokenValidator validates bearer tokens. When nil, tokens are parsed
	// locally with KeyFunc (derived from SigningKey/SigningKeys/JWKSetURLs).
	TokenValidator TokenValidator

	// Registry holds per operation requirements. Operations without a
	// registered requirement only need a valid token.
	Registry *Registry
	// Operation resolves the operation key for the request. Required when a
	// Registry is set.
	Operation OperationResolver

	// Tenants runs the tenant gate. Defaults to authz.NewTenantAuthorizer().
	Tenants *authz.TenantAuthorizer
	// Permissions runs the permission gate. Required whenever the registry
	// holds a requirement with a permission.
	Permissions *authz.PermissionAuthorizer

	// ContextEnricher propagates claims to the standard Go context after the
	// gates pass. Defaults to authz.WithClaimsContext.
	ContextEnricher func(c context.Context, claims authz.ClaimSet) context.Context
}

type SigningKey struct {
	JWTAlg string
	Key    any
}

// FromConfig maps the root package configuration onto a gate Config. Fields
// not covered by authz.Config (registry, resolvers, gates) are zero and can
// be set on the returned value before calling New.
func FromConfig(cfg authz.Config) Config {
	return Config{
		SigningKey: SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:  cfg.GetAuthScheme(),
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
	}
}

// New builds the gate middleware. Order is fixed: token validation, then the
// tenant gate, then the permission gate. A failed tenant gate short-circuits
// before any permission evaluation.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.validateToken(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			req, ok := cfg.lookupRequirement(ctx)
			if ok {
				if err := cfg.runGates(ctx, claims, req); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.ContextEnricher != nil {
				stdCtx := cfg.ContextEnricher(ctx.Context(), claims)
				ctx.SetContext(stdCtx)
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func (cfg *Config) validateToken(raw string) (authz.ClaimSet, error) {
	if cfg.TokenValidator != nil {
		return cfg.TokenValidator.Validate(raw)
	}

	claims := &authz.TenantClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, cfg.KeyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, authz.ErrTokenExpired
		}
		return nil, authz.ErrTokenMalformed
	}

	if !token.Valid {
		return nil, authz.ErrTokenMalformed
	}

	return claims, nil
}

func (cfg *Config) lookupRequirement(ctx router.Context) (Requirement, bool) {
	if cfg.Registry == nil || cfg.Operation == nil {
		return Requirement{}, false
	}
	return cfg.Registry.Lookup(cfg.Operation(ctx))
}

// runGates enforces a requirement: tenant first, permission second. Denials
// surface as the package error values; an authorizer infrastructure error is
// returned as-is and is never converted into a denial.
func (cfg *Config) runGates(ctx router.Context, claims authz.ClaimSet, req Requirement) error {
	if !req.TenantRequired && req.Permission == "" {
		return nil
	}

	decision, tenantID := cfg.Tenants.Authorize(claims)
	if !decision.Allowed() {
		return authz.ErrTenantRequired
	}

	if req.Permission == "" {
		return nil
	}

	if cfg.Permissions == nil {
		return fmt.Errorf("gate: permission %q required but no permission authorizer configured", req.Permission)
	}

	decision, err := cfg.Permissions.Authorize(ctx.Context(), claims, req.Permission, tenantID)
	if err != nil {
		return err
	}
	if !decision.Allowed() {
		return authz.ErrPermissionDenied
	}

	return nil
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			switch {
			case err.Error() == ErrJWTMissingOrMalformed.Error():
				return c.Status(router.StatusBadRequest).SendString(ErrJWTMissingOrMalformed.Error())
			case errors.Is(err, authz.ErrTenantRequired), errors.Is(err, authz.ErrPermissionDenied):
				return c.Status(router.StatusForbidden).SendString("Forbidden")
			default:
				return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
			}
		}
	}

	if cfg.TokenValidator == nil &&
		cfg.SigningKey.Key == nil && len(cfg.SigningKeys) == 0 && len(cfg.JWKSetURLs) == 0 && cfg.KeyFunc == nil {
		panic("GATE: middleware configuration: At least one of the following is required: TokenValidator, KeyFunc, JWKSetURLs, SigningKeys, or SigningKey.")
	}

	if cfg.Registry != nil && cfg.Operation == nil {
		panic("GATE: middleware configuration: Operation resolver is required when a Registry is set.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.Tenants == nil {
		cfg.Tenants = authz.NewTenantAuthorizer()
	}

	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = authz.WithClaimsContext
	}

	if cfg.KeyFunc == nil {
		if len(cfg.SigningKeys) > 0 || len(cfg.JWKSetURLs) > 0 {
			var givenKeys map[string]keyfunc.GivenKey
			if cfg.SigningKeys != nil {
				givenKeys = make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
				for kid, key := range cfg.SigningKeys {
					givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
						Algorithm: key.JWTAlg,
					})
				}
			}
			if len(cfg.JWKSetURLs) > 0 {
				var err error
				cfg.KeyFunc, err = multiKeyfunc(givenKeys, cfg.JWKSetURLs)
				if err != nil {
					panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
				}
			} else {
				cfg.KeyFunc = keyfunc.NewGiven(givenKeys).Keyfunc
			}
		} else if cfg.SigningKey.Key != nil {
			cfg.KeyFunc = signingKeyFunc(cfg.SigningKey)
		}
	}

	return cfg
}

func multiKeyfunc(givenKeys map[string]keyfunc.GivenKey, jwtSetUrls []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions(givenKeys)
	m := make(map[string]keyfunc.Options, len(jwtSetUrls))
	for _, url := range jwtSetUrls {
		m[url] = opts
	}
	mopts := keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	}
	multi, err := keyfunc.GetMultiple(m, mopts)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

func keyfuncOptions(givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			fmt.Println("[WARNING] Missing auth scheme in config definition")
			return "", ErrJWTMissingOrMalformed
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing json type", key.JWTAlg)
			}
			if alg != key.JWTAlg {
				return nil, fmt.Errorf("unexpected jwt signing method: expected: %q: got: %q", key.JWTAlg, alg)
			}
		}
		return key.Key, nil
	}
}
