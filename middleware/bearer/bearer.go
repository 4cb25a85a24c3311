// Package bearer implements the Authorization header middleware guarding
// protected routes. It deliberately defines its own narrow interfaces so
// the parent package can plug in without an import cycle.
package bearer

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AuthScheme is the exact scheme literal the middleware accepts
const AuthScheme = "Bearer"

// DefaultContextKey stores the resolved user in fiber locals
const DefaultContextKey = "user"

// ErrMissingOrMalformed covers absent headers and wrong schemes
var ErrMissingOrMalformed = errors.New("missing or malformed bearer token")

// TokenValidator verifies a raw token's signature and expiry and returns
// the identity it carries. Mirrors the parent package's token service.
type TokenValidator interface {
	ValidateBearer(raw string) (userID string, err error)
}

// UserResolver turns a verified identity into a live user record,
// rejecting tokens the store no longer considers current.
type UserResolver interface {
	ResolveBearer(ctx context.Context, userID, raw string) (any, error)
}

type Config struct {
	Validator TokenValidator
	Resolver  UserResolver
	// ContextKey is the fiber locals key the resolved user is stored under
	ContextKey string
	// ErrorHandler receives every failure. All three failure points run
	// through it, so a single handler guarantees an identical response
	// regardless of which check tripped.
	ErrorHandler func(c *fiber.Ctx, err error) error
	// ContextEnricher propagates the resolved user into the request's
	// standard context for code below the transport layer.
	ContextEnricher func(ctx context.Context, user any) context.Context
}

// New returns the auth middleware. Steps: exact "Bearer" scheme match,
// token verification, user resolution with stored-token comparison, then
// identity attachment. No side effects beyond the store read.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		raw, err := TokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		userID, err := cfg.Validator.ValidateBearer(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		user, err := cfg.Resolver.ResolveBearer(c.UserContext(), userID, raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, user)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), user))
		}

		return c.Next()
	}
}

// TokenFromHeader extracts the raw token, requiring the scheme to be the
// exact literal "Bearer".
func TokenFromHeader(header string) (string, error) {
	scheme, raw, found := strings.Cut(header, " ")
	if !found || scheme != AuthScheme || raw == "" {
		return "", ErrMissingOrMalformed
	}
	return raw, nil
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Validator == nil {
		panic("bearer: missing TokenValidator")
	}

	if cfg.Resolver == nil {
		panic("bearer: missing UserResolver")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, _ error) error {
			return fiber.ErrUnauthorized
		}
	}

	return cfg
}
