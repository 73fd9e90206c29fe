package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the authenticated caller resolved from a bearer token.
type Actor struct {
	ID   uuid.UUID
	DID  string
	Role string
}

// Claims is the JWT payload issued by this server. Subject carries the
// account id; DID and Role ride alongside so request handling never has to
// look the account up again.
type Claims struct {
	jwt.RegisteredClaims
	DID  string `json:"did"`
	Role string `json:"role"`
}

// Issuer signs tokens for authenticated accounts.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl}
}

// Token issues a signed HS256 token for the given actor.
func (i *Issuer) Token(actor Actor) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		DID:  actor.DID,
		Role: actor.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Middleware validates bearer tokens and puts the resolved Actor on the
// request context.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			actor := Actor{ID: id, DID: claims.DID, Role: claims.Role}
			ctx := context.WithValue(c.Request().Context(), actorKey, actor)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development. Requests
// without a token run as a fixed admin actor; requests with a token fall
// through to normal validation.
func DevAuthMiddleware(secret []byte) echo.MiddlewareFunc {
	validate := Middleware(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				actor := Actor{
					ID:   uuid.MustParse("00000000-0000-0000-0000-000000000001"),
					DID:  "did:hlf:dev-admin",
					Role: "admin",
				}
				ctx := context.WithValue(c.Request().Context(), actorKey, actor)
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
			return validate(next)(c)
		}
	}
}

// ActorFromContext returns the authenticated actor, or false when the
// request was not authenticated.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// WithActor returns a context carrying the given actor. Used by tests and
// the dev middleware.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}
