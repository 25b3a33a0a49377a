package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ContextKey is the echo context key holding the verified *Identity.
const ContextKey = "identity"

// TokenContextKey is where the JWT middleware leaves the parsed *jwt.Token.
const TokenContextKey = "user"

var ErrInvalidClaims = errors.New("token has no subject")

// Identity is the authenticated caller. It is passed explicitly to services
// instead of being read from ambient state.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Claims are the bearer token claims issued by the identity provider.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IdentityFromClaims builds an Identity from verified claims.
func IdentityFromClaims(c *Claims) (*Identity, error) {
	if c == nil || strings.TrimSpace(c.Subject) == "" {
		return nil, ErrInvalidClaims
	}
	return &Identity{UserID: c.Subject, Email: c.Email}, nil
}

// IssueToken signs an HS256 token for userID. Used by the CLI for development
// tokens and by tests.
func IssueToken(secret, userID, email string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrInvalidClaims
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return s, nil
}

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*Identity)
	return id
}
