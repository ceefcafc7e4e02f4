// Package token signs and verifies the compact access tokens issued at login.
// Claims carry only the identity (user id, email, role); organization
// membership is deliberately excluded and re-queried on every request so that
// membership changes take effect immediately.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed        = errors.New("token: malformed")
	ErrExpired          = errors.New("token: expired")
	ErrInvalidSignature = errors.New("token: invalid signature")
)

// Claims is the exact claim set embedded in an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Codec signs and verifies HS256 tokens with a shared secret.
type Codec struct {
	secret []byte
	issuer string
}

func NewCodec(secret []byte, issuer string) *Codec {
	return &Codec{secret: secret, issuer: issuer}
}

// Sign issues a token for the given identity with the given lifetime.
func (c *Codec) Sign(userID uuid.UUID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID.String(),
		Email:  email,
		Role:   role,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Failures are
// reported through the package sentinel errors so callers can distinguish an
// expired token from a forged one.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(c.issuer),
	)

	switch {
	case err == nil && tok.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, ErrMalformed
	}
}

// UserID parses the user id claim. A token whose subject is not a UUID is
// treated as malformed.
func (cl *Claims) UserUUID() (uuid.UUID, error) {
	id, err := uuid.Parse(cl.UserID)
	if err != nil {
		return uuid.Nil, ErrMalformed
	}
	return id, nil
}
