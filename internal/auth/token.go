package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/shared"
)

const tokenIssuer = "flutterbye-api"

// TokenCodec mints and parses the signed session tokens bound to a transport.
// Tokens are self-contained; identity state is always re-read from the store.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec constructs a TokenCodec.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Mint creates a session token for the identity.
func (c *TokenCodec) Mint(id *identity.Identity) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.WalletAddress,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Parse validates a session token and returns the wallet address it binds.
func (c *TokenCodec) Parse(token string) (string, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, shared.ErrUnauthenticated
		}
		return c.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", shared.ErrUnauthenticated
	}
	return claims.Subject, nil
}
