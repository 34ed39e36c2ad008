package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the payload carried by an issued token.
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies compact time-bounded identity assertions.
// Verification is purely cryptographic and structural; it never consults the
// session store, so revoked-but-unexpired tokens still verify.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer constructs an issuer over the process-wide signing secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue signs a token asserting userID until expiresAt.
func (i *TokenIssuer) Issue(userID uuid.UUID, expiresAt time.Time) (string, error) {
	claims := TokenClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a token, returning the asserted user identity.
// Signature mismatch, malformed payload and expiry all map to ErrInvalidToken.
func (i *TokenIssuer) Verify(token string) (uuid.UUID, *TokenClaims, error) {
	var claims TokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, nil, ErrInvalidToken
	}
	return userID, &claims, nil
}
