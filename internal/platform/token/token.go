// Package token verifies the HS256 access tokens issued by the MR.CREAMS
// auth frontend. This service only consumes tokens; it never issues them.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mrcreams/internal/platform/middleware"
)

// AccessTokenClaims are the claims expected on every MR.CREAMS access token.
type AccessTokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256-signed access tokens.
type Verifier struct {
	signingKey []byte
	leeway     time.Duration
}

// NewVerifier creates a Verifier for the given shared signing key.
func NewVerifier(signingKey string) *Verifier {
	return &Verifier{
		signingKey: []byte(signingKey),
		leeway:     30 * time.Second,
	}
}

// Verify parses and validates a token string, returning middleware claims.
func (v *Verifier) Verify(tokenString string) (*middleware.Claims, error) {
	claims := &AccessTokenClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &middleware.Claims{
		UserID: claims.Subject,
		Role:   claims.Role,
	}, nil
}
