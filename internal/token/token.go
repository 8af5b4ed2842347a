// Package token issues and verifies signed unlock tokens. Tokens are HS256
// JWTs; an unsigned blob would let any client forge a valid-looking token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature or claim
// validation.
var ErrInvalidToken = errors.New("invalid unlock token")

// Claims is the payload carried by an unlock token.
type Claims struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Email       string `json:"email"`
	PromoCode   string `json:"promo_code,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies unlock tokens with a shared server secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer. Tokens expire ttl after issuance.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the given unlock. promoCode may be empty
// for unlocks granted by a paid checkout session.
func (i *Issuer) Issue(contentType, contentID, email, promoCode string) (string, error) {
	now := time.Now()
	claims := Claims{
		ContentType: contentType,
		ContentID:   contentID,
		Email:       email,
		PromoCode:   promoCode,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign unlock token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
