// Package auth verifies viewer tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/streamreact/companion/internal/domain"
)

// Verifier turns a bearer token into an identity. Failures wrap
// domain.ErrVerification.
type Verifier interface {
	Verify(token string) (*domain.Identity, error)
}

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// JWTVerifier verifies and issues HS256 tokens.
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTVerifier creates a verifier for secret. ttl is used by Issue only.
func NewJWTVerifier(secret string, ttl time.Duration) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Verify checks the signature and expiry of token.
func (v *JWTVerifier) Verify(token string) (*domain.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrVerification)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrVerification)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrVerification, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing id claim", domain.ErrVerification)
	}

	role := domain.Role(claims.Role)
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return &domain.Identity{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     role,
		Avatar:   claims.Avatar,
	}, nil
}

// Issue signs a token for identity.
func (v *JWTVerifier) Issue(identity domain.Identity) (string, error) {
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		UserID:   identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		Role:     string(identity.Role),
		Avatar:   identity.Avatar,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
