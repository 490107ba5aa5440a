package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/notevault-api/pkg/config"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
)

// OwnerClaims is the access token payload. The subject is the owner id every
// document path is scoped to.
type OwnerClaims struct {
	jwt.RegisteredClaims
}

// TokenService validates bearer tokens issued for NoteVault owners.
type TokenService struct {
	secret []byte
	issuer string
	clock  func() time.Time
}

// NewTokenService builds a validator from the JWT config.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{secret: []byte(cfg.Secret), issuer: cfg.Issuer, clock: time.Now}
}

// Issue signs an access token for owner valid for ttl.
func (s *TokenService) Issue(owner string, ttl time.Duration) (string, error) {
	if owner == "" {
		return "", appErrors.ErrAuthRequired
	}
	now := s.clock()
	claims := OwnerClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   owner,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate parses tokenString and returns the owner id it was issued for.
func (s *TokenService) Validate(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.clock)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &OwnerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrAuthRequired.Code, appErrors.ErrAuthRequired.Status, "invalid token")
	}

	claims, ok := token.Claims.(*OwnerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", appErrors.Clone(appErrors.ErrAuthRequired, "invalid token claims")
	}
	return claims.Subject, nil
}
