package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"docvault/internal/config"
)

// Package auth validates bearer tokens issued by an external authentication
// service. The service only verifies signature, expiry, and issuer, and
// extracts the caller identity and granted scopes; it never issues tokens.

var (
	// ErrInvalidToken covers bad signature, malformed, or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSubject is returned when a valid token carries no subject.
	ErrMissingSubject = errors.New("token has no subject")
)

// Claims is the identity extracted from a verified token.
type Claims struct {
	Subject string
	Scopes  []string
}

// HasScope reports whether the token grants the named scope.
func (c Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Verifier checks HS256-signed bearer tokens against a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier builds a Verifier from configuration.
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Verifier{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer}, nil
}

type tokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Verify parses and validates a raw token, returning its claims.
func (v *Verifier) Verify(raw string) (Claims, error) {
	var tc tokenClaims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	tkn, err := jwt.ParseWithClaims(raw, &tc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return Claims{}, ErrInvalidToken
	}
	if tc.Subject == "" {
		return Claims{}, ErrMissingSubject
	}
	return Claims{
		Subject: tc.Subject,
		Scopes:  strings.Fields(tc.Scope),
	}, nil
}
