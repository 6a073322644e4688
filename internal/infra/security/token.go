package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidAccessToken indicates the token is malformed or signature validation failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// VoterClaims carries the identity context the voting core consumes: the
// user id and the account creation timestamp used by the account-age
// heuristic. Tokens are issued by the external identity provider.
type VoterClaims struct {
	UserID           string   `json:"uid"`
	AccountCreatedAt int64    `json:"account_created_at"`
	Roles            []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// AccountCreated returns the account creation instant encoded in the claims.
func (c *VoterClaims) AccountCreated() time.Time {
	if c.AccountCreatedAt <= 0 {
		return time.Time{}
	}
	return time.Unix(c.AccountCreatedAt, 0).UTC()
}

// HasRole reports whether the claims carry the given role.
func (c *VoterClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenVerifier validates access tokens issued by the identity provider.
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenVerifier constructs a TokenVerifier for the shared-secret scheme
// the identity provider signs with.
func NewTokenVerifier(secret, issuer, audience string) (*TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("identity jwt secret is required")
	}
	return &TokenVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}, nil
}

// Parse validates the token and returns its claims.
func (v *TokenVerifier) Parse(token string) (*VoterClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidAccessToken
	}

	claims := &VoterClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidAccessToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}
