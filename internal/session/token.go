// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/tavola/internal/rbac"
)

var (
	// ErrInvalidToken is returned for malformed, tampered or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken is returned for tokens past their expiry.
	ErrExpiredToken = errors.New("session token expired")

	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("session signing secret is required")
)

// Claims is the signed session snapshot.
type Claims struct {
	TenantID      string   `json:"tid"`
	Role          string   `json:"role"`
	Permissions   []string `json:"perms"`
	ActiveModules []string `json:"mods"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the request principal.
func (c *Claims) Principal() *rbac.Principal {
	return &rbac.Principal{
		UserID:        c.Subject,
		TenantID:      c.TenantID,
		Role:          c.Role,
		Permissions:   append([]string(nil), c.Permissions...),
		ActiveModules: append([]string(nil), c.ActiveModules...),
	}
}

// TokenManager signs and verifies session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a token manager using HMAC-SHA256.
//
// The ttl is the activation snapshot's staleness window: permission and
// module changes reach a user only when their token is reissued.
func NewTokenManager(secret string, ttl time.Duration, issuer string) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// TTL returns the token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Sign creates a signed token for p.
//
// Token claims:
//   - sub: user ID
//   - tid, role: tenant and role
//   - perms, mods: permission and active module snapshot
//   - jti: random token ID
//   - exp: now + ttl
func (m *TokenManager) Sign(p *rbac.Principal) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := &Claims{
		TenantID:      p.TenantID,
		Role:          p.Role,
		Permissions:   p.Permissions,
		ActiveModules: p.ActiveModules,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    m.issuer,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify validates a token's signature, algorithm, expiry and issuer and
// returns its claims. Tokens signed with anything but HMAC are rejected.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(m.now)}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
