// Copyright 2026 The Elev8 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims issued by the hosted auth backend.
type Claims struct {
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// RevocationChecker reports whether a session was signed out before its
// token expired.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Revoker records signed out sessions until their tokens expire.
type Revoker interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
}

// TokenVerifier validates HS256 access tokens.
type TokenVerifier struct {
	secret      []byte
	issuer      string
	audience    string
	revocations RevocationChecker
}

// VerifierOption configures a TokenVerifier.
type VerifierOption func(*TokenVerifier)

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) VerifierOption {
	return func(v *TokenVerifier) { v.issuer = issuer }
}

// WithAudience requires aud to contain audience.
func WithAudience(audience string) VerifierOption {
	return func(v *TokenVerifier) { v.audience = audience }
}

// WithRevocations rejects tokens whose session was revoked.
func WithRevocations(rc RevocationChecker) VerifierOption {
	return func(v *TokenVerifier) { v.revocations = rc }
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret string, opts ...VerifierOption) *TokenVerifier {
	v := &TokenVerifier{secret: []byte(secret)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify parses raw and returns the session it carries.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (*Session, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	sessionID := claims.SessionID
	if sessionID == "" {
		sessionID = claims.ID
	}

	if v.revocations != nil && sessionID != "" {
		revoked, err := v.revocations.IsRevoked(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			return nil, ErrSessionRevoked
		}
	}

	return &Session{
		ID:        sessionID,
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Sign issues a token for s. Used by tooling and tests; production tokens
// come from the auth backend.
func (v *TokenVerifier) Sign(s Session) (string, error) {
	claims := Claims{
		Email:     s.Email,
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type tokenKey struct{}

// ContextWithToken attaches a raw access token to ctx.
func ContextWithToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, tokenKey{}, raw)
}

// TokenFromContext returns the raw access token attached to ctx.
func TokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(tokenKey{}).(string)
	return raw
}

// TokenSessionProvider resolves the session from the token in the context.
type TokenSessionProvider struct {
	verifier *TokenVerifier
}

// NewTokenSessionProvider creates a SessionProvider backed by verifier.
func NewTokenSessionProvider(verifier *TokenVerifier) *TokenSessionProvider {
	return &TokenSessionProvider{verifier: verifier}
}

// CurrentSession implements SessionProvider. No token means no session.
func (p *TokenSessionProvider) CurrentSession(ctx context.Context) (*Session, error) {
	raw := TokenFromContext(ctx)
	if raw == "" {
		return nil, nil
	}
	return p.verifier.Verify(ctx, raw)
}

// MemoryRevocations is an in-process RevocationChecker.
type MemoryRevocations struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryRevocations creates an empty revocation list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time)}
}

// Revoke marks sessionID revoked until expiresAt.
func (m *MemoryRevocations) Revoke(_ context.Context, sessionID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[sessionID] = expiresAt
	return nil
}

// IsRevoked implements RevocationChecker
func (m *MemoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	until, ok := m.revoked[sessionID]
	return ok && time.Now().Before(until), nil
}
