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

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elev8/access/internal/identity"
)

const testSecret = "test-secret-with-enough-entropy-0123456789"

func TestProfile_FlagDefaults(t *testing.T) {
	var nilProfile *identity.Profile
	assert.False(t, nilProfile.Admin())
	assert.False(t, nilProfile.Staff())

	p := &identity.Profile{ID: "u1"}
	assert.False(t, p.Admin())
	assert.False(t, p.Staff())

	p.IsStaff = identity.Bool(true)
	assert.True(t, p.Staff())
	assert.False(t, p.Admin())
}

// TestPurpose: Validates that access tokens from the auth backend are verified and mapped to sessions.
// Scope: Unit Test
// Security: Token signature, algorithm and expiry enforcement
// Expected: Valid tokens yield a session, tampered or expired tokens are rejected.
// Test Case ID: IDN-01
func TestTokenVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	v := identity.NewTokenVerifier(testSecret, identity.WithIssuer("elev8-auth"), identity.WithAudience("elev8"))

	raw, err := v.Sign(identity.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Email:     "coach@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	sess, err := v.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, "coach@example.com", sess.Email)
	assert.False(t, sess.IsExpired())

	t.Run("wrong secret", func(t *testing.T) {
		other := identity.NewTokenVerifier("another-secret-another-secret-0000")
		_, err := other.Verify(ctx, raw)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := identity.NewTokenVerifier(testSecret, identity.WithAudience("billing"))
		_, err := other.Verify(ctx, raw)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := v.Sign(identity.Session{ID: "s", UserID: "u", ExpiresAt: time.Now().Add(-time.Minute)})
		require.NoError(t, err)
		_, err = v.Verify(ctx, expired)
		assert.ErrorIs(t, err, identity.ErrTokenExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Verify(ctx, unsigned)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		plain := identity.NewTokenVerifier(testSecret)
		noSub, err := plain.Sign(identity.Session{ID: "s", ExpiresAt: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		_, err = plain.Verify(ctx, noSub)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})
}

// TestPurpose: Validates that signed-out sessions are rejected until expiry.
// Scope: Unit Test
// Security: Session revocation
// Expected: Verify returns ErrSessionRevoked for a revoked session.
// Test Case ID: IDN-02
func TestTokenVerifier_Revocation(t *testing.T) {
	ctx := context.Background()
	revocations := identity.NewMemoryRevocations()
	v := identity.NewTokenVerifier(testSecret, identity.WithRevocations(revocations))

	exp := time.Now().Add(time.Hour)
	raw, err := v.Sign(identity.Session{ID: "sess-9", UserID: "user-9", ExpiresAt: exp})
	require.NoError(t, err)

	_, err = v.Verify(ctx, raw)
	require.NoError(t, err)

	require.NoError(t, revocations.Revoke(ctx, "sess-9", exp))
	_, err = v.Verify(ctx, raw)
	assert.ErrorIs(t, err, identity.ErrSessionRevoked)
}

func TestTokenSessionProvider(t *testing.T) {
	v := identity.NewTokenVerifier(testSecret)
	p := identity.NewTokenSessionProvider(v)

	sess, err := p.CurrentSession(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, sess)

	raw, err := v.Sign(identity.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	sess, err = p.CurrentSession(identity.ContextWithToken(context.Background(), raw))
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)

	_, err = p.CurrentSession(identity.ContextWithToken(context.Background(), "garbage"))
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestMemoryBus_SubscribePublish(t *testing.T) {
	bus := identity.NewMemoryBus()

	var got []identity.Event
	unsubscribe := bus.Subscribe(func(ev identity.Event) {
		got = append(got, ev)
	})

	require.NoError(t, bus.Publish(context.Background(), identity.Event{Type: identity.EventSignedIn, UserID: "u1"}))
	require.Len(t, got, 1)
	assert.Equal(t, identity.EventSignedIn, got[0].Type)
	assert.False(t, got[0].At.IsZero())

	unsubscribe()
	unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), identity.Event{Type: identity.EventSignedOut, UserID: "u1"}))
	assert.Len(t, got, 1)
}

func TestNewMemberFromSession(t *testing.T) {
	s := &identity.Session{UserID: "u1", Email: "jane.doe@example.com"}

	m := identity.NewMemberFromSession(s, "Jane van der Berg")
	assert.Equal(t, "Jane", m.FirstName)
	assert.Equal(t, "van der Berg", m.LastName)
	assert.Equal(t, "u1", m.UserID)

	m = identity.NewMemberFromSession(s, "")
	assert.Equal(t, "jane.doe", m.FirstName)
	assert.Empty(t, m.LastName)
}
