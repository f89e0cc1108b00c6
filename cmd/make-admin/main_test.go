package main

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/store/cache"
)

// memberTable implements identity.MemberRepository for testing
type memberTable struct {
	mu       sync.Mutex
	profiles map[string]*identity.Profile
}

func (m *memberTable) GetProfileByID(_ context.Context, userID string) (*identity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memberTable) GetProfileByEmail(_ context.Context, email string) (*identity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, identity.ErrMemberNotFound
}

func (m *memberTable) EnsureMember(context.Context, identity.NewMember) (*identity.Profile, bool, error) {
	return nil, false, nil
}

func (m *memberTable) UpdateRoleFlags(_ context.Context, userID string, isAdmin, isStaff *bool) (*identity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, identity.ErrMemberNotFound
	}
	if isAdmin != nil {
		p.IsAdmin = isAdmin
	}
	if isStaff != nil {
		p.IsStaff = isStaff
	}
	cp := *p
	return &cp, nil
}

// TestPurpose: Validates that promoting a member from the command line reaches running servers.
// Scope: Unit Test
// Security: Role changes apply without waiting for cache expiry
// Expected: The cached profile is replaced and a ProfileUpdated event is published.
// Test Case ID: CCH-06
func TestSetAdmin_InvalidatesAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &memberTable{profiles: map[string]*identity.Profile{
		"u1": {ID: "u1", Email: "owner@elev8.fit", IsAdmin: identity.Bool(false), IsStaff: identity.Bool(false)},
	}}
	members := cache.NewMembers(repo, cache.NewProfileCache(client, repo, time.Minute, 0))
	bus := identity.NewMemoryBus()

	var got []identity.Event
	defer bus.Subscribe(func(ev identity.Event) { got = append(got, ev) })()

	ctx := context.Background()
	before, err := members.GetProfileByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, before.Admin())

	updated, err := setAdmin(ctx, members, bus, "owner@elev8.fit", true)
	require.NoError(t, err)
	assert.True(t, updated.Admin())
	assert.True(t, updated.Staff())

	after, err := members.GetProfileByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, after.Admin())

	require.Len(t, got, 1)
	assert.Equal(t, identity.EventProfileUpdated, got[0].Type)
	assert.Equal(t, "u1", got[0].UserID)

	updated, err = setAdmin(ctx, members, bus, "owner@elev8.fit", false)
	require.NoError(t, err)
	assert.False(t, updated.Admin())
	assert.True(t, updated.Staff())
}

func TestSetAdmin_UnknownEmail(t *testing.T) {
	repo := &memberTable{profiles: map[string]*identity.Profile{}}

	_, err := setAdmin(context.Background(), repo, nil, "ghost@elev8.fit", true)
	assert.ErrorContains(t, err, "must sign in once first")
}
