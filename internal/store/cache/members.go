package cache

import (
	"context"
	"log/slog"

	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

// Members reads profiles through a ProfileCache and drops the cached entry
// whenever a write changes a member, before the write returns. Callers
// that publish an identity event after the write are therefore never
// answered from the old entry.
type Members struct {
	identity.MemberRepository
	cache  *ProfileCache
	logger *slog.Logger
}

// NewMembers wraps repo. cache should read through to repo.
func NewMembers(repo identity.MemberRepository, cache *ProfileCache) *Members {
	return &Members{
		MemberRepository: repo,
		cache:            cache,
		logger:           slog.Default().With(logger.Component("members_cache")),
	}
}

// GetProfileByID implements identity.ProfileStore
func (m *Members) GetProfileByID(ctx context.Context, userID string) (*identity.Profile, error) {
	return m.cache.GetProfileByID(ctx, userID)
}

// EnsureMember implements identity.MemberRepository
func (m *Members) EnsureMember(ctx context.Context, nm identity.NewMember) (*identity.Profile, bool, error) {
	p, created, err := m.MemberRepository.EnsureMember(ctx, nm)
	if err != nil {
		return nil, false, err
	}
	if created {
		// A cached miss for this user is now wrong.
		m.invalidate(ctx, nm.UserID)
	}
	return p, created, nil
}

// UpdateRoleFlags implements identity.MemberRepository
func (m *Members) UpdateRoleFlags(ctx context.Context, userID string, isAdmin, isStaff *bool) (*identity.Profile, error) {
	p, err := m.MemberRepository.UpdateRoleFlags(ctx, userID, isAdmin, isStaff)
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, userID)
	return p, nil
}

func (m *Members) invalidate(ctx context.Context, userID string) {
	if err := m.cache.Invalidate(ctx, userID); err != nil {
		m.logger.WarnContext(ctx, "failed to invalidate cached profile after write",
			logger.UserID(userID),
			logger.Error(err),
		)
	}
}
