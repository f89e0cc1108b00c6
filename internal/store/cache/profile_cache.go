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

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

const (
	profileKeyPrefix   = "elev8:profile:"
	versionKeyPrefix   = "elev8:profile:ver:"
	defaultProfileTTL  = 30 * time.Second
	defaultNegativeTTL = 5 * time.Second
	loadTimeout        = 5 * time.Second
)

// cachedProfile is the stored form. Found distinguishes a cached miss from
// a member with no flags.
type cachedProfile struct {
	Found   bool   `json:"found"`
	ID      string `json:"id,omitempty"`
	Email   string `json:"email,omitempty"`
	IsAdmin *bool  `json:"is_admin,omitempty"`
	IsStaff *bool  `json:"is_staff,omitempty"`
}

// ProfileCache is a read-through Redis cache in front of a ProfileStore.
// Concurrent misses for the same user share one backend lookup. Redis
// failures degrade to direct backend reads.
//
// Every Invalidate bumps a per-user version; a load only writes its result
// back if the version it started from is still current.
type ProfileCache struct {
	client      *redis.Client
	next        identity.ProfileStore
	ttl         time.Duration
	negativeTTL time.Duration
	group       singleflight.Group
	logger      *slog.Logger
}

// NewProfileCache wraps next. Zero TTLs select the defaults.
func NewProfileCache(client *redis.Client, next identity.ProfileStore, ttl, negativeTTL time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	if negativeTTL <= 0 {
		negativeTTL = defaultNegativeTTL
	}
	return &ProfileCache{
		client:      client,
		next:        next,
		ttl:         ttl,
		negativeTTL: negativeTTL,
		logger:      slog.Default().With(logger.Component("profile_cache")),
	}
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}

func versionKey(userID string) string {
	return versionKeyPrefix + userID
}

// GetProfileByID implements identity.ProfileStore
func (c *ProfileCache) GetProfileByID(ctx context.Context, userID string) (*identity.Profile, error) {
	raw, err := c.client.Get(ctx, profileKey(userID)).Bytes()
	switch {
	case err == nil:
		var cp cachedProfile
		if jsonErr := json.Unmarshal(raw, &cp); jsonErr == nil {
			if !cp.Found {
				return nil, nil
			}
			return &identity.Profile{ID: cp.ID, Email: cp.Email, IsAdmin: cp.IsAdmin, IsStaff: cp.IsStaff}, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached profile", logger.UserID(userID))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.WarnContext(ctx, "profile cache unavailable, reading through", logger.UserID(userID), logger.Error(err))
	}

	resultChan := c.group.DoChan(userID, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		version, versionErr := c.version(loadCtx, userID)
		p, err := c.next.GetProfileByID(loadCtx, userID)
		if err != nil {
			return nil, err
		}
		if versionErr == nil {
			c.store(loadCtx, userID, p, version)
		}
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		p, _ := res.Val.(*identity.Profile)
		return p, nil
	}
}

func (c *ProfileCache) version(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// store writes p unless the profile was invalidated after version was read.
func (c *ProfileCache) store(ctx context.Context, userID string, p *identity.Profile, version int64) {
	cp := cachedProfile{}
	ttl := c.negativeTTL
	if p != nil {
		cp = cachedProfile{Found: true, ID: p.ID, Email: p.Email, IsAdmin: p.IsAdmin, IsStaff: p.IsStaff}
		ttl = c.ttl
	}

	raw, err := json.Marshal(cp)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(userID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, profileKey(userID), raw, ttl)
			return nil
		})
		return err
	}, versionKey(userID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleLoad), errors.Is(err, redis.TxFailedErr):
		c.logger.DebugContext(ctx, "profile changed during load, not caching", logger.UserID(userID))
	default:
		c.logger.WarnContext(ctx, "failed to cache profile", logger.UserID(userID), logger.Error(err))
	}
}

var errStaleLoad = errors.New("profile invalidated during load")

// Invalidate drops the cached profile of userID. Loads already in flight
// for userID are neither joined nor written back.
func (c *ProfileCache) Invalidate(ctx context.Context, userID string) error {
	c.group.Forget(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Expire(ctx, versionKey(userID), c.ttl+loadTimeout)
		pipe.Del(ctx, profileKey(userID))
		return nil
	})
	return err
}

// InvalidateOn drops cached profiles whenever source reports a sign-in or a
// profile update.
func (c *ProfileCache) InvalidateOn(source identity.EventSource) (unsubscribe func()) {
	return source.Subscribe(func(ev identity.Event) {
		if ev.Type != identity.EventProfileUpdated && ev.Type != identity.EventSignedIn {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.Invalidate(ctx, ev.UserID); err != nil {
			c.logger.WarnContext(ctx, "failed to invalidate cached profile", logger.UserID(ev.UserID), logger.Error(err))
		}
	})
}
