// Command make-admin grants the admin and staff flags to an existing
// member, looked up by email. With REDIS_ENABLED it also drops the cached
// profile and tells running servers, so open sessions see the new role.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/config"
	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/store/cache"
	"github.com/elev8/access/internal/store/postgres"
)

func main() {
	email := flag.String("email", "", "email of the member to promote")
	revoke := flag.Bool("revoke", false, "clear the admin flag instead of setting it")
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "usage: make-admin -email user@example.com [-revoke]")
		os.Exit(2)
	}

	if err := run(*email, !*revoke); err != nil {
		fmt.Fprintf(os.Stderr, "make-admin failed: %v\n", err)
		os.Exit(1)
	}
}

func run(email string, grant bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	redisCfg, err := config.LoadRedis()
	if err != nil {
		return err
	}

	db, err := postgres.New(ctx, postgres.ConfigFrom(*dbCfg))
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewMemberRepository(db)
	var (
		members   identity.MemberRepository = repo
		publisher identity.Publisher
	)
	if redisCfg.Enabled {
		client, err := cache.New(ctx, cache.Config{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		members = cache.NewMembers(repo, cache.NewProfileCache(client, repo, redisCfg.ProfileTTL, redisCfg.NegativeTTL))
		publisher = cache.NewEventBus(client, redisCfg.EventChannel)
	} else {
		fmt.Println("redis disabled; running servers pick up the change on the next profile lookup")
	}

	updated, err := setAdmin(ctx, members, publisher, email, grant)
	if err != nil {
		return err
	}

	role := access.ResolveRole(updated)
	fmt.Printf("✓ %s (%s) is now %s\n", updated.Email, updated.ID, access.DisplayName(role))
	return nil
}

// setAdmin updates the flags of the member with email and announces the
// change on publisher, when there is one.
func setAdmin(ctx context.Context, members identity.MemberRepository, publisher identity.Publisher, email string, grant bool) (*identity.Profile, error) {
	member, err := members.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrMemberNotFound) {
			return nil, fmt.Errorf("no member with email %s; they must sign in once first", email)
		}
		return nil, err
	}

	// Revoking leaves the staff flag as it is.
	isStaff := identity.Bool(true)
	if !grant {
		isStaff = nil
	}
	updated, err := members.UpdateRoleFlags(ctx, member.ID, identity.Bool(grant), isStaff)
	if err != nil {
		return nil, err
	}

	if publisher != nil {
		ev := identity.Event{Type: identity.EventProfileUpdated, UserID: updated.ID, At: time.Now()}
		if err := publisher.Publish(ctx, ev); err != nil {
			return updated, fmt.Errorf("flags saved but servers were not notified: %w", err)
		}
	}
	return updated, nil
}
