package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/elev8/access/internal/identity"
)

// MemberRepository implements identity.MemberRepository over the members
// table
type MemberRepository struct {
	db *DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{db: db}
}

const profileColumns = `id, email, isadmin, isstaff`

func scanProfile(row pgx.Row) (*identity.Profile, error) {
	var p identity.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.IsAdmin, &p.IsStaff); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByID retrieves the role flags of a member. A missing member is
// not an error.
func (r *MemberRepository) GetProfileByID(ctx context.Context, userID string) (*identity.Profile, error) {
	p, err := scanProfile(r.db.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM members
		WHERE id = $1
	`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return p, nil
}

// GetProfileByEmail retrieves a member by email
func (r *MemberRepository) GetProfileByEmail(ctx context.Context, email string) (*identity.Profile, error) {
	p, err := scanProfile(r.db.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM members
		WHERE LOWER(email) = LOWER($1)
		ORDER BY created_at
		LIMIT 1
	`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}
	return p, nil
}

// EnsureMember inserts a plain member record unless one exists.
func (r *MemberRepository) EnsureMember(ctx context.Context, m identity.NewMember) (*identity.Profile, bool, error) {
	tag, err := r.db.pool.Exec(ctx, `
		INSERT INTO members (id, firstname, lastname, email, status, isadmin, isstaff)
		VALUES ($1, $2, $3, $4, 'Active', FALSE, FALSE)
		ON CONFLICT (id) DO NOTHING
	`, m.UserID, m.FirstName, m.LastName, m.Email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert member: %w", err)
	}

	p, err := r.GetProfileByID(ctx, m.UserID)
	if err != nil {
		return nil, false, err
	}
	if p == nil {
		return nil, false, identity.ErrMemberNotFound
	}
	return p, tag.RowsAffected() == 1, nil
}

// UpdateRoleFlags sets the non-nil role flags
func (r *MemberRepository) UpdateRoleFlags(ctx context.Context, userID string, isAdmin, isStaff *bool) (*identity.Profile, error) {
	p, err := scanProfile(r.db.pool.QueryRow(ctx, `
		UPDATE members
		SET isadmin = COALESCE($2, isadmin),
			isstaff = COALESCE($3, isstaff),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns,
		userID, isAdmin, isStaff,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to update role flags: %w", err)
	}
	return p, nil
}
