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
	"strings"
	"time"
)

// Domain errors
var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidToken   = errors.New("invalid session token")
	ErrTokenExpired   = errors.New("session token expired")
	ErrSessionRevoked = errors.New("session revoked")
	ErrMemberNotFound = errors.New("member not found")
)

// Session is an authenticated session issued by the hosted auth backend.
type Session struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Profile is the member record slice the access layer cares about.
//
// The role flags are stored as nullable columns. A nil flag means the
// column was never set and reads as false.
type Profile struct {
	ID      string
	Email   string
	IsAdmin *bool
	IsStaff *bool
}

// Admin reports the admin flag, treating an absent value as false.
func (p *Profile) Admin() bool {
	return p != nil && p.IsAdmin != nil && *p.IsAdmin
}

// Staff reports the staff flag, treating an absent value as false.
func (p *Profile) Staff() bool {
	return p != nil && p.IsStaff != nil && *p.IsStaff
}

// Bool returns a pointer to b, for building profiles and flag updates.
func Bool(b bool) *bool {
	return &b
}

// SessionProvider resolves the session attached to the current request or
// navigation. A nil session with a nil error means nobody is signed in.
type SessionProvider interface {
	CurrentSession(ctx context.Context) (*Session, error)
}

// ProfileStore loads member profiles.
type ProfileStore interface {
	// GetProfileByID returns nil, nil when no member record exists for the
	// user, and an error only on transport failure.
	GetProfileByID(ctx context.Context, userID string) (*Profile, error)
}

// MemberRepository defines the write side of member persistence used by the
// sign-in flow and role management.
type MemberRepository interface {
	ProfileStore

	// EnsureMember creates a plain member record for the user if none exists.
	// The returned bool is true when a record was created.
	EnsureMember(ctx context.Context, m NewMember) (*Profile, bool, error)

	// UpdateRoleFlags sets the role flags that are non-nil.
	UpdateRoleFlags(ctx context.Context, userID string, isAdmin, isStaff *bool) (*Profile, error)

	// GetProfileByEmail retrieves a member by email
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
}

// NewMember carries the fields used to create a member record on first sign-in.
type NewMember struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// NewMemberFromSession derives the first sign-in record from the session
// and the optional full name reported by the auth backend. Without a full
// name the local part of the email is used as the first name.
func NewMemberFromSession(s *Session, fullName string) NewMember {
	name := strings.TrimSpace(fullName)
	if name == "" {
		name, _, _ = strings.Cut(s.Email, "@")
	}

	first, last, _ := strings.Cut(name, " ")
	return NewMember{
		UserID:    s.UserID,
		Email:     s.Email,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
	}
}
