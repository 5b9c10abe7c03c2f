// Package guard answers "may this user touch this space", re-reading the
// membership relation on every call.
package guard

import (
	"context"
	"errors"

	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/models"
)

// ForbiddenError is a denial with the message shown to the caller.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

var (
	ErrNotMember = &ForbiddenError{Message: "Not a member of this space"}
	ErrNotAdmin  = &ForbiddenError{Message: "Forbidden — Admin access required"}
	ErrNotAuthor = &ForbiddenError{Message: "Only the author can edit/delete this"}
)

// IsForbidden reports whether err is a guard denial.
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// Authored is any space resource with an owner.
type Authored interface {
	AuthorID() string
}

// Guard checks membership, role and authorship.
type Guard struct {
	members database.MembershipStore
}

func New(members database.MembershipStore) *Guard {
	return &Guard{members: members}
}

// Membership returns the caller's membership or ErrNotMember.
func (g *Guard) Membership(ctx context.Context, spaceID, userID string) (*models.Membership, error) {
	if spaceID == "" || userID == "" {
		return nil, ErrNotMember
	}
	m, err := g.members.GetMembership(ctx, spaceID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (g *Guard) IsMember(ctx context.Context, spaceID, userID string) (bool, error) {
	_, err := g.Membership(ctx, spaceID, userID)
	return decide(err)
}

func (g *Guard) IsAdmin(ctx context.Context, spaceID, userID string) (bool, error) {
	err := g.RequireAdmin(ctx, spaceID, userID)
	return decide(err)
}

func IsAuthor(resource Authored, userID string) bool {
	return resource != nil && userID != "" && resource.AuthorID() == userID
}

// RequireMember returns nil only for members of the space.
func (g *Guard) RequireMember(ctx context.Context, spaceID, userID string) error {
	_, err := g.Membership(ctx, spaceID, userID)
	return err
}

// RequireAdmin returns ErrNotMember for outsiders and ErrNotAdmin for plain members.
func (g *Guard) RequireAdmin(ctx context.Context, spaceID, userID string) error {
	m, err := g.Membership(ctx, spaceID, userID)
	if err != nil {
		return err
	}
	if m.Role != models.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// RequireAuthor checks ownership only; callers establish membership first.
func RequireAuthor(resource Authored, userID string) error {
	if !IsAuthor(resource, userID) {
		return ErrNotAuthor
	}
	return nil
}

// decide turns a denial into false and keeps store failures as errors.
func decide(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if IsForbidden(err) {
		return false, nil
	}
	return false, err
}
