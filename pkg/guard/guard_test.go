package guard

import (
	"context"
	"errors"
	"testing"

	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/models"
)

type failingStore struct{ database.MembershipStore }

func (failingStore) GetMembership(context.Context, string, string) (*models.Membership, error) {
	return nil, errors.New("connection reset")
}

func setup(t *testing.T) (*Guard, *database.MemoryDatabase, string, string) {
	t.Helper()
	ctx := context.Background()
	db := database.NewMemoryDatabase()
	admin := &models.User{Email: "admin@example.com"}
	member := &models.User{Email: "member@example.com"}
	_ = db.CreateUser(ctx, admin)
	_ = db.CreateUser(ctx, member)
	space := &models.Space{Name: "s", InviteCode: "CODE2345", CreatedBy: admin.ID}
	_ = db.CreateSpace(ctx, space)
	_ = db.AddMember(ctx, &models.Membership{SpaceID: space.ID, UserID: admin.ID, Role: models.RoleAdmin})
	return New(db), db, space.ID, member.ID
}

func TestMembershipTakesEffectImmediately(t *testing.T) {
	t.Parallel()
	g, db, spaceID, userID := setup(t)
	ctx := context.Background()

	if err := g.RequireMember(ctx, spaceID, userID); err != ErrNotMember {
		t.Fatalf("RequireMember before join = %v, want ErrNotMember", err)
	}
	if ok, err := g.IsMember(ctx, spaceID, userID); ok || err != nil {
		t.Fatalf("IsMember = %v, %v, want false, nil", ok, err)
	}

	_ = db.AddMember(ctx, &models.Membership{SpaceID: spaceID, UserID: userID, Role: models.RoleMember})

	if err := g.RequireMember(ctx, spaceID, userID); err != nil {
		t.Fatalf("RequireMember after join = %v", err)
	}
	if err := g.RequireAdmin(ctx, spaceID, userID); err != ErrNotAdmin {
		t.Fatalf("RequireAdmin for member = %v, want ErrNotAdmin", err)
	}
	if ok, _ := g.IsAdmin(ctx, spaceID, userID); ok {
		t.Fatal("IsAdmin = true for plain member")
	}
}

func TestAdmin(t *testing.T) {
	t.Parallel()
	g, db, spaceID, _ := setup(t)
	ctx := context.Background()
	members, _ := db.ListMembers(ctx, spaceID)

	ok, err := g.IsAdmin(ctx, spaceID, members[0].UserID)
	if !ok || err != nil {
		t.Fatalf("IsAdmin(creator) = %v, %v", ok, err)
	}
}

func TestStoreFailureIsNotADenial(t *testing.T) {
	t.Parallel()
	g := New(failingStore{})

	ok, err := g.IsMember(context.Background(), "s", "u")
	if ok || err == nil || IsForbidden(err) {
		t.Fatalf("IsMember = %v, %v, want store error surfaced", ok, err)
	}
}

func TestAuthor(t *testing.T) {
	t.Parallel()
	note := &models.Note{AuthorUser: "u1"}

	tests := []struct {
		name     string
		resource Authored
		userID   string
		want     bool
	}{
		{"owner", note, "u1", true},
		{"other user", note, "u2", false},
		{"empty user", note, "", false},
		{"message owner", &models.Message{UserID: "u2"}, "u2", true},
	}
	for _, tt := range tests {
		if got := IsAuthor(tt.resource, tt.userID); got != tt.want {
			t.Fatalf("%s: IsAuthor = %v, want %v", tt.name, got, tt.want)
		}
	}
	if err := RequireAuthor(note, "u2"); err != ErrNotAuthor {
		t.Fatalf("RequireAuthor = %v, want ErrNotAuthor", err)
	}
}
