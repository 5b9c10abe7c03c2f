package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"space-notes-backend/pkg/models"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func seed(t *testing.T) (*MemoryDatabase, *models.User, *models.Space) {
	t.Helper()
	ctx := context.Background()
	db := NewMemoryDatabase()
	clock := &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	db.SetClock(clock.now)

	user := &models.User{Email: "owner@example.com", Username: "owner", DisplayName: "Owner"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	space := &models.Space{Name: "Study", InviteCode: "ABCD1234", CreatedBy: user.ID}
	if err := db.CreateSpace(ctx, space); err != nil {
		t.Fatalf("CreateSpace: %v", err)
	}
	if err := db.AddMember(ctx, &models.Membership{SpaceID: space.ID, UserID: user.ID, Role: models.RoleAdmin}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	return db, user, space
}

func TestUserUniqueness(t *testing.T) {
	t.Parallel()
	db, _, _ := seed(t)
	ctx := context.Background()

	tests := []struct {
		name string
		user models.User
	}{
		{"email", models.User{Email: "owner@example.com"}},
		{"username", models.User{Phone: "+14155550123", Username: "owner"}},
	}
	for _, tt := range tests {
		u := tt.user
		if err := db.CreateUser(ctx, &u); !errors.Is(err, ErrConflict) {
			t.Fatalf("%s: CreateUser error = %v, want ErrConflict", tt.name, err)
		}
	}

	if _, err := db.GetUserByPhone(ctx, "+10000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUserByPhone error = %v, want ErrNotFound", err)
	}
}

func TestAddMemberTwiceConflicts(t *testing.T) {
	t.Parallel()
	db, user, space := seed(t)

	err := db.AddMember(context.Background(), &models.Membership{SpaceID: space.ID, UserID: user.ID, Role: models.RoleMember})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("AddMember error = %v, want ErrConflict", err)
	}
	m, _ := db.GetMembership(context.Background(), space.ID, user.ID)
	if m.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want original admin role kept", m.Role)
	}
}

func TestListSpacesForUser(t *testing.T) {
	t.Parallel()
	db, user, space := seed(t)
	ctx := context.Background()

	other := &models.User{Email: "other@example.com"}
	_ = db.CreateUser(ctx, other)
	_ = db.AddMember(ctx, &models.Membership{SpaceID: space.ID, UserID: other.ID, Role: models.RoleMember})

	spaces, err := db.ListSpacesForUser(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(spaces) != 1 || spaces[0].Role != models.RoleAdmin || spaces[0].MemberCount != 2 {
		t.Fatalf("spaces = %+v, want one admin space with 2 members", spaces)
	}

	none, _ := db.ListSpacesForUser(ctx, "nobody")
	if none == nil || len(none) != 0 {
		t.Fatalf("spaces for stranger = %#v, want empty slice", none)
	}
}

func TestListMessagesPagination(t *testing.T) {
	t.Parallel()
	db, user, space := seed(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := db.CreateMessage(ctx, &models.Message{SpaceID: space.ID, UserID: user.ID, Content: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.ListMessages(ctx, space.ID, MessageQuery{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Content != "m3" || page[1].Content != "m4" {
		t.Fatalf("latest page = %v, want [m3 m4]", contents(page))
	}

	older, _ := db.ListMessages(ctx, space.ID, MessageQuery{Before: page[0].CreatedAt, Limit: 10})
	if got := contents(older); len(got) != 3 || got[0] != "m0" || got[2] != "m2" {
		t.Fatalf("older page = %v, want [m0 m1 m2]", got)
	}
}

func contents(ms []models.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Content
	}
	return out
}

func TestReactionsUniquePerTriple(t *testing.T) {
	t.Parallel()
	db, user, space := seed(t)
	ctx := context.Background()

	msg := &models.Message{SpaceID: space.ID, UserID: user.ID, Content: "hi"}
	_ = db.CreateMessage(ctx, msg)

	if err := db.AddReaction(ctx, &models.Reaction{MessageID: msg.ID, UserID: user.ID, Emoji: "👍"}); err != nil {
		t.Fatal(err)
	}
	if err := db.AddReaction(ctx, &models.Reaction{MessageID: msg.ID, UserID: user.ID, Emoji: "👍"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate AddReaction error = %v, want ErrConflict", err)
	}
	if err := db.AddReaction(ctx, &models.Reaction{MessageID: msg.ID, UserID: user.ID, Emoji: "🎉"}); err != nil {
		t.Fatalf("second emoji: %v", err)
	}

	got, _ := db.GetMessage(ctx, space.ID, msg.ID)
	if len(got.Reactions) != 2 {
		t.Fatalf("reactions = %d, want 2", len(got.Reactions))
	}

	if err := db.RemoveReaction(ctx, msg.ID, user.ID, "👍"); err != nil {
		t.Fatal(err)
	}
	if err := db.RemoveReaction(ctx, msg.ID, user.ID, "👍"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second RemoveReaction error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSpaceCascades(t *testing.T) {
	t.Parallel()
	db, user, space := seed(t)
	ctx := context.Background()

	msg := &models.Message{SpaceID: space.ID, UserID: user.ID, Content: "hi"}
	_ = db.CreateMessage(ctx, msg)
	_ = db.AddReaction(ctx, &models.Reaction{MessageID: msg.ID, UserID: user.ID, Emoji: "👍"})
	note := &models.Note{SpaceID: space.ID, AuthorUser: user.ID, Title: "n", Status: models.StatusDraft}
	_ = db.CreateNote(ctx, note)
	lesson := &models.Lesson{SpaceID: space.ID, AuthorUser: user.ID, Title: "l", Status: models.StatusDraft}
	_ = db.CreateLesson(ctx, lesson)

	if err := db.DeleteSpace(ctx, space.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetMembership(ctx, space.ID, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("membership survived: %v", err)
	}
	if _, err := db.GetMessage(ctx, space.ID, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("message survived: %v", err)
	}
	if _, err := db.GetNote(ctx, space.ID, note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("note survived: %v", err)
	}
	if _, err := db.GetLesson(ctx, space.ID, lesson.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lesson survived: %v", err)
	}
	if len(db.reactions) != 0 {
		t.Fatalf("%d reactions survived", len(db.reactions))
	}
}

func TestScopedLookupsRejectOtherSpaces(t *testing.T) {
	t.Parallel()
	db, user, space := seed(t)
	ctx := context.Background()

	note := &models.Note{SpaceID: space.ID, AuthorUser: user.ID, Title: "n"}
	_ = db.CreateNote(ctx, note)
	if _, err := db.GetNote(ctx, "another-space", note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetNote from foreign space error = %v, want ErrNotFound", err)
	}
}

func TestNewDatabaseSelection(t *testing.T) {
	t.Parallel()
	db, err := NewDatabase(DatabaseConfig{UseLocalDB: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := db.(*MemoryDatabase); !ok {
		t.Fatalf("NewDatabase = %T, want *MemoryDatabase", db)
	}
	if _, err := NewDatabase(DatabaseConfig{}); err == nil {
		t.Fatal("NewDatabase with no backend succeeded")
	}
}

func TestAddConnectionParams(t *testing.T) {
	t.Parallel()
	tests := []struct {
		dsn, params, want string
	}{
		{"postgres://u@h/db", "connect_timeout=10", "postgres://u@h/db?connect_timeout=10"},
		{"postgres://u@h/db?sslmode=disable", "connect_timeout=10", "postgres://u@h/db?sslmode=disable&connect_timeout=10"},
		{"host=h dbname=db", "sslmode=require&connect_timeout=10", "host=h dbname=db sslmode=require connect_timeout=10"},
		{"postgres://u@h/db", "", "postgres://u@h/db"},
	}
	for _, tt := range tests {
		if got := addConnectionParams(tt.dsn, tt.params); got != tt.want {
			t.Fatalf("addConnectionParams(%q, %q) = %q, want %q", tt.dsn, tt.params, got, tt.want)
		}
	}
}
