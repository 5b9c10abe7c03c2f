package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"space-notes-backend/pkg/models"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would violate a unique constraint.
	ErrConflict = errors.New("record already exists")
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// SpaceStore covers spaces themselves. DeleteSpace cascades to memberships
// and everything posted in the space.
type SpaceStore interface {
	CreateSpace(ctx context.Context, space *models.Space) error
	GetSpace(ctx context.Context, spaceID string) (*models.Space, error)
	GetSpaceByInviteCode(ctx context.Context, code string) (*models.Space, error)
	ListSpacesForUser(ctx context.Context, userID string) ([]models.SpaceWithRole, error)
	UpdateSpace(ctx context.Context, space *models.Space) error
	DeleteSpace(ctx context.Context, spaceID string) error
}

// MembershipStore is the relation every permission check reads.
type MembershipStore interface {
	AddMember(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, spaceID, userID string) (*models.Membership, error)
	ListMembers(ctx context.Context, spaceID string) ([]models.MemberProfile, error)
	UpdateNotificationLevel(ctx context.Context, spaceID, userID string, level models.NotificationLevel) error
}

// MessageQuery selects one page of history strictly older than Before.
type MessageQuery struct {
	Before time.Time // zero means now
	Limit  int
}

// MessageStore covers chat messages and their reactions.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, spaceID, messageID string) (*models.Message, error)
	// ListMessages returns the newest Limit messages before the cursor, oldest first.
	ListMessages(ctx context.Context, spaceID string, q MessageQuery) ([]models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error

	AddReaction(ctx context.Context, r *models.Reaction) error
	RemoveReaction(ctx context.Context, messageID, userID, emoji string) error
}

type NoteStore interface {
	CreateNote(ctx context.Context, n *models.Note) error
	GetNote(ctx context.Context, spaceID, noteID string) (*models.Note, error)
	ListNotes(ctx context.Context, spaceID string) ([]models.Note, error)
	UpdateNote(ctx context.Context, n *models.Note) error
	DeleteNote(ctx context.Context, noteID string) error
}

type LessonStore interface {
	CreateLesson(ctx context.Context, l *models.Lesson) error
	GetLesson(ctx context.Context, spaceID, lessonID string) (*models.Lesson, error)
	ListLessons(ctx context.Context, spaceID string) ([]models.Lesson, error)
	UpdateLesson(ctx context.Context, l *models.Lesson) error
	DeleteLesson(ctx context.Context, lessonID string) error
}

// DatabaseInterface is every store plus lifecycle.
type DatabaseInterface interface {
	UserStore
	SpaceStore
	MembershipStore
	MessageStore
	NoteStore
	LessonStore

	HealthCheck(ctx context.Context) error
	Close() error
}

// DatabaseConfig selects the backend.
type DatabaseConfig struct {
	UseLocalDB  bool
	PostgresDSN string
	Debug       bool
	Logger      *zap.Logger
}

// NewDatabase prefers Postgres and falls back to memory when allowed.
func NewDatabase(config DatabaseConfig) (DatabaseInterface, error) {
	if config.PostgresDSN != "" {
		return NewPostgresDatabase(config.PostgresDSN, config.Logger)
	}
	if config.UseLocalDB {
		return NewMemoryDatabase(), nil
	}
	return nil, fmt.Errorf("no valid database configuration found: set POSTGRES_DSN or USE_LOCAL_DB=true")
}
