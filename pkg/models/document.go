package models

import "time"

// DocumentStatus is shared by notes and lessons
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusPublished DocumentStatus = "published"
)

// Note is a co-authored document inside a space
type Note struct {
	ID          string         `json:"id" db:"id"`
	SpaceID     string         `json:"spaceId" db:"space_id"`
	AuthorUser  string         `json:"authorId" db:"author_id"`
	Title       string         `json:"title" db:"title"`
	Content     string         `json:"content" db:"content"`
	Status      DocumentStatus `json:"status" db:"status"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty" db:"published_at"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

func (n *Note) AuthorID() string { return n.AuthorUser }

// Lesson is a structured teaching document inside a space
type Lesson struct {
	ID               string         `json:"id" db:"id"`
	SpaceID          string         `json:"spaceId" db:"space_id"`
	AuthorUser       string         `json:"authorId" db:"author_id"`
	Title            string         `json:"title" db:"title"`
	Description      string         `json:"description,omitempty" db:"description"`
	Content          string         `json:"content" db:"content"`
	Difficulty       string         `json:"difficulty,omitempty" db:"difficulty"`
	EstimatedMinutes int            `json:"estimatedMinutes" db:"estimated_minutes"`
	Status           DocumentStatus `json:"status" db:"status"`
	PublishedAt      *time.Time     `json:"publishedAt,omitempty" db:"published_at"`
	CreatedAt        time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time      `json:"updatedAt" db:"updated_at"`
}

func (l *Lesson) AuthorID() string { return l.AuthorUser }

// ApplyStatus moves a document to status, stamping publishedAt the first
// time it becomes published. Later transitions keep the original stamp.
func ApplyStatus(current *DocumentStatus, publishedAt **time.Time, next DocumentStatus, now time.Time) {
	if next == "" {
		return
	}
	*current = next
	if next == StatusPublished && *publishedAt == nil {
		t := now.UTC()
		*publishedAt = &t
	}
}

// CreateNoteRequest is the body of POST /spaces/{id}/notes
type CreateNoteRequest struct {
	Title   string         `json:"title" validate:"required,min=1,max=200"`
	Content string         `json:"content" validate:"max=200000"`
	Status  DocumentStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdateNoteRequest is the body of PATCH /spaces/{id}/notes/{noteID}
type UpdateNoteRequest struct {
	Title   *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string        `json:"content" validate:"omitempty,max=200000"`
	Status  DocumentStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

// CreateLessonRequest is the body of POST /spaces/{id}/lessons
type CreateLessonRequest struct {
	Title            string         `json:"title" validate:"required,min=1,max=200"`
	Description      string         `json:"description" validate:"max=1000"`
	Content          string         `json:"content" validate:"max=200000"`
	Difficulty       string         `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	EstimatedMinutes int            `json:"estimatedMinutes" validate:"min=0,max=1440"`
	Status           DocumentStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdateLessonRequest is the body of PATCH /spaces/{id}/lessons/{lessonID}
type UpdateLessonRequest struct {
	Title            *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string        `json:"description" validate:"omitempty,max=1000"`
	Content          *string        `json:"content" validate:"omitempty,max=200000"`
	Difficulty       *string        `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	EstimatedMinutes *int           `json:"estimatedMinutes" validate:"omitempty,min=0,max=1440"`
	Status           DocumentStatus `json:"status" validate:"omitempty,oneof=draft published"`
}
