package models

import "time"

// Space is a shared collaboration context with members, messages, notes and lessons
type Space struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Emoji       string    `json:"emoji,omitempty" db:"emoji"`
	InviteCode  string    `json:"inviteCode" db:"invite_code"`
	CreatedBy   string    `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// SpaceWithRole is a space as seen by one of its members
type SpaceWithRole struct {
	Space
	Role        MemberRole `json:"role"`
	MemberCount int        `json:"memberCount"`
}

// CreateSpaceRequest is the body of POST /spaces
type CreateSpaceRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Emoji       string `json:"emoji" validate:"max=16"`
}

// UpdateSpaceRequest is the body of PATCH /spaces/{id}; nil fields are left untouched
type UpdateSpaceRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Emoji       *string `json:"emoji" validate:"omitempty,max=16"`
}
