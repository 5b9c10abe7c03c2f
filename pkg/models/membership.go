package models

import "time"

type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

type NotificationLevel string

const (
	NotifyAll      NotificationLevel = "all"
	NotifyMentions NotificationLevel = "mentions"
	NotifyNone     NotificationLevel = "none"
)

// Membership relates users to spaces with a role
type Membership struct {
	SpaceID           string            `json:"spaceId" db:"space_id"`
	UserID            string            `json:"userId" db:"user_id"`
	Role              MemberRole        `json:"role" db:"role"`
	NotificationLevel NotificationLevel `json:"notificationLevel" db:"notification_level"`
	JoinedAt          time.Time         `json:"joinedAt" db:"joined_at"`
}

// MemberProfile is a membership joined with the member's public profile
type MemberProfile struct {
	Membership
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	AvatarType  string `json:"avatarType,omitempty"`
	AvatarData  string `json:"avatarData,omitempty"`
}

// AddMemberRequest is the body of POST /spaces/{id}/members
type AddMemberRequest struct {
	UserID string     `json:"userId" validate:"required"`
	Role   MemberRole `json:"role" validate:"omitempty,oneof=admin member"`
}

// UpdateNotificationsRequest is the body of PATCH /spaces/{id}/members/me
type UpdateNotificationsRequest struct {
	NotificationLevel NotificationLevel `json:"notificationLevel" validate:"required,oneof=all mentions none"`
}
