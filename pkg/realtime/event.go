// Package realtime fans space events out to connected stream clients.
package realtime

import (
	"context"
	"encoding/json"
	"time"
)

// Event types published by the handlers.
const (
	MessageCreated  = "message.created"
	MessageDeleted  = "message.deleted"
	ReactionAdded   = "reaction.added"
	ReactionRemoved = "reaction.removed"
	NoteCreated     = "note.created"
	NoteUpdated     = "note.updated"
	NoteDeleted     = "note.deleted"
	LessonCreated   = "lesson.created"
	LessonUpdated   = "lesson.updated"
	LessonDeleted   = "lesson.deleted"
	MemberJoined    = "member.joined"
	SpaceUpdated    = "space.updated"
	SpaceDeleted    = "space.deleted"
)

// Event is one change inside a space.
type Event struct {
	Type    string          `json:"type"`
	SpaceID string          `json:"spaceId"`
	ActorID string          `json:"actorId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	At      time.Time       `json:"at"`
}

// NewEvent encodes payload into an event stamped now.
func NewEvent(eventType, spaceID, actorID string, payload interface{}) (Event, error) {
	ev := Event{Type: eventType, SpaceID: spaceID, ActorID: actorID, At: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		ev.Data = data
	}
	return ev, nil
}

// Publisher accepts events for delivery to every subscriber of the space.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
