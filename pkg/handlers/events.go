package handlers

import (
	"context"

	"space-notes-backend/pkg/realtime"

	"go.uber.org/zap"
)

// publish fans a change out to stream clients. Delivery is best effort and
// never fails the request that caused it.
func publish(ctx context.Context, events realtime.Publisher, logger *zap.Logger, eventType, spaceID, actorID string, payload interface{}) {
	if events == nil {
		return
	}
	ev, err := realtime.NewEvent(eventType, spaceID, actorID, payload)
	if err == nil {
		err = events.Publish(ctx, ev)
	}
	if err != nil {
		logger.Warn("publish event failed",
			zap.String("type", eventType),
			zap.String("space_id", spaceID),
			zap.Error(err))
	}
}
