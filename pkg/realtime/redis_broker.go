package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "space-events:"

func channelFor(spaceID string) string { return channelPrefix + spaceID }

// RedisBroker publishes through Redis so every instance's hub sees every
// event, including the instance that produced it.
type RedisBroker struct {
	rdb    redis.UniversalClient
	hub    *Hub
	logger *zap.Logger
}

func NewRedisBroker(rdb redis.UniversalClient, hub *Hub, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{rdb: rdb, hub: hub, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channelFor(ev.SpaceID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Run relays subscribed events into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) {
	sub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("discarding malformed space event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if ev.SpaceID == "" {
				ev.SpaceID = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			_ = b.hub.Publish(ctx, ev)
		}
	}
}
