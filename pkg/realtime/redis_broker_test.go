package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newBroker(t *testing.T) (*RedisBroker, *Hub, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	hub := NewHub(nil)
	return NewRedisBroker(client, hub, nil), hub, client
}

// runBroker starts the relay and waits until its pattern subscription is live.
func runBroker(t *testing.T, b *RedisBroker, client *redis.Client) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for client.PubSubNumPat(context.Background()).Val() == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("broker never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Cleanup(cancel)
	return cancel, done
}

func TestRedisBrokerRelaysIntoHub(t *testing.T) {
	t.Parallel()
	b, hub, client := newBroker(t)
	mine := hub.Subscribe("space-a", "u1")
	other := hub.Subscribe("space-b", "u2")
	runBroker(t, b, client)

	ev, _ := NewEvent(NoteCreated, "space-a", "u1", map[string]string{"title": "Cells"})
	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish error = %v", err)
	}

	got := receive(t, mine)
	if got.Type != NoteCreated || got.SpaceID != "space-a" || got.ActorID != "u1" {
		t.Fatalf("relayed event = %+v", got)
	}
	select {
	case ev := <-other.Events():
		t.Fatalf("other space received %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisBrokerSkipsMalformedPayloads(t *testing.T) {
	t.Parallel()
	b, hub, client := newBroker(t)
	sub := hub.Subscribe("space-c", "u1")
	runBroker(t, b, client)
	ctx := context.Background()

	_ = client.Publish(ctx, channelFor("space-c"), "not json").Err()
	// the space id falls back to the channel name
	_ = client.Publish(ctx, channelFor("space-c"), `{"type":"member.joined","actorId":"u9"}`).Err()

	got := receive(t, sub)
	if got.Type != MemberJoined || got.SpaceID != "space-c" || got.ActorID != "u9" {
		t.Fatalf("relayed event = %+v", got)
	}
}

func TestRedisBrokerStopsWithContext(t *testing.T) {
	t.Parallel()
	b, _, client := newBroker(t)
	cancel, done := runBroker(t, b, client)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
