package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func receiveSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snapshot, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestSubscribeDeliversInitialSnapshotExactlyOnce(t *testing.T) {
	hub := NewHub(nil)
	initial := Snapshot{Authenticated: true, Identity: &Identity{ID: uuid.New()}}

	sub := hub.Subscribe("stream-a", initial)
	defer sub.Unsubscribe()

	first := receiveSnapshot(t, sub)
	if !first.Authenticated {
		t.Fatal("expected initial snapshot to be the provided one")
	}

	// No state change has occurred: nothing further may arrive.
	select {
	case extra := <-sub.C:
		t.Fatalf("unexpected extra snapshot: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("stream-a", Snapshot{Authenticated: false})
	defer sub.Unsubscribe()

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		hub.Publish("stream-a", Snapshot{Authenticated: true, Identity: &Identity{ID: ids[i]}})
	}

	if first := receiveSnapshot(t, sub); first.Authenticated {
		t.Fatal("expected the initial snapshot before any published one")
	}
	for i, want := range ids {
		got := receiveSnapshot(t, sub)
		if got.Identity == nil || got.Identity.ID != want {
			t.Fatalf("snapshot %d out of order: got %+v, want identity %s", i, got, want)
		}
	}
}

func TestPublishReachesOnlyMatchingStream(t *testing.T) {
	hub := NewHub(nil)
	subA := hub.Subscribe("stream-a", Snapshot{})
	subB := hub.Subscribe("stream-b", Snapshot{})
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	receiveSnapshot(t, subA)
	receiveSnapshot(t, subB)

	hub.Publish("stream-a", Snapshot{Authenticated: true})

	if got := receiveSnapshot(t, subA); !got.Authenticated {
		t.Fatal("expected stream-a subscriber to receive the publish")
	}
	select {
	case got := <-subB.C:
		t.Fatalf("stream-b subscriber received foreign snapshot: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeHaltsDelivery(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("stream-a", Snapshot{})

	receiveSnapshot(t, sub)
	sub.Unsubscribe()

	hub.Publish("stream-a", Snapshot{Authenticated: true})

	for snapshot := range sub.C {
		if snapshot.Authenticated {
			t.Fatal("received snapshot published after unsubscribe")
		}
	}
}

func TestUnsubscribeDropsQueuedSnapshots(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("stream-a", Snapshot{})

	receiveSnapshot(t, sub)

	// Queue a backlog with nobody receiving, then unsubscribe. At most the
	// single snapshot already offered to the channel may still arrive.
	for i := 0; i < 50; i++ {
		hub.Publish("stream-a", Snapshot{Authenticated: true})
	}
	sub.Unsubscribe()

	delivered := 0
	for range sub.C {
		delivered++
	}
	if delivered > 1 {
		t.Fatalf("received %d snapshots after unsubscribe, want at most 1", delivered)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("stream-a", Snapshot{})

	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("stream-a", Snapshot{})
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		// Nobody reads from sub.C while publishing.
		for i := 0; i < 100; i++ {
			hub.Publish("stream-a", Snapshot{Authenticated: true})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
