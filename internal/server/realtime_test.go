package server

import (
	"context"
	"testing"
	"time"
)

func TestRealtimeDispatcherPublishesToEverySubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, cleanupFirst := dispatcher.Subscribe(ctx)
	defer cleanupFirst()
	second, cleanupSecond := dispatcher.Subscribe(ctx)
	defer cleanupSecond()

	dispatcher.PublishChange(RealtimeEventInteractionsChanged, "post_1")

	for index, stream := range []<-chan RealtimeMessage{first, second} {
		select {
		case received := <-stream:
			if received.EventType != RealtimeEventInteractionsChanged || received.PostID != "post_1" {
				t.Fatalf("subscriber %d: unexpected message %#v", index, received)
			}
			if received.Source != realtimeSource || received.Timestamp.IsZero() {
				t.Fatalf("subscriber %d: expected source and timestamp to be filled, got %#v", index, received)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %d: expected realtime message within deadline", index)
		}
	}
}

func TestRealtimeDispatcherIgnoresUntypedMessages(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx)
	defer cleanup()

	dispatcher.Publish(RealtimeMessage{PostID: "post_1"})

	select {
	case message := <-stream:
		t.Fatalf("did not expect message %#v", message)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRealtimeDispatcherUnsubscribesOnCancel(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, cleanup := dispatcher.Subscribe(ctx)
	if dispatcher.SubscriberCount() != 1 {
		t.Fatalf("expected one subscriber, got %d", dispatcher.SubscriberCount())
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber was not removed after cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cleanup()
}

func TestRealtimeDispatcherDropsForSlowSubscribers(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx)
	defer cleanup()

	for index := 0; index < dispatcher.bufferSize+5; index++ {
		dispatcher.PublishChange(RealtimeEventCommentsChanged, "post_1")
	}
	if len(stream) != dispatcher.bufferSize {
		t.Fatalf("expected buffer to hold %d messages, got %d", dispatcher.bufferSize, len(stream))
	}
}
