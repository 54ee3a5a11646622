package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	if err := q.Publish(ctx, Message{Type: TypeRedemption, Body: []byte("rec-1")}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	select {
	case msg := <-messages:
		if msg.Type != TypeRedemption || string(msg.Body) != "rec-1" {
			t.Errorf("msg = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishHonorsCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Publish(ctx, Message{Type: TypeRedemption}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// The buffer is full; a cancelled context must unblock the publisher.
	cancel()
	if err := q.Publish(ctx, Message{Type: TypeRedemption}); err == nil {
		t.Error("expected context error on full queue")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: TypeRedemption, Body: []byte("rec-42")}
	got := deserialize(serialize(msg))
	if got.Type != msg.Type || string(got.Body) != string(msg.Body) {
		t.Errorf("round trip = %+v, want %+v", got, msg)
	}

	// Untyped payloads survive as bare bodies.
	got = deserialize("no-separator")
	if got.Type != "" || string(got.Body) != "no-separator" {
		t.Errorf("bare body = %+v", got)
	}
}
