package broadcast

import (
	"encoding/json"
	"testing"
)

func TestPublishDeliversToTopicSubscribers(t *testing.T) {
	hub := NewHub(4, nil)
	defer hub.Close()

	sub := hub.Subscribe("credit_ledger:tenant-1", 0)
	other := hub.Subscribe("credit_ledger:tenant-2", 0)

	hub.Publish("credit_ledger:tenant-1", 1, []byte("frame"), "balance.changed")

	select {
	case frame := <-sub.C:
		if string(frame) != "frame" {
			t.Fatalf("unexpected frame: %s", frame)
		}
	default:
		t.Fatal("expected a delivered frame")
	}
	select {
	case frame := <-other.C:
		t.Fatalf("frame leaked across tenants: %s", frame)
	default:
	}
}

func TestPublishDropsStaleVersions(t *testing.T) {
	hub := NewHub(4, nil)
	defer hub.Close()

	sub := hub.Subscribe("credit_ledger:tenant-1", 5)

	hub.Publish("credit_ledger:tenant-1", 4, []byte("old"), "balance.changed")
	hub.Publish("credit_ledger:tenant-1", 5, []byte("same"), "balance.changed")
	hub.Publish("credit_ledger:tenant-1", 6, []byte("new"), "balance.changed")

	frames := drain(sub.C)
	if len(frames) != 1 || frames[0] != "new" {
		t.Fatalf("expected only the newer frame, got %v", frames)
	}
}

func TestAdvanceRaisesVersionFloor(t *testing.T) {
	hub := NewHub(4, nil)
	defer hub.Close()

	sub := hub.Subscribe("credit_ledger:tenant-1", 0)
	hub.Advance(sub, 5)
	hub.Advance(sub, 3)

	hub.Publish("credit_ledger:tenant-1", 4, []byte("covered"), "balance.changed")
	hub.Publish("credit_ledger:tenant-1", 6, []byte("live"), "balance.changed")

	frames := drain(sub.C)
	if len(frames) != 1 || frames[0] != "live" {
		t.Fatalf("expected only the frame past the floor, got %v", frames)
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1, nil)
	defer hub.Close()

	sub := hub.Subscribe("credit_ledger:tenant-1", 0)

	hub.Publish("credit_ledger:tenant-1", 1, []byte("first"), "balance.changed")
	hub.Publish("credit_ledger:tenant-1", 2, []byte("second"), "balance.changed")

	frames := drain(sub.C)
	if len(frames) != 1 || frames[0] != "first" {
		t.Fatalf("expected the overflow frame to be dropped, got %v", frames)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(4, nil)
	defer hub.Close()

	sub := hub.Subscribe("wallet:user-1", 0)
	hub.Unsubscribe(sub)

	if _, ok := <-sub.C; ok {
		t.Fatal("expected channel to be closed")
	}
	if count := hub.SubscriberCount("wallet:user-1"); count != 0 {
		t.Fatalf("expected no subscribers, got %d", count)
	}
}

func TestMessageTopicAndVersion(t *testing.T) {
	payload, err := json.Marshal(map[string]any{
		"version": 1,
		"eventId": "evt-1",
		"data":    map[string]any{"tenantId": "tenant-1", "version": 9},
	})
	if err != nil {
		t.Fatal(err)
	}
	message := Message{
		EventType:     "balance.changed",
		AggregateType: "credit_ledger",
		AggregateID:   "tenant-1",
		Payload:       payload,
	}
	if message.Topic() != "credit_ledger:tenant-1" {
		t.Fatalf("unexpected topic: %s", message.Topic())
	}
	if version := message.SequenceVersion(); version != 9 {
		t.Fatalf("expected version 9, got %d", version)
	}
}

func drain(ch chan []byte) []string {
	var frames []string
	for {
		select {
		case frame := <-ch:
			frames = append(frames, string(frame))
		default:
			return frames
		}
	}
}
