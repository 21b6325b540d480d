package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("pipeline.", 10)
	defer unsub()

	b.Emit(KindStageChanged, "test")

	select {
	case evt := <-ch:
		if evt.Kind != KindStageChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStageChanged)
		}
		if evt.Timestamp.IsZero() {
			t.Error("Emit did not stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("ingest.", 10)
	defer unsub()

	b.Emit(KindStageChanged, nil)
	b.Emit(KindIngestBatch, nil)

	select {
	case evt := <-ch:
		if evt.Kind != KindIngestBatch {
			t.Errorf("got kind %q, want %s", evt.Kind, KindIngestBatch)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("pipeline.", 10)
	unsub()

	b.Emit(KindStageChanged, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("evidence.", 1)
	defer unsub()

	b.Emit(KindEvidence, "one")
	// Buffer is full; this one is dropped.
	b.Emit(KindEvidence, "two")

	evt := <-ch
	if evt.Payload != "one" {
		t.Errorf("got %v, want one", evt.Payload)
	}
	if b.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", b.Dropped())
	}
}

func TestNilBusIsNoop(t *testing.T) {
	var b *Bus
	b.Emit(KindDegraded, nil)
}

func TestCollect(t *testing.T) {
	b := New()
	stop := b.Collect("pipeline.", 16)
	b.Emit(KindStageChanged, 1)
	b.Emit(KindIngestDone, 2)
	b.Emit(KindDegraded, 3)

	events := stop()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Payload != 1 || events[1].Payload != 3 {
		t.Errorf("payloads = %v, %v", events[0].Payload, events[1].Payload)
	}
}
