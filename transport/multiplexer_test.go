package transport

import "testing"

func TestBroadcastDropsOldestWhenObserverQueueFull(t *testing.T) {
	m := NewEventMultiplexer(nil)
	obs := &observer{queue: make(chan SessionEvent, 2)}
	m.mu.Lock()
	m.observers[obs] = struct{}{}
	m.mu.Unlock()

	m.Broadcast(SessionEvent{Type: "a"})
	m.Broadcast(SessionEvent{Type: "b"})
	m.Broadcast(SessionEvent{Type: "c"}) // queue full, should drop "a"

	first := <-obs.queue
	second := <-obs.queue
	if first.Type != "b" || second.Type != "c" {
		t.Fatalf("expected oldest event dropped, got %q then %q", first.Type, second.Type)
	}
}

func TestObserverCountReflectsRegistrations(t *testing.T) {
	m := NewEventMultiplexer(nil)
	if m.ObserverCount() != 0 {
		t.Fatalf("expected 0 observers")
	}
	obs := &observer{queue: make(chan SessionEvent, 1)}
	m.mu.Lock()
	m.observers[obs] = struct{}{}
	m.mu.Unlock()
	if m.ObserverCount() != 1 {
		t.Fatalf("expected 1 observer")
	}
}
