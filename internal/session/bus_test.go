package session

import (
	"testing"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(func(Event) { order = append(order, i) })
	}

	bus.Publish(Event{Kind: EventAIComplete})

	if len(order) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("delivery out of subscription order: %v", order)
		}
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsub := bus.Subscribe(func(Event) { calls++ })

	bus.Publish(Event{Kind: EventAIComplete})
	unsub()
	bus.Publish(Event{Kind: EventAIComplete})
	unsub() // second call is a no-op

	if calls != 1 {
		t.Errorf("expected exactly one delivery, got %d", calls)
	}
}

func TestBusIsolatesPanickingSubscriber(t *testing.T) {
	bus := NewBus()
	var seen []string
	bus.Subscribe(func(Event) { seen = append(seen, "first") })
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(Event) { seen = append(seen, "third") })

	bus.Publish(Event{Kind: EventStepChanged})

	if len(seen) != 2 || seen[0] != "first" || seen[1] != "third" {
		t.Errorf("panic must not disturb other subscribers, saw %v", seen)
	}
}

func TestBusPublishWithNoSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(Event{Kind: EventError, Err: "nobody listening"})
}
