package event

import (
	"sync"
	"testing"
)

func TestBus_PublishOrder(t *testing.T) {
	bus := NewBus(nil)

	var got []string
	bus.SubscribeAll(func(e Event) { got = append(got, "all:"+e.EventType()) })
	bus.Subscribe(WorkerSpawned, func(e Event) { got = append(got, "spawned") })
	bus.Subscribe(WorkerCompleted, func(e Event) { got = append(got, "completed") })

	bus.Publish(New(WorkerSpawned, "analyzer", nil))

	want := []string{"spawned", "all:worker_spawned"}
	if len(got) != len(want) {
		t.Fatalf("handlers called = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	id := bus.Subscribe(WorkerFailed, func(Event) { calls++ })
	if bus.SubscriptionCount() != 1 {
		t.Fatalf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe() = true, want false")
	}

	bus.Publish(New(WorkerFailed, "a", map[string]any{KeyReason: "x"}))
	if calls != 0 {
		t.Errorf("handler called %d times after unsubscribe", calls)
	}
}

func TestBus_PanickingHandler(t *testing.T) {
	bus := NewBus(nil)

	reached := false
	bus.Subscribe(ProgressUpdate, func(Event) { panic("boom") })
	bus.Subscribe(ProgressUpdate, func(Event) { reached = true })

	bus.Publish(New(ProgressUpdate, "a", nil))
	if !reached {
		t.Error("handler after a panicking handler was not called")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(New(ProgressUpdate, "a", nil))
		}()
	}
	wg.Wait()

	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}
}
