package amqp

import (
	"sync"
	"testing"
	"time"
)

func TestConsumerDispatcherPreservesFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []uint64

	done := make(chan struct{})
	disp := newConsumerDispatcher("tag-1", func(d Delivery) {
		mu.Lock()
		order = append(order, d.DeliveryTag)
		n := len(order)
		mu.Unlock()
		if n == 5 {
			close(done)
		}
	}, NoopLogger{})
	defer disp.stop()

	for i := uint64(1); i <= 5; i++ {
		disp.enqueue(Delivery{DeliveryTag: i})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for all five deliveries to be dispatched")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, tag := range order {
		if tag != uint64(i+1) {
			t.Fatalf("delivery order = %v, want ascending 1..5", order)
		}
	}
}

func TestConsumerDispatcherRecoversFromPanickingCallback(t *testing.T) {
	recovered := make(chan struct{})
	calledAfterPanic := make(chan struct{})

	disp := newConsumerDispatcher("tag-2", func(d Delivery) {
		if d.DeliveryTag == 1 {
			close(recovered)
			panic("boom")
		}
		close(calledAfterPanic)
	}, NoopLogger{})
	defer disp.stop()

	disp.enqueue(Delivery{DeliveryTag: 1})
	<-recovered

	disp.enqueue(Delivery{DeliveryTag: 2})
	select {
	case <-calledAfterPanic:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher goroutine should survive a panicking callback and keep processing")
	}
}

func TestConsumerDispatcherStopDrainsQuietly(t *testing.T) {
	disp := newConsumerDispatcher("tag-3", func(Delivery) {}, NoopLogger{})
	disp.enqueue(Delivery{DeliveryTag: 1})
	disp.stop()
	disp.enqueue(Delivery{DeliveryTag: 2}) // after stop, enqueue is a no-op
}
