package amqp

import (
	"testing"
	"time"
)

func TestFailAllClosesPendingConfirmsAndGetWaiter(t *testing.T) {
	ch := newTestChannel()
	confirmSink := make(chan bool, 1)
	ch.pendingConfirms = map[uint64]chan bool{1: confirmSink}

	var gotErr *AMQPError
	ch.closeCallback = func(e *AMQPError) { gotErr = e }

	closeErr := newChannelError(406, "precondition failed", 50, 10)
	ch.failAll(closeErr)

	if _, open := <-confirmSink; open {
		t.Fatal("pendingConfirms channel should be closed, not just unblocked")
	}
	select {
	case d := <-ch.getWaiter:
		if d != nil {
			t.Fatal("getWaiter should receive nil on failAll")
		}
	case <-time.After(time.Second):
		t.Fatal("getWaiter should have a value ready after failAll")
	}
	if gotErr != closeErr {
		t.Fatalf("closeCallback should receive the closing error, got %v", gotErr)
	}
	if ch.State() != ChannelClosed {
		t.Fatalf("state = %v, want ChannelClosed", ch.State())
	}
}

func TestFailAllIsIdempotent(t *testing.T) {
	ch := newTestChannel()
	calls := 0
	ch.closeCallback = func(*AMQPError) { calls++ }

	ch.failAll(newChannelError(404, "not found", 50, 10))
	ch.failAll(newChannelError(404, "not found", 50, 10))

	if calls != 1 {
		t.Fatalf("closeCallback invoked %d times, want exactly 1", calls)
	}
}

func TestFailAllStopsConsumerDispatchers(t *testing.T) {
	ch := newTestChannel()
	invoked := make(chan struct{}, 1)
	disp := newConsumerDispatcher("tag", func(Delivery) { invoked <- struct{}{} }, NoopLogger{})
	ch.consumers["tag"] = disp

	ch.failAll(newChannelError(320, "connection forced", 0, 0))

	disp.enqueue(Delivery{DeliveryTag: 1})
	select {
	case <-invoked:
		t.Fatal("a stopped consumer dispatcher should not invoke its callback")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCompleteSyncDropsWhenNoCallInFlight(t *testing.T) {
	ch := newTestChannel()
	if ch.completeSync(nil) {
		t.Fatal("completeSync should return false when no synchronous call is in flight")
	}
}
