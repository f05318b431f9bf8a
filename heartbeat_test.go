package amqp

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeatMonitorSendsWhenOutboundIdle(t *testing.T) {
	const interval = 40 * time.Millisecond
	var sent int32
	h := newHeartbeatMonitor(interval, func() error {
		atomic.AddInt32(&sent, 1)
		return nil
	})
	defer h.close()

	stopPeer := make(chan struct{})
	defer close(stopPeer)
	go func() {
		ticker := time.NewTicker(interval / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.noteReceived()
			case <-stopPeer:
				return
			}
		}
	}()

	go h.run()

	time.Sleep(interval * 5)

	if atomic.LoadInt32(&sent) == 0 {
		t.Fatal("expected at least one heartbeat to be sent while outbound was idle")
	}
	select {
	case <-h.lostSignal():
		t.Fatal("connection should not be declared lost while the peer keeps responding")
	default:
	}
}

func TestHeartbeatMonitorDeclaresLostOnSilence(t *testing.T) {
	const interval = 20 * time.Millisecond
	h := newHeartbeatMonitor(interval, func() error { return nil })
	defer h.close()

	go h.run()

	select {
	case <-h.lostSignal():
	case <-time.After(interval * 10):
		t.Fatal("expected the monitor to declare the connection lost after sustained silence")
	}
}

func TestHeartbeatMonitorZeroIntervalDisabled(t *testing.T) {
	h := newHeartbeatMonitor(0, func() error {
		t.Fatal("sendFn should never be called when heartbeating is disabled")
		return nil
	})
	go h.run()
	time.Sleep(20 * time.Millisecond)
	h.close()

	select {
	case <-h.lostSignal():
		t.Fatal("a disabled heartbeat monitor should never declare the connection lost")
	default:
	}
}
