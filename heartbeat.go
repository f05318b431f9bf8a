package amqp

import (
	"sync/atomic"
	"time"
)

// heartbeatMonitor owns both halves of AMQP heartbeating: it fills
// otherwise-idle outbound time with heartbeat frames, and it declares
// the connection lost if nothing at all — frame or heartbeat — has
// arrived from the peer within 2x the negotiated interval, per the
// handshake-monitor negotiation.  A zero interval disables both
// halves, matching a broker that tunes heartbeats off.
type heartbeatMonitor struct {
	interval time.Duration
	sendFn   func() error // writes a single heartbeat frame
	lost     chan struct{}
	lostOnce int32

	lastSentUnixNano int64
	lastRecvUnixNano int64

	stop chan struct{}
	done chan struct{}
}

func newHeartbeatMonitor(interval time.Duration, sendFn func() error) *heartbeatMonitor {
	now := time.Now().UnixNano()
	return &heartbeatMonitor{
		interval:         interval,
		sendFn:           sendFn,
		lost:             make(chan struct{}),
		lastSentUnixNano: now,
		lastRecvUnixNano: now,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// noteSent records that a frame (of any kind) was just written,
// resetting the idle timer that would otherwise trigger a heartbeat.
func (h *heartbeatMonitor) noteSent() {
	atomic.StoreInt64(&h.lastSentUnixNano, time.Now().UnixNano())
}

// noteReceived records that a frame (of any kind, including a
// heartbeat) was just read, resetting the silence watchdog.
func (h *heartbeatMonitor) noteReceived() {
	atomic.StoreInt64(&h.lastRecvUnixNano, time.Now().UnixNano())
}

// lostSignal is closed exactly once the watchdog decides the peer is
// gone. Callers select on it alongside their own shutdown channels.
func (h *heartbeatMonitor) lostSignal() <-chan struct{} { return h.lost }

func (h *heartbeatMonitor) run() {
	defer close(h.done)

	if h.interval <= 0 {
		<-h.stop
		return
	}

	tick := time.NewTicker(h.interval / 2)
	defer tick.Stop()

	for {
		select {
		case <-h.stop:
			return

		case now := <-tick.C:
			lastSent := time.Unix(0, atomic.LoadInt64(&h.lastSentUnixNano))
			if now.Sub(lastSent) >= h.interval {
				if err := h.sendFn(); err != nil {
					h.declareLost()
					return
				}
				h.noteSent()
			}

			lastRecv := time.Unix(0, atomic.LoadInt64(&h.lastRecvUnixNano))
			if now.Sub(lastRecv) >= 2*h.interval {
				h.declareLost()
				return
			}
		}
	}
}

func (h *heartbeatMonitor) declareLost() {
	if atomic.CompareAndSwapInt32(&h.lostOnce, 0, 1) {
		close(h.lost)
	}
}

func (h *heartbeatMonitor) close() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
	<-h.done
}
