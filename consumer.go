package amqp

import (
	"sync"

	"github.com/flowbroker/amqp/internal/wire"
)

// consumerDispatcher serializes delivery of one consumer's messages:
// deliveries queue here and are handed to the callback one at a time,
// so the dispatcher never starts delivery N+1 before the callback for
// delivery N has returned, matching the FIFO-per-consumer guarantee.
// An unbounded mutex+cond queue (rather than a fixed buffered channel)
// is used deliberately: the single reader goroutine must never block
// trying to enqueue a delivery while a consumer callback is itself
// making a synchronous channel call, which would deadlock against the
// same reader goroutine completing that call.
type consumerDispatcher struct {
	tag      string
	callback func(Delivery)
	logger   Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Delivery
	stopped bool
}

func newConsumerDispatcher(tag string, cb func(Delivery), logger Logger) *consumerDispatcher {
	d := &consumerDispatcher{tag: tag, callback: cb, logger: logger}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *consumerDispatcher) enqueue(msg Delivery) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, msg)
	d.mu.Unlock()
	d.cond.Signal()
}

func (d *consumerDispatcher) run() {
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if d.stopped && len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		msg := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.invoke(msg)
	}
}

func (d *consumerDispatcher) invoke(msg Delivery) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("consumer callback panicked", "consumer_tag", d.tag, "delivery_tag", msg.DeliveryTag, "panic", r)
		}
	}()
	d.callback(msg)
}

func (d *consumerDispatcher) stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.cond.Broadcast()
}

// dispatchDelivery routes a completed Basic.Deliver assembly to its
// consumer's dispatcher, generating the delivery metrics hook.
func (ch *Channel) dispatchDelivery(d Delivery) {
	ch.conn.params.Metrics.IncDelivered()

	ch.mu.Lock()
	disp := ch.consumers[d.ConsumerTag]
	ch.mu.Unlock()

	if disp == nil {
		ch.conn.params.Logger.Warn("delivery for unknown consumer tag dropped", "consumer_tag", d.ConsumerTag)
		return
	}
	disp.enqueue(d)
}

// dispatchReturn routes a completed Basic.Return assembly to the
// registered return callback, or else sets the channel state to
// ChannelBasicReturnReceived and logs and drops the message.
func (ch *Channel) dispatchReturn(d Delivery, code uint16, text string) {
	ch.conn.params.Metrics.IncReturned()

	ch.mu.Lock()
	cb := ch.returnCallback
	ch.mu.Unlock()

	if cb != nil {
		cb(d)
		return
	}
	ch.setState(ChannelBasicReturnReceived)
	ch.conn.params.Logger.Warn("message returned with no return callback registered",
		"code", code, "text", text, "exchange", d.Exchange, "routing_key", d.RoutingKey)
}

// Ack acknowledges one or more deliveries (Acknowledger).
func (ch *Channel) Ack(deliveryTag uint64, multiple bool) error {
	return ch.conn.sendMethod(ch.id, &wire.BasicAck{DeliveryTag: deliveryTag, Multiple: multiple})
}

// Nack negatively acknowledges one or more deliveries (Acknowledger).
func (ch *Channel) Nack(deliveryTag uint64, multiple, requeue bool) error {
	return ch.conn.sendMethod(ch.id, &wire.BasicNack{DeliveryTag: deliveryTag, Multiple: multiple, Requeue: requeue})
}

// Reject rejects a single delivery (Acknowledger).
func (ch *Channel) Reject(deliveryTag uint64, requeue bool) error {
	return ch.conn.sendMethod(ch.id, &wire.BasicReject{DeliveryTag: deliveryTag, Requeue: requeue})
}
