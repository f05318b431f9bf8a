package amqp

import (
	"context"

	"github.com/flowbroker/amqp/internal/wire"
)

// ConfirmSelect enables publisher confirms on this channel. Calling
// it twice locally fails with StateError before any frame is sent,
// matching the broker's own soft-error behavior for a redundant
// Confirm.Select but without paying the round trip.
func (ch *Channel) ConfirmSelect() error {
	ch.mu.Lock()
	if ch.confirmMode {
		ch.mu.Unlock()
		return stateErrf("confirm_select already enabled on this channel")
	}
	ch.mu.Unlock()

	if err := ch.call(&wire.ConfirmSelect{}, &wire.ConfirmSelectOk{}); err != nil {
		return err
	}

	ch.mu.Lock()
	ch.confirmMode = true
	ch.nextPublishSeq = 1
	ch.mu.Unlock()
	return nil
}

// reconfirmAfterRecycle is called by Connection.recycleChannel when
// the channel being replaced had confirms enabled, restoring the
// publisher_confirms invariant across a soft error.
func (ch *Channel) reconfirmAfterRecycle() error {
	return ch.ConfirmSelect()
}

// resolveConfirms completes one or more pending publisher-confirm
// waiters. When multiple is set every outstanding sequence number up
// to and including deliveryTag resolves with the same outcome, per
// the Basic.Ack/Nack "multiple" semantics.
func (ch *Channel) resolveConfirms(deliveryTag uint64, multiple, ack bool) {
	ch.mu.Lock()
	var resolved []chan bool
	if multiple {
		kept := ch.confirmSeq[:0]
		for _, seq := range ch.confirmSeq {
			if seq <= deliveryTag {
				resolved = append(resolved, ch.pendingConfirms[seq])
				delete(ch.pendingConfirms, seq)
			} else {
				kept = append(kept, seq)
			}
		}
		ch.confirmSeq = kept
	} else if sink, ok := ch.pendingConfirms[deliveryTag]; ok {
		resolved = append(resolved, sink)
		delete(ch.pendingConfirms, deliveryTag)
		for i, seq := range ch.confirmSeq {
			if seq == deliveryTag {
				ch.confirmSeq = append(ch.confirmSeq[:i], ch.confirmSeq[i+1:]...)
				break
			}
		}
	}
	ch.mu.Unlock()

	ch.conn.params.Metrics.IncConfirmed(ack)
	for _, sink := range resolved {
		sink <- ack
	}
}

// Publish sends exchange/routingKey/msg as a Basic.Publish method
// frame, a ContentHeader frame, and one or more ContentBody frames
// fragmented at frame-max - overhead. If publisher confirms are
// enabled it blocks until the matching Basic.Ack/Basic.Nack arrives
// (or ctx is cancelled, or the channel is lost) and reports which one
// came back: true for Ack, false for Nack. Without confirms enabled
// the return is always true, since there is nothing to wait for.
func (ch *Channel) Publish(ctx context.Context, exchange, routingKey string, mandatory, immediate bool, msg Publishing) (bool, error) {
	if err := validateShortString("exchange", exchange); err != nil {
		return false, err
	}
	if err := validateShortString("routing_key", routingKey); err != nil {
		return false, err
	}
	if err := validatePublishing(msg); err != nil {
		return false, err
	}

	ch.mu.Lock()
	allowed := ch.outboundAllowed
	ch.mu.Unlock()
	if !allowed {
		return false, ErrFlowStopped
	}

	props := wire.Properties{
		ContentType:     msg.ContentType,
		ContentEncoding: msg.ContentEncoding,
		Headers:         msg.Headers,
		CorrelationID:   msg.CorrelationID,
		ReplyTo:         msg.ReplyTo,
		Expiration:      msg.Expiration,
		MessageID:       msg.MessageID,
		Type:            msg.Type,
		UserID:          msg.UserID,
		AppID:           msg.AppID,
		ClusterID:       msg.ClusterID,
	}
	if msg.hasDeliveryMode {
		props.SetDeliveryMode(msg.DeliveryMode)
	}
	if msg.hasPriority {
		props.SetPriority(msg.Priority)
	}
	if msg.hasTimestamp {
		props.SetTimestamp(msg.Timestamp)
	}

	methodPayload, err := wire.EncodeMethod(&wire.BasicPublish{
		Exchange: exchange, RoutingKey: routingKey, Mandatory: mandatory, Immediate: immediate,
	})
	if err != nil {
		return false, err
	}
	headerPayload, err := wire.EncodeContentHeader(&wire.ContentHeader{
		ClassID: wire.ClassBasic, BodySize: uint64(len(msg.Body)), Properties: props,
	})
	if err != nil {
		return false, err
	}

	frames := []*wire.RawFrame{
		{Type: wire.FrameMethod, Channel: ch.id, Payload: methodPayload},
		{Type: wire.FrameHeader, Channel: ch.id, Payload: headerPayload},
	}
	maxBody := wire.MaxPayload(ch.conn.tune.FrameMax)
	for offset := 0; offset < len(msg.Body) || (len(msg.Body) == 0 && offset == 0); {
		end := offset + maxBody
		if end > len(msg.Body) {
			end = len(msg.Body)
		}
		frames = append(frames, &wire.RawFrame{Type: wire.FrameBody, Channel: ch.id, Payload: msg.Body[offset:end]})
		if len(msg.Body) == 0 {
			break
		}
		offset = end
	}

	var confirmSink chan bool
	var seq uint64
	ch.mu.Lock()
	if ch.confirmMode {
		seq = ch.nextPublishSeq
		ch.nextPublishSeq++
		confirmSink = make(chan bool, 1)
		ch.pendingConfirms[seq] = confirmSink
		ch.confirmSeq = append(ch.confirmSeq, seq)
	}
	ch.mu.Unlock()

	if err := ch.conn.writeFrames(frames); err != nil {
		return false, err
	}
	ch.conn.params.Metrics.IncPublished()

	if confirmSink == nil {
		return true, nil
	}

	select {
	case ack, ok := <-confirmSink:
		if !ok {
			return false, ch.closedError()
		}
		return ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-ch.conn.readerDone:
		return false, ch.closedError()
	}
}

// PublishSimple is a convenience wrapper for fire-and-forget
// publishes with no mandatory/immediate flags, for callers that don't
// need confirm-aware cancellation; it passes Publish a context derived
// from context.Background with a defaultSocketTimeout (30s) deadline. The
// returned bool is only meaningful when the channel has publisher
// confirms enabled; see Publish.
func (ch *Channel) PublishSimple(exchange, routingKey string, msg Publishing) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSocketTimeout)
	defer cancel()
	return ch.Publish(ctx, exchange, routingKey, false, false, msg)
}
