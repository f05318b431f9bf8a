package amqp

import (
	"github.com/flowbroker/amqp/internal/wire"
)

// partialKind identifies which unsolicited method started the
// in-progress assembly on a channel; at most one may be outstanding
// at a time, since AMQP never interleaves content trains.
type partialKind int

const (
	partialNone partialKind = iota
	partialDeliver
	partialReturn
	partialGet
)

// assembler joins a Basic.Deliver/Return/GetOk with its ContentHeader
// and ContentBody frames into a Delivery. One assembler lives per
// channel; it is reset after each completed (or abandoned-by-recycle)
// message.
type assembler struct {
	ch *Channel

	kind partialKind

	consumerTag  string
	deliveryTag  uint64
	redelivered  bool
	exchange     string
	routingKey   string
	messageCount uint32
	hasCount     bool
	returnCode   uint16
	returnText   string

	bodySize uint64
	props    wire.Properties
	haveHdr  bool
	body     []byte
}

func newAssembler(ch *Channel) *assembler {
	return &assembler{ch: ch}
}

func (a *assembler) startDeliver(m *wire.BasicDeliver) {
	a.reset()
	a.kind = partialDeliver
	a.consumerTag = m.ConsumerTag
	a.deliveryTag = m.DeliveryTag
	a.redelivered = m.Redelivered
	a.exchange = m.Exchange
	a.routingKey = m.RoutingKey
}

func (a *assembler) startReturn(m *wire.BasicReturn) {
	a.reset()
	a.kind = partialReturn
	a.exchange = m.Exchange
	a.routingKey = m.RoutingKey
	a.returnCode = m.ReplyCode
	a.returnText = m.ReplyText
}

func (a *assembler) startGet(m *wire.BasicGetOk) {
	a.reset()
	a.kind = partialGet
	a.deliveryTag = m.DeliveryTag
	a.redelivered = m.Redelivered
	a.exchange = m.Exchange
	a.routingKey = m.RoutingKey
	a.messageCount = m.MessageCount
	a.hasCount = true
}

func (a *assembler) onHeader(payload []byte) error {
	if a.kind == partialNone {
		return errProtocolUnexpected("content header with no pending delivery")
	}
	if a.haveHdr {
		return errProtocolUnexpected("duplicate content header")
	}
	h, err := wire.DecodeContentHeader(payload)
	if err != nil {
		return err
	}
	a.bodySize = h.BodySize
	a.props = h.Properties
	a.haveHdr = true
	a.body = make([]byte, 0, h.BodySize)
	if h.BodySize == 0 {
		a.complete()
	}
	return nil
}

func (a *assembler) onBody(payload []byte) error {
	if a.kind == partialNone || !a.haveHdr {
		return errProtocolUnexpected("content body with no pending header")
	}
	a.body = append(a.body, payload...)
	if uint64(len(a.body)) > a.bodySize {
		return errProtocolUnexpected("content body exceeded declared body-size")
	}
	if uint64(len(a.body)) == a.bodySize {
		a.complete()
	}
	return nil
}

func (a *assembler) complete() {
	d := Delivery{
		ConsumerTag:     a.consumerTag,
		DeliveryTag:     a.deliveryTag,
		Redelivered:     a.redelivered,
		Exchange:        a.exchange,
		RoutingKey:      a.routingKey,
		MessageCount:    a.messageCount,
		HasMessageCount: a.hasCount,
		ContentType:     a.props.ContentType,
		ContentEncoding: a.props.ContentEncoding,
		Headers:         tableFromWire(a.props.Headers),
		DeliveryMode:    a.props.DeliveryMode,
		Priority:        a.props.Priority,
		CorrelationID:   a.props.CorrelationID,
		ReplyTo:         a.props.ReplyTo,
		Expiration:      a.props.Expiration,
		MessageID:       a.props.MessageID,
		Timestamp:       a.props.Timestamp,
		Type:            a.props.Type,
		UserID:          a.props.UserID,
		AppID:           a.props.AppID,
		ClusterID:       a.props.ClusterID,
		Body:            a.body,
		acker:           a.ch,
	}

	kind := a.kind
	a.reset()

	switch kind {
	case partialDeliver:
		a.ch.dispatchDelivery(d)
	case partialReturn:
		a.ch.dispatchReturn(d, a.returnCode, a.returnText)
	case partialGet:
		select {
		case a.ch.getWaiter <- &d:
		default:
		}
	}
}

func (a *assembler) reset() {
	a.kind = partialNone
	a.haveHdr = false
	a.body = nil
	a.props = wire.Properties{}
	a.hasCount = false
}

func errProtocolUnexpected(msg string) error {
	return &wireProtocolError{msg: msg}
}

type wireProtocolError struct{ msg string }

func (e *wireProtocolError) Error() string { return "amqp: protocol error: " + e.msg }

func (e *wireProtocolError) Is(target error) bool { return target == ErrProtocol }
