package amqp

import (
	"crypto/tls"
	"time"

	"github.com/flowbroker/amqp/internal/wire"
)

// Table is an AMQP field-table, re-exported from the wire codec so
// callers never need to import internal/wire directly.
type Table = wire.Table

// Decimal is the AMQP decimal-value field type.
type Decimal = wire.Decimal

const (
	defaultHeartbeat         = 60 * time.Second
	defaultConnectionTimeout = 30 * time.Second
	defaultSocketTimeout     = 30 * time.Second
	defaultLocale            = "en_US"
	defaultChannelMax        = 2047
	defaultFrameMax          = 131072
	productName              = "flowbroker-amqp"
	productVersion           = "1.0.0"
)

// ConnectionParameters describes how to reach a broker and the
// tuning the client proposes during handshake. It is immutable once
// passed to Dial/DialTLS/DialConfig; build a fresh value to change
// any field.
type ConnectionParameters struct {
	Host     string
	Port     int
	VHost    string
	Username string
	Password string

	Locale string

	// ChannelMax, FrameMax and Heartbeat are the client's requested
	// tuning values; 0 selects the library default (2047 channels,
	// 131072-byte frames, 60s heartbeat) when the connection is dialed.
	// The negotiated values are the minimum of client and server, per
	// NegotiatedTune.
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  time.Duration

	ConnectionTimeout time.Duration
	SocketTimeout     time.Duration

	TLSClientConfig *tls.Config

	// Logger and Metrics are optional ambient seams; nil means the
	// no-op implementation is used.
	Logger  Logger
	Metrics Metrics
}

// withDefaults returns a copy of p with zero-valued fields replaced by
// the library defaults.
func (p ConnectionParameters) withDefaults() ConnectionParameters {
	if p.Locale == "" {
		p.Locale = defaultLocale
	}
	if p.Heartbeat == 0 {
		p.Heartbeat = defaultHeartbeat
	}
	if p.ConnectionTimeout == 0 {
		p.ConnectionTimeout = defaultConnectionTimeout
	}
	if p.SocketTimeout == 0 {
		p.SocketTimeout = defaultSocketTimeout
	}
	if p.ChannelMax == 0 {
		p.ChannelMax = defaultChannelMax
	}
	if p.FrameMax == 0 {
		p.FrameMax = defaultFrameMax
	}
	if p.VHost == "" {
		p.VHost = "/"
	}
	if p.Logger == nil {
		p.Logger = defaultLogger()
	}
	if p.Metrics == nil {
		p.Metrics = NoopMetrics{}
	}
	return p
}

// NegotiatedTune is the result of the Tune/TuneOk exchange: the
// minimum of what the client requested and what the server proposed.
type NegotiatedTune struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  time.Duration
}

func pickTuneValue(client, server uint32) uint32 {
	switch {
	case client == 0:
		return server
	case server == 0:
		return client
	case client < server:
		return client
	default:
		return server
	}
}

// Publishing carries the body and properties of an outbound message
// for Channel.Publish.
type Publishing struct {
	ContentType     string
	ContentEncoding string
	Headers         Table
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       time.Time
	Type            string
	UserID          string
	AppID           string
	ClusterID       string
	Body            []byte

	hasDeliveryMode bool
	hasPriority     bool
	hasTimestamp    bool
}

// SetDeliveryMode records an explicit delivery mode (1 = transient,
// 2 = persistent) so the zero value isn't mistaken for an explicit
// transient request. Publish emits delivery_mode, priority and
// timestamp only when the matching SetX method has been called.
func (m *Publishing) SetDeliveryMode(v uint8) { m.DeliveryMode = v; m.hasDeliveryMode = true }

// SetPriority records an explicit priority in [0,9].
func (m *Publishing) SetPriority(v uint8) { m.Priority = v; m.hasPriority = true }

// SetTimestamp records an explicit timestamp property.
func (m *Publishing) SetTimestamp(t time.Time) { m.Timestamp = t; m.hasTimestamp = true }

// Delivery is an assembled inbound message: a Basic.Deliver, a
// Basic.Return, or a Basic.GetOk, joined with its content header and
// body. MessageCount is only meaningful for Basic.GetOk-sourced
// deliveries.
type Delivery struct {
	ConsumerTag  string
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
	HasMessageCount bool

	ContentType     string
	ContentEncoding string
	Headers         Table
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       time.Time
	Type            string
	UserID          string
	AppID           string
	ClusterID       string

	Body []byte

	acker Acknowledger
}

// Acknowledger is satisfied by a Channel; Delivery methods below
// forward to it so a Delivery can be acked/nacked/rejected without
// the caller holding onto the Connection.
type Acknowledger interface {
	Ack(deliveryTag uint64, multiple bool) error
	Nack(deliveryTag uint64, multiple, requeue bool) error
	Reject(deliveryTag uint64, requeue bool) error
}

// Ack acknowledges the delivery.
func (d Delivery) Ack(multiple bool) error {
	if d.acker == nil {
		return stateErrf("delivery is not attached to a channel")
	}
	return d.acker.Ack(d.DeliveryTag, multiple)
}

// Nack negatively acknowledges the delivery.
func (d Delivery) Nack(multiple, requeue bool) error {
	if d.acker == nil {
		return stateErrf("delivery is not attached to a channel")
	}
	return d.acker.Nack(d.DeliveryTag, multiple, requeue)
}

// Reject rejects the delivery.
func (d Delivery) Reject(requeue bool) error {
	if d.acker == nil {
		return stateErrf("delivery is not attached to a channel")
	}
	return d.acker.Reject(d.DeliveryTag, requeue)
}

// Queue is the decoded response to Queue.Declare.
type Queue struct {
	Name          string
	MessageCount  uint32
	ConsumerCount uint32
}

func tableFromWire(t wire.Table) Table {
	if t == nil {
		return nil
	}
	return t
}
