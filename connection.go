// Copyright (c) 2012, Sean Treadway, SoundCloud Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
// Source code and contact info at http://github.com/streadway/amqp

package amqp

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/flowbroker/amqp/internal/wire"
	"github.com/pkg/errors"
)

// Connection manages a single AMQP 0-9-1 session and its one
// application channel. Unlike a general-purpose client this engine
// never multiplexes several simultaneous channels over a connection:
// when the application channel closes with a soft error, the
// connection silently opens a replacement channel underneath the
// caller (see recycleChannel). All synchronous requests (method
// round-trips on channel 0 and on the application channel) are
// serialized by the single reader goroutine started in DialConfig.
type Connection struct {
	transport *transport
	params    ConnectionParameters
	tune      NegotiatedTune

	writeMu sync.Mutex // serializes frame writes across goroutines

	mu     sync.Mutex
	state  ConnectionState
	closes []chan *AMQPError
	closed bool

	rpc chan wire.Method // channel-0 synchronous reply correlator

	// channels holds every channel id the reader loop must route to.
	// In steady state this has exactly one entry (the application
	// channel); recycleChannel removes the old id before it registers
	// the new one (awaiting Channel.Open-Ok), so frames for the old id
	// are dropped. currentID names which entry Connection.Channel returns.
	channelMu sync.Mutex
	channels  map[uint16]*Channel
	currentID uint16

	heartbeat *heartbeatMonitor

	shutdownOnce sync.Once
	shutdownErr  *AMQPError

	readerDone chan struct{}

	ServerProperties Table
	VersionMajor     int
	VersionMinor     int
}

// Dial connects to an amqp:// or amqps:// URI using library defaults.
func Dial(uri string) (*Connection, error) {
	params, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return DialConfig(params)
}

// DialTLS connects using the given URI, overriding whatever TLS
// config ParseURI derived from an amqps:// scheme.
func DialTLS(uri string, tlsConfig *tls.Config) (*Connection, error) {
	params, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	params.TLSClientConfig = tlsConfig
	return DialConfig(params)
}

// DialConfig opens a connection with fully explicit parameters.
func DialConfig(params ConnectionParameters) (*Connection, error) {
	params = params.withDefaults()

	t, err := dialTransport(params.Addr(), params.TLSClientConfig, params.ConnectionTimeout, params.SocketTimeout)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		transport:  t,
		params:     params,
		state:      ConnectionProtocolHeaderSent,
		rpc:        make(chan wire.Method),
		readerDone: make(chan struct{}),
		channels:   make(map[uint16]*Channel),
	}

	go c.readLoop()

	if err := c.handshake(); err != nil {
		c.shutdown(errorFromHandshake(err))
		return nil, err
	}

	ch, err := c.openChannel(1)
	if err != nil {
		c.shutdown(errorFromHandshake(err))
		return nil, err
	}
	c.channelMu.Lock()
	c.channels[1] = ch
	c.currentID = 1
	c.channelMu.Unlock()

	return c, nil
}

func errorFromHandshake(err error) *AMQPError {
	if ae, ok := err.(*AMQPError); ok {
		return ae
	}
	return newConnectionError(replyInternalError, err.Error(), 0, 0)
}

// Connect dials, runs fn with the open connection, and guarantees
// Close is called on every exit path — the scoped-acquisition
// pattern the rest of the corpus uses for anything that owns a
// socket.
func Connect(ctx context.Context, uri string, params ConnectionParameters, fn func(*Connection) error) error {
	parsed, err := ParseURI(uri)
	if err != nil {
		return err
	}
	parsed.Host = orDefault(params.Host, parsed.Host)
	if params.Username != "" {
		parsed.Username = params.Username
		parsed.Password = params.Password
	}
	if params.Logger != nil {
		parsed.Logger = params.Logger
	}
	if params.Metrics != nil {
		parsed.Metrics = params.Metrics
	}

	conn, err := DialConfig(parsed)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan error, 1)
	go func() { done <- fn(conn) }()

	select {
	case <-ctx.Done():
		conn.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Channel returns the connection's current application channel. The
// identity of the returned *Channel can change across calls: a soft
// error recycles it transparently, so callers that hold onto a
// *Channel across a recycle will see it report ChannelClosed and
// should re-fetch from Connection.Channel.
func (c *Connection) Channel() *Channel {
	c.channelMu.Lock()
	defer c.channelMu.Unlock()
	return c.channels[c.currentID]
}

func (c *Connection) channelByID(id uint16) *Channel {
	c.channelMu.Lock()
	defer c.channelMu.Unlock()
	return c.channels[id]
}

// NotifyClose registers a listener delivered exactly once: with the
// error that tore the connection down, or nil plus a close of the
// channel on a graceful Close.
func (c *Connection) NotifyClose(ch chan *AMQPError) chan *AMQPError {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
	} else {
		c.closes = append(c.closes, ch)
	}
	return ch
}

// Close requests a graceful shutdown and waits for the broker's
// Connection.Close-Ok.
func (c *Connection) Close() error {
	if c.isClosed() {
		return nil
	}
	err := c.call(0, &wire.ConnectionClose{ReplyCode: 200, ReplyText: "goodbye"}, &wire.ConnectionCloseOk{})
	c.shutdown(nil)
	return err
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// call writes req on the given channel and blocks for the matching
// synchronous reply, which the reader goroutine delivers over c.rpc
// (channel 0) or the addressed Channel's own correlator. It is used
// only for channel-0 (connection-class) methods; Channel.call handles
// application-channel methods.
func (c *Connection) call(channelID uint16, req wire.Method, res wire.Method) error {
	if req != nil {
		if err := c.sendMethod(channelID, req); err != nil {
			return err
		}
	}
	select {
	case m, ok := <-c.rpc:
		if !ok {
			return c.lastError()
		}
		return assignMethod(m, res)
	case <-c.readerDone:
		return c.lastError()
	}
}

func (c *Connection) lastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdownErr != nil {
		return c.shutdownErr
	}
	return ErrConnectionLost
}

func assignMethod(got wire.Method, want wire.Method) error {
	switch w := want.(type) {
	case *wire.ConnectionStart:
		*w = *got.(*wire.ConnectionStart)
	case *wire.ConnectionTune:
		*w = *got.(*wire.ConnectionTune)
	case *wire.ConnectionOpenOk:
		*w = *got.(*wire.ConnectionOpenOk)
	case *wire.ConnectionCloseOk:
		*w = *got.(*wire.ConnectionCloseOk)
	case *wire.ChannelOpenOk:
		*w = *got.(*wire.ChannelOpenOk)
	default:
		return errors.Errorf("amqp: unexpected reply %T", got)
	}
	return nil
}

func (c *Connection) sendMethod(channelID uint16, m wire.Method) error {
	payload, err := wire.EncodeMethod(m)
	if err != nil {
		return err
	}
	return c.writeRaw(&wire.RawFrame{Type: wire.FrameMethod, Channel: channelID, Payload: payload})
}

func (c *Connection) writeRaw(f *wire.RawFrame) error {
	c.writeMu.Lock()
	err := c.transport.writeFrame(f)
	c.writeMu.Unlock()
	if err != nil {
		c.shutdown(newConnectionError(replyInternalError, err.Error(), 0, 0))
		return ErrConnectionLost
	}
	if c.heartbeat != nil {
		c.heartbeat.noteSent()
	}
	return nil
}

// writeFrames is used by the publisher for a method/header/body train
// that must reach the wire as one uninterrupted write.
func (c *Connection) writeFrames(frames []*wire.RawFrame) error {
	c.writeMu.Lock()
	err := c.transport.writeFrames(frames)
	c.writeMu.Unlock()
	if err != nil {
		c.shutdown(newConnectionError(replyInternalError, err.Error(), 0, 0))
		return ErrConnectionLost
	}
	if c.heartbeat != nil {
		c.heartbeat.noteSent()
	}
	return nil
}

// handshake drives Connection.Start..Open per AMQP 0-9-1 §2.2.4.
func (c *Connection) handshake() error {
	start := &wire.ConnectionStart{}
	if err := c.call(0, nil, start); err != nil {
		return err
	}
	c.VersionMajor = int(start.VersionMajor)
	c.VersionMinor = int(start.VersionMinor)
	c.ServerProperties = tableFromWire(start.ServerProperties)

	offered := []Authentication{&PlainAuth{Username: c.params.Username, Password: c.params.Password}}
	auth, ok := pickSASLMechanism(offered, start.Mechanisms)
	if !ok {
		return errors.New("amqp: no mutually supported SASL mechanism")
	}

	startOk := &wire.ConnectionStartOk{
		ClientProperties: clientProperties(),
		Mechanism:        auth.Mechanism(),
		Response:         auth.Response(),
		Locale:           c.params.Locale,
	}
	tune := &wire.ConnectionTune{}
	if err := c.call(0, startOk, tune); err != nil {
		return errors.Wrap(err, "amqp: credentials rejected")
	}

	c.tune = NegotiatedTune{
		ChannelMax: uint16(pickTuneValue(uint32(c.params.ChannelMax), uint32(tune.ChannelMax))),
		FrameMax:   pickTuneValue(c.params.FrameMax, tune.FrameMax),
		Heartbeat:  pickHeartbeat(c.params.Heartbeat, tune.Heartbeat),
	}
	c.transport.setFrameMax(c.tune.FrameMax)

	c.heartbeat = newHeartbeatMonitor(c.tune.Heartbeat, func() error {
		return c.writeRaw(wire.HeartbeatFrame())
	})
	go c.heartbeat.run()
	go c.watchHeartbeatLoss()

	if err := c.sendMethod(0, &wire.ConnectionTuneOk{
		ChannelMax: c.tune.ChannelMax,
		FrameMax:   c.tune.FrameMax,
		Heartbeat:  uint16(c.tune.Heartbeat / time.Second),
	}); err != nil {
		return err
	}

	openOk := &wire.ConnectionOpenOk{}
	if err := c.call(0, &wire.ConnectionOpen{VirtualHost: c.params.VHost}, openOk); err != nil {
		return errors.Wrap(err, "amqp: vhost open failed")
	}

	c.mu.Lock()
	c.state = ConnectionOpen
	c.mu.Unlock()
	return nil
}

func pickHeartbeat(client time.Duration, serverSeconds uint16) time.Duration {
	server := time.Duration(serverSeconds) * time.Second
	return time.Duration(pickTuneValue(uint32(client/time.Second), uint32(server/time.Second))) * time.Second
}

func clientProperties() Table {
	return Table{
		"product":  productName,
		"version":  productVersion,
		"platform": "Go",
		"capabilities": Table{
			"connection.blocked":   true,
			"publisher_confirms":   true,
			"consumer_cancel_notify": true,
		},
	}
}

func (c *Connection) watchHeartbeatLoss() {
	select {
	case <-c.heartbeat.lostSignal():
		c.shutdown(newConnectionError(replyInternalError, "heartbeat timeout", 0, 0))
	case <-c.readerDone:
	}
}

func (c *Connection) openChannel(id uint16) (*Channel, error) {
	ch := newChannel(c, id)

	c.channelMu.Lock()
	c.channels[id] = ch
	c.channelMu.Unlock()

	if err := ch.call(&wire.ChannelOpen{}, &wire.ChannelOpenOk{}); err != nil {
		c.channelMu.Lock()
		delete(c.channels, id)
		c.channelMu.Unlock()
		return nil, err
	}
	ch.setState(ChannelOpen)
	return ch, nil
}

// recycleChannel is invoked by the reader goroutine after it has
// already acked a Channel.Close with Channel.Close-Ok. It replaces
// the application channel with a freshly opened one and resumes any
// consumers whose callbacks survive a recycle per the delivery
// dispatcher contract (none do automatically; the caller must
// re-issue Consume, matching the documented non-goal of transparent
// consumer migration).
func (c *Connection) recycleChannel(oldID uint16, closedErr *AMQPError) {
	go func() {
		old := c.channelByID(oldID)
		c.channelMu.Lock()
		delete(c.channels, oldID)
		c.channelMu.Unlock()
		if old != nil {
			old.failAll(closedErr)
		}

		next, err := c.openChannel(c.nextChannelID(oldID))
		if err != nil {
			c.shutdown(newConnectionError(replyInternalError, err.Error(), 0, 0))
			return
		}

		wasConfirming := false
		if old != nil {
			old.mu.Lock()
			wasConfirming = old.confirmMode
			old.mu.Unlock()
		}
		if wasConfirming {
			if err := next.reconfirmAfterRecycle(); err != nil {
				c.params.Logger.Error("failed to restore publisher confirms after recycle", "error", err.Error())
			}
		}

		c.channelMu.Lock()
		c.currentID = next.id
		c.channelMu.Unlock()

		c.params.Metrics.IncChannelRecycle()
		c.params.Logger.Warn("channel recycled after soft error", "code", closedErr.Code, "text", closedErr.Text)
	}()
}

// nextChannelID picks the replacement channel number: incrementing
// mod channel-max, skipping 0 (reserved for the connection itself).
func (c *Connection) nextChannelID(id uint16) uint16 {
	max := c.tune.ChannelMax
	if max == 0 {
		return id + 1
	}
	next := id + 1
	if next > max {
		next = 1
	}
	return next
}

// readLoop is the single demultiplexer for the connection: every
// inbound frame, on channel 0 or the application channel, passes
// through here before being routed.
func (c *Connection) readLoop() {
	defer close(c.readerDone)
	for {
		f, err := c.transport.readFrame()
		if err != nil {
			c.shutdown(newConnectionError(replyInternalError, err.Error(), 0, 0))
			return
		}
		if c.heartbeat != nil {
			c.heartbeat.noteReceived()
		}

		if f.Type == wire.FrameHeartbeat {
			continue
		}

		if f.Channel == 0 {
			if !c.dispatch0(f) {
				return
			}
			continue
		}

		ch := c.channelByID(f.Channel)
		if ch == nil {
			continue // frame for a channel id that has already recycled away
		}
		ch.dispatch(f)
	}
}

// dispatch0 handles a channel-0 frame. It returns false if the
// connection has been torn down and the read loop should stop.
func (c *Connection) dispatch0(f *wire.RawFrame) bool {
	if f.Type != wire.FrameMethod {
		c.shutdown(newConnectionError(replyInternalError, "unexpected non-method frame on channel 0", 0, 0))
		return false
	}
	// Connection.Blocked (10/60) and Connection.Unblocked (10/61) have no
	// entry in the wire method table; they are dropped here.
	if p := f.Payload; len(p) >= 4 && p[0] == 0 && p[1] == byte(wire.ClassConnection) &&
		p[2] == 0 && (p[3] == 60 || p[3] == 61) {
		return true
	}
	m, err := wire.DecodeMethod(f.Payload)
	if err != nil {
		c.shutdown(newConnectionError(replyInternalError, err.Error(), 0, 0))
		return false
	}

	if closeMethod, ok := m.(*wire.ConnectionClose); ok {
		c.sendMethod(0, &wire.ConnectionCloseOk{})
		c.shutdown(newConnectionError(closeMethod.ReplyCode, closeMethod.ReplyText, closeMethod.ClassID, closeMethod.MethodID))
		return false
	}

	select {
	case c.rpc <- m:
	case <-c.readerDone:
	}
	return true
}

func (c *Connection) shutdown(err *AMQPError) {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.shutdownErr = err
		closes := c.closes
		c.mu.Unlock()

		if c.heartbeat != nil {
			c.heartbeat.close()
		}

		c.channelMu.Lock()
		channels := make([]*Channel, 0, len(c.channels))
		for _, ch := range c.channels {
			channels = append(channels, ch)
		}
		c.channelMu.Unlock()
		for _, ch := range channels {
			ch.failAll(err)
		}

		c.transport.close()
		close(c.rpc)

		for _, ch := range closes {
			if err != nil {
				ch <- err
			}
			close(ch)
		}
	})
}
