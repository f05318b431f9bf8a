package amqp

import (
	"sync"

	"github.com/flowbroker/amqp/internal/wire"
)

// Channel is the engine's single application channel. Its numeric id
// changes across a recycle (see Connection.recycleChannel); callers
// should treat a *Channel as valid until they observe ChannelClosed,
// then re-fetch Connection.Channel rather than caching the pointer
// long-term.
type Channel struct {
	conn *Connection
	id   uint16

	mu    sync.Mutex
	state ChannelState

	pendingMu sync.Mutex
	pending   chan wire.Method // size-1 completion sink for the in-flight synchronous call

	outboundAllowed bool

	confirmMode     bool
	nextPublishSeq  uint64
	pendingConfirms map[uint64]chan bool
	confirmSeq      []uint64 // ascending order of unresolved sequence numbers, for Multiple

	consumers map[string]*consumerDispatcher
	getWaiter chan *Delivery

	closeCallback  func(*AMQPError)
	returnCallback func(Delivery)

	assembler *assembler

	closed   bool
	closeErr *AMQPError
}

func newChannel(conn *Connection, id uint16) *Channel {
	ch := &Channel{
		conn:            conn,
		id:              id,
		state:           ChannelOpenSent,
		outboundAllowed: true,
		pendingConfirms: make(map[uint64]chan bool),
		consumers:       make(map[string]*consumerDispatcher),
		getWaiter:       make(chan *Delivery, 1),
	}
	ch.assembler = newAssembler(ch)
	return ch
}

func (ch *Channel) setState(s ChannelState) {
	ch.mu.Lock()
	ch.state = s
	ch.mu.Unlock()
}

func (ch *Channel) State() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// call sends req on this channel and blocks for the matching
// synchronous reply. Only one call may be in flight per channel at a
// time; a second concurrent call fails immediately with StateError,
// matching "at most one synchronous channel method is in flight".
func (ch *Channel) call(req wire.Method, res wire.Method) error {
	ch.pendingMu.Lock()
	if ch.pending != nil {
		ch.pendingMu.Unlock()
		return stateErrf("a synchronous call is already in flight on this channel")
	}
	sink := make(chan wire.Method, 1)
	ch.pending = sink
	ch.pendingMu.Unlock()

	ch.setState(ChannelSent)

	defer func() {
		ch.pendingMu.Lock()
		ch.pending = nil
		ch.pendingMu.Unlock()
	}()

	if err := ch.conn.sendMethod(ch.id, req); err != nil {
		return err
	}

	select {
	case m, ok := <-sink:
		if !ok {
			return ch.closedError()
		}
		if cc, ok := m.(*wire.ChannelClose); ok {
			return newChannelError(cc.ReplyCode, cc.ReplyText, cc.ClassID, cc.MethodID)
		}
		ch.setState(ChannelOpen)
		return assignChannelMethod(m, res)
	case <-ch.conn.readerDone:
		return ch.closedError()
	}
}

func (ch *Channel) closedError() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closeErr != nil {
		return ch.closeErr
	}
	return ErrConnectionLost
}

// completeSync delivers a synchronous reply to the waiting call, if
// one is in flight; an unsolicited same-typed frame (shouldn't occur
// per protocol, but a careless broker) is dropped rather than panic.
func (ch *Channel) completeSync(m wire.Method) bool {
	ch.pendingMu.Lock()
	sink := ch.pending
	ch.pendingMu.Unlock()
	if sink == nil {
		return false
	}
	select {
	case sink <- m:
		return true
	default:
		return false
	}
}

func assignChannelMethod(got wire.Method, want wire.Method) error {
	if want == nil {
		return nil
	}
	switch w := want.(type) {
	case *wire.ChannelOpenOk:
		*w = *got.(*wire.ChannelOpenOk)
	case *wire.ChannelCloseOk:
		*w = *got.(*wire.ChannelCloseOk)
	case *wire.ExchangeDeclareOk:
		*w = *got.(*wire.ExchangeDeclareOk)
	case *wire.ExchangeDeleteOk:
		*w = *got.(*wire.ExchangeDeleteOk)
	case *wire.QueueDeclareOk:
		*w = *got.(*wire.QueueDeclareOk)
	case *wire.QueueBindOk:
		*w = *got.(*wire.QueueBindOk)
	case *wire.QueueUnbindOk:
		*w = *got.(*wire.QueueUnbindOk)
	case *wire.QueuePurgeOk:
		*w = *got.(*wire.QueuePurgeOk)
	case *wire.QueueDeleteOk:
		*w = *got.(*wire.QueueDeleteOk)
	case *wire.BasicQosOk:
		*w = *got.(*wire.BasicQosOk)
	case *wire.BasicConsumeOk:
		*w = *got.(*wire.BasicConsumeOk)
	case *wire.BasicCancelOk:
		*w = *got.(*wire.BasicCancelOk)
	case *wire.BasicRecoverOk:
		*w = *got.(*wire.BasicRecoverOk)
	case *wire.ConfirmSelectOk:
		*w = *got.(*wire.ConfirmSelectOk)
	default:
		return invalidArgf("unexpected reply type %T", got)
	}
	return nil
}

// NotifyClose registers a callback invoked once with the error that
// closed the channel (recycle or connection teardown). Only one
// callback is kept, matching the design's "optional channel-close
// callback" rather than a Notify-chan list.
func (ch *Channel) NotifyClose(cb func(*AMQPError)) {
	ch.mu.Lock()
	ch.closeCallback = cb
	ch.mu.Unlock()
}

// NotifyReturn registers the callback invoked for a Basic.Return that
// the broker could not route. Without one registered, the channel
// state transitions to ChannelBasicReturnReceived (visible through
// State) and the returned message is logged and dropped; there is no
// call that blocks waiting for that state.
func (ch *Channel) NotifyReturn(cb func(Delivery)) {
	ch.mu.Lock()
	ch.returnCallback = cb
	ch.mu.Unlock()
}

// dispatch routes one inbound frame addressed to this channel.
func (ch *Channel) dispatch(f *wire.RawFrame) {
	switch f.Type {
	case wire.FrameMethod:
		ch.dispatchMethod(f)
	case wire.FrameHeader:
		if err := ch.assembler.onHeader(f.Payload); err != nil {
			ch.protocolViolation(err)
		}
	case wire.FrameBody:
		if err := ch.assembler.onBody(f.Payload); err != nil {
			ch.protocolViolation(err)
		}
	}
}

func (ch *Channel) protocolViolation(err error) {
	ch.conn.params.Logger.Error("protocol violation on channel, recycling", "channel", ch.id, "error", err.Error())
	ch.serverClosed(newChannelError(replyInternalError, err.Error(), 0, 0))
}

func (ch *Channel) dispatchMethod(f *wire.RawFrame) {
	m, err := wire.DecodeMethod(f.Payload)
	if err != nil {
		ch.protocolViolation(err)
		return
	}

	// A content train (Deliver/Return/GetOk, header, bodies) must not be
	// interrupted by another method frame; Channel.Close is still honored.
	if _, isClose := m.(*wire.ChannelClose); !isClose && ch.assembler.kind != partialNone {
		ch.protocolViolation(errProtocolUnexpected("method frame interleaved with a pending content train"))
		return
	}

	switch mm := m.(type) {
	case *wire.ChannelClose:
		ch.conn.sendMethod(ch.id, &wire.ChannelCloseOk{})
		ch.serverClosed(newChannelError(mm.ReplyCode, mm.ReplyText, mm.ClassID, mm.MethodID))

	case *wire.ChannelFlow:
		ch.mu.Lock()
		ch.outboundAllowed = mm.Active
		ch.mu.Unlock()
		ch.conn.sendMethod(ch.id, &wire.ChannelFlowOk{Active: mm.Active})

	case *wire.BasicDeliver:
		ch.assembler.startDeliver(mm)

	case *wire.BasicReturn:
		ch.assembler.startReturn(mm)

	case *wire.BasicGetOk:
		ch.assembler.startGet(mm)

	case *wire.BasicGetEmpty:
		select {
		case ch.getWaiter <- nil:
		default:
		}

	case *wire.BasicAck:
		ch.resolveConfirms(mm.DeliveryTag, mm.Multiple, true)

	case *wire.BasicNack:
		ch.resolveConfirms(mm.DeliveryTag, mm.Multiple, false)

	default:
		ch.completeSync(m)
	}
}

// serverClosed is invoked when the broker has closed the channel
// (Channel.Close received and Close-Ok already sent). It fails every
// outstanding local waiter, invokes the close callback, and hands off
// to the connection to open a replacement channel.
func (ch *Channel) serverClosed(err *AMQPError) {
	ch.failAll(err)
	ch.conn.recycleChannel(ch.id, err)
}

// failAll fails every local waiter on this channel: the in-flight
// synchronous call, all pending publisher confirms, the get waiter,
// and every consumer dispatcher. Used both for a server-initiated
// channel close and for full connection teardown.
func (ch *Channel) failAll(err *AMQPError) {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.closed = true
	ch.closeErr = err
	cb := ch.closeCallback
	ch.state = ChannelClosed
	ch.mu.Unlock()

	ch.pendingMu.Lock()
	if ch.pending != nil {
		close(ch.pending)
		ch.pending = nil
	}
	ch.pendingMu.Unlock()

	select {
	case ch.getWaiter <- nil:
	default:
	}

	ch.mu.Lock()
	for seq, sink := range ch.pendingConfirms {
		close(sink)
		delete(ch.pendingConfirms, seq)
	}
	consumers := make([]*consumerDispatcher, 0, len(ch.consumers))
	for _, d := range ch.consumers {
		consumers = append(consumers, d)
	}
	ch.mu.Unlock()

	for _, d := range consumers {
		d.stop()
	}

	if cb != nil && err != nil {
		cb(err)
	}
}

// Close requests a graceful close of this channel.
func (ch *Channel) Close() error {
	err := ch.call(&wire.ChannelClose{ReplyCode: 200, ReplyText: "goodbye"}, &wire.ChannelCloseOk{})
	ch.failAll(nil)
	return err
}
