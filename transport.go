package amqp

import (
	"bufio"
	"crypto/tls"
	"net"
	"time"

	"github.com/flowbroker/amqp/internal/wire"
	"github.com/pkg/errors"
)

// timeoutConn wraps a net.Conn so every Read/Write renews a rolling
// deadline, the way the engine it is descended from wraps its socket:
// a stalled broker shows up as an I/O timeout rather than a Read that
// blocks forever.
type timeoutConn struct {
	conn    net.Conn
	timeout time.Duration
}

func newTimeoutConn(conn net.Conn, timeout time.Duration) *timeoutConn {
	return &timeoutConn{conn: conn, timeout: timeout}
}

func (c *timeoutConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	return c.conn.Read(b)
}

func (c *timeoutConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.conn.Write(b)
}

func (c *timeoutConn) Close() error { return c.conn.Close() }

// transport owns the socket and the frame-level read/write loops. It
// has no notion of channels or methods; it speaks RawFrame in and out,
// which is the boundary the connection state machine builds on.
type transport struct {
	conn     *timeoutConn
	reader   *bufio.Reader
	writer   *bufio.Writer
	frameMax uint32
}

// dialTransport opens the TCP (optionally TLS) socket, sends the
// protocol header, and returns a transport ready to exchange
// Connection.Start/Tune frames. frameMax starts at wire.FrameMinSize
// until tuning negotiates a larger value via setFrameMax.
func dialTransport(addr string, tlsConfig *tls.Config, dialTimeout, socketTimeout time.Duration) (*transport, error) {
	rawConn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "amqp: dial")
	}

	if tlsConfig != nil {
		tc := tls.Client(rawConn, tlsConfig)
		if err := tc.SetDeadline(time.Now().Add(dialTimeout)); err == nil {
			defer tc.SetDeadline(time.Time{})
		}
		if err := tc.Handshake(); err != nil {
			rawConn.Close()
			return nil, errors.Wrap(err, "amqp: TLS handshake")
		}
		rawConn = tc
	}

	tc := newTimeoutConn(rawConn, socketTimeout)
	t := &transport{
		conn:     tc,
		reader:   wire.NewBufferedReader(tc),
		writer:   wire.NewBufferedWriter(tc),
		frameMax: wire.FrameMinSize,
	}

	if _, err := t.writer.Write(wire.ProtocolHeader[:]); err != nil {
		rawConn.Close()
		return nil, errors.Wrap(err, "amqp: write protocol header")
	}
	if err := t.writer.Flush(); err != nil {
		rawConn.Close()
		return nil, errors.Wrap(err, "amqp: flush protocol header")
	}

	return t, nil
}

func (t *transport) setFrameMax(n uint32) {
	if n > 0 {
		t.frameMax = n
	}
}

func (t *transport) readFrame() (*wire.RawFrame, error) {
	return wire.ReadFrame(t.reader)
}

func (t *transport) writeFrame(f *wire.RawFrame) error {
	if err := wire.WriteFrame(t.writer, f); err != nil {
		return err
	}
	return t.writer.Flush()
}

// writeFrames writes several frames under a single flush, used for a
// method/header/body publish train so the broker never observes a
// partially flushed message.
func (t *transport) writeFrames(frames []*wire.RawFrame) error {
	for _, f := range frames {
		if err := wire.WriteFrame(t.writer, f); err != nil {
			return err
		}
	}
	return t.writer.Flush()
}

func (t *transport) close() error {
	return t.conn.Close()
}
