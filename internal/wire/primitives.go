// Package wire implements the AMQP 0-9-1 frame and method-argument
// codec: the binary layer the engine in the parent package treats as
// a fixed, known interface (frames in, frames out) rather than a
// protocol to reason about.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// ErrSyntax is returned when a field-table or string violates the
// length constraints of the wire format.
var ErrSyntax = errors.New("wire: syntax error")

// Table is an AMQP field-table: string keys to AMQP field values.
// Supported value types mirror what the engine's Message.Headers and
// method arguments need: bool, int8/16/32/64, float32/64, string,
// []byte, time.Time, Table, []any, and nil.
type Table map[string]any

// Decimal is the AMQP decimal-value field type: scale digits of
// precision applied to an unscaled integer value.
type Decimal struct {
	Scale uint8
	Value int32
}

type byteReader struct {
	r io.Reader
}

func newByteReader(r io.Reader) *byteReader { return &byteReader{r: r} }

func (b *byteReader) octet() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (b *byteReader) short() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (b *byteReader) long() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (b *byteReader) longlong() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (b *byteReader) shortstr() (string, error) {
	n, err := b.octet()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (b *byteReader) longstr() ([]byte, error) {
	n, err := b.long()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *byteReader) timestamp() (time.Time, error) {
	secs, err := b.longlong()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

func (b *byteReader) fieldValue() (any, error) {
	tag, err := b.octet()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 't':
		v, err := b.octet()
		return v != 0, err
	case 'b':
		v, err := b.octet()
		return int8(v), err
	case 's':
		v, err := b.short()
		return int16(v), err
	case 'I':
		v, err := b.long()
		return int32(v), err
	case 'l':
		v, err := b.longlong()
		return int64(v), err
	case 'f':
		v, err := b.long()
		return math32FromBits(v), err
	case 'd':
		v, err := b.longlong()
		return math64FromBits(v), err
	case 'D':
		scale, err := b.octet()
		if err != nil {
			return nil, err
		}
		value, err := b.long()
		return Decimal{Scale: scale, Value: int32(value)}, err
	case 'S':
		v, err := b.longstr()
		return string(v), err
	case 'A':
		return b.array()
	case 'T':
		return b.timestamp()
	case 'F':
		return b.table()
	case 'x':
		return b.longstr()
	case 'V':
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown field-value tag %q", ErrSyntax, tag)
	}
}

func (b *byteReader) array() ([]any, error) {
	size, err := b.long()
	if err != nil {
		return nil, err
	}
	lr := &io.LimitedReader{R: b.r, N: int64(size)}
	sub := newByteReader(lr)
	var out []any
	for lr.N > 0 {
		v, err := sub.fieldValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (b *byteReader) table() (Table, error) {
	size, err := b.long()
	if err != nil {
		return nil, err
	}
	lr := &io.LimitedReader{R: b.r, N: int64(size)}
	sub := newByteReader(lr)
	out := Table{}
	for lr.N > 0 {
		key, err := sub.shortstr()
		if err != nil {
			return nil, err
		}
		val, err := sub.fieldValue()
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

type byteWriter struct {
	w io.Writer
}

func newByteWriter(w io.Writer) *byteWriter { return &byteWriter{w: w} }

func (b *byteWriter) octet(v uint8) error {
	_, err := b.w.Write([]byte{v})
	return err
}

func (b *byteWriter) short(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := b.w.Write(buf[:])
	return err
}

func (b *byteWriter) long(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := b.w.Write(buf[:])
	return err
}

func (b *byteWriter) longlong(v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := b.w.Write(buf[:])
	return err
}

// ShortStringLimit is the maximum byte length of an AMQP short string
// (one octet length prefix).
const ShortStringLimit = 255

func (b *byteWriter) shortstr(v string) error {
	if len(v) > ShortStringLimit {
		return fmt.Errorf("%w: short string %q exceeds %d bytes", ErrSyntax, v, ShortStringLimit)
	}
	if err := b.octet(uint8(len(v))); err != nil {
		return err
	}
	_, err := io.WriteString(b.w, v)
	return err
}

func (b *byteWriter) longstr(v []byte) error {
	if err := b.long(uint32(len(v))); err != nil {
		return err
	}
	_, err := b.w.Write(v)
	return err
}

func (b *byteWriter) timestamp(t time.Time) error {
	return b.longlong(uint64(t.Unix()))
}

func (b *byteWriter) fieldValue(v any) error {
	switch val := v.(type) {
	case nil:
		return b.octet('V')
	case bool:
		if err := b.octet('t'); err != nil {
			return err
		}
		if val {
			return b.octet(1)
		}
		return b.octet(0)
	case int8:
		return writeTagged(b, 'b', func() error { return b.octet(uint8(val)) })
	case int16:
		return writeTagged(b, 's', func() error { return b.short(uint16(val)) })
	case int:
		return writeTagged(b, 'I', func() error { return b.long(uint32(val)) })
	case int32:
		return writeTagged(b, 'I', func() error { return b.long(uint32(val)) })
	case int64:
		return writeTagged(b, 'l', func() error { return b.longlong(uint64(val)) })
	case uint8:
		return writeTagged(b, 'b', func() error { return b.octet(val) })
	case uint16:
		return writeTagged(b, 's', func() error { return b.short(val) })
	case uint32:
		return writeTagged(b, 'I', func() error { return b.long(val) })
	case uint64:
		return writeTagged(b, 'l', func() error { return b.longlong(val) })
	case float32:
		return writeTagged(b, 'f', func() error { return b.long(math32Bits(val)) })
	case float64:
		return writeTagged(b, 'd', func() error { return b.longlong(math64Bits(val)) })
	case Decimal:
		return writeTagged(b, 'D', func() error {
			if err := b.octet(val.Scale); err != nil {
				return err
			}
			return b.long(uint32(val.Value))
		})
	case string:
		return writeTagged(b, 'S', func() error { return b.longstr([]byte(val)) })
	case []byte:
		return writeTagged(b, 'x', func() error { return b.longstr(val) })
	case time.Time:
		return writeTagged(b, 'T', func() error { return b.timestamp(val) })
	case Table:
		return writeTagged(b, 'F', func() error { return b.table(val) })
	case []any:
		return writeTagged(b, 'A', func() error { return b.array(val) })
	default:
		return fmt.Errorf("%w: unsupported field-value type %T", ErrSyntax, v)
	}
}

func writeTagged(b *byteWriter, tag byte, fn func() error) error {
	if err := b.octet(tag); err != nil {
		return err
	}
	return fn()
}

func (b *byteWriter) array(vals []any) error {
	var buf countingBuffer
	sub := newByteWriter(&buf)
	for _, v := range vals {
		if err := sub.fieldValue(v); err != nil {
			return err
		}
	}
	if err := b.long(uint32(buf.Len())); err != nil {
		return err
	}
	_, err := b.w.Write(buf.Bytes())
	return err
}

func (b *byteWriter) table(t Table) error {
	var buf countingBuffer
	sub := newByteWriter(&buf)
	for k, v := range t {
		if err := sub.shortstr(k); err != nil {
			return err
		}
		if err := sub.fieldValue(v); err != nil {
			return err
		}
	}
	if err := b.long(uint32(buf.Len())); err != nil {
		return err
	}
	_, err := b.w.Write(buf.Bytes())
	return err
}

// countingBuffer is a minimal growable byte buffer; used instead of
// bytes.Buffer only to keep this file's import list to what the wire
// format itself needs.
type countingBuffer struct {
	data []byte
}

func (c *countingBuffer) Write(p []byte) (int, error) {
	c.data = append(c.data, p...)
	return len(p), nil
}

func (c *countingBuffer) Len() int     { return len(c.data) }
func (c *countingBuffer) Bytes() []byte { return c.data }

func math32Bits(f float32) uint32     { return math.Float32bits(f) }
func math32FromBits(b uint32) float32 { return math.Float32frombits(b) }
func math64Bits(f float64) uint64     { return math.Float64bits(f) }
func math64FromBits(b uint64) float64 { return math.Float64frombits(b) }

// NewBufferedReader wraps r for frame reads with the buffering the
// transport adapter wants on a raw socket.
func NewBufferedReader(r io.Reader) *bufio.Reader { return bufio.NewReaderSize(r, 32*1024) }

// NewBufferedWriter wraps w for frame writes.
func NewBufferedWriter(w io.Writer) *bufio.Writer { return bufio.NewWriterSize(w, 32*1024) }
