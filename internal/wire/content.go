package wire

import (
	"bytes"
	"time"
)

// property bit positions within the 16-bit property-flags word, high
// bit first, per the basic class's property list (AMQP 0-9-1 §4.2.13).
const (
	flagContentType = 1 << 15
	flagContentEnc  = 1 << 14
	flagHeaders     = 1 << 13
	flagDeliveryMod = 1 << 12
	flagPriority    = 1 << 11
	flagCorrelation = 1 << 10
	flagReplyTo     = 1 << 9
	flagExpiration  = 1 << 8
	flagMessageID   = 1 << 7
	flagTimestamp   = 1 << 6
	flagType        = 1 << 5
	flagUserID      = 1 << 4
	flagAppID       = 1 << 3
	flagClusterID   = 1 << 2
)

// Properties is the basic-class content-header property list.
type Properties struct {
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

	hasDeliveryMode bool
	hasPriority     bool
	hasTimestamp    bool
}

// SetDeliveryMode records an explicit delivery-mode so the zero value
// (unset) can be told apart from delivery-mode 0 on the wire.
func (p *Properties) SetDeliveryMode(v uint8) { p.DeliveryMode = v; p.hasDeliveryMode = true }

// SetPriority records an explicit priority.
func (p *Properties) SetPriority(v uint8) { p.Priority = v; p.hasPriority = true }

// SetTimestamp records an explicit timestamp.
func (p *Properties) SetTimestamp(t time.Time) { p.Timestamp = t; p.hasTimestamp = true }

// ContentHeader is the FrameHeader payload: class/weight/body-size
// plus the property list.
type ContentHeader struct {
	ClassID    uint16
	Weight     uint16
	BodySize   uint64
	Properties Properties
}

// EncodeContentHeader serializes a content header frame payload.
func EncodeContentHeader(h *ContentHeader) ([]byte, error) {
	buf := &countingBuffer{}
	w := newByteWriter(buf)
	if err := w.short(h.ClassID); err != nil {
		return nil, err
	}
	if err := w.short(h.Weight); err != nil {
		return nil, err
	}
	if err := w.longlong(h.BodySize); err != nil {
		return nil, err
	}

	p := h.Properties
	var flags uint16
	if p.ContentType != "" {
		flags |= flagContentType
	}
	if p.ContentEncoding != "" {
		flags |= flagContentEnc
	}
	if p.Headers != nil {
		flags |= flagHeaders
	}
	if p.hasDeliveryMode {
		flags |= flagDeliveryMod
	}
	if p.hasPriority {
		flags |= flagPriority
	}
	if p.CorrelationID != "" {
		flags |= flagCorrelation
	}
	if p.ReplyTo != "" {
		flags |= flagReplyTo
	}
	if p.Expiration != "" {
		flags |= flagExpiration
	}
	if p.MessageID != "" {
		flags |= flagMessageID
	}
	if p.hasTimestamp {
		flags |= flagTimestamp
	}
	if p.Type != "" {
		flags |= flagType
	}
	if p.UserID != "" {
		flags |= flagUserID
	}
	if p.AppID != "" {
		flags |= flagAppID
	}
	if p.ClusterID != "" {
		flags |= flagClusterID
	}
	if err := w.short(flags); err != nil {
		return nil, err
	}

	write := func(present bool, fn func() error) error {
		if !present {
			return nil
		}
		return fn()
	}
	if err := write(flags&flagContentType != 0, func() error { return w.shortstr(p.ContentType) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagContentEnc != 0, func() error { return w.shortstr(p.ContentEncoding) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagHeaders != 0, func() error { return w.table(p.Headers) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagDeliveryMod != 0, func() error { return w.octet(p.DeliveryMode) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagPriority != 0, func() error { return w.octet(p.Priority) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagCorrelation != 0, func() error { return w.shortstr(p.CorrelationID) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagReplyTo != 0, func() error { return w.shortstr(p.ReplyTo) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagExpiration != 0, func() error { return w.shortstr(p.Expiration) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagMessageID != 0, func() error { return w.shortstr(p.MessageID) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagTimestamp != 0, func() error { return w.timestamp(p.Timestamp) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagType != 0, func() error { return w.shortstr(p.Type) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagUserID != 0, func() error { return w.shortstr(p.UserID) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagAppID != 0, func() error { return w.shortstr(p.AppID) }); err != nil {
		return nil, err
	}
	if err := write(flags&flagClusterID != 0, func() error { return w.shortstr(p.ClusterID) }); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeContentHeader parses a FrameHeader payload.
func DecodeContentHeader(payload []byte) (*ContentHeader, error) {
	r := newByteReader(bytes.NewReader(payload))
	h := &ContentHeader{}
	var err error
	if h.ClassID, err = r.short(); err != nil {
		return nil, err
	}
	if h.Weight, err = r.short(); err != nil {
		return nil, err
	}
	if h.BodySize, err = r.longlong(); err != nil {
		return nil, err
	}
	flags, err := r.short()
	if err != nil {
		return nil, err
	}
	p := &h.Properties
	read := func(present bool, fn func() error) error {
		if !present {
			return nil
		}
		return fn()
	}
	if err := read(flags&flagContentType != 0, func() error {
		p.ContentType, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagContentEnc != 0, func() error {
		p.ContentEncoding, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagHeaders != 0, func() error {
		p.Headers, err = r.table()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagDeliveryMod != 0, func() error {
		p.DeliveryMode, err = r.octet()
		p.hasDeliveryMode = err == nil
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagPriority != 0, func() error {
		p.Priority, err = r.octet()
		p.hasPriority = err == nil
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagCorrelation != 0, func() error {
		p.CorrelationID, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagReplyTo != 0, func() error {
		p.ReplyTo, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagExpiration != 0, func() error {
		p.Expiration, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagMessageID != 0, func() error {
		p.MessageID, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagTimestamp != 0, func() error {
		p.Timestamp, err = r.timestamp()
		p.hasTimestamp = err == nil
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagType != 0, func() error {
		p.Type, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagUserID != 0, func() error {
		p.UserID, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagAppID != 0, func() error {
		p.AppID, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(flags&flagClusterID != 0, func() error {
		p.ClusterID, err = r.shortstr()
		return err
	}); err != nil {
		return nil, err
	}
	return h, nil
}
