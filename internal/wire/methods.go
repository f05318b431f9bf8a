package wire

import "bytes"

// Class ids (AMQP 0-9-1 §4).
const (
	ClassConnection uint16 = 10
	ClassChannel    uint16 = 20
	ClassExchange   uint16 = 40
	ClassQueue      uint16 = 50
	ClassBasic      uint16 = 60
	ClassConfirm    uint16 = 85
)

// Method ids, grouped by class.
const (
	MethodConnectionStart   uint16 = 10
	MethodConnectionStartOk uint16 = 11
	MethodConnectionTune    uint16 = 30
	MethodConnectionTuneOk  uint16 = 31
	MethodConnectionOpen    uint16 = 40
	MethodConnectionOpenOk  uint16 = 41
	MethodConnectionClose   uint16 = 50
	MethodConnectionCloseOk uint16 = 51

	MethodChannelOpen    uint16 = 10
	MethodChannelOpenOk  uint16 = 11
	MethodChannelFlow    uint16 = 20
	MethodChannelFlowOk  uint16 = 21
	MethodChannelClose   uint16 = 40
	MethodChannelCloseOk uint16 = 41

	MethodExchangeDeclare   uint16 = 10
	MethodExchangeDeclareOk uint16 = 11
	MethodExchangeDelete    uint16 = 20
	MethodExchangeDeleteOk  uint16 = 21

	MethodQueueDeclare   uint16 = 10
	MethodQueueDeclareOk uint16 = 11
	MethodQueueBind      uint16 = 20
	MethodQueueBindOk    uint16 = 21
	MethodQueuePurge     uint16 = 30
	MethodQueuePurgeOk   uint16 = 31
	MethodQueueDelete    uint16 = 40
	MethodQueueDeleteOk  uint16 = 41
	MethodQueueUnbind    uint16 = 50
	MethodQueueUnbindOk  uint16 = 51

	MethodBasicQos          uint16 = 10
	MethodBasicQosOk        uint16 = 11
	MethodBasicConsume      uint16 = 20
	MethodBasicConsumeOk    uint16 = 21
	MethodBasicCancel       uint16 = 30
	MethodBasicCancelOk     uint16 = 31
	MethodBasicPublish      uint16 = 40
	MethodBasicReturn       uint16 = 50
	MethodBasicDeliver      uint16 = 60
	MethodBasicGet          uint16 = 70
	MethodBasicGetOk        uint16 = 71
	MethodBasicGetEmpty     uint16 = 72
	MethodBasicAck          uint16 = 80
	MethodBasicReject       uint16 = 90
	MethodBasicRecoverAsync uint16 = 100
	MethodBasicRecover      uint16 = 110
	MethodBasicRecoverOk    uint16 = 111
	MethodBasicNack         uint16 = 120

	MethodConfirmSelect   uint16 = 10
	MethodConfirmSelectOk uint16 = 11
)

// Method is any decoded AMQP method-frame argument list.
type Method interface {
	ClassID() uint16
	MethodID() uint16
}

type writer interface {
	write(*byteWriter) error
}

type reader interface {
	read(*byteReader) error
}

// EncodeMethod serializes a method's class id, method id and
// arguments into a FrameMethod payload.
func EncodeMethod(m Method) ([]byte, error) {
	buf := &countingBuffer{}
	w := newByteWriter(buf)
	if err := w.short(m.ClassID()); err != nil {
		return nil, err
	}
	if err := w.short(m.MethodID()); err != nil {
		return nil, err
	}
	if wr, ok := m.(writer); ok {
		if err := wr.write(w); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeMethod parses a FrameMethod payload into a concrete Method.
func DecodeMethod(payload []byte) (Method, error) {
	r := newByteReader(bytes.NewReader(payload))
	classID, err := r.short()
	if err != nil {
		return nil, err
	}
	methodID, err := r.short()
	if err != nil {
		return nil, err
	}
	m := newMethod(classID, methodID)
	if m == nil {
		return nil, ErrSyntax
	}
	if rd, ok := m.(reader); ok {
		if err := rd.read(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func newMethod(classID, methodID uint16) Method {
	switch classID {
	case ClassConnection:
		switch methodID {
		case MethodConnectionStart:
			return &ConnectionStart{}
		case MethodConnectionStartOk:
			return &ConnectionStartOk{}
		case MethodConnectionTune:
			return &ConnectionTune{}
		case MethodConnectionTuneOk:
			return &ConnectionTuneOk{}
		case MethodConnectionOpen:
			return &ConnectionOpen{}
		case MethodConnectionOpenOk:
			return &ConnectionOpenOk{}
		case MethodConnectionClose:
			return &ConnectionClose{}
		case MethodConnectionCloseOk:
			return &ConnectionCloseOk{}
		}
	case ClassChannel:
		switch methodID {
		case MethodChannelOpen:
			return &ChannelOpen{}
		case MethodChannelOpenOk:
			return &ChannelOpenOk{}
		case MethodChannelFlow:
			return &ChannelFlow{}
		case MethodChannelFlowOk:
			return &ChannelFlowOk{}
		case MethodChannelClose:
			return &ChannelClose{}
		case MethodChannelCloseOk:
			return &ChannelCloseOk{}
		}
	case ClassExchange:
		switch methodID {
		case MethodExchangeDeclare:
			return &ExchangeDeclare{}
		case MethodExchangeDeclareOk:
			return &ExchangeDeclareOk{}
		case MethodExchangeDelete:
			return &ExchangeDelete{}
		case MethodExchangeDeleteOk:
			return &ExchangeDeleteOk{}
		}
	case ClassQueue:
		switch methodID {
		case MethodQueueDeclare:
			return &QueueDeclare{}
		case MethodQueueDeclareOk:
			return &QueueDeclareOk{}
		case MethodQueueBind:
			return &QueueBind{}
		case MethodQueueBindOk:
			return &QueueBindOk{}
		case MethodQueuePurge:
			return &QueuePurge{}
		case MethodQueuePurgeOk:
			return &QueuePurgeOk{}
		case MethodQueueDelete:
			return &QueueDelete{}
		case MethodQueueDeleteOk:
			return &QueueDeleteOk{}
		case MethodQueueUnbind:
			return &QueueUnbind{}
		case MethodQueueUnbindOk:
			return &QueueUnbindOk{}
		}
	case ClassBasic:
		switch methodID {
		case MethodBasicQos:
			return &BasicQos{}
		case MethodBasicQosOk:
			return &BasicQosOk{}
		case MethodBasicConsume:
			return &BasicConsume{}
		case MethodBasicConsumeOk:
			return &BasicConsumeOk{}
		case MethodBasicCancel:
			return &BasicCancel{}
		case MethodBasicCancelOk:
			return &BasicCancelOk{}
		case MethodBasicPublish:
			return &BasicPublish{}
		case MethodBasicReturn:
			return &BasicReturn{}
		case MethodBasicDeliver:
			return &BasicDeliver{}
		case MethodBasicGet:
			return &BasicGet{}
		case MethodBasicGetOk:
			return &BasicGetOk{}
		case MethodBasicGetEmpty:
			return &BasicGetEmpty{}
		case MethodBasicAck:
			return &BasicAck{}
		case MethodBasicReject:
			return &BasicReject{}
		case MethodBasicRecover:
			return &BasicRecover{}
		case MethodBasicRecoverOk:
			return &BasicRecoverOk{}
		case MethodBasicNack:
			return &BasicNack{}
		}
	case ClassConfirm:
		switch methodID {
		case MethodConfirmSelect:
			return &ConfirmSelect{}
		case MethodConfirmSelectOk:
			return &ConfirmSelectOk{}
		}
	}
	return nil
}

func bitOctet(bits ...bool) uint8 {
	var v uint8
	for i, b := range bits {
		if b {
			v |= 1 << uint(i)
		}
	}
	return v
}

func unpackBits(v uint8, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v&(1<<uint(i)) != 0
	}
	return out
}

// --- connection class -------------------------------------------------

type ConnectionStart struct {
	VersionMajor     uint8
	VersionMinor     uint8
	ServerProperties Table
	Mechanisms       string
	Locales          string
}

func (*ConnectionStart) ClassID() uint16  { return ClassConnection }
func (*ConnectionStart) MethodID() uint16 { return MethodConnectionStart }

func (m *ConnectionStart) read(r *byteReader) error {
	var err error
	if m.VersionMajor, err = r.octet(); err != nil {
		return err
	}
	if m.VersionMinor, err = r.octet(); err != nil {
		return err
	}
	if m.ServerProperties, err = r.table(); err != nil {
		return err
	}
	mechs, err := r.longstr()
	if err != nil {
		return err
	}
	m.Mechanisms = string(mechs)
	locales, err := r.longstr()
	if err != nil {
		return err
	}
	m.Locales = string(locales)
	return nil
}

type ConnectionStartOk struct {
	ClientProperties Table
	Mechanism        string
	Response         string
	Locale           string
}

func (*ConnectionStartOk) ClassID() uint16  { return ClassConnection }
func (*ConnectionStartOk) MethodID() uint16 { return MethodConnectionStartOk }

func (m *ConnectionStartOk) write(w *byteWriter) error {
	if err := w.table(m.ClientProperties); err != nil {
		return err
	}
	if err := w.shortstr(m.Mechanism); err != nil {
		return err
	}
	if err := w.longstr([]byte(m.Response)); err != nil {
		return err
	}
	return w.shortstr(m.Locale)
}

type ConnectionTune struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (*ConnectionTune) ClassID() uint16  { return ClassConnection }
func (*ConnectionTune) MethodID() uint16 { return MethodConnectionTune }

func (m *ConnectionTune) read(r *byteReader) error {
	var err error
	if m.ChannelMax, err = r.short(); err != nil {
		return err
	}
	if m.FrameMax, err = r.long(); err != nil {
		return err
	}
	m.Heartbeat, err = r.short()
	return err
}

type ConnectionTuneOk struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (*ConnectionTuneOk) ClassID() uint16  { return ClassConnection }
func (*ConnectionTuneOk) MethodID() uint16 { return MethodConnectionTuneOk }

func (m *ConnectionTuneOk) write(w *byteWriter) error {
	if err := w.short(m.ChannelMax); err != nil {
		return err
	}
	if err := w.long(m.FrameMax); err != nil {
		return err
	}
	return w.short(m.Heartbeat)
}

type ConnectionOpen struct {
	VirtualHost string
}

func (*ConnectionOpen) ClassID() uint16  { return ClassConnection }
func (*ConnectionOpen) MethodID() uint16 { return MethodConnectionOpen }

func (m *ConnectionOpen) write(w *byteWriter) error {
	if err := w.shortstr(m.VirtualHost); err != nil {
		return err
	}
	if err := w.shortstr(""); err != nil { // reserved: capabilities
		return err
	}
	return w.octet(0) // reserved: insist
}

type ConnectionOpenOk struct{}

func (*ConnectionOpenOk) ClassID() uint16  { return ClassConnection }
func (*ConnectionOpenOk) MethodID() uint16 { return MethodConnectionOpenOk }

func (m *ConnectionOpenOk) read(r *byteReader) error {
	_, err := r.shortstr() // reserved
	return err
}

type ConnectionClose struct {
	ReplyCode uint16
	ReplyText string
	ClassID   uint16
	MethodID  uint16
}

func (*ConnectionClose) ClassID() uint16  { return ClassConnection }
func (*ConnectionClose) MethodID() uint16 { return MethodConnectionClose }

func (m *ConnectionClose) write(w *byteWriter) error {
	if err := w.short(m.ReplyCode); err != nil {
		return err
	}
	if err := w.shortstr(m.ReplyText); err != nil {
		return err
	}
	if err := w.short(m.ClassID); err != nil {
		return err
	}
	return w.short(m.MethodID)
}

func (m *ConnectionClose) read(r *byteReader) error {
	var err error
	if m.ReplyCode, err = r.short(); err != nil {
		return err
	}
	if m.ReplyText, err = r.shortstr(); err != nil {
		return err
	}
	if m.ClassID, err = r.short(); err != nil {
		return err
	}
	m.MethodID, err = r.short()
	return err
}

type ConnectionCloseOk struct{}

func (*ConnectionCloseOk) ClassID() uint16  { return ClassConnection }
func (*ConnectionCloseOk) MethodID() uint16 { return MethodConnectionCloseOk }

// --- channel class ------------------------------------------------------

type ChannelOpen struct{}

func (*ChannelOpen) ClassID() uint16  { return ClassChannel }
func (*ChannelOpen) MethodID() uint16 { return MethodChannelOpen }

func (m *ChannelOpen) write(w *byteWriter) error { return w.shortstr("") }

type ChannelOpenOk struct{}

func (*ChannelOpenOk) ClassID() uint16  { return ClassChannel }
func (*ChannelOpenOk) MethodID() uint16 { return MethodChannelOpenOk }

func (m *ChannelOpenOk) read(r *byteReader) error {
	_, err := r.longstr()
	return err
}

type ChannelFlow struct {
	Active bool
}

func (*ChannelFlow) ClassID() uint16  { return ClassChannel }
func (*ChannelFlow) MethodID() uint16 { return MethodChannelFlow }

func (m *ChannelFlow) read(r *byteReader) error {
	v, err := r.octet()
	m.Active = v != 0
	return err
}

func (m *ChannelFlow) write(w *byteWriter) error { return w.octet(bitOctet(m.Active)) }

type ChannelFlowOk struct {
	Active bool
}

func (*ChannelFlowOk) ClassID() uint16  { return ClassChannel }
func (*ChannelFlowOk) MethodID() uint16 { return MethodChannelFlowOk }

func (m *ChannelFlowOk) write(w *byteWriter) error { return w.octet(bitOctet(m.Active)) }

func (m *ChannelFlowOk) read(r *byteReader) error {
	v, err := r.octet()
	m.Active = v != 0
	return err
}

type ChannelClose struct {
	ReplyCode uint16
	ReplyText string
	ClassID   uint16
	MethodID  uint16
}

func (*ChannelClose) ClassID() uint16  { return ClassChannel }
func (*ChannelClose) MethodID() uint16 { return MethodChannelClose }

func (m *ChannelClose) write(w *byteWriter) error {
	if err := w.short(m.ReplyCode); err != nil {
		return err
	}
	if err := w.shortstr(m.ReplyText); err != nil {
		return err
	}
	if err := w.short(m.ClassID); err != nil {
		return err
	}
	return w.short(m.MethodID)
}

func (m *ChannelClose) read(r *byteReader) error {
	var err error
	if m.ReplyCode, err = r.short(); err != nil {
		return err
	}
	if m.ReplyText, err = r.shortstr(); err != nil {
		return err
	}
	if m.ClassID, err = r.short(); err != nil {
		return err
	}
	m.MethodID, err = r.short()
	return err
}

type ChannelCloseOk struct{}

func (*ChannelCloseOk) ClassID() uint16  { return ClassChannel }
func (*ChannelCloseOk) MethodID() uint16 { return MethodChannelCloseOk }

// --- exchange class -------------------------------------------------

type ExchangeDeclare struct {
	Exchange   string
	Type       string
	Passive    bool
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Arguments  Table
}

func (*ExchangeDeclare) ClassID() uint16  { return ClassExchange }
func (*ExchangeDeclare) MethodID() uint16 { return MethodExchangeDeclare }

func (m *ExchangeDeclare) write(w *byteWriter) error {
	if err := w.short(0); err != nil { // reserved: ticket
		return err
	}
	if err := w.shortstr(m.Exchange); err != nil {
		return err
	}
	if err := w.shortstr(m.Type); err != nil {
		return err
	}
	if err := w.octet(bitOctet(m.Passive, m.Durable, m.AutoDelete, m.Internal, m.NoWait)); err != nil {
		return err
	}
	return w.table(m.Arguments)
}

type ExchangeDeclareOk struct{}

func (*ExchangeDeclareOk) ClassID() uint16  { return ClassExchange }
func (*ExchangeDeclareOk) MethodID() uint16 { return MethodExchangeDeclareOk }

type ExchangeDelete struct {
	Exchange string
	IfUnused bool
	NoWait   bool
}

func (*ExchangeDelete) ClassID() uint16  { return ClassExchange }
func (*ExchangeDelete) MethodID() uint16 { return MethodExchangeDelete }

func (m *ExchangeDelete) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Exchange); err != nil {
		return err
	}
	return w.octet(bitOctet(m.IfUnused, m.NoWait))
}

type ExchangeDeleteOk struct{}

func (*ExchangeDeleteOk) ClassID() uint16  { return ClassExchange }
func (*ExchangeDeleteOk) MethodID() uint16 { return MethodExchangeDeleteOk }

// --- queue class ---------------------------------------------------

type QueueDeclare struct {
	Queue      string
	Passive    bool
	Durable    bool
	Exclusive  bool
	AutoDelete bool
	NoWait     bool
	Arguments  Table
}

func (*QueueDeclare) ClassID() uint16  { return ClassQueue }
func (*QueueDeclare) MethodID() uint16 { return MethodQueueDeclare }

func (m *QueueDeclare) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Queue); err != nil {
		return err
	}
	if err := w.octet(bitOctet(m.Passive, m.Durable, m.Exclusive, m.AutoDelete, m.NoWait)); err != nil {
		return err
	}
	return w.table(m.Arguments)
}

type QueueDeclareOk struct {
	Queue         string
	MessageCount  uint32
	ConsumerCount uint32
}

func (*QueueDeclareOk) ClassID() uint16  { return ClassQueue }
func (*QueueDeclareOk) MethodID() uint16 { return MethodQueueDeclareOk }

func (m *QueueDeclareOk) read(r *byteReader) error {
	var err error
	if m.Queue, err = r.shortstr(); err != nil {
		return err
	}
	if m.MessageCount, err = r.long(); err != nil {
		return err
	}
	m.ConsumerCount, err = r.long()
	return err
}

type QueueBind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	NoWait     bool
	Arguments  Table
}

func (*QueueBind) ClassID() uint16  { return ClassQueue }
func (*QueueBind) MethodID() uint16 { return MethodQueueBind }

func (m *QueueBind) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Queue); err != nil {
		return err
	}
	if err := w.shortstr(m.Exchange); err != nil {
		return err
	}
	if err := w.shortstr(m.RoutingKey); err != nil {
		return err
	}
	if err := w.octet(bitOctet(m.NoWait)); err != nil {
		return err
	}
	return w.table(m.Arguments)
}

type QueueBindOk struct{}

func (*QueueBindOk) ClassID() uint16  { return ClassQueue }
func (*QueueBindOk) MethodID() uint16 { return MethodQueueBindOk }

type QueueUnbind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Arguments  Table
}

func (*QueueUnbind) ClassID() uint16  { return ClassQueue }
func (*QueueUnbind) MethodID() uint16 { return MethodQueueUnbind }

func (m *QueueUnbind) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Queue); err != nil {
		return err
	}
	if err := w.shortstr(m.Exchange); err != nil {
		return err
	}
	if err := w.shortstr(m.RoutingKey); err != nil {
		return err
	}
	return w.table(m.Arguments)
}

type QueueUnbindOk struct{}

func (*QueueUnbindOk) ClassID() uint16  { return ClassQueue }
func (*QueueUnbindOk) MethodID() uint16 { return MethodQueueUnbindOk }

type QueuePurge struct {
	Queue  string
	NoWait bool
}

func (*QueuePurge) ClassID() uint16  { return ClassQueue }
func (*QueuePurge) MethodID() uint16 { return MethodQueuePurge }

func (m *QueuePurge) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Queue); err != nil {
		return err
	}
	return w.octet(bitOctet(m.NoWait))
}

type QueuePurgeOk struct {
	MessageCount uint32
}

func (*QueuePurgeOk) ClassID() uint16  { return ClassQueue }
func (*QueuePurgeOk) MethodID() uint16 { return MethodQueuePurgeOk }

func (m *QueuePurgeOk) read(r *byteReader) error {
	var err error
	m.MessageCount, err = r.long()
	return err
}

type QueueDelete struct {
	Queue    string
	IfUnused bool
	IfEmpty  bool
	NoWait   bool
}

func (*QueueDelete) ClassID() uint16  { return ClassQueue }
func (*QueueDelete) MethodID() uint16 { return MethodQueueDelete }

func (m *QueueDelete) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Queue); err != nil {
		return err
	}
	return w.octet(bitOctet(m.IfUnused, m.IfEmpty, m.NoWait))
}

type QueueDeleteOk struct {
	MessageCount uint32
}

func (*QueueDeleteOk) ClassID() uint16  { return ClassQueue }
func (*QueueDeleteOk) MethodID() uint16 { return MethodQueueDeleteOk }

func (m *QueueDeleteOk) read(r *byteReader) error {
	var err error
	m.MessageCount, err = r.long()
	return err
}

// --- basic class -----------------------------------------------------

type BasicQos struct {
	PrefetchSize  uint32
	PrefetchCount uint16
	Global        bool
}

func (*BasicQos) ClassID() uint16  { return ClassBasic }
func (*BasicQos) MethodID() uint16 { return MethodBasicQos }

func (m *BasicQos) write(w *byteWriter) error {
	if err := w.long(m.PrefetchSize); err != nil {
		return err
	}
	if err := w.short(m.PrefetchCount); err != nil {
		return err
	}
	return w.octet(bitOctet(m.Global))
}

type BasicQosOk struct{}

func (*BasicQosOk) ClassID() uint16  { return ClassBasic }
func (*BasicQosOk) MethodID() uint16 { return MethodBasicQosOk }

type BasicConsume struct {
	Queue       string
	ConsumerTag string
	NoLocal     bool
	NoAck       bool
	Exclusive   bool
	NoWait      bool
	Arguments   Table
}

func (*BasicConsume) ClassID() uint16  { return ClassBasic }
func (*BasicConsume) MethodID() uint16 { return MethodBasicConsume }

func (m *BasicConsume) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Queue); err != nil {
		return err
	}
	if err := w.shortstr(m.ConsumerTag); err != nil {
		return err
	}
	if err := w.octet(bitOctet(m.NoLocal, m.NoAck, m.Exclusive, m.NoWait)); err != nil {
		return err
	}
	return w.table(m.Arguments)
}

type BasicConsumeOk struct {
	ConsumerTag string
}

func (*BasicConsumeOk) ClassID() uint16  { return ClassBasic }
func (*BasicConsumeOk) MethodID() uint16 { return MethodBasicConsumeOk }

func (m *BasicConsumeOk) read(r *byteReader) error {
	var err error
	m.ConsumerTag, err = r.shortstr()
	return err
}

type BasicCancel struct {
	ConsumerTag string
	NoWait      bool
}

func (*BasicCancel) ClassID() uint16  { return ClassBasic }
func (*BasicCancel) MethodID() uint16 { return MethodBasicCancel }

func (m *BasicCancel) write(w *byteWriter) error {
	if err := w.shortstr(m.ConsumerTag); err != nil {
		return err
	}
	return w.octet(bitOctet(m.NoWait))
}

type BasicCancelOk struct {
	ConsumerTag string
}

func (*BasicCancelOk) ClassID() uint16  { return ClassBasic }
func (*BasicCancelOk) MethodID() uint16 { return MethodBasicCancelOk }

func (m *BasicCancelOk) read(r *byteReader) error {
	var err error
	m.ConsumerTag, err = r.shortstr()
	return err
}

func (m *BasicCancelOk) write(w *byteWriter) error {
	return w.shortstr(m.ConsumerTag)
}

type BasicPublish struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	Immediate  bool
}

func (*BasicPublish) ClassID() uint16  { return ClassBasic }
func (*BasicPublish) MethodID() uint16 { return MethodBasicPublish }

func (m *BasicPublish) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Exchange); err != nil {
		return err
	}
	if err := w.shortstr(m.RoutingKey); err != nil {
		return err
	}
	return w.octet(bitOctet(m.Mandatory, m.Immediate))
}

type BasicReturn struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
}

func (*BasicReturn) ClassID() uint16  { return ClassBasic }
func (*BasicReturn) MethodID() uint16 { return MethodBasicReturn }

func (m *BasicReturn) read(r *byteReader) error {
	var err error
	if m.ReplyCode, err = r.short(); err != nil {
		return err
	}
	if m.ReplyText, err = r.shortstr(); err != nil {
		return err
	}
	if m.Exchange, err = r.shortstr(); err != nil {
		return err
	}
	m.RoutingKey, err = r.shortstr()
	return err
}

type BasicDeliver struct {
	ConsumerTag string
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string
}

func (*BasicDeliver) ClassID() uint16  { return ClassBasic }
func (*BasicDeliver) MethodID() uint16 { return MethodBasicDeliver }

func (m *BasicDeliver) read(r *byteReader) error {
	var err error
	if m.ConsumerTag, err = r.shortstr(); err != nil {
		return err
	}
	if m.DeliveryTag, err = r.longlong(); err != nil {
		return err
	}
	redelivered, err := r.octet()
	if err != nil {
		return err
	}
	m.Redelivered = redelivered != 0
	if m.Exchange, err = r.shortstr(); err != nil {
		return err
	}
	m.RoutingKey, err = r.shortstr()
	return err
}

type BasicGet struct {
	Queue  string
	NoAck  bool
}

func (*BasicGet) ClassID() uint16  { return ClassBasic }
func (*BasicGet) MethodID() uint16 { return MethodBasicGet }

func (m *BasicGet) write(w *byteWriter) error {
	if err := w.short(0); err != nil {
		return err
	}
	if err := w.shortstr(m.Queue); err != nil {
		return err
	}
	return w.octet(bitOctet(m.NoAck))
}

type BasicGetOk struct {
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
}

func (*BasicGetOk) ClassID() uint16  { return ClassBasic }
func (*BasicGetOk) MethodID() uint16 { return MethodBasicGetOk }

func (m *BasicGetOk) read(r *byteReader) error {
	var err error
	if m.DeliveryTag, err = r.longlong(); err != nil {
		return err
	}
	redelivered, err := r.octet()
	if err != nil {
		return err
	}
	m.Redelivered = redelivered != 0
	if m.Exchange, err = r.shortstr(); err != nil {
		return err
	}
	if m.RoutingKey, err = r.shortstr(); err != nil {
		return err
	}
	m.MessageCount, err = r.long()
	return err
}

type BasicGetEmpty struct{}

func (*BasicGetEmpty) ClassID() uint16  { return ClassBasic }
func (*BasicGetEmpty) MethodID() uint16 { return MethodBasicGetEmpty }

func (m *BasicGetEmpty) read(r *byteReader) error {
	_, err := r.shortstr() // reserved
	return err
}

type BasicAck struct {
	DeliveryTag uint64
	Multiple    bool
}

func (*BasicAck) ClassID() uint16  { return ClassBasic }
func (*BasicAck) MethodID() uint16 { return MethodBasicAck }

func (m *BasicAck) write(w *byteWriter) error {
	if err := w.longlong(m.DeliveryTag); err != nil {
		return err
	}
	return w.octet(bitOctet(m.Multiple))
}

func (m *BasicAck) read(r *byteReader) error {
	var err error
	if m.DeliveryTag, err = r.longlong(); err != nil {
		return err
	}
	multiple, err := r.octet()
	m.Multiple = multiple != 0
	return err
}

type BasicReject struct {
	DeliveryTag uint64
	Requeue     bool
}

func (*BasicReject) ClassID() uint16  { return ClassBasic }
func (*BasicReject) MethodID() uint16 { return MethodBasicReject }

func (m *BasicReject) write(w *byteWriter) error {
	if err := w.longlong(m.DeliveryTag); err != nil {
		return err
	}
	return w.octet(bitOctet(m.Requeue))
}

type BasicNack struct {
	DeliveryTag uint64
	Multiple    bool
	Requeue     bool
}

func (*BasicNack) ClassID() uint16  { return ClassBasic }
func (*BasicNack) MethodID() uint16 { return MethodBasicNack }

func (m *BasicNack) write(w *byteWriter) error {
	if err := w.longlong(m.DeliveryTag); err != nil {
		return err
	}
	return w.octet(bitOctet(m.Multiple, m.Requeue))
}

func (m *BasicNack) read(r *byteReader) error {
	var err error
	if m.DeliveryTag, err = r.longlong(); err != nil {
		return err
	}
	flags, err := r.octet()
	if err != nil {
		return err
	}
	bits := unpackBits(flags, 2)
	m.Multiple, m.Requeue = bits[0], bits[1]
	return nil
}

type BasicRecover struct {
	Requeue bool
}

func (*BasicRecover) ClassID() uint16  { return ClassBasic }
func (*BasicRecover) MethodID() uint16 { return MethodBasicRecover }

func (m *BasicRecover) write(w *byteWriter) error { return w.octet(bitOctet(m.Requeue)) }

type BasicRecoverOk struct{}

func (*BasicRecoverOk) ClassID() uint16  { return ClassBasic }
func (*BasicRecoverOk) MethodID() uint16 { return MethodBasicRecoverOk }

// --- confirm class ----------------------------------------------------

type ConfirmSelect struct {
	NoWait bool
}

func (*ConfirmSelect) ClassID() uint16  { return ClassConfirm }
func (*ConfirmSelect) MethodID() uint16 { return MethodConfirmSelect }

func (m *ConfirmSelect) write(w *byteWriter) error { return w.octet(bitOctet(m.NoWait)) }

type ConfirmSelectOk struct{}

func (*ConfirmSelectOk) ClassID() uint16  { return ClassConfirm }
func (*ConfirmSelectOk) MethodID() uint16 { return MethodConfirmSelectOk }
