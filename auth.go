package amqp

import "strings"

// Authentication is a SASL mechanism the client can offer during
// Connection.StartOk, mirroring the teacher library's Authentication
// interface so credential handling stays swappable without touching
// the handshake state machine.
type Authentication interface {
	Mechanism() string
	Response() string
}

// PlainAuth implements the SASL PLAIN mechanism (AMQP 0-9-1 §2.8.1).
type PlainAuth struct {
	Username string
	Password string
}

func (a *PlainAuth) Mechanism() string { return "PLAIN" }

func (a *PlainAuth) Response() string {
	return "\x00" + a.Username + "\x00" + a.Password
}

// AMQPlainAuth implements RabbitMQ's AMQPLAIN mechanism: a field
// table with LOGIN and PASSWORD longstr entries, flattened into the
// SASL response bytes rather than sent as a Table argument.
type AMQPlainAuth struct {
	Username string
	Password string
}

func (a *AMQPlainAuth) Mechanism() string { return "AMQPLAIN" }

func (a *AMQPlainAuth) Response() string {
	var b strings.Builder
	writeAMQPlainField(&b, "LOGIN", a.Username)
	writeAMQPlainField(&b, "PASSWORD", a.Password)
	return b.String()
}

func writeAMQPlainField(b *strings.Builder, key, value string) {
	b.WriteByte(byte(len(key)))
	b.WriteString(key)
	b.WriteByte('S')
	var lenBuf [4]byte
	l := uint32(len(value))
	lenBuf[0] = byte(l >> 24)
	lenBuf[1] = byte(l >> 16)
	lenBuf[2] = byte(l >> 8)
	lenBuf[3] = byte(l)
	b.Write(lenBuf[:])
	b.WriteString(value)
}

// pickSASLMechanism selects the first of offered mechanisms (in
// preference order) that the server advertises.
func pickSASLMechanism(offered []Authentication, serverMechanisms string) (Authentication, bool) {
	supported := make(map[string]bool)
	for _, m := range strings.Fields(serverMechanisms) {
		supported[m] = true
	}
	for _, a := range offered {
		if supported[a.Mechanism()] {
			return a, true
		}
	}
	return nil, false
}
