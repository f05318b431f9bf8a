package amqp

import "fmt"

// Reply codes from the AMQP 0-9-1 spec that this engine gives a typed,
// matchable identity (§7 of the design spec). Codes not listed here
// still surface as *AMQPError, just without a named sentinel to match.
const (
	replyNotFound            = 404
	replyAccessRefused       = 403
	replyResourceLocked      = 405
	replyPreconditionFailed  = 406
	replyCommandInvalid      = 503
	replyConnectionForced    = 320
	replyInternalError       = 541
)

// InvalidArgumentError reports a local validation failure: wrong type,
// missing required field, or a malformed short string. Raised before
// any frame is queued.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string { return "invalid argument: " + e.Msg }

func invalidArgf(format string, args ...any) error {
	return &InvalidArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// ValueOutOfRangeError reports an otherwise well-typed value outside
// its legal range (delivery_mode, priority).
type ValueOutOfRangeError struct {
	Msg string
}

func (e *ValueOutOfRangeError) Error() string { return "value out of range: " + e.Msg }

func valueErrf(format string, args ...any) error {
	return &ValueOutOfRangeError{Msg: fmt.Sprintf(format, args...)}
}

// StateError reports API misuse given the engine's current state:
// confirm.select issued twice, a second synchronous call while one is
// already in flight, publishing past a Channel.Flow stop.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return "invalid state: " + e.Msg }

func stateErrf(format string, args ...any) error {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

// Sentinel errors matched with errors.Is.
var (
	// ErrNotConnected is returned by the exchange and queue methods,
	// Qos, Recover, Consume, Cancel and Get when the connection is not
	// in the OPEN state. Publish, ConfirmSelect, Ack, Nack, Reject and
	// Channel.Close do not check the connection state; their frame
	// write on a closed connection fails with ErrConnectionLost.
	ErrNotConnected = fmt.Errorf("amqp: not connected")

	// ErrConnectionLost is raised when the heartbeat monitor declares
	// the peer dead, or a transport read/write fails outside of a
	// graceful close.
	ErrConnectionLost = fmt.Errorf("amqp: connection lost")

	// ErrProtocol reports a malformed or out-of-sequence frame
	// (interleaved content frames, unexpected method, bad frame-end
	// octet). The channel is recycled when this occurs mid-channel;
	// the connection is torn down when it occurs on channel 0.
	ErrProtocol = fmt.Errorf("amqp: protocol error")

	// ErrNotImplementedOnServer is raised for requests the broker is
	// known not to support: nonzero basic.qos prefetch-size,
	// basic.recover(requeue=false).
	ErrNotImplementedOnServer = fmt.Errorf("amqp: not implemented on server")

	// ErrFlowStopped is a *StateError returned by Publish while the
	// broker has paused the channel with Channel.Flow. Other channel
	// methods (Ack, Nack, Reject and the synchronous calls) do not
	// check the flow state.
	ErrFlowStopped error = &StateError{Msg: "channel flow stopped by broker"}
)

// AMQPError is a channel- or connection-level close carrying the
// broker's reply code and text, mirroring Connection.Close /
// Channel.Close. Soft errors (channel-level) and hard errors
// (connection-level) share this type; Scope distinguishes them.
type AMQPError struct {
	Code   uint16
	Text   string
	Class  uint16
	Method uint16
	Scope  ErrorScope
}

// ErrorScope distinguishes a channel-level soft error from a
// connection-level hard error.
type ErrorScope int

const (
	ScopeChannel ErrorScope = iota
	ScopeConnection
)

func (e *AMQPError) Error() string {
	scope := "channel"
	if e.Scope == ScopeConnection {
		scope = "connection"
	}
	return fmt.Sprintf("amqp %s error %d: %s (class=%d method=%d)",
		scope, e.Code, e.Text, e.Class, e.Method)
}

// Is lets callers match a specific named reply code with errors.Is,
// e.g. errors.Is(err, amqp.ErrNotFound).
func (e *AMQPError) Is(target error) bool {
	named, ok := target.(*namedAMQPError)
	if !ok {
		return false
	}
	return e.Code == named.code
}

type namedAMQPError struct {
	code uint16
	name string
}

func (e *namedAMQPError) Error() string { return e.name }

// Named channel-level (soft) and connection-level (hard) errors for
// use with errors.Is against a returned *AMQPError.
var (
	ErrNotFound           = &namedAMQPError{code: replyNotFound, name: "amqp: not found"}
	ErrAccessRefused      = &namedAMQPError{code: replyAccessRefused, name: "amqp: access refused"}
	ErrResourceLocked     = &namedAMQPError{code: replyResourceLocked, name: "amqp: resource locked"}
	ErrPreconditionFailed = &namedAMQPError{code: replyPreconditionFailed, name: "amqp: precondition failed"}
	ErrCommandInvalid     = &namedAMQPError{code: replyCommandInvalid, name: "amqp: command invalid"}
	ErrConnectionForced   = &namedAMQPError{code: replyConnectionForced, name: "amqp: connection forced"}
	ErrInternalError      = &namedAMQPError{code: replyInternalError, name: "amqp: internal error"}
)

func newChannelError(code uint16, text string, class, method uint16) *AMQPError {
	return &AMQPError{Code: code, Text: text, Class: class, Method: method, Scope: ScopeChannel}
}

func newConnectionError(code uint16, text string, class, method uint16) *AMQPError {
	return &AMQPError{Code: code, Text: text, Class: class, Method: method, Scope: ScopeConnection}
}
