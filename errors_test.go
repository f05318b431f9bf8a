package amqp

import (
	"errors"
	"testing"
)

func TestAMQPErrorIsMatchesNamedReplyCode(t *testing.T) {
	err := newChannelError(404, "no queue 'missing' in vhost '/'", 50, 10)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(err, ErrNotFound) to match a 404 AMQPError")
	}
	if errors.Is(err, ErrAccessRefused) {
		t.Fatal("a 404 error should not match ErrAccessRefused")
	}
}

func TestAMQPErrorScopeDistinguishesChannelFromConnection(t *testing.T) {
	soft := newChannelError(406, "precondition failed", 50, 10)
	hard := newConnectionError(320, "forced", 10, 50)
	if soft.Scope != ScopeChannel {
		t.Fatalf("newChannelError should produce ScopeChannel, got %v", soft.Scope)
	}
	if hard.Scope != ScopeConnection {
		t.Fatalf("newConnectionError should produce ScopeConnection, got %v", hard.Scope)
	}
	if !errors.Is(hard, ErrConnectionForced) {
		t.Fatal("expected errors.Is(hard, ErrConnectionForced) to match")
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrNotConnected, ErrConnectionLost) {
		t.Fatal("ErrNotConnected and ErrConnectionLost must not alias each other")
	}
}
