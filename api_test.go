package amqp

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateShortStringLimit(t *testing.T) {
	ok := strings.Repeat("a", 255)
	if err := validateShortString("field", ok); err != nil {
		t.Fatalf("255-byte string should be valid: %v", err)
	}
	tooLong := strings.Repeat("a", 256)
	if err := validateShortString("field", tooLong); err == nil {
		t.Fatal("256-byte string should exceed the short-string limit")
	}
}

func TestValidatePublishingDeliveryModeRange(t *testing.T) {
	msg := Publishing{}
	msg.hasDeliveryMode = true
	msg.DeliveryMode = 3
	err := validatePublishing(msg)
	if err == nil {
		t.Fatal("delivery_mode 3 should be rejected")
	}
	var rangeErr *ValueOutOfRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected a ValueOutOfRangeError, got %T", err)
	}
}

func TestValidatePublishingPriorityRange(t *testing.T) {
	msg := Publishing{}
	msg.hasPriority = true
	msg.Priority = 10
	if err := validatePublishing(msg); err == nil {
		t.Fatal("priority 10 should be rejected (max is 9)")
	}
}

func TestValidatePublishingAcceptsEmpty(t *testing.T) {
	if err := validatePublishing(Publishing{}); err != nil {
		t.Fatalf("an empty Publishing should be valid: %v", err)
	}
}

func TestValidatePublishingRejectsOversizeShortString(t *testing.T) {
	msg := Publishing{ContentType: strings.Repeat("x", 300)}
	if err := validatePublishing(msg); err == nil {
		t.Fatal("an oversize content_type should be rejected")
	}
}

func TestQosRejectsNonzeroPrefetchSizeLocally(t *testing.T) {
	ch := &Channel{}
	if err := ch.Qos(1, 0, false); !errors.Is(err, ErrNotImplementedOnServer) {
		t.Fatalf("got %v, want ErrNotImplementedOnServer", err)
	}
}

func TestRecoverRejectsNoRequeueLocally(t *testing.T) {
	ch := &Channel{}
	if err := ch.Recover(false); !errors.Is(err, ErrNotImplementedOnServer) {
		t.Fatalf("got %v, want ErrNotImplementedOnServer", err)
	}
}

func TestConsumeRequiresCallback(t *testing.T) {
	ch := &Channel{conn: &Connection{state: ConnectionOpen}}
	if _, err := ch.Consume("q", ConsumeOptions{}, nil); err == nil {
		t.Fatal("Consume with a nil callback should fail")
	}
}
