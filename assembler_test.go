package amqp

import (
	"testing"
	"time"

	"github.com/flowbroker/amqp/internal/wire"
)

func newTestChannel() *Channel {
	ch := &Channel{
		conn: &Connection{
			params: ConnectionParameters{Logger: NoopLogger{}, Metrics: NoopMetrics{}},
		},
		consumers: make(map[string]*consumerDispatcher),
		getWaiter: make(chan *Delivery, 1),
	}
	ch.assembler = newAssembler(ch)
	return ch
}

func encodeHeader(t *testing.T, bodySize uint64, props wire.Properties) []byte {
	t.Helper()
	payload, err := wire.EncodeContentHeader(&wire.ContentHeader{
		ClassID: wire.ClassBasic, BodySize: bodySize, Properties: props,
	})
	if err != nil {
		t.Fatalf("EncodeContentHeader: %v", err)
	}
	return payload
}

func TestAssemblerDeliverRoundTrip(t *testing.T) {
	ch := newTestChannel()

	received := make(chan Delivery, 1)
	ch.consumers["tag-1"] = newConsumerDispatcher("tag-1", func(d Delivery) {
		received <- d
	}, NoopLogger{})
	defer ch.consumers["tag-1"].stop()

	ch.assembler.startDeliver(&wire.BasicDeliver{
		ConsumerTag: "tag-1", DeliveryTag: 7, Exchange: "ex", RoutingKey: "rk",
	})

	body := []byte("hello world")
	var props wire.Properties
	props.SetDeliveryMode(2)
	if err := ch.assembler.onHeader(encodeHeader(t, uint64(len(body)), props)); err != nil {
		t.Fatalf("onHeader: %v", err)
	}
	if err := ch.assembler.onBody(body[:5]); err != nil {
		t.Fatalf("onBody (partial): %v", err)
	}
	if err := ch.assembler.onBody(body[5:]); err != nil {
		t.Fatalf("onBody (remainder): %v", err)
	}

	select {
	case d := <-received:
		if string(d.Body) != string(body) {
			t.Fatalf("body = %q, want %q", d.Body, body)
		}
		if d.DeliveryTag != 7 || d.Exchange != "ex" || d.RoutingKey != "rk" {
			t.Fatalf("delivery metadata mismatch: %+v", d)
		}
		if d.DeliveryMode != 2 {
			t.Fatalf("DeliveryMode = %d, want 2", d.DeliveryMode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the assembled delivery")
	}
}

func TestAssemblerZeroLengthBodyCompletesOnHeader(t *testing.T) {
	ch := newTestChannel()
	ch.assembler.startGet(&wire.BasicGetOk{DeliveryTag: 1, Exchange: "ex", RoutingKey: "rk"})

	if err := ch.assembler.onHeader(encodeHeader(t, 0, wire.Properties{})); err != nil {
		t.Fatalf("onHeader: %v", err)
	}

	select {
	case d := <-ch.getWaiter:
		if d == nil || len(d.Body) != 0 {
			t.Fatalf("expected a zero-length delivery, got %+v", d)
		}
	default:
		t.Fatal("expected the zero-length get to complete immediately on the header frame")
	}
}

func TestAssemblerRejectsHeaderWithNoPendingDelivery(t *testing.T) {
	ch := newTestChannel()
	if err := ch.assembler.onHeader(encodeHeader(t, 0, wire.Properties{})); err == nil {
		t.Fatal("a content header with no preceding Deliver/Return/GetOk should be rejected")
	}
}

func TestAssemblerRejectsDuplicateHeader(t *testing.T) {
	ch := newTestChannel()
	ch.assembler.startDeliver(&wire.BasicDeliver{ConsumerTag: "t", DeliveryTag: 1})
	if err := ch.assembler.onHeader(encodeHeader(t, 5, wire.Properties{})); err != nil {
		t.Fatalf("first onHeader: %v", err)
	}
	if err := ch.assembler.onHeader(encodeHeader(t, 5, wire.Properties{})); err == nil {
		t.Fatal("a second content header before the body completes should be rejected")
	}
}

func TestAssemblerRejectsBodyOverflow(t *testing.T) {
	ch := newTestChannel()
	ch.assembler.startDeliver(&wire.BasicDeliver{ConsumerTag: "t", DeliveryTag: 1})
	if err := ch.assembler.onHeader(encodeHeader(t, 3, wire.Properties{})); err != nil {
		t.Fatalf("onHeader: %v", err)
	}
	if err := ch.assembler.onBody([]byte("toolong")); err == nil {
		t.Fatal("a body exceeding the declared body-size should be rejected")
	}
}

func TestAssemblerReturnDispatchesToCallback(t *testing.T) {
	ch := newTestChannel()
	gotReturn := make(chan Delivery, 1)
	ch.returnCallback = func(d Delivery) { gotReturn <- d }

	ch.assembler.startReturn(&wire.BasicReturn{ReplyCode: 312, ReplyText: "no route", Exchange: "ex", RoutingKey: "rk"})
	if err := ch.assembler.onHeader(encodeHeader(t, 0, wire.Properties{})); err != nil {
		t.Fatalf("onHeader: %v", err)
	}

	select {
	case d := <-gotReturn:
		if d.Exchange != "ex" || d.RoutingKey != "rk" {
			t.Fatalf("returned delivery mismatch: %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the return callback")
	}
}
