package wire

import "testing"

func TestEncodeDecodeMethodRoundTrip(t *testing.T) {
	cases := []Method{
		&ConnectionStartOk{ClientProperties: Table{"product": "test"}, Mechanism: "PLAIN", Response: "\x00u\x00p", Locale: "en_US"},
		&QueueDeclare{Queue: "orders", Durable: true, Arguments: Table{"x-max-length": int32(10)}},
		&BasicPublish{Exchange: "ex", RoutingKey: "rk", Mandatory: true},
		&BasicAck{DeliveryTag: 42, Multiple: true},
		&ChannelClose{ReplyCode: 404, ReplyText: "not found", ClassID: ClassQueue, MethodID: MethodQueueDeclare},
	}

	for _, want := range cases {
		payload, err := EncodeMethod(want)
		if err != nil {
			t.Fatalf("EncodeMethod(%T): %v", want, err)
		}
		got, err := DecodeMethod(payload)
		if err != nil {
			t.Fatalf("DecodeMethod(%T): %v", want, err)
		}
		if got.ClassID() != want.ClassID() || got.MethodID() != want.MethodID() {
			t.Fatalf("%T: class/method id mismatch", want)
		}
	}
}

func TestDecodeMethodUnknownReturnsError(t *testing.T) {
	// class 999 / method 999 doesn't exist in any table.
	payload := []byte{0x03, 0xe7, 0x03, 0xe7}
	if _, err := DecodeMethod(payload); err == nil {
		t.Fatal("expected an error decoding an unknown class/method pair")
	}
}

func TestBasicNackBitpacking(t *testing.T) {
	want := &BasicNack{DeliveryTag: 5, Multiple: true, Requeue: false}
	payload, err := EncodeMethod(want)
	if err != nil {
		t.Fatalf("EncodeMethod: %v", err)
	}
	got, err := DecodeMethod(payload)
	if err != nil {
		t.Fatalf("DecodeMethod: %v", err)
	}
	nack := got.(*BasicNack)
	if nack.DeliveryTag != 5 || !nack.Multiple || nack.Requeue {
		t.Fatalf("BasicNack round trip mismatch: %+v", nack)
	}
}
