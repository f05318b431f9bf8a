package wire

import "testing"

func TestContentHeaderRoundTrip(t *testing.T) {
	props := Properties{
		ContentType:   "application/json",
		CorrelationID: "abc-123",
		Headers:       Table{"x-retry": int32(2)},
	}
	props.SetDeliveryMode(2)
	props.SetPriority(5)

	h := &ContentHeader{ClassID: ClassBasic, BodySize: 128, Properties: props}

	payload, err := EncodeContentHeader(h)
	if err != nil {
		t.Fatalf("EncodeContentHeader: %v", err)
	}

	got, err := DecodeContentHeader(payload)
	if err != nil {
		t.Fatalf("DecodeContentHeader: %v", err)
	}

	if got.BodySize != 128 {
		t.Fatalf("BodySize = %d, want 128", got.BodySize)
	}
	if got.Properties.ContentType != "application/json" {
		t.Fatalf("ContentType = %q", got.Properties.ContentType)
	}
	if got.Properties.DeliveryMode != 2 {
		t.Fatalf("DeliveryMode = %d, want 2", got.Properties.DeliveryMode)
	}
	if got.Properties.Priority != 5 {
		t.Fatalf("Priority = %d, want 5", got.Properties.Priority)
	}
	if got.Properties.Headers["x-retry"] != int32(2) {
		t.Fatalf("Headers[x-retry] = %#v", got.Properties.Headers["x-retry"])
	}
}

func TestContentHeaderOmitsUnsetProperties(t *testing.T) {
	h := &ContentHeader{ClassID: ClassBasic, BodySize: 0, Properties: Properties{}}
	payload, err := EncodeContentHeader(h)
	if err != nil {
		t.Fatalf("EncodeContentHeader: %v", err)
	}
	got, err := DecodeContentHeader(payload)
	if err != nil {
		t.Fatalf("DecodeContentHeader: %v", err)
	}
	if got.Properties.ContentType != "" || got.Properties.Headers != nil {
		t.Fatalf("expected zero-value properties, got %+v", got.Properties)
	}
}
