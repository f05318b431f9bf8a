package wire

import (
	"bufio"
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	f := &RawFrame{Type: FrameMethod, Channel: 7, Payload: []byte{1, 2, 3, 4}}
	if err := WriteFrame(w, f); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got, err := ReadFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Type != f.Type || got.Channel != f.Channel || !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
}

func TestReadFrameBadFrameEnd(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	WriteFrame(w, &RawFrame{Type: FrameMethod, Channel: 0, Payload: nil})
	w.Flush()

	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] = 0x00 // stomp the frame-end octet

	_, err := ReadFrame(bufio.NewReader(bytes.NewReader(corrupt)))
	if err == nil {
		t.Fatal("expected an error for a bad frame-end octet")
	}
}

func TestMaxPayload(t *testing.T) {
	if got := MaxPayload(4096); got != 4096-frameOverhead {
		t.Fatalf("MaxPayload(4096) = %d, want %d", got, 4096-frameOverhead)
	}
	if got := MaxPayload(0); got <= 0 {
		t.Fatalf("MaxPayload(0) should mean unbounded, got %d", got)
	}
	if got := MaxPayload(4); got != 0 {
		t.Fatalf("MaxPayload below overhead should be 0, got %d", got)
	}
}
