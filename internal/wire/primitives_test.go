package wire

import (
	"bytes"
	"testing"
	"time"
)

func TestTableRoundTrip(t *testing.T) {
	in := Table{
		"str":   "hello",
		"bool":  true,
		"int32": int32(42),
		"int64": int64(-7),
		"float": float64(3.5),
		"nested": Table{
			"inner": "value",
		},
	}

	var buf countingBuffer
	w := newByteWriter(&buf)
	if err := w.table(in); err != nil {
		t.Fatalf("write table: %v", err)
	}

	r := newByteReader(bytes.NewReader(buf.Bytes()))
	out, err := r.table()
	if err != nil {
		t.Fatalf("read table: %v", err)
	}

	if out["str"] != "hello" || out["bool"] != true || out["int32"] != int32(42) {
		t.Fatalf("table round trip mismatch: %#v", out)
	}
	nested, ok := out["nested"].(Table)
	if !ok || nested["inner"] != "value" {
		t.Fatalf("nested table round trip mismatch: %#v", out["nested"])
	}
}

func TestShortStringLimitEnforced(t *testing.T) {
	var buf countingBuffer
	w := newByteWriter(&buf)
	long := make([]byte, ShortStringLimit+1)
	if err := w.shortstr(string(long)); err == nil {
		t.Fatal("expected an error for a short string over the 255-byte limit")
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	var buf countingBuffer
	w := newByteWriter(&buf)
	ts := time.Unix(1700000000, 0).UTC()
	if err := w.timestamp(ts); err != nil {
		t.Fatalf("write timestamp: %v", err)
	}
	r := newByteReader(bytes.NewReader(buf.Bytes()))
	got, err := r.timestamp()
	if err != nil {
		t.Fatalf("read timestamp: %v", err)
	}
	if !got.Equal(ts) {
		t.Fatalf("timestamp round trip mismatch: got %v, want %v", got, ts)
	}
}
