package amqp

import "testing"

func newConfirmingTestChannel() *Channel {
	ch := newTestChannel()
	ch.confirmMode = true
	ch.pendingConfirms = make(map[uint64]chan bool)
	return ch
}

func registerConfirm(ch *Channel, seq uint64) chan bool {
	sink := make(chan bool, 1)
	ch.pendingConfirms[seq] = sink
	ch.confirmSeq = append(ch.confirmSeq, seq)
	return sink
}

func TestResolveConfirmsSingle(t *testing.T) {
	ch := newConfirmingTestChannel()
	sink := registerConfirm(ch, 1)

	ch.resolveConfirms(1, false, true)

	select {
	case ack := <-sink:
		if !ack {
			t.Fatal("expected an ack, got nack")
		}
	default:
		t.Fatal("expected the confirm sink to resolve")
	}
	if len(ch.pendingConfirms) != 0 {
		t.Fatalf("pendingConfirms should be empty after resolution, got %d entries", len(ch.pendingConfirms))
	}
}

func TestResolveConfirmsMultipleResolvesAllPriorSequences(t *testing.T) {
	ch := newConfirmingTestChannel()
	s1 := registerConfirm(ch, 1)
	s2 := registerConfirm(ch, 2)
	s3 := registerConfirm(ch, 3)

	ch.resolveConfirms(2, true, true)

	for i, s := range []chan bool{s1, s2} {
		select {
		case ack := <-s:
			if !ack {
				t.Fatalf("sequence %d: expected ack", i+1)
			}
		default:
			t.Fatalf("sequence %d should have resolved via Multiple", i+1)
		}
	}
	select {
	case <-s3:
		t.Fatal("sequence 3 should not resolve yet; it is beyond the acked deliveryTag")
	default:
	}
	if len(ch.pendingConfirms) != 1 {
		t.Fatalf("expected 1 remaining pending confirm, got %d", len(ch.pendingConfirms))
	}
	if len(ch.confirmSeq) != 1 || ch.confirmSeq[0] != 3 {
		t.Fatalf("confirmSeq = %v, want [3]", ch.confirmSeq)
	}
}

func TestResolveConfirmsNack(t *testing.T) {
	ch := newConfirmingTestChannel()
	sink := registerConfirm(ch, 1)

	ch.resolveConfirms(1, false, false)

	select {
	case ack := <-sink:
		if ack {
			t.Fatal("expected a nack, got ack")
		}
	default:
		t.Fatal("expected the confirm sink to resolve")
	}
}

func TestConfirmSelectTwiceFailsLocally(t *testing.T) {
	ch := newConfirmingTestChannel()
	if err := ch.ConfirmSelect(); err == nil {
		t.Fatal("calling ConfirmSelect while already in confirm mode should fail locally")
	}
}
