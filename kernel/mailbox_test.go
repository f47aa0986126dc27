package kernel

import "testing"

func TestMailboxTryRecvEmpty(t *testing.T) {
	k, _ := newTestKernel(t, DefaultConfig())
	mb := k.NewMailbox(4)

	if _, ok := mb.TryRecv(); ok {
		t.Fatalf("TryRecv() ok = true, want false")
	}
}

func TestMailboxTrySendFull(t *testing.T) {
	k, _ := newTestKernel(t, DefaultConfig())
	mb := k.NewMailbox(0)

	for i := 0; i < DefaultMailboxSlots; i++ {
		var msg Message
		msg.Kind = uint8(i)
		if ok := mb.TrySend(msg); !ok {
			t.Fatalf("TrySend() ok = false at slot %d, want true", i)
		}
	}
	if ok := mb.TrySend(Message{}); ok {
		t.Fatalf("TrySend() ok = true when full, want false")
	}
	if got := mb.Len(); got != DefaultMailboxSlots {
		t.Fatalf("Len() = %d, want %d", got, DefaultMailboxSlots)
	}

	for i := 0; i < DefaultMailboxSlots; i++ {
		msg, ok := mb.TryRecv()
		if !ok {
			t.Fatalf("TryRecv() ok = false at slot %d, want true", i)
		}
		if msg.Kind != uint8(i) {
			t.Fatalf("TryRecv() kind = %d, want %d", msg.Kind, i)
		}
	}
}

func TestMailboxStampsSender(t *testing.T) {
	k, p := newTestKernel(t, DefaultConfig())
	mb := k.NewMailbox(2)
	id := mustCreate(t, k, 1)
	trap(t, k, p)

	var msg Message
	msg.From = 99
	msg.SetPayload([]byte("hello"))
	if !mb.Send(msg) {
		t.Fatal("Send() = false")
	}

	got, ok := mb.Recv()
	if !ok {
		t.Fatal("Recv() ok = false")
	}
	if got.From != id {
		t.Fatalf("From = %d, want %d", got.From, id)
	}
	if string(got.Payload()) != "hello" {
		t.Fatalf("Payload() = %q, want %q", got.Payload(), "hello")
	}
}

func TestMailboxRecvBlocksUntilSend(t *testing.T) {
	k, p := newTestKernel(t, DefaultConfig())
	mb := k.NewMailbox(2)
	rx := mustCreate(t, k, 3)
	trap(t, k, p)

	mb.Recv()
	expectState(t, k, rx, Waiting)

	trap(t, k, p)
	if ok := mb.TrySend(Message{Kind: 7}); !ok {
		t.Fatal("TrySend() ok = false")
	}
	expectState(t, k, rx, Ready)
}

func TestMailboxIdleDoesNotBlock(t *testing.T) {
	k, _ := newTestKernel(t, DefaultConfig())
	mb := k.NewMailbox(1)

	var ok bool
	fi, faulted := catchFault(t, func() { _, ok = mb.Recv() })
	if ok {
		t.Fatal("Recv() ok = true on an empty mailbox from idle")
	}
	if !faulted || fi.Kind != FaultIdleBlocked {
		t.Fatalf("fault = %+v (faulted=%v), want FaultIdleBlocked", fi, faulted)
	}

	if !mb.TrySend(Message{Kind: 1}) {
		t.Fatal("TrySend() = false on an empty mailbox")
	}
	fi, faulted = catchFault(t, func() { ok = mb.Send(Message{Kind: 2}) })
	if ok {
		t.Fatal("Send() = true on a full mailbox from idle")
	}
	if !faulted || fi.Kind != FaultIdleBlocked {
		t.Fatalf("fault = %+v (faulted=%v), want FaultIdleBlocked", fi, faulted)
	}
	if got := mb.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	expectState(t, k, IdleTask, Running)
}

func TestMessagePayloadTruncates(t *testing.T) {
	var msg Message
	msg.SetPayload(make([]byte, MaxMessageBytes+10))
	if int(msg.Len) != MaxMessageBytes {
		t.Fatalf("Len = %d, want %d", msg.Len, MaxMessageBytes)
	}
}
