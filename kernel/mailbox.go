package kernel

// MaxMessageBytes is the payload capacity of one Message.
const MaxMessageBytes = 32

// DefaultMailboxSlots is the queue depth used when NewMailbox is given zero.
const DefaultMailboxSlots = 8

// Message is a fixed-size message envelope. It is copied in and out of a
// mailbox by value.
type Message struct {
	From TaskID
	Kind uint8
	Len  uint8
	Data [MaxMessageBytes]byte
}

// SetPayload copies p into the message, truncating at MaxMessageBytes.
func (m *Message) SetPayload(p []byte) {
	if len(p) > MaxMessageBytes {
		p = p[:MaxMessageBytes]
	}
	m.Len = uint8(copy(m.Data[:], p))
}

// Payload returns the valid part of Data.
func (m *Message) Payload() []byte {
	return m.Data[:m.Len]
}

// Mailbox is a bounded FIFO of messages. Send parks the caller while the
// mailbox is full and Recv parks it while the mailbox is empty.
type Mailbox struct {
	_     [0]func() // prevent accidental copying.
	k     *Kernel
	free  Semaphore
	full  Semaphore
	head  uint32
	tail  uint32
	slots []Message
}

// NewMailbox returns an empty mailbox holding up to slots messages.
func (k *Kernel) NewMailbox(slots int) *Mailbox {
	if slots <= 0 {
		slots = DefaultMailboxSlots
	}
	mb := &Mailbox{k: k, slots: make([]Message, slots)}
	k.InitSemaphore(&mb.free, int32(slots))
	k.InitSemaphore(&mb.full, 0)
	return mb
}

// Send enqueues msg, blocking until a slot is free. From is set to the
// running task. It reports false only when the idle task sends to a full
// mailbox: idle may not block, so the message is dropped.
func (mb *Mailbox) Send(msg Message) bool {
	if !mb.free.acquire() {
		return false
	}
	if !mb.put(msg) {
		return false
	}
	mb.full.Signal()
	return true
}

// TrySend enqueues msg if a slot is free. It may be called from interrupt
// context.
func (mb *Mailbox) TrySend(msg Message) bool {
	if !mb.free.TryWait() {
		return false
	}
	if !mb.put(msg) {
		return false
	}
	mb.full.Signal()
	return true
}

// Recv dequeues the oldest message, blocking until there is one. It
// reports false only when the idle task receives from an empty mailbox,
// since idle may not block.
func (mb *Mailbox) Recv() (Message, bool) {
	if !mb.full.acquire() {
		return Message{}, false
	}
	msg, ok := mb.take()
	if ok {
		mb.free.Signal()
	}
	return msg, ok
}

// TryRecv dequeues the oldest message if there is one.
func (mb *Mailbox) TryRecv() (Message, bool) {
	if !mb.full.TryWait() {
		return Message{}, false
	}
	msg, ok := mb.take()
	if ok {
		mb.free.Signal()
	}
	return msg, ok
}

// Len returns the number of queued messages.
func (mb *Mailbox) Len() int {
	defer mb.k.enter().release()
	return int(mb.head - mb.tail)
}

// put and take fail only if the ring disagrees with the semaphores.
func (mb *Mailbox) put(msg Message) bool {
	k := mb.k
	defer k.enter().release()
	if mb.head-mb.tail >= uint32(len(mb.slots)) {
		return false
	}
	msg.From = k.running
	mb.slots[mb.head%uint32(len(mb.slots))] = msg
	mb.head++
	return true
}

func (mb *Mailbox) take() (Message, bool) {
	defer mb.k.enter().release()
	if mb.head == mb.tail {
		return Message{}, false
	}
	msg := mb.slots[mb.tail%uint32(len(mb.slots))]
	mb.tail++
	return msg, true
}
