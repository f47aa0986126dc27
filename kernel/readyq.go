package kernel

import "math/bits"

// taskQueue is a FIFO of task slots linked through tcb.next. The zero value
// is not usable; start from newTaskQueue.
type taskQueue struct {
	head TaskID
	tail TaskID
	ok   bool
}

func newTaskQueue() taskQueue {
	return taskQueue{head: noTask, tail: noTask, ok: true}
}

func (q *taskQueue) valid() bool { return q != nil && q.ok }

func (q *taskQueue) empty() bool { return q.head == noTask }

func (q *taskQueue) push(tcbs []tcb, t *tcb) {
	t.next = noTask
	t.queue = q
	if q.tail == noTask {
		q.head = t.id
	} else {
		tcbs[q.tail].next = t.id
	}
	q.tail = t.id
}

func (q *taskQueue) pop(tcbs []tcb) *tcb {
	if q.head == noTask {
		return nil
	}
	t := &tcbs[q.head]
	q.head = t.next
	if q.head == noTask {
		q.tail = noTask
	}
	t.next = noTask
	t.queue = nil
	return t
}

// remove unlinks t. The walk is bounded by the table size so a corrupted
// link cannot loop forever.
func (q *taskQueue) remove(tcbs []tcb, t *tcb) bool {
	prev := noTask
	id := q.head
	for n := 0; id != noTask && n < len(tcbs); n++ {
		if id != t.id {
			prev = id
			id = tcbs[id].next
			continue
		}
		if prev == noTask {
			q.head = t.next
		} else {
			tcbs[prev].next = t.next
		}
		if q.tail == t.id {
			q.tail = prev
		}
		t.next = noTask
		t.queue = nil
		return true
	}
	return false
}

func (q *taskQueue) appendIDs(tcbs []tcb, dst []TaskID) []TaskID {
	id := q.head
	for n := 0; id != noTask && n < len(tcbs); n++ {
		dst = append(dst, id)
		id = tcbs[id].next
	}
	return dst
}

func (q *taskQueue) len(tcbs []tcb) int {
	n := 0
	for id := q.head; id != noTask && n < len(tcbs); id = tcbs[id].next {
		n++
	}
	return n
}

// readySet holds one FIFO per priority. Bit p of bits is set iff queue p is
// non-empty.
type readySet struct {
	queues []taskQueue
	bits   uint32
}

func (r *readySet) init(levels int) {
	if cap(r.queues) >= levels {
		r.queues = r.queues[:levels]
	} else {
		r.queues = make([]taskQueue, levels)
	}
	for i := range r.queues {
		r.queues[i] = newTaskQueue()
	}
	r.bits = 0
}

func (r *readySet) enqueue(tcbs []tcb, t *tcb) {
	r.queues[t.prio].push(tcbs, t)
	r.bits |= 1 << t.prio
}

func (r *readySet) dequeue(tcbs []tcb, prio Priority) (*tcb, error) {
	q := &r.queues[prio]
	t := q.pop(tcbs)
	if t == nil {
		return nil, ErrEmptyQueue
	}
	if q.empty() {
		r.bits &^= 1 << prio
	}
	return t, nil
}

func (r *readySet) remove(tcbs []tcb, t *tcb) error {
	q := &r.queues[t.prio]
	if t.queue != q || !q.remove(tcbs, t) {
		return ErrNotFound
	}
	if q.empty() {
		r.bits &^= 1 << t.prio
	}
	return nil
}

// highest returns the most urgent non-empty level.
func (r *readySet) highest() (Priority, bool) {
	if r.bits == 0 {
		return 0, false
	}
	return Priority(31 - bits.LeadingZeros32(r.bits)), true
}
