package kernel

import "fmt"

// Mutex is an exclusive lock with priority inheritance: while a more urgent
// task waits, the owner runs at the waiter's priority.
type Mutex struct {
	k       *Kernel
	count   int32
	waiters taskQueue
	owner   TaskID
	saved   Priority
}

// NewMutex returns an unlocked mutex.
func (k *Kernel) NewMutex() *Mutex {
	m := &Mutex{}
	k.InitMutex(m)
	return m
}

// InitMutex prepares a statically allocated mutex.
func (k *Kernel) InitMutex(m *Mutex) {
	defer k.enter().release()
	m.k = k
	m.count = 1
	m.waiters = newTaskQueue()
	m.owner = noTask
	m.saved = 0
}

// Lock acquires m for the running task. Locking a mutex the caller already
// owns returns immediately.
func (m *Mutex) Lock() {
	k := m.kernel()
	for m.lock(k) {
	}
}

// lock makes one attempt and reports whether the caller has to try again
// because inheritance pulled it off the wait queue before the hand-off.
func (m *Mutex) lock(k *Kernel) (retry bool) {
	c := k.enter()
	cur := k.current()
	if m.count == 1 {
		m.count = 0
		m.owner = cur.id
		m.saved = cur.prio
		c.release()
		return false
	}

	owner := &k.tcbs[m.owner]
	if cur.prio > owner.prio {
		k.setPriority(owner, cur.prio)
	}
	if owner == cur || !k.block(&m.waiters) {
		c.release()
		return false
	}
	c.release()
	return k.resumed(cur)
}

// Release gives m up. Calls by a task that does not own m are reported as
// FaultNotOwner and otherwise ignored. If tasks are waiting, ownership passes
// straight to the longest waiter.
func (m *Mutex) Release() {
	k := m.kernel()
	defer k.enter().release()

	cur := k.current()
	if m.count != 0 || m.owner != cur.id {
		k.fault(FaultNotOwner, fmt.Sprintf("mutex %p", m))
		return
	}

	if cur.prio != m.saved {
		k.setPriority(cur, m.saved)
	}
	m.count++

	next := m.waiters.pop(k.tcbs)
	if next == nil {
		m.owner = noTask
		return
	}
	m.count--
	m.owner = next.id
	m.saved = next.prio
	k.makeReady(next)
	if top, ok := m.topWaiter(); ok && top > next.prio {
		k.setPriority(next, top)
	}
}

// Owner returns the owning task, if m is locked.
func (m *Mutex) Owner() (TaskID, bool) {
	k := m.kernel()
	defer k.enter().release()
	if m.count != 0 {
		return 0, false
	}
	return m.owner, true
}

// Waiting returns the parked tasks in hand-off order.
func (m *Mutex) Waiting() []TaskID {
	k := m.kernel()
	defer k.enter().release()
	return m.waiters.appendIDs(k.tcbs, nil)
}

func (m *Mutex) topWaiter() (Priority, bool) {
	k := m.k
	var top Priority
	found := false
	id := m.waiters.head
	for n := 0; id != noTask && n < len(k.tcbs); n++ {
		if p := k.tcbs[id].prio; !found || p > top {
			top = p
			found = true
		}
		id = k.tcbs[id].next
	}
	return top, found
}

func (m *Mutex) kernel() *Kernel {
	if m == nil || m.k == nil || !m.waiters.valid() {
		reportFault(FaultInfo{Kind: FaultUninitialized, Task: noTask, Detail: fmt.Sprintf("mutex %p", m)})
	}
	return m.k
}
