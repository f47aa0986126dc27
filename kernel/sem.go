package kernel

import "fmt"

// Semaphore is a counting semaphore with FIFO wake-up order.
//
// A positive count is the number of Waits that succeed without blocking; a
// negative count is the number of tasks parked on it.
type Semaphore struct {
	k       *Kernel
	count   int32
	waiters taskQueue
}

// NewSemaphore returns a semaphore with the given initial count.
func (k *Kernel) NewSemaphore(count int32) *Semaphore {
	s := &Semaphore{}
	k.InitSemaphore(s, count)
	return s
}

// InitSemaphore prepares a statically allocated semaphore.
func (k *Kernel) InitSemaphore(s *Semaphore, count int32) {
	defer k.enter().release()
	s.k = k
	s.count = count
	s.waiters = newTaskQueue()
}

// Wait takes one unit. When none is available the caller is parked and
// leaves the processor as soon as Wait returns to it; it resumes after the
// matching Signal.
//
// Wait must not be called from interrupt context. The idle task may not
// block: on an empty semaphore its Wait reports FaultIdleBlocked and returns
// without a unit.
func (s *Semaphore) Wait() {
	s.acquire()
}

// acquire is Wait reporting whether a unit was taken.
func (s *Semaphore) acquire() bool {
	k := s.kernel()
	for {
		taken, retry := s.wait(k)
		if !retry {
			return taken
		}
	}
}

// wait makes one attempt. A parked caller reserves its unit by driving the
// count negative; if inheritance pulls it off the queue before a Signal
// reaches it, the reservation is returned and the caller tries again.
func (s *Semaphore) wait(k *Kernel) (taken, retry bool) {
	c := k.enter()
	cur := k.current()
	if s.count <= 0 && !k.block(&s.waiters) {
		c.release()
		return false, false
	}
	s.count--
	parked := cur.state == Waiting
	c.release()

	if !parked || !k.resumed(cur) {
		return true, false
	}
	defer k.enter().release()
	s.count++
	return false, true
}

// TryWait takes one unit if one is available without blocking. It may be
// called from interrupt context.
func (s *Semaphore) TryWait() bool {
	k := s.kernel()
	defer k.enter().release()

	if s.count <= 0 {
		return false
	}
	s.count--
	return true
}

// Signal returns one unit, readying the longest waiter if there is one.
// It may be called from interrupt context.
func (s *Semaphore) Signal() {
	k := s.kernel()
	defer k.enter().release()

	if s.count <= 0 {
		if t := s.waiters.pop(k.tcbs); t != nil {
			k.makeReady(t)
		}
	}
	s.count++
}

// Count returns the current count.
func (s *Semaphore) Count() int32 {
	k := s.kernel()
	defer k.enter().release()
	return s.count
}

// Waiting returns the parked tasks in wake-up order.
func (s *Semaphore) Waiting() []TaskID {
	k := s.kernel()
	defer k.enter().release()
	return s.waiters.appendIDs(k.tcbs, nil)
}

func (s *Semaphore) kernel() *Kernel {
	if s == nil || s.k == nil || !s.waiters.valid() {
		reportFault(FaultInfo{Kind: FaultUninitialized, Task: noTask, Detail: fmt.Sprintf("semaphore %p", s)})
	}
	return s.k
}
