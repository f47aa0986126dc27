package kernel

import "fmt"

// Reschedule is the reschedule trap handler. It switches to the head of the
// most urgent ready queue unless the running task is still runnable and
// more urgent than everything that is ready.
func (k *Kernel) Reschedule() {
	defer k.enter().release()

	cur := k.current()
	if cur.state == Running {
		if k.ready.bits == 0 {
			return
		}
		if next, _ := k.ready.highest(); next < cur.prio {
			return
		}
	}

	next := k.highestPriority()
	to, err := k.ready.dequeue(k.tcbs, next)
	if err != nil {
		k.fault(FaultQueueCorrupt, fmt.Sprintf("dequeue priority %d: %v", next, err))
		return
	}
	if cur.state == Running {
		k.ready.enqueue(k.tcbs, cur)
	}
	k.running = to.id
	k.switchContext(cur, to)
}

// highestPriority is only called when some task must be runnable. The idle
// task never blocks, so an empty bitmap here means the tables are corrupt.
func (k *Kernel) highestPriority() Priority {
	p, ok := k.ready.highest()
	if !ok {
		k.fault(FaultNoRunnable, "ready bitmap is empty")
	}
	return p
}

func (k *Kernel) switchContext(from, to *tcb) {
	from.sp = k.port.SaveContext()
	if from.state == Running {
		from.state = Ready
	}
	to.state = Running
	if k.cfg.OnSwitch != nil {
		k.cfg.OnSwitch(from.id, to.id)
	}
	k.switches.Add(1)
	k.port.RestoreContext(to.sp)
}

// Tick is the periodic timer handler. It is safe to call from interrupt
// context: it only counts and requests the reschedule trap.
func (k *Kernel) Tick() {
	k.ticks.Add(1)
	k.port.PendReschedule()
}

// Yield offers the processor to ready tasks of equal or higher priority.
func (k *Kernel) Yield() {
	k.port.PendReschedule()
	k.enter().release()
}

// Idle sleeps the boot context until the next interrupt and lets pending
// traps run. It is meant to be called in the idle task's loop.
func (k *Kernel) Idle() {
	k.port.WaitForInterrupt()
	k.enter().release()
}

// block parks the running task on q and requests the reschedule trap so it
// gives up the processor when the caller's critical section ends.
func (k *Kernel) block(q *taskQueue) bool {
	cur := k.current()
	if cur.id == IdleTask {
		k.fault(FaultIdleBlocked, "idle task may not block")
		return false
	}
	q.push(k.tcbs, cur)
	cur.state = Waiting
	cur.requeued = false
	k.port.PendReschedule()
	return true
}

func (k *Kernel) makeReady(t *tcb) {
	t.state = Ready
	k.ready.enqueue(k.tcbs, t)
}

// setPriority changes t's priority. A Ready task moves to the queue for its
// new level. A Waiting task is unlinked from whatever it waits on and readied
// at the new level, so the boost is visible to the next scheduling decision;
// the wait it was parked in retries when it runs.
func (k *Kernel) setPriority(t *tcb, prio Priority) {
	if t.prio == prio {
		return
	}
	switch t.state {
	case Ready:
		if err := k.ready.remove(k.tcbs, t); err != nil {
			k.fault(FaultQueueCorrupt, fmt.Sprintf("task %d not in ready queue %d", t.id, t.prio))
			return
		}
		t.prio = prio
		k.ready.enqueue(k.tcbs, t)
	case Waiting:
		if t.queue == nil || !t.queue.remove(k.tcbs, t) {
			k.fault(FaultQueueCorrupt, fmt.Sprintf("waiting task %d not in its wait queue", t.id))
			return
		}
		t.prio = prio
		t.requeued = true
		k.makeReady(t)
	default:
		t.prio = prio
	}
}

// resumed runs after a blocking call's critical section, once cur is back
// on the processor. It reports whether cur was pulled off the wait queue
// by priority inheritance rather than woken, and clears the mark.
func (k *Kernel) resumed(cur *tcb) bool {
	defer k.enter().release()
	if !cur.requeued {
		return false
	}
	cur.requeued = false
	return true
}
