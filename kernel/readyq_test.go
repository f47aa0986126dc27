package kernel

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestTable(n int) []tcb {
	tcbs := make([]tcb, n)
	for i := range tcbs {
		tcbs[i] = tcb{id: TaskID(i), next: noTask}
	}
	return tcbs
}

func TestReadySetDequeuesByPriorityThenFIFO(t *testing.T) {
	tcbs := newTestTable(4)
	var r readySet
	r.init(DefaultPriorities)

	tcbs[1].prio = 1
	tcbs[2].prio = 4
	tcbs[3].prio = 1
	r.enqueue(tcbs, &tcbs[1])
	r.enqueue(tcbs, &tcbs[2])
	r.enqueue(tcbs, &tcbs[3])

	var got []TaskID
	for {
		p, ok := r.highest()
		if !ok {
			break
		}
		task, err := r.dequeue(tcbs, p)
		if err != nil {
			t.Fatalf("dequeue(%d) err = %v", p, err)
		}
		got = append(got, task.id)
	}

	want := []TaskID{2, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("dequeue order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dequeue order = %v, want %v", got, want)
		}
	}
	if r.bits != 0 {
		t.Fatalf("bits = %#x after draining, want 0", r.bits)
	}
}

func TestReadySetDequeueEmpty(t *testing.T) {
	tcbs := newTestTable(2)
	var r readySet
	r.init(DefaultPriorities)

	if _, err := r.dequeue(tcbs, 3); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("dequeue(empty) err = %v, want ErrEmptyQueue", err)
	}
	if _, ok := r.highest(); ok {
		t.Fatal("highest() ok = true on empty set, want false")
	}
}

func TestReadySetRemove(t *testing.T) {
	tcbs := newTestTable(5)
	var r readySet
	r.init(DefaultPriorities)
	for i := 1; i < 5; i++ {
		tcbs[i].prio = 2
		r.enqueue(tcbs, &tcbs[i])
	}

	if err := r.remove(tcbs, &tcbs[4]); err != nil {
		t.Fatalf("remove(tail) err = %v", err)
	}
	if err := r.remove(tcbs, &tcbs[2]); err != nil {
		t.Fatalf("remove(middle) err = %v", err)
	}
	if err := r.remove(tcbs, &tcbs[2]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("remove(unlinked) err = %v, want ErrNotFound", err)
	}

	got := r.queues[2].appendIDs(tcbs, nil)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("queue after removes = %v, want [1 3]", got)
	}

	// A task whose recorded priority points at another level is not found.
	tcbs[3].prio = 5
	if err := r.remove(tcbs, &tcbs[3]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("remove(wrong level) err = %v, want ErrNotFound", err)
	}
	tcbs[3].prio = 2

	if err := r.remove(tcbs, &tcbs[1]); err != nil {
		t.Fatalf("remove(head) err = %v", err)
	}
	if err := r.remove(tcbs, &tcbs[3]); err != nil {
		t.Fatalf("remove(last) err = %v", err)
	}
	if r.bits != 0 {
		t.Fatalf("bits = %#x after removing every task, want 0", r.bits)
	}
	if r.queues[2].head != noTask || r.queues[2].tail != noTask {
		t.Fatalf("queue = %+v, want empty", r.queues[2])
	}
}

// TestReadySetBitmapMirrorsQueues drives random enqueue/dequeue/remove
// sequences and checks after every step that bit p is set exactly when
// queue p holds a task, and that each level stays FIFO.
func TestReadySetBitmapMirrorsQueues(t *testing.T) {
	const (
		tasks  = 32
		levels = 8
		steps  = 20_000
	)
	rng := rand.New(rand.NewSource(1))
	tcbs := newTestTable(tasks)
	var r readySet
	r.init(levels)

	model := make([][]TaskID, levels)
	linked := make([]bool, tasks)

	for step := 0; step < steps; step++ {
		switch op := rng.Intn(3); {
		case op == 0:
			id := TaskID(rng.Intn(tasks))
			if linked[id] {
				continue
			}
			p := Priority(rng.Intn(levels))
			tcbs[id].prio = p
			r.enqueue(tcbs, &tcbs[id])
			model[p] = append(model[p], id)
			linked[id] = true
		case op == 1:
			p := Priority(rng.Intn(levels))
			task, err := r.dequeue(tcbs, p)
			if len(model[p]) == 0 {
				if !errors.Is(err, ErrEmptyQueue) {
					t.Fatalf("step %d: dequeue(%d) err = %v, want ErrEmptyQueue", step, p, err)
				}
				continue
			}
			if err != nil || task.id != model[p][0] {
				t.Fatalf("step %d: dequeue(%d) = %v, %v; want task %d", step, p, task, err, model[p][0])
			}
			model[p] = model[p][1:]
			linked[task.id] = false
		default:
			id := TaskID(rng.Intn(tasks))
			err := r.remove(tcbs, &tcbs[id])
			if !linked[id] {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("step %d: remove(%d) err = %v, want ErrNotFound", step, id, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("step %d: remove(%d) err = %v", step, id, err)
			}
			p := tcbs[id].prio
			for i, m := range model[p] {
				if m == id {
					model[p] = append(model[p][:i], model[p][i+1:]...)
					break
				}
			}
			linked[id] = false
		}

		for p := 0; p < levels; p++ {
			set := r.bits&(1<<p) != 0
			if set != (len(model[p]) > 0) {
				t.Fatalf("step %d: bit %d = %v, queue len %d", step, p, set, len(model[p]))
			}
			if got := r.queues[p].len(tcbs); got != len(model[p]) {
				t.Fatalf("step %d: queue %d len = %d, want %d", step, p, got, len(model[p]))
			}
		}
		if hp, ok := r.highest(); ok {
			for p := levels - 1; p > int(hp); p-- {
				if len(model[p]) > 0 {
					t.Fatalf("step %d: highest() = %d but level %d is non-empty", step, hp, p)
				}
			}
			if len(model[hp]) == 0 {
				t.Fatalf("step %d: highest() = %d names an empty level", step, hp)
			}
		}
	}
}
