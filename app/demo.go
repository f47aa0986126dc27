package app

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"rtk/hal"
	"rtk/kernel"
)

const (
	demoTasks      = 5
	demoPriorities = 6

	prioWorkerHigh kernel.Priority = 5
	prioBlinker    kernel.Priority = 4
	prioConsumer   kernel.Priority = 3
	prioProducer   kernel.Priority = 2
	prioWorkerLow  kernel.Priority = 1
)

const (
	msgSample uint8 = iota + 1
	msgKey
)

// beat gives sem every period ticks from the timer interrupt.
type beat struct {
	sem    *kernel.Semaphore
	period uint64
}

// demo is a handful of tasks that exercise every kernel primitive: beats
// from the timer ISR, a producer/consumer pair over a mailbox, and two
// workers at different priorities sharing a mutex.
type demo struct {
	k   *kernel.Kernel
	log hal.Logger
	con *console
	led hal.LED

	mb   *kernel.Mailbox
	lock *kernel.Mutex

	blink, produce, high, low, hold *kernel.Semaphore
	beats                           []beat

	ledOn  bool
	shared uint64 // guarded by lock

	blinks    atomic.Uint64
	produced  atomic.Uint64
	consumed  atomic.Uint64
	keys      atomic.Uint64
	dropped   atomic.Uint64
	contended atomic.Uint64
	boosts    atomic.Uint64
}

func newDemo(k *kernel.Kernel, h hal.HAL, con *console) *demo {
	d := &demo{
		k:       k,
		log:     h.Logger(),
		con:     con,
		led:     h.LED(),
		mb:      k.NewMailbox(kernel.DefaultMailboxSlots),
		lock:    k.NewMutex(),
		blink:   k.NewSemaphore(0),
		produce: k.NewSemaphore(0),
		high:    k.NewSemaphore(0),
		low:     k.NewSemaphore(0),
		hold:    k.NewSemaphore(0),
	}
	d.beats = []beat{
		{d.blink, 500},
		{d.produce, 100},
		{d.high, 250},
		{d.low, 1000},
		{d.hold, 20},
	}
	return d
}

type demoTask struct {
	name  string
	prio  kernel.Priority
	entry func(uintptr)
}

func (d *demo) tasks() []demoTask {
	return []demoTask{
		{"worker-hi", prioWorkerHigh, d.workerHigh},
		{"blinker", prioBlinker, d.blinker},
		{"consumer", prioConsumer, d.consumer},
		{"producer", prioProducer, d.producer},
		{"worker-lo", prioWorkerLow, d.workerLow},
	}
}

// tick runs in the timer interrupt.
func (d *demo) tick(seq uint64) {
	for _, b := range d.beats {
		if seq%b.period == 0 {
			give(b.sem)
		}
	}
}

// key runs in the keyboard interrupt.
func (d *demo) key(ev hal.KeyEvent) {
	if !ev.Press {
		return
	}
	var msg kernel.Message
	msg.Kind = msgKey
	switch {
	case ev.Rune != 0:
		msg.SetPayload([]byte(string(ev.Rune)))
	case ev.Code == hal.KeyEnter:
		msg.SetPayload([]byte("enter"))
	case ev.Code == hal.KeyEscape:
		msg.SetPayload([]byte("escape"))
	case ev.Code == hal.KeySpace:
		msg.SetPayload([]byte("space"))
	default:
		return
	}
	if !d.mb.TrySend(msg) {
		d.dropped.Add(1)
	}
}

// give signals s unless a unit is already banked, so a beat nobody is
// waiting for does not pile up.
func give(s *kernel.Semaphore) {
	if s.Count() < 1 {
		s.Signal()
	}
}

func (d *demo) blinker(uintptr) {
	for {
		d.blink.Wait()
		d.ledOn = !d.ledOn
		if d.ledOn {
			d.led.High()
		} else {
			d.led.Low()
		}
		d.blinks.Add(1)
	}
}

func (d *demo) producer(uintptr) {
	var buf [20]byte
	for {
		d.produce.Wait()
		n := d.produced.Add(1)
		var msg kernel.Message
		msg.Kind = msgSample
		msg.SetPayload(strconv.AppendUint(buf[:0], n, 10))
		if !d.mb.Send(msg) {
			d.dropped.Add(1)
		}
	}
}

func (d *demo) consumer(uintptr) {
	for {
		msg, ok := d.mb.Recv()
		if !ok {
			continue
		}
		switch msg.Kind {
		case msgSample:
			if n := d.consumed.Add(1); n%50 == 0 {
				d.log.WriteLineString(fmt.Sprintf("consumer: %d samples, last %s from task %d", n, msg.Payload(), msg.From))
				d.con.post(fmt.Sprintf("%d samples", n))
			}
		case msgKey:
			d.keys.Add(1)
			d.log.WriteLineString(fmt.Sprintf("consumer: key %q (interrupted task %d)", msg.Payload(), msg.From))
			d.con.post("key " + string(msg.Payload()))
		}
	}
}

func (d *demo) workerHigh(uintptr) {
	for {
		d.high.Wait()
		if _, held := d.lock.Owner(); held {
			d.contended.Add(1)
		}
		d.lock.Lock()
		d.shared++
		d.lock.Release()
	}
}

// workerLow holds the lock across several hold beats, long enough for
// workerHigh to queue behind it now and then.
func (d *demo) workerLow(uintptr) {
	for {
		d.low.Wait()
		d.lock.Lock()
		d.shared++
		for i := 0; i < 3; i++ {
			d.hold.Wait()
		}
		if info, ok := d.k.Task(d.k.Current()); ok && info.Priority > prioWorkerLow {
			d.boosts.Add(1)
			d.log.WriteLineString(fmt.Sprintf("worker-lo: running at priority %d while holding the lock", info.Priority))
			d.con.post(fmt.Sprintf("worker-lo boosted to %d", info.Priority))
		}
		d.lock.Release()
	}
}

func (d *demo) status() string {
	owner := "-"
	if id, ok := d.lock.Owner(); ok {
		owner = strconv.Itoa(int(id))
	}
	return fmt.Sprintf("blinks %d  sent %d  recv %d  keys %d  lock %s  boosts %d",
		d.blinks.Load(), d.produced.Load(), d.consumed.Load(), d.keys.Load(), owner, d.boosts.Load())
}
