package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/ram"
)

// portQueue holds the pending single-word requests of one port together with
// the session flags of the port.
type portQueue struct {
	id  ram.PortID
	buf sim.Buffer

	frameReg     bool
	active       bool
	flushTrigger bool
	flushing     bool
}

func newPortQueue(parent string, id ram.PortID, depth int) *portQueue {
	name := fmt.Sprintf("%s.Port[%d].ReqFIFO", parent, id)

	return &portQueue{
		id:  id,
		buf: sim.NewBuffer(name, depth),
	}
}

// queueDecision is what happens to a port queue at the end of a cycle.
type queueDecision struct {
	frame bool

	activate   bool
	accept     bool
	req        ram.Request
	overflow   bool
	ignored    bool
	trigger    bool
	startFlush bool
	deactivate bool
	pop        bool
}

func (q *portQueue) level() int {
	return q.buf.Size()
}

// progEmpty tells if the queue cannot complete another full burst.
func (q *portQueue) progEmpty(burstSize int) bool {
	return q.level() < burstSize
}

func (q *portQueue) head() ram.Request {
	return q.buf.Peek().(ram.Request)
}

// frameDrops tells if the inputs end the session of an active port.
func (q *portQueue) frameDrops(in ram.PortInputs) bool {
	return q.active && q.frameReg && !in.Frame && !q.flushTrigger
}

// decide evaluates the inputs of one cycle against the state before the
// cycle. reading is true if a burst is reading from this queue, and closed is
// true if the port cannot take more requests in its current session.
func (q *portQueue) decide(
	in ram.PortInputs,
	reading bool,
	closed bool,
	burstSize int,
) queueDecision {
	d := queueDecision{frame: in.Frame}

	d.activate = in.Frame && !q.active
	activeNow := q.active || d.activate

	if in.ReqEnable {
		switch {
		case !in.Frame || !activeNow || q.flushTrigger || closed:
			d.ignored = true
		case !q.buf.CanPush():
			d.overflow = true
		default:
			d.accept = true
			d.req = in.Req
		}
	}

	d.trigger = q.frameDrops(in)

	if q.flushTrigger && !q.flushing && q.progEmpty(burstSize) && !reading {
		d.startFlush = true
	}

	if q.flushTrigger && q.level() == 0 && !reading {
		d.deactivate = true
	}

	return d
}

func (q *portQueue) commit(d queueDecision) {
	if d.pop {
		q.buf.Pop()
	}

	if d.accept {
		q.buf.Push(d.req)
	}

	if d.activate {
		q.active = true
	}

	if d.trigger {
		q.flushTrigger = true
	}

	if d.startFlush {
		q.flushing = true
	}

	if d.deactivate {
		q.active = false
		q.flushTrigger = false
		q.flushing = false
	}

	q.frameReg = d.frame
}
