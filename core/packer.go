package core

import "github.com/sarchlab/ramarbiter/ram"

type packerState int

const (
	packerWaiting packerState = iota
	packerBurst
)

// String returns the name of the state.
func (s packerState) String() string {
	if s == packerBurst {
		return "BURST"
	}

	return "WAITING"
}

// burstPacker turns the pending requests of the ports into bursts. In the
// WAITING state it picks a port and sends the first word of a burst; in the
// BURST state it keeps sending from that port until the burst ends.
type burstPacker struct {
	burstSize int
	policy    Policy

	state     packerState
	port      ram.PortID
	remaining int
	flush     bool
}

// dispatchDecision describes the word the packer sends in one cycle, if any,
// and the packer state after the cycle.
type dispatchDecision struct {
	valid bool
	port  ram.PortID
	sob   bool
	eob   bool
	eof   bool

	newBurst bool
	flush    bool
	length   int

	nextState     packerState
	nextRemaining int
}

func (p *burstPacker) reading(port ram.PortID) bool {
	return p.state == packerBurst && p.port == port
}

// candidates returns the ports that have a full burst pending and the ports
// that are flushing with a non-empty queue.
func (p *burstPacker) candidates(queues []*portQueue) (full, flush uint64) {
	for i, q := range queues {
		if !q.progEmpty(p.burstSize) {
			full |= 1 << uint(i)
			continue
		}

		if q.flushing && q.level() > 0 {
			flush |= 1 << uint(i)
		}
	}

	return full, flush
}

// decide computes the dispatch of one cycle. Nothing moves while the bus is not
// ready. drops marks the ports whose frame falls in this cycle.
func (p *burstPacker) decide(
	queues []*portQueue,
	ready bool,
	drops uint64,
) dispatchDecision {
	d := dispatchDecision{
		port:          p.port,
		flush:         p.flush,
		nextState:     p.state,
		nextRemaining: p.remaining,
	}

	if !ready {
		return d
	}

	switch p.state {
	case packerWaiting:
		full, flush := p.candidates(queues)

		if port, ok := p.policy.Select(full); ok {
			p.begin(&d, port, p.burstSize, false)
		} else if port, ok := p.policy.Select(flush); ok {
			p.begin(&d, port, queues[port].level(), true)
		} else {
			return d
		}
	case packerBurst:
		d.valid = true
		d.eob = p.remaining == 1
		d.nextRemaining = p.remaining - 1

		if d.eob {
			d.nextState = packerWaiting
		}
	}

	q := queues[d.port]
	ending := q.flushTrigger || drops&(1<<uint(d.port)) != 0
	d.eof = d.eob && ending && q.level() == 1

	return d
}

func (p *burstPacker) begin(
	d *dispatchDecision,
	port ram.PortID,
	length int,
	flush bool,
) {
	d.valid = true
	d.port = port
	d.sob = true
	d.eob = length == 1
	d.newBurst = true
	d.flush = flush
	d.length = length
	d.nextRemaining = length - 1

	if length > 1 {
		d.nextState = packerBurst
	} else {
		d.nextState = packerWaiting
	}
}

func (p *burstPacker) commit(d dispatchDecision) {
	if d.newBurst {
		p.policy.Commit(d.port)
	}

	p.state = d.nextState
	p.port = d.port
	p.remaining = d.nextRemaining
	p.flush = d.flush
}
