package core

import "github.com/sarchlab/ramarbiter/ram"

type readItem struct {
	port ram.PortID
	slot cplSlot
}

// cplDispatcher serves completion acknowledgements from the ports. Each port
// may have one unserved acknowledgement. One port is served per cycle and the
// data comes out of the read pipeline a fixed number of cycles later.
type cplDispatcher struct {
	policy  Policy
	pending []bool
	line    []*readItem
}

func newCplDispatcher(numPorts, readLatency int, policy Policy) *cplDispatcher {
	return &cplDispatcher{
		policy:  policy,
		pending: make([]bool, numPorts),
		line:    make([]*readItem, readLatency),
	}
}

type ackResult int

const (
	ackNone ackResult = iota
	ackAccepted
	ackOverflow
	ackIgnored
)

type readDecision struct {
	grant bool
	port  ram.PortID
	acks  []ackResult
	out   *readItem
}

func (d *cplDispatcher) pendingMask() uint64 {
	var mask uint64

	for i, p := range d.pending {
		if p {
			mask |= 1 << uint(i)
		}
	}

	return mask
}

func (d *cplDispatcher) decide(acks []bool, store *cplStore) readDecision {
	r := readDecision{
		acks: make([]ackResult, len(d.pending)),
		out:  d.line[len(d.line)-1],
	}

	r.port, r.grant = d.policy.Select(d.pendingMask())

	for i, ack := range acks {
		if !ack {
			continue
		}

		port := ram.PortID(i)
		served := r.grant && r.port == port

		if d.pending[i] && !served {
			r.acks[i] = ackOverflow
			continue
		}

		avail := store.occupancy(port)
		if served {
			avail--
		}

		if avail > 0 {
			r.acks[i] = ackAccepted
		} else {
			r.acks[i] = ackIgnored
		}
	}

	return r
}

func (d *cplDispatcher) commit(r readDecision, store *cplStore) {
	for i := len(d.line) - 1; i > 0; i-- {
		d.line[i] = d.line[i-1]
	}

	d.line[0] = nil

	if r.grant {
		d.line[0] = &readItem{
			port: r.port,
			slot: store.read(r.port),
		}
		d.pending[r.port] = false
		d.policy.Commit(r.port)
	}

	for i, a := range r.acks {
		if a == ackAccepted {
			d.pending[i] = true
		}
	}
}

func (d *cplDispatcher) busy() bool {
	if d.pendingMask() != 0 {
		return true
	}

	for _, item := range d.line {
		if item != nil {
			return true
		}
	}

	return false
}
