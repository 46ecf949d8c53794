package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/ram"
)

// Arbiter shares one memory bus between a number of single-word ports. It
// packs the requests of each port into bursts, remembers which port every
// word belongs to, and hands the completions back to the ports through a
// shared completion store.
//
// Every tick first samples the ports and the bus and decides everything from
// the state before the tick. Only then the state is updated. Nothing written
// in a tick is visible in the same tick.
type Arbiter struct {
	*sim.TickingComponent

	params Params
	bus    ram.Bus
	driver ram.PortDriver

	queues  []*portQueue
	addrs   []*addrGen
	packer  *burstPacker
	tracker *seqTracker
	store   *cplStore
	disp    *cplDispatcher

	cycle uint64
	stats []PortStats
}

// step holds every decision of one tick.
type step struct {
	inputs []ram.PortInputs

	busCpl    ram.BusCpl
	hasBusCpl bool
	cplEntry  seqEntry
	cplDrop   bool

	dispatch dispatchDecision
	busReq   ram.BusReq

	queues []queueDecision
	done   []bool

	read readDecision
}

// SetBus sets the bus behind the arbiter.
func (a *Arbiter) SetBus(bus ram.Bus) {
	a.bus = bus
}

// SetDriver sets the driver of the ports.
func (a *Arbiter) SetDriver(driver ram.PortDriver) {
	a.driver = driver
}

// Params returns the parameters the arbiter was built with.
func (a *Arbiter) Params() Params {
	return a.params
}

// NumPorts returns the number of ports.
func (a *Arbiter) NumPorts() int {
	return a.params.NumPorts
}

// Cycle returns the number of ticks the arbiter has performed.
func (a *Arbiter) Cycle() uint64 {
	return a.cycle
}

// Stats returns a copy of the per-port statistics.
func (a *Arbiter) Stats() []PortStats {
	s := make([]PortStats, len(a.stats))
	copy(s, a.stats)

	return s
}

// QueueLevel returns the number of requests waiting at a port.
func (a *Arbiter) QueueLevel(port ram.PortID) int {
	return a.queues[port].level()
}

// CplOccupancy returns the number of completions stored for a port and not
// yet handed out.
func (a *Arbiter) CplOccupancy(port ram.PortID) int {
	return a.store.occupancy(port)
}

// Active tells if a port has an open session. A port stays active after its
// frame falls until its queue has drained.
func (a *Arbiter) Active(port ram.PortID) bool {
	return a.queues[port].active
}

// Tick performs one clock cycle.
func (a *Arbiter) Tick() bool {
	if a.bus == nil || a.driver == nil {
		panic(fmt.Sprintf("arbiter %s is not connected", a.Name()))
	}

	a.cycle++

	s := a.plan()
	a.apply(s)
	a.deliver(s)

	LogState(a)

	return a.busy()
}

func (a *Arbiter) plan() *step {
	n := a.params.NumPorts
	s := &step{
		inputs: make([]ram.PortInputs, n),
		queues: make([]queueDecision, n),
		done:   make([]bool, n),
	}

	acks := make([]bool, n)
	var drops uint64
	for i := range s.inputs {
		s.inputs[i] = a.driver.Sample(ram.PortID(i))
		acks[i] = s.inputs[i].CplAck

		if a.queues[i].frameDrops(s.inputs[i]) {
			drops |= 1 << uint(i)
		}
	}

	s.busCpl, s.hasBusCpl = a.bus.Step()
	if s.hasBusCpl {
		a.planBusCpl(s)
	}

	ready := a.bus.Ready() && a.tracker.canPush()
	s.dispatch = a.packer.decide(a.queues, ready, drops)

	for i, q := range a.queues {
		a.planQueue(s, ram.PortID(i), q)
	}

	if s.dispatch.valid {
		s.busReq = a.busReqFor(s.dispatch)
	}

	s.read = a.disp.decide(acks, a.store)

	return s
}

func (a *Arbiter) planBusCpl(s *step) {
	entry, ok := a.tracker.head()
	if !ok {
		panic(fmt.Sprintf("%s: bus completion %q with no outstanding request",
			a.Name(), s.busCpl.ReqID))
	}

	if s.busCpl.ReqID != "" && s.busCpl.ReqID != entry.reqID {
		panic(fmt.Sprintf("%s: bus completion %q out of order, expected %q",
			a.Name(), s.busCpl.ReqID, entry.reqID))
	}

	s.cplEntry = entry
	s.cplDrop = a.store.full(entry.port)
}

func (a *Arbiter) planQueue(s *step, port ram.PortID, q *portQueue) {
	in := s.inputs[port]
	activate := in.Frame && !q.active
	reading := a.packer.reading(port) ||
		(s.dispatch.valid && s.dispatch.port == port)

	closed := false
	if a.addrs != nil {
		var addr uint64
		addr, closed = a.addrs[port].peek(activate)
		in.Req.Addr = addr
	}

	d := q.decide(in, reading, closed, a.params.BurstSize)
	d.pop = s.dispatch.valid && s.dispatch.port == port

	if d.accept && a.addrs != nil {
		s.done[port] = a.addrs[port].isLast(activate)
	}

	s.queues[port] = d
}

func (a *Arbiter) busReqFor(d dispatchDecision) ram.BusReq {
	req := a.queues[d.port].head()

	b := ram.BusReqBuilder{}.
		WithID(req.ID).
		WithAddress(req.Addr).
		WithBurstMarkers(d.sob, d.eob)

	if a.params.Mode == ram.ModeWrite {
		b = b.WithData(req.Data).AsWrite()
	}

	return b.Build()
}

func (a *Arbiter) apply(s *step) {
	for i, q := range a.queues {
		a.applyQueue(s, ram.PortID(i), q)
	}

	if s.hasBusCpl {
		a.tracker.pop()
	}

	if s.dispatch.valid {
		a.applyDispatch(s)
	}

	a.packer.commit(s.dispatch)

	if s.hasBusCpl {
		a.applyBusCpl(s)
	}

	a.disp.commit(s.read, a.store)

	if s.read.grant {
		Trace("CplRead",
			"Arbiter", a.Name(),
			"Cycle", a.cycle,
			"Port", s.read.port,
		)
	}

	a.store.endCycle()
}

func (a *Arbiter) applyQueue(s *step, port ram.PortID, q *portQueue) {
	d := s.queues[port]
	st := &a.stats[port]

	q.commit(d)

	if a.addrs != nil {
		if d.activate {
			a.addrs[port].restart()
		}

		if d.accept {
			a.addrs[port].advance()
		}
	}

	if d.accept {
		st.Submitted++
		a.InvokeHook(sim.HookCtx{
			Domain: a,
			Pos:    HookPosSubmit,
			Item:   SubmitEvent{Cycle: a.cycle, Port: port, Req: d.req},
		})
	}

	if d.ignored {
		st.Ignored++
	}

	if d.overflow {
		st.ReqOverflows++
	}

	if d.trigger {
		Trace("FrameEnd",
			"Arbiter", a.Name(),
			"Cycle", a.cycle,
			"Port", port,
			"Level", q.level(),
		)
	}
}

func (a *Arbiter) applyDispatch(s *step) {
	d := s.dispatch
	st := &a.stats[d.port]

	a.tracker.push(seqEntry{
		port:  d.port,
		eof:   d.eof,
		reqID: s.busReq.ID,
		addr:  s.busReq.Addr,
	})
	a.bus.Issue(s.busReq)

	st.Dispatched++

	if d.newBurst {
		st.Bursts++
		if d.flush {
			st.FlushBursts++
		}

		Trace("Burst",
			"Arbiter", a.Name(),
			"Cycle", a.cycle,
			"Port", d.port,
			"Length", d.length,
			"Flush", d.flush,
		)
	}

	if d.eof {
		st.EOFs++
	}

	a.InvokeHook(sim.HookCtx{
		Domain: a,
		Pos:    HookPosDispatch,
		Item: DispatchEvent{
			Cycle: a.cycle,
			Port:  d.port,
			Req:   s.busReq,
			EOF:   d.eof,
			Flush: d.flush,
		},
	})
}

func (a *Arbiter) applyBusCpl(s *step) {
	e := s.cplEntry
	st := &a.stats[e.port]

	st.BusCompletions++

	if s.cplDrop {
		st.CplOverflows++
	} else {
		a.store.write(e.port, cplSlot{
			reqID: e.reqID,
			addr:  e.addr,
			data:  s.busCpl.Data,
			eof:   e.eof,
		})
	}

	a.InvokeHook(sim.HookCtx{
		Domain: a,
		Pos:    HookPosBusCpl,
		Item: BusCplEvent{
			Cycle:   a.cycle,
			Port:    e.port,
			ReqID:   e.reqID,
			Data:    s.busCpl.Data,
			EOF:     e.eof,
			Dropped: s.cplDrop,
		},
	})
}

func (a *Arbiter) deliver(s *step) {
	for i := range a.queues {
		port := ram.PortID(i)
		out := ram.PortOutputs{Flags: a.flagsOf(s, port)}

		if item := s.read.out; item != nil && item.port == port {
			out.Cpl = &ram.Completion{
				Port:  port,
				ReqID: item.slot.reqID,
				Addr:  item.slot.addr,
				Data:  item.slot.data,
				EOF:   item.slot.eof,
			}
			a.stats[port].Delivered++
		}

		if out.Flags.AckOverflow {
			a.stats[port].AckOverflows++
		}

		if out.Flags.Any() {
			a.InvokeHook(sim.HookCtx{
				Domain: a,
				Pos:    HookPosFlag,
				Item:   FlagEvent{Cycle: a.cycle, Port: port, Flags: out.Flags},
			})
		}

		if out.Cpl != nil {
			a.InvokeHook(sim.HookCtx{
				Domain: a,
				Pos:    HookPosDeliver,
				Item:   DeliverEvent{Cycle: a.cycle, Cpl: *out.Cpl},
			})
		}

		if out.Cpl != nil || out.Flags.Any() {
			a.driver.Deliver(port, out)
		}
	}
}

func (a *Arbiter) flagsOf(s *step, port ram.PortID) ram.PortFlags {
	return ram.PortFlags{
		ReqOverflow: s.queues[port].overflow,
		ReqIgnored:  s.queues[port].ignored,
		AckOverflow: s.read.acks[port] == ackOverflow,
		CplOverflow: s.hasBusCpl && s.cplDrop && s.cplEntry.port == port,
		Done:        s.done[port],
	}
}

// busy tells if there is anything left for the arbiter to do.
func (a *Arbiter) busy() bool {
	if a.driver.Pending() || a.tracker.size() > 0 || a.disp.busy() {
		return true
	}

	if a.packer.state == packerBurst {
		return true
	}

	for i, q := range a.queues {
		if q.active || q.level() > 0 {
			return true
		}

		port := ram.PortID(i)
		if !a.store.empty(port) && a.driver.Collecting(port) {
			return true
		}
	}

	return false
}
