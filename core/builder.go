package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/ram"
)

// Builder can create new arbiters.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
	params Params

	reqPolicy string
	cplPolicy string
	policies  [2]Policy

	bus    ram.Bus
	driver ram.PortDriver
}

// NewBuilder creates a builder with the default parameters.
func NewBuilder() Builder {
	return Builder{
		freq:      1 * sim.GHz,
		params:    DefaultParams(),
		reqPolicy: PolicyFixed,
		cplPolicy: PolicyFixed,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the arbiter.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithParams replaces all the structural parameters at once.
func (b Builder) WithParams(p Params) Builder {
	b.params = p
	return b
}

// WithNumPorts sets the number of ports.
func (b Builder) WithNumPorts(n int) Builder {
	b.params.NumPorts = n
	return b
}

// WithBurstSize sets the number of words in a full burst.
func (b Builder) WithBurstSize(n int) Builder {
	b.params.BurstSize = n
	return b
}

// WithFIFODepthLog2 sets the depth of the request FIFOs as a power of two.
func (b Builder) WithFIFODepthLog2(n int) Builder {
	b.params.FIFODepthLog2 = n
	return b
}

// WithCplDepthLog2 sets the depth of each per-port completion FIFO as a power
// of two.
func (b Builder) WithCplDepthLog2(n int) Builder {
	b.params.CplDepthLog2 = n
	return b
}

// WithSeqDepth sets the depth of the sequence FIFO.
func (b Builder) WithSeqDepth(n int) Builder {
	b.params.SeqDepth = n
	return b
}

// WithReadLatency sets the number of cycles between serving an
// acknowledgement and delivering the completion.
func (b Builder) WithReadLatency(n int) Builder {
	b.params.ReadLatency = n
	return b
}

// WithWordBytes sets the number of bytes in a word.
func (b Builder) WithWordBytes(n int) Builder {
	b.params.WordBytes = n
	return b
}

// WithMode selects the read or the write variant.
func (b Builder) WithMode(m ram.Mode) Builder {
	b.params.Mode = m
	return b
}

// WithAddrRange sets the address range of a write port. Ranges must be set for
// every port in write mode.
func (b Builder) WithAddrRange(port ram.PortID, r AddrRange) Builder {
	ranges := make([]AddrRange, b.params.NumPorts)
	copy(ranges, b.params.AddrRanges)

	if int(port) >= len(ranges) {
		panic(fmt.Sprintf("port %d out of range", port))
	}

	ranges[port] = r
	b.params.AddrRanges = ranges

	return b
}

// WithPolicy sets the built-in policy used by both the burst packer and the
// completion dispatcher.
func (b Builder) WithPolicy(name string) Builder {
	b.reqPolicy = name
	b.cplPolicy = name
	return b
}

// WithPolicies sets the policy objects of the burst packer and the completion
// dispatcher. They take precedence over WithPolicy.
func (b Builder) WithPolicies(req, cpl Policy) Builder {
	b.policies = [2]Policy{req, cpl}
	return b
}

// WithBus sets the bus behind the arbiter.
func (b Builder) WithBus(bus ram.Bus) Builder {
	b.bus = bus
	return b
}

// WithDriver sets the driver of the ports.
func (b Builder) WithDriver(driver ram.PortDriver) Builder {
	b.driver = driver
	return b
}

// Build creates an arbiter. It panics if the arbiter cannot be built with the
// given parameters.
func (b Builder) Build(name string) *Arbiter {
	if err := b.params.Validate(); err != nil {
		panic(err)
	}

	reqPolicy, cplPolicy := b.buildPolicies()

	p := b.params
	a := &Arbiter{
		params: p,
		bus:    b.bus,
		driver: b.driver,
		stats:  make([]PortStats, p.NumPorts),
	}

	a.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, a)

	a.queues = make([]*portQueue, p.NumPorts)
	for i := range a.queues {
		a.queues[i] = newPortQueue(name, ram.PortID(i), p.FIFODepth())
	}

	if p.Mode == ram.ModeWrite {
		a.addrs = make([]*addrGen, p.NumPorts)
		for i := range a.addrs {
			a.addrs[i] = newAddrGen(p.AddrRanges[i], uint64(p.WordBytes))
		}
	}

	a.packer = &burstPacker{burstSize: p.BurstSize, policy: reqPolicy}
	a.tracker = newSeqTracker(name, p.SeqFIFODepth())
	a.store = newCplStore(p.NumPorts, p.CplDepthLog2)
	a.disp = newCplDispatcher(p.NumPorts, p.ReadLatency, cplPolicy)

	return a
}

func (b Builder) buildPolicies() (Policy, Policy) {
	req, cpl := b.policies[0], b.policies[1]

	var err error

	if req == nil {
		req, err = NewPolicy(b.reqPolicy)
		if err != nil {
			panic(err)
		}
	}

	if cpl == nil {
		cpl, err = NewPolicy(b.cplPolicy)
		if err != nil {
			panic(err)
		}
	}

	return req, cpl
}
