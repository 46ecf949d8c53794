package config

import (
	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/api"
	"github.com/sarchlab/ramarbiter/core"
	"github.com/sarchlab/ramarbiter/mem"
	"github.com/sarchlab/ramarbiter/ram"
	"github.com/sarchlab/ramarbiter/util/valgen"
)

// A Platform is everything one simulation needs: an engine, the arbiter, the
// memory behind it and the driver in front of it.
type Platform struct {
	Engine  sim.Engine
	Arbiter *core.Arbiter
	Memory  *mem.Memory
	Driver  api.Driver

	// Requests holds, per port, every request fed in, frame after frame.
	Requests [][]ram.Request
}

// Run runs the simulation until there is nothing left to do.
func (p *Platform) Run() {
	p.Driver.Run()
}

// frameGap is the least number of cycles a frame stays low. The driver also
// holds the next frame until the port has drained the previous one.
const frameGap = 1

// PlatformBuilder can build platforms from a config.
type PlatformBuilder struct {
	cfg     Config
	engine  sim.Engine
	monitor *monitoring.Monitor
	hooks   []sim.Hook
}

// WithConfig sets the config to build.
func (b PlatformBuilder) WithConfig(cfg Config) PlatformBuilder {
	b.cfg = cfg
	return b
}

// WithEngine sets the engine. A serial engine is created if not set.
func (b PlatformBuilder) WithEngine(engine sim.Engine) PlatformBuilder {
	b.engine = engine
	return b
}

// WithMonitor sets the monitor that watches the engine and the arbiter.
func (b PlatformBuilder) WithMonitor(monitor *monitoring.Monitor) PlatformBuilder {
	b.monitor = monitor
	return b
}

// WithHook adds a hook to the arbiter.
func (b PlatformBuilder) WithHook(hook sim.Hook) PlatformBuilder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], hook)
	return b
}

// Build creates the platform. It panics if the config is invalid.
func (b PlatformBuilder) Build(name string) *Platform {
	if err := b.cfg.Validate(); err != nil {
		panic(err)
	}

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	params, _ := b.cfg.Params()
	freq := sim.Freq(b.cfg.Arbiter.FreqGHz) * sim.GHz

	memory := b.buildMemory(name)

	arbiter := core.NewBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithParams(params).
		WithPolicies(b.policies()).
		WithBus(memory).
		Build(name + ".Arbiter")

	for _, h := range b.hooks {
		arbiter.AcceptHook(h)
	}

	if b.monitor != nil {
		b.monitor.RegisterEngine(engine)
		b.monitor.RegisterComponent(arbiter)
	}

	driver := api.DriverBuilder{}.
		WithEngine(engine).
		WithFrameGap(frameGap).
		Build(name + ".Driver")
	driver.RegisterDevice(arbiter)

	p := &Platform{
		Engine:   engine,
		Arbiter:  arbiter,
		Memory:   memory,
		Driver:   driver,
		Requests: make([][]ram.Request, len(b.cfg.Ports)),
	}

	for i, port := range b.cfg.Ports {
		b.setUpPort(p, ram.PortID(i), port)
	}

	return p
}

func (b PlatformBuilder) policies() (core.Policy, core.Policy) {
	req, _ := core.NewPolicy(b.cfg.Arbiter.Policy)
	cpl, _ := core.NewPolicy(b.cfg.Arbiter.CplPolicy)

	return req, cpl
}

func (b PlatformBuilder) buildMemory(name string) *mem.Memory {
	mb := mem.MakeBuilder().
		WithLatency(b.cfg.Memory.Latency).
		WithNewStorage(b.cfg.Memory.Capacity).
		WithWordBytes(b.cfg.Arbiter.WordBytes).
		WithMaxOutstanding(b.cfg.Memory.MaxOutstanding).
		WithStallPattern(b.cfg.Memory.StallPattern)

	if b.cfg.Memory.DropIDs {
		mb = mb.WithoutReqIDs()
	}

	return mb.Build(name + ".Mem")
}

func (b PlatformBuilder) setUpPort(p *Platform, port ram.PortID, cfg PortConfig) {
	mode, _ := b.cfg.Mode()
	word := uint64(b.cfg.Arbiter.WordBytes)

	if mode == ram.ModeRead && b.cfg.Memory.FillWithAddress && cfg.Requests > 0 {
		p.Memory.Fill(cfg.AddrFirst, cfg.Requests,
			valgen.MakeStrideGen(cfg.AddrFirst, word))
	}

	data := valgen.MakeIncreasingGen(cfg.DataStart)

	for f := 0; f < cfg.Frames; f++ {
		addr := valgen.MakeStrideGen(cfg.AddrFirst, word)
		reqs := make([]ram.Request, cfg.Requests)

		for i := range reqs {
			reqs[i].ID = sim.GetIDGenerator().Generate()

			if mode == ram.ModeWrite {
				reqs[i].Data = data()
			} else {
				reqs[i].Addr = addr()
			}
		}

		p.Driver.FeedIn(port, reqs, cfg.EnablePattern)
		p.Requests[port] = append(p.Requests[port], reqs...)
	}

	switch {
	case cfg.NoCollect:
	case cfg.GreedyAck:
		p.Driver.CollectGreedy(port, cfg.AckPattern)
	default:
		p.Driver.Collect(port, cfg.AckPattern)
	}
}
