// Package api defines the driver API that plays the users of an arbiter.
package api

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/ram"
	"github.com/sarchlab/ramarbiter/util/valgen"
)

// Device is the arbiter as the driver sees it.
type Device interface {
	NumPorts() int
	CplOccupancy(port ram.PortID) int

	// Active tells if a port still holds a session open, including the
	// drain after its frame fell.
	Active(port ram.PortID) bool
	SetDriver(driver ram.PortDriver)
	TickNow()
}

// FlagCounts counts how often each port flag was raised.
type FlagCounts struct {
	ReqOverflow int
	ReqIgnored  int
	AckOverflow int
	CplOverflow int
	Done        int
}

// Driver provides the interface to control the users of an arbiter.
type Driver interface {
	ram.PortDriver

	// RegisterDevice registers a device to the driver. The device samples the
	// driver every cycle from then on.
	RegisterDevice(device Device)

	// FeedIn adds one frame of requests to a port. The frame rises when the
	// task starts, one request is offered on each cycle where the repeating
	// enable pattern is '1', and the frame drops after the last request.
	// Frames of the same port run one after another. A frame does not start
	// before the frame gap has passed and the port has finished draining the
	// previous one.
	FeedIn(port ram.PortID, reqs []ram.Request, enablePattern string)

	// Collect acknowledges completions of a port on the cycles where the
	// repeating pattern is '1'. It only acknowledges when a completion is
	// stored and no acknowledgement is outstanding.
	Collect(port ram.PortID, ackPattern string)

	// CollectGreedy acknowledges on every '1' cycle of the pattern regardless
	// of what the arbiter holds.
	CollectGreedy(port ram.PortID, ackPattern string)

	// Completions returns the completions delivered to a port so far.
	Completions(port ram.PortID) []ram.Completion

	// Flags returns the flag counters of a port.
	Flags(port ram.PortID) FlagCounts

	// Run will run all the tasks that have been added to the driver.
	Run()
}

type driverImpl struct {
	name     string
	engine   sim.Engine
	frameGap int

	device Device
	ports  []*portState
}

type portState struct {
	feedInTasks []*feedInTask
	gap         int

	collect *collectTask

	completions []ram.Completion
	flags       FlagCounts
}

type feedInTask struct {
	reqs    []ram.Request
	enable  func() bool
	round   int
	started bool
	dropped bool
}

func (t *feedInTask) isFinished() bool {
	return t.dropped
}

type collectTask struct {
	ack         func() bool
	greedy      bool
	outstanding bool
}

func (d *driverImpl) stateOf(port ram.PortID) *portState {
	if d.device == nil {
		panic("no device registered")
	}

	if int(port) < 0 || int(port) >= len(d.ports) {
		panic(fmt.Sprintf("port %d does not exist", port))
	}

	return d.ports[port]
}

// RegisterDevice registers a device to the driver.
func (d *driverImpl) RegisterDevice(device Device) {
	d.device = device
	d.ports = make([]*portState, device.NumPorts())

	for i := range d.ports {
		d.ports[i] = &portState{}
	}

	device.SetDriver(d)
}

// FeedIn adds a frame of requests to a port.
func (d *driverImpl) FeedIn(
	port ram.PortID,
	reqs []ram.Request,
	enablePattern string,
) {
	p := d.stateOf(port)

	task := &feedInTask{
		reqs:   make([]ram.Request, len(reqs)),
		enable: valgen.MustPatternGen(enablePattern),
	}

	for i, req := range reqs {
		if req.ID == "" {
			req.ID = sim.GetIDGenerator().Generate()
		}

		task.reqs[i] = req
	}

	p.feedInTasks = append(p.feedInTasks, task)
}

// Collect acknowledges completions of a port.
func (d *driverImpl) Collect(port ram.PortID, ackPattern string) {
	p := d.stateOf(port)
	p.collect = &collectTask{ack: valgen.MustPatternGen(ackPattern)}
}

// CollectGreedy acknowledges on every '1' cycle of the pattern.
func (d *driverImpl) CollectGreedy(port ram.PortID, ackPattern string) {
	p := d.stateOf(port)
	p.collect = &collectTask{
		ack:    valgen.MustPatternGen(ackPattern),
		greedy: true,
	}
}

// Sample returns the inputs of a port for the current cycle.
func (d *driverImpl) Sample(port ram.PortID) ram.PortInputs {
	p := d.stateOf(port)
	in := ram.PortInputs{}

	d.doFeedIn(port, p, &in)
	d.doCollect(port, p, &in)

	return in
}

func (d *driverImpl) doFeedIn(
	port ram.PortID,
	p *portState,
	in *ram.PortInputs,
) {
	if p.gap > 0 {
		p.gap--
		return
	}

	if len(p.feedInTasks) == 0 {
		return
	}

	task := p.feedInTasks[0]

	if !task.started {
		if d.device.Active(port) {
			return
		}

		task.started = true
	}

	if task.round < len(task.reqs) {
		in.Frame = true

		if task.enable() {
			in.ReqEnable = true
			in.Req = task.reqs[task.round]
			task.round++
		}

		return
	}

	task.dropped = true
	p.gap = d.frameGap
	d.removeFinishedFeedInTasks(p)
}

func (d *driverImpl) removeFinishedFeedInTasks(p *portState) {
	for i := len(p.feedInTasks) - 1; i >= 0; i-- {
		if p.feedInTasks[i].isFinished() {
			p.feedInTasks = append(
				p.feedInTasks[:i], p.feedInTasks[i+1:]...)
		}
	}
}

func (d *driverImpl) doCollect(
	port ram.PortID,
	p *portState,
	in *ram.PortInputs,
) {
	task := p.collect
	if task == nil {
		return
	}

	if !task.ack() {
		return
	}

	if task.greedy {
		in.CplAck = true
		return
	}

	if task.outstanding || d.device.CplOccupancy(port) == 0 {
		return
	}

	in.CplAck = true
	task.outstanding = true
}

// Deliver receives the outputs of a port.
func (d *driverImpl) Deliver(port ram.PortID, out ram.PortOutputs) {
	p := d.stateOf(port)

	if out.Cpl != nil {
		p.completions = append(p.completions, *out.Cpl)

		if p.collect != nil {
			p.collect.outstanding = false
		}
	}

	if out.Flags.ReqOverflow {
		p.flags.ReqOverflow++
	}

	if out.Flags.ReqIgnored {
		p.flags.ReqIgnored++
	}

	if out.Flags.AckOverflow {
		p.flags.AckOverflow++
	}

	if out.Flags.CplOverflow {
		p.flags.CplOverflow++
	}

	if out.Flags.Done {
		p.flags.Done++
	}
}

// Pending reports whether any port still has frames to send.
func (d *driverImpl) Pending() bool {
	for _, p := range d.ports {
		if len(p.feedInTasks) > 0 || p.gap > 0 {
			return true
		}
	}

	return false
}

// Collecting reports whether a port acknowledges completions.
func (d *driverImpl) Collecting(port ram.PortID) bool {
	return d.stateOf(port).collect != nil
}

// Completions returns the completions delivered to a port.
func (d *driverImpl) Completions(port ram.PortID) []ram.Completion {
	return d.stateOf(port).completions
}

// Flags returns the flag counters of a port.
func (d *driverImpl) Flags(port ram.PortID) FlagCounts {
	return d.stateOf(port).flags
}

// Run runs all the tasks in the driver.
func (d *driverImpl) Run() {
	d.device.TickNow()

	if err := d.engine.Run(); err != nil {
		panic(err)
	}
}
