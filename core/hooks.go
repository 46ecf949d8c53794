package core

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/ram"
)

// Hook positions at which the arbiter reports what it does.
var (
	// HookPosSubmit marks a request accepted into a port queue.
	HookPosSubmit = &sim.HookPos{Name: "Arbiter Submit"}

	// HookPosDispatch marks a word sent to the bus.
	HookPosDispatch = &sim.HookPos{Name: "Arbiter Dispatch"}

	// HookPosBusCpl marks a bus completion stored for a port.
	HookPosBusCpl = &sim.HookPos{Name: "Arbiter Bus Completion"}

	// HookPosDeliver marks a completion handed back to a port.
	HookPosDeliver = &sim.HookPos{Name: "Arbiter Deliver"}

	// HookPosFlag marks a raised port flag.
	HookPosFlag = &sim.HookPos{Name: "Arbiter Flag"}
)

// SubmitEvent is the hook item of HookPosSubmit.
type SubmitEvent struct {
	Cycle uint64
	Port  ram.PortID
	Req   ram.Request
}

// DispatchEvent is the hook item of HookPosDispatch.
type DispatchEvent struct {
	Cycle uint64
	Port  ram.PortID
	Req   ram.BusReq
	EOF   bool
	Flush bool
}

// BusCplEvent is the hook item of HookPosBusCpl.
type BusCplEvent struct {
	Cycle   uint64
	Port    ram.PortID
	ReqID   string
	Data    uint64
	EOF     bool
	Dropped bool
}

// DeliverEvent is the hook item of HookPosDeliver.
type DeliverEvent struct {
	Cycle uint64
	Cpl   ram.Completion
}

// FlagEvent is the hook item of HookPosFlag.
type FlagEvent struct {
	Cycle uint64
	Port  ram.PortID
	Flags ram.PortFlags
}
