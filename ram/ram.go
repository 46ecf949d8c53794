// Package ram defines the data types that are shared by the port arbiter, the
// memory bus behind it, and the port adapters in front of it.
package ram

import "fmt"

// PortID identifies one user port of the arbiter.
type PortID int

// MaxPorts is the largest number of ports an arbiter can serve. Candidate sets
// are passed around as 64-bit masks.
const MaxPorts = 64

// Mode selects which variant of the arbiter is modelled.
type Mode int

const (
	// ModeRead packs address-only read requests into bursts and returns the
	// read data to the ports.
	ModeRead Mode = iota

	// ModeWrite packs data-only write requests into bursts. Addresses are
	// generated per port from a configured address range.
	ModeWrite
)

// String returns the name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "read", "":
		return ModeRead, nil
	case "write":
		return ModeWrite, nil
	default:
		return ModeRead, fmt.Errorf("unknown arbiter mode %q", s)
	}
}

// Request is a single-word access submitted by a port.
type Request struct {
	ID   string
	Addr uint64
	Data uint64
}

// Completion is one completed request handed back to the port that issued it.
type Completion struct {
	Port  PortID
	ReqID string
	Addr  uint64
	Data  uint64
	EOF   bool
}

// PortFlags are the per-port error indications of one cycle. They are not
// sticky: an excess event raises its flag only in the cycle it happens.
type PortFlags struct {
	ReqOverflow bool
	AckOverflow bool
	CplOverflow bool

	// ReqIgnored is raised when a port offers a request the arbiter refuses
	// because the port has no open session to put it in. That happens
	// outside a frame, while the port still drains its previous frame, and
	// after a single-shot range is used up.
	ReqIgnored bool

	// Done is raised when a single-shot write port has used up its address
	// range.
	Done bool
}

// Any returns true if any flag is raised.
func (f PortFlags) Any() bool {
	return f.ReqOverflow || f.ReqIgnored ||
		f.AckOverflow || f.CplOverflow || f.Done
}

// PortInputs are the signals a port drives into the arbiter in one cycle.
type PortInputs struct {
	Frame     bool
	ReqEnable bool
	Req       Request
	CplAck    bool
}

// PortOutputs are the signals the arbiter drives back to a port in one cycle.
type PortOutputs struct {
	Cpl   *Completion
	Flags PortFlags
}

// Bus is the memory bus behind the arbiter. It accepts one word per cycle when
// ready and returns completions in the order the requests were issued. The bus
// never learns which port a request came from.
type Bus interface {
	// Ready reports whether the bus can accept a request in this cycle.
	Ready() bool

	// Issue sends a request to the bus.
	Issue(req BusReq)

	// Step advances the bus by one cycle and returns the completion that
	// becomes valid in this cycle, if any.
	Step() (BusCpl, bool)
}

// PortDriver is the user side of the arbiter. The arbiter samples every port
// once per cycle and delivers outputs back to it.
type PortDriver interface {
	// Sample returns the inputs of the port for the current cycle.
	Sample(port PortID) PortInputs

	// Deliver hands the outputs of the current cycle to the port. It is only
	// called if there is a completion or a raised flag.
	Deliver(port PortID, out PortOutputs)

	// Pending reports whether the driver still has stimulus to apply.
	Pending() bool

	// Collecting reports whether the port is expected to acknowledge
	// completions.
	Collecting(port PortID) bool
}
