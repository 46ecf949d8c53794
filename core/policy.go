package core

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/ramarbiter/ram"
)

// Policy picks one port out of a set of candidate ports. Candidates are given
// as a bit mask where bit i stands for port i.
//
// Select must not change the state of the policy. Commit is called once the
// selected port is actually granted.
type Policy interface {
	Select(candidates uint64) (ram.PortID, bool)
	Commit(granted ram.PortID)
}

// Names of the built-in policies.
const (
	PolicyFixed      = "fixed"
	PolicyRoundRobin = "round-robin"
)

// NewPolicy creates a built-in policy by name.
func NewPolicy(name string) (Policy, error) {
	switch name {
	case PolicyFixed, "":
		return FixedPriority{}, nil
	case PolicyRoundRobin:
		return NewRoundRobin(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// FixedPriority always grants the lowest-index candidate. High-index ports
// can starve while low-index ports keep asking.
type FixedPriority struct{}

// Select returns the lowest-index candidate.
func (FixedPriority) Select(candidates uint64) (ram.PortID, bool) {
	if candidates == 0 {
		return 0, false
	}

	return ram.PortID(bits.TrailingZeros64(candidates)), true
}

// Commit does nothing.
func (FixedPriority) Commit(ram.PortID) {}

// RoundRobin grants the first candidate after the previously granted port,
// wrapping around.
type RoundRobin struct {
	last int
}

// NewRoundRobin creates a RoundRobin policy that starts from port 0.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{last: -1}
}

// Select returns the first candidate after the last granted port.
func (r *RoundRobin) Select(candidates uint64) (ram.PortID, bool) {
	if candidates == 0 {
		return 0, false
	}

	start := uint((r.last + 1) % ram.MaxPorts)
	upper := candidates &^ (uint64(1)<<start - 1)

	if upper != 0 {
		return ram.PortID(bits.TrailingZeros64(upper)), true
	}

	return ram.PortID(bits.TrailingZeros64(candidates)), true
}

// Commit remembers the granted port.
func (r *RoundRobin) Commit(granted ram.PortID) {
	r.last = int(granted)
}
