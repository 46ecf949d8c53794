// Package trace records what an arbiter does, one event per hook invocation.
package trace

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/core"
	"github.com/sarchlab/ramarbiter/ram"
)

// Kind tells what happened.
type Kind string

// The kinds of events an arbiter reports.
const (
	KindSubmit   Kind = "submit"
	KindDispatch Kind = "dispatch"
	KindBusCpl   Kind = "bus_cpl"
	KindDeliver  Kind = "deliver"
	KindFlag     Kind = "flag"
)

// Event is a flattened arbiter hook item. Fields that do not apply to a kind
// are left zero.
type Event struct {
	Cycle uint64
	Kind  Kind
	Port  ram.PortID
	ReqID string
	Addr  uint64
	Data  uint64

	Write   bool
	SOB     bool
	EOB     bool
	EOF     bool
	Flush   bool
	Dropped bool

	Flags ram.PortFlags
}

// FromHookCtx converts the item of an arbiter hook into an event. It returns
// false for hook positions that are not arbiter events.
func FromHookCtx(ctx sim.HookCtx) (Event, bool) {
	switch item := ctx.Item.(type) {
	case core.SubmitEvent:
		return Event{
			Cycle: item.Cycle,
			Kind:  KindSubmit,
			Port:  item.Port,
			ReqID: item.Req.ID,
			Addr:  item.Req.Addr,
			Data:  item.Req.Data,
		}, true
	case core.DispatchEvent:
		return Event{
			Cycle: item.Cycle,
			Kind:  KindDispatch,
			Port:  item.Port,
			ReqID: item.Req.ID,
			Addr:  item.Req.Addr,
			Data:  item.Req.Data,
			Write: item.Req.Write,
			SOB:   item.Req.SOB,
			EOB:   item.Req.EOB,
			EOF:   item.EOF,
			Flush: item.Flush,
		}, true
	case core.BusCplEvent:
		return Event{
			Cycle:   item.Cycle,
			Kind:    KindBusCpl,
			Port:    item.Port,
			ReqID:   item.ReqID,
			Data:    item.Data,
			EOF:     item.EOF,
			Dropped: item.Dropped,
		}, true
	case core.DeliverEvent:
		return Event{
			Cycle: item.Cycle,
			Kind:  KindDeliver,
			Port:  item.Cpl.Port,
			ReqID: item.Cpl.ReqID,
			Addr:  item.Cpl.Addr,
			Data:  item.Cpl.Data,
			EOF:   item.Cpl.EOF,
		}, true
	case core.FlagEvent:
		return Event{
			Cycle: item.Cycle,
			Kind:  KindFlag,
			Port:  item.Port,
			Flags: item.Flags,
		}, true
	}

	return Event{}, false
}

// A Recorder keeps events.
type Recorder interface {
	Record(e Event)
}

// Hook feeds every arbiter event to a list of recorders.
type Hook struct {
	recorders []Recorder
}

// NewHook creates a hook that records into the given recorders.
func NewHook(recorders ...Recorder) *Hook {
	return &Hook{recorders: recorders}
}

// Func records the event carried by the hook context.
func (h *Hook) Func(ctx sim.HookCtx) {
	e, ok := FromHookCtx(ctx)
	if !ok {
		return
	}

	for _, r := range h.recorders {
		r.Record(e)
	}
}

// Collect attaches a new hook with the given recorders to an arbiter.
func Collect(a *core.Arbiter, recorders ...Recorder) *Hook {
	h := NewHook(recorders...)
	a.AcceptHook(h)

	return h
}

// MemoryRecorder keeps the events in memory.
type MemoryRecorder struct {
	events []Event
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends an event.
func (r *MemoryRecorder) Record(e Event) {
	r.events = append(r.events, e)
}

// Events returns every event in the order it was recorded.
func (r *MemoryRecorder) Events() []Event {
	return r.events
}

// Filter returns the events of one kind.
func (r *MemoryRecorder) Filter(kind Kind) []Event {
	return Filter(r.events, kind)
}

// Filter returns the events of one kind.
func Filter(events []Event, kind Kind) []Event {
	var out []Event

	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}

// OfPort returns the events of one port.
func OfPort(events []Event, port ram.PortID) []Event {
	var out []Event

	for _, e := range events {
		if e.Port == port {
			out = append(out, e)
		}
	}

	return out
}
