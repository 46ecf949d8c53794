// Package verify checks a recorded arbiter run against the rules every run
// must follow.
//
// The checks only look at the trace, never at the arbiter itself, so they work
// on events that come from a MemoryRecorder as well as on runs read back from
// a SQLite database.
//
// # Checks
//
//   - DISPATCH: at most one word goes to the bus in a cycle.
//   - ORDER: every port sees its words dispatched and delivered in the order
//     it submitted them.
//   - ATTRIBUTION: every bus completion belongs to the word dispatched at the
//     same position, and a port only receives its own data.
//   - BURST: words of a burst are consecutive on the bus, come from one port,
//     start with SOB and end with EOB. A full burst has exactly the burst size
//     and a flush burst is shorter.
//   - EOF: EOF only marks the last word of a burst, and a completion carries
//     the EOF of its word.
//   - ADDRESS: in write mode, addresses stay in the port range, increase by a
//     word within a burst and never cross a page.
//   - LOST: every submitted word is dispatched and every dispatched word is
//     completed by the bus.
//
// # Usage Example
//
//	rec := trace.NewMemoryRecorder()
//	platform := config.PlatformBuilder{}.
//	    WithConfig(cfg).
//	    WithHook(trace.NewHook(rec)).
//	    Build("Platform")
//	platform.Run()
//
//	report := verify.NewReport(rec.Events(), platform.Arbiter.Params())
//	report.WriteReport(os.Stdout)
package verify

import (
	"fmt"

	"github.com/sarchlab/ramarbiter/core"
	"github.com/sarchlab/ramarbiter/ram"
	"github.com/sarchlab/ramarbiter/trace"
)

// IssueType categorizes issues
type IssueType string

const (
	IssueDispatch    IssueType = "DISPATCH"
	IssueOrder       IssueType = "ORDER"
	IssueAttribution IssueType = "ATTRIBUTION"
	IssueBurst       IssueType = "BURST"
	IssueEOF         IssueType = "EOF"
	IssueAddress     IssueType = "ADDRESS"
	IssueLost        IssueType = "LOST"
)

// Issue represents a single broken rule
type Issue struct {
	Type    IssueType
	Port    int    // -1 if not applicable
	Cycle   uint64 // 0 if not applicable
	ReqID   string
	Message string
	Details map[string]interface{}
}

// Check runs every check over the events of one run.
func Check(events []trace.Event, p core.Params) []Issue {
	c := &checker{params: p}

	dispatches := trace.Filter(events, trace.KindDispatch)

	c.checkDispatchWidth(dispatches)
	c.checkDispatchOrder(trace.Filter(events, trace.KindSubmit), dispatches)
	c.checkBursts(dispatches)
	c.checkBusCpl(dispatches, trace.Filter(events, trace.KindBusCpl))
	c.checkDelivery(
		trace.Filter(events, trace.KindBusCpl),
		trace.Filter(events, trace.KindDeliver))

	if p.Mode == ram.ModeWrite {
		c.checkAddresses(dispatches)
	}

	return c.issues
}

type checker struct {
	params core.Params
	issues []Issue
}

func (c *checker) report(t IssueType, e trace.Event, format string, args ...any) {
	c.issues = append(c.issues, Issue{
		Type:    t,
		Port:    int(e.Port),
		Cycle:   e.Cycle,
		ReqID:   e.ReqID,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *checker) checkDispatchWidth(dispatches []trace.Event) {
	for i := 1; i < len(dispatches); i++ {
		if dispatches[i].Cycle == dispatches[i-1].Cycle {
			c.report(IssueDispatch, dispatches[i],
				"second word dispatched in cycle %d", dispatches[i].Cycle)
		}
	}
}

// byPort groups the events by port, keeping their order.
func byPort(events []trace.Event) map[ram.PortID][]trace.Event {
	m := make(map[ram.PortID][]trace.Event)
	for _, e := range events {
		m[e.Port] = append(m[e.Port], e)
	}

	return m
}

func (c *checker) checkDispatchOrder(submits, dispatches []trace.Event) {
	submitted := byPort(submits)
	dispatched := byPort(dispatches)

	for port, subs := range submitted {
		disps := dispatched[port]

		for i, s := range subs {
			if i >= len(disps) {
				c.report(IssueLost, s,
					"submitted in cycle %d but never dispatched", s.Cycle)
				continue
			}

			if disps[i].ReqID != s.ReqID {
				c.report(IssueOrder, disps[i],
					"dispatched as word %d of port %d, expected %q",
					i, port, s.ReqID)
			}
		}
	}

	for port, disps := range dispatched {
		if extra := len(disps) - len(submitted[port]); extra > 0 {
			c.report(IssueOrder, disps[len(submitted[port])],
				"%d words dispatched that were never submitted", extra)
		}
	}
}

type openBurst struct {
	port   ram.PortID
	length int
	flush  bool
	first  trace.Event
}

func (c *checker) checkBursts(dispatches []trace.Event) {
	var burst *openBurst

	for _, d := range dispatches {
		if d.EOF && !d.EOB {
			c.report(IssueEOF, d, "EOF on a word that does not end a burst")
		}

		if d.SOB {
			if burst != nil {
				c.report(IssueBurst, d,
					"burst of port %d started before the burst of port %d ended",
					d.Port, burst.port)
			}

			burst = &openBurst{port: d.Port, flush: d.Flush, first: d}
		} else if burst == nil {
			c.report(IssueBurst, d, "word outside of a burst")
			continue
		} else if burst.port != d.Port {
			c.report(IssueBurst, d, "word of port %d inside a burst of port %d",
				d.Port, burst.port)
		}

		burst.length++

		if d.EOB {
			c.closeBurst(burst, d)
			burst = nil
		}
	}

	if burst != nil {
		c.report(IssueBurst, burst.first, "burst never ended")
	}
}

func (c *checker) closeBurst(b *openBurst, last trace.Event) {
	size := c.params.BurstSize

	switch {
	case b.length > size:
		c.report(IssueBurst, last, "burst of %d words, longer than %d",
			b.length, size)
	case !b.flush && b.length != size:
		c.report(IssueBurst, last, "full burst of %d words, expected %d",
			b.length, size)
	case b.flush && b.length == size:
		c.report(IssueBurst, last, "flush burst of a full %d words", size)
	}
}

func (c *checker) checkBusCpl(dispatches, cpls []trace.Event) {
	for i, cpl := range cpls {
		if i >= len(dispatches) {
			c.report(IssueAttribution, cpl,
				"bus completion with no dispatched word")
			continue
		}

		d := dispatches[i]
		if cpl.ReqID != d.ReqID || cpl.Port != d.Port {
			c.report(IssueAttribution, cpl,
				"bus completion %d belongs to %q of port %d", i, d.ReqID, d.Port)
		}

		if cpl.EOF != d.EOF {
			c.report(IssueEOF, cpl, "completion EOF %v, word was dispatched with %v",
				cpl.EOF, d.EOF)
		}
	}

	for _, d := range dispatches[min(len(cpls), len(dispatches)):] {
		c.report(IssueLost, d, "dispatched in cycle %d but never completed",
			d.Cycle)
	}
}

func (c *checker) checkDelivery(cpls, delivers []trace.Event) {
	stored := make(map[ram.PortID][]trace.Event)
	for _, cpl := range cpls {
		if !cpl.Dropped {
			stored[cpl.Port] = append(stored[cpl.Port], cpl)
		}
	}

	for port, dels := range byPort(delivers) {
		want := stored[port]

		for i, del := range dels {
			if i >= len(want) {
				c.report(IssueAttribution, del,
					"delivered to port %d that has nothing stored", port)
				continue
			}

			w := want[i]

			switch {
			case del.ReqID != w.ReqID:
				c.report(IssueOrder, del, "delivered %q, expected %q",
					del.ReqID, w.ReqID)
			case del.Data != w.Data:
				c.issues = append(c.issues, Issue{
					Type:    IssueAttribution,
					Port:    int(port),
					Cycle:   del.Cycle,
					ReqID:   del.ReqID,
					Message: "delivered data differs from the bus data",
					Details: map[string]interface{}{
						"bus_data":       w.Data,
						"delivered_data": del.Data,
					},
				})
			case del.EOF != w.EOF:
				c.report(IssueEOF, del, "delivered EOF %v, stored %v",
					del.EOF, w.EOF)
			}
		}
	}
}

func (c *checker) checkAddresses(dispatches []trace.Event) {
	word := uint64(c.params.WordBytes)

	var prev *trace.Event

	for i, d := range dispatches {
		if int(d.Port) < len(c.params.AddrRanges) {
			r := c.params.AddrRanges[d.Port]
			if d.Addr < r.First || d.Addr > r.Last {
				c.report(IssueAddress, d, "address %#x outside %#x..%#x",
					d.Addr, r.First, r.Last)
			}
		}

		if !d.SOB && prev != nil {
			if d.Addr != prev.Addr+word {
				c.report(IssueAddress, d,
					"address %#x does not follow %#x in the burst",
					d.Addr, prev.Addr)
			}

			if d.Addr/core.PageBytes != prev.Addr/core.PageBytes {
				c.report(IssueAddress, d, "burst crosses the page at %#x",
					d.Addr/core.PageBytes*core.PageBytes)
			}
		}

		prev = &dispatches[i]
	}
}
